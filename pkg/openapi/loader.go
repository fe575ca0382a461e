package openapi

import (
	"context"
	"net/url"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/getkin/kin-openapi/openapi3"
)

// LoadDocument loads an OpenAPI document from a local file path or an HTTP(S) URL
func LoadDocument(input string) (*openapi3.T, error) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	return LoadDocumentWithLoader(loader, input)
}

// LoadDocumentWithLoader loads an OpenAPI document using a custom loader
func LoadDocumentWithLoader(loader *openapi3.Loader, input string) (*openapi3.T, error) {
	if u, err := url.Parse(input); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		doc, err := loader.LoadFromURI(u)
		return doc, errors.Wrapf(err, "fetch %s", input)
	}
	doc, err := loader.LoadFromFile(input)
	return doc, errors.Wrapf(err, "read %s", input)
}

// ValidateDocument loads and validates an OpenAPI document, then checks that
// its component schemas have an Elm binding.
func ValidateDocument(input string) error {
	loader := &openapi3.Loader{IsExternalRefsAllowed: true}
	doc, err := LoadDocumentWithLoader(loader, input)
	if err != nil {
		return err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return errors.Wrap(err, "invalid OpenAPI document")
	}
	_, err = Convert(doc, nil)
	return err
}
