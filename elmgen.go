// Package elmgen generates Elm bindings for Go types and OpenAPI schemas: one
// Elm module holding a type declaration, a JSON encoder and a JSON decoder
// per named type, plus optional URL query encoders.
//
// Quick Start:
//
//	import "github.com/blimu-dev/elmgen"
//
//	type Filetype string
//
//	const (
//		Jpeg Filetype = "Jpeg"
//		Png  Filetype = "Png"
//	)
//
//	type Drawing struct {
//		Title    string   `json:"title"`
//		Filetype Filetype `json:"filetype"`
//	}
//
//	err := elmgen.Export("Bindings", os.Stdout,
//		elmgen.Enum(Jpeg, Png),
//		elmgen.Type[Drawing](),
//	)
//
// Values are exchanged in the format described by the wire package. For
// OpenAPI input see GenerateFromConfig and the generator package.
package elmgen

import (
	"io"
	"reflect"

	"github.com/blimu-dev/elmgen/pkg/derive"
	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/generator"
	"github.com/blimu-dev/elmgen/pkg/generator/elm"
)

// Option adds a root type, a registration or a rendering setting to an
// export.
type Option func(*exporter) error

type root struct {
	t     reflect.Type
	query bool
}

type exporter struct {
	d     *derive.Deriver
	roots []root
	opts  []elm.Option
}

// Type binds T with a type declaration, a JSON encoder and a JSON decoder.
func Type[T any]() Option {
	return func(e *exporter) error {
		e.roots = append(e.roots, root{t: typeOf[T]()})
		return nil
	}
}

// WithQuery binds T like Type and also emits a URL query encoder for it.
// T must be a struct.
func WithQuery[T any]() Option {
	return func(e *exporter) error {
		e.roots = append(e.roots, root{t: typeOf[T](), query: true})
		return nil
	}
}

// Sum declares that the interface I is a closed union of variants.
//
//	elmgen.Sum[Shape](elmgen.Variant[Circle](), elmgen.Variant[Label]())
func Sum[I any](variants ...derive.VariantSpec) Option {
	return func(e *exporter) error {
		return e.d.RegisterSum(typeOf[I](), "", variants...)
	}
}

// Variant names T as a variant of a Sum. The variant tag defaults to the Go
// type name; pass name to override it.
func Variant[T any](name ...string) derive.VariantSpec {
	v := derive.VariantSpec{Type: typeOf[T]()}
	if len(name) > 0 {
		v.Name = name[0]
	}
	return v
}

// Enum declares that T takes exactly values. Each value becomes a
// payload-less constructor named after its string form.
func Enum[T comparable](values ...T) Option {
	return func(e *exporter) error {
		anys := make([]any, len(values))
		for i, v := range values {
			anys[i] = v
		}
		return e.d.RegisterEnum(typeOf[T](), "", anys...)
	}
}

// Source names the input the module was generated from in its banner.
func Source(source string) Option {
	return func(e *exporter) error {
		e.opts = append(e.opts, elm.WithSource(source))
		return nil
	}
}

// Render generates the Elm module text for the given options.
func Render(moduleName string, opts ...Option) ([]byte, error) {
	e := &exporter{d: derive.New()}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	roots := make([]elm.Root, 0, len(e.roots))
	for _, r := range e.roots {
		sh, err := e.d.Shape(r.t)
		if err != nil {
			return nil, err
		}
		if r.query {
			roots = append(roots, elm.WithQuery(sh))
		} else {
			roots = append(roots, elm.JSON(sh))
		}
	}
	return elm.Render(moduleName, roots, e.opts...)
}

// Export renders the module and writes it to w. Nothing is written unless
// generation succeeds.
func Export(moduleName string, w io.Writer, opts ...Option) error {
	out, err := Render(moduleName, opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return errors.IOFailure(err)
	}
	return nil
}

// GenerateFromConfig generates Elm modules from a YAML or TOML configuration
// file. Optionally, you can specify a single module name to generate only
// that module.
//
//	results, err := elmgen.GenerateFromConfig("./elmgen.yaml")
func GenerateFromConfig(configPath string, singleModule ...string) ([]generator.Result, error) {
	return generator.GenerateFromConfig(configPath, singleModule...)
}

// ValidateSpec validates an OpenAPI specification file and checks that every
// component schema has an Elm binding.
func ValidateSpec(specPath string) error {
	return generator.ValidateSpec(specPath)
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
