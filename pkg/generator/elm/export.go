// Package elm generates an Elm module with type declarations, JSON encoders
// and decoders, and optional query parameter encoders for a set of shapes.
package elm

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
	"go.uber.org/zap"
)

//go:embed templates/*.gotmpl
var templatesFS embed.FS

var headerTemplate = template.Must(
	template.New("header.elm.gotmpl").Funcs(sprig.TxtFuncMap()).ParseFS(templatesFS, "templates/header.elm.gotmpl"),
)

// Imports every generated module starts with.
var Imports = []string{
	"Dict exposing (Dict)",
	"Json.Decode",
	"Json.Encode",
	"Url.Builder",
}

// Capability is the set of bindings a root type provides.
type Capability uint8

const (
	CapShape Capability = 1 << iota
	CapEncoder
	CapDecoder
	CapQuery

	// CapJSON is what every root must provide.
	CapJSON = CapShape | CapEncoder | CapDecoder
)

// Root is one type handed to Export.
type Root struct {
	Shape *ir.Shape
	Caps  Capability
}

// JSON returns a root providing a type declaration, encoder and decoder.
func JSON(s *ir.Shape) Root {
	return Root{Shape: s, Caps: CapJSON}
}

// WithQuery returns a root that also provides a query parameter encoder.
func WithQuery(s *ir.Shape) Root {
	return Root{Shape: s, Caps: CapJSON | CapQuery}
}

type options struct {
	source string
}

// Option configures rendering.
type Option func(*options)

// WithSource names the input the module was generated from in its banner.
func WithSource(source string) Option {
	return func(o *options) { o.source = source }
}

// Export renders the module and writes it to w. Nothing is written unless
// generation succeeds; write errors are returned as ErrIOFailure.
func Export(moduleName string, w io.Writer, roots ...Root) error {
	out, err := Render(moduleName, roots)
	if err != nil {
		return err
	}
	if _, err := w.Write(out); err != nil {
		return errors.IOFailure(err)
	}
	return nil
}

// Render generates the module text for roots. For each root, in order, it
// walks the type declaration, encoder and decoder (and the query encoder
// when requested) against one session, then prints the header followed by
// every recorded definition.
func Render(moduleName string, roots []Root, opts ...Option) ([]byte, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := naming.ValidateModule(moduleName); err != nil {
		return nil, err
	}

	shapes := make([]*ir.Shape, 0, len(roots))
	for i, root := range roots {
		path := []string{fmt.Sprintf("root %d", i)}
		if root.Shape == nil {
			return nil, errors.Unrepresentable(path, "no shape")
		}
		if missing := CapJSON &^ root.Caps; missing != 0 {
			return nil, errors.Unrepresentable(rootPath(root.Shape, path), "missing capabilities %s", missing)
		}
		shapes = append(shapes, root.Shape)
	}

	table, err := ir.NewTable(shapes...)
	if err != nil {
		return nil, err
	}
	s := NewSession(table)
	e := &emitter{s: s}

	for i, root := range roots {
		path := rootPath(root.Shape, []string{fmt.Sprintf("root %d", i)})
		if _, err := e.typeExpr(root.Shape, path); err != nil {
			return nil, err
		}
		if _, err := e.encoderExpr(root.Shape, path); err != nil {
			return nil, err
		}
		if _, err := e.decoderExpr(root.Shape, path); err != nil {
			return nil, err
		}
		if root.Caps&CapQuery != 0 {
			if err := e.defineQueryEncoder(root.Shape, path); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	err = headerTemplate.Execute(&buf, map[string]any{
		"Module":  moduleName,
		"Source":  o.source,
		"Imports": Imports,
	})
	if err != nil {
		return nil, errors.Wrap(err, "render header")
	}

	defs := s.Definitions()
	for _, def := range defs {
		buf.WriteString("\n\n")
		buf.WriteString(def.Text)
		buf.WriteString("\n")
	}

	Logger().Info("rendered Elm module",
		zap.String("module", moduleName),
		zap.Int("roots", len(roots)),
		zap.Int("definitions", len(defs)))
	return buf.Bytes(), nil
}

func rootPath(s *ir.Shape, fallback []string) []string {
	if s != nil && s.Name != "" {
		return []string{s.Name}
	}
	return fallback
}

func (c Capability) String() string {
	var parts []string
	for _, f := range []struct {
		flag Capability
		name string
	}{{CapShape, "shape"}, {CapEncoder, "encoder"}, {CapDecoder, "decoder"}, {CapQuery, "query"}} {
		if c&f.flag != 0 {
			parts = append(parts, f.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return fmt.Sprint(parts)
}
