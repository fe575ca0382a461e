package elm

import (
	"fmt"
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
)

// emitter holds the walks that turn shapes into Elm. Each walk returns an
// Elm fragment for the shape and records top-level definitions for the
// named shapes it meets, claiming them through the session first.
type emitter struct {
	s *Session
}

func (e *emitter) resolve(sh *ir.Shape, path []string) (*ir.Shape, error) {
	if sh == nil {
		return nil, errors.Unrepresentable(path, "no shape")
	}
	target := e.s.table.Resolve(sh)
	if target.Kind == ir.KindRef {
		return nil, errors.Unrepresentable(path, "reference to undefined type %q", sh.Name)
	}
	return target, nil
}

// nullEncoded reports whether the shape's own encoding can be JSON null, in
// which case an enclosing Maybe must wrap Just in an array to stay
// distinguishable from Nothing.
func (e *emitter) nullEncoded(sh *ir.Shape) bool {
	sh = e.s.table.Resolve(sh)
	if sh == nil {
		return false
	}
	return sh.Kind == ir.KindOptional || (sh.Kind == ir.KindPrimitive && sh.Prim == ir.Unit)
}

type recordField struct {
	key   string
	name  string
	shape *ir.Shape
	path  []string
}

// recordFields canonicalizes the field names of a product and rejects two
// JSON keys landing on the same Elm field.
func recordFields(sh *ir.Shape, path []string) ([]recordField, error) {
	out := make([]recordField, 0, len(sh.Fields))
	seen := make(map[string]string, len(sh.Fields))
	for _, f := range sh.Fields {
		name, err := naming.Target(f.Name, naming.Field)
		if err != nil {
			return nil, errors.Unrepresentable(append(path, f.Name), "field name %q has no Elm form", f.Name)
		}
		if prev, ok := seen[name]; ok {
			return nil, errors.NameCollision(name, errors.JoinPath(append(path, prev)), errors.JoinPath(append(path, f.Name)))
		}
		seen[name] = f.Name
		out = append(out, recordField{
			key:   f.Name,
			name:  name,
			shape: f.Shape,
			path:  append(append([]string(nil), path...), f.Name),
		})
	}
	return out, nil
}

// elmString renders s as an Elm string literal.
func elmString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u{%04X}`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// atom parenthesizes expr unless it is already a single term.
func atom(expr string) string {
	if !scanTopLevel(expr, func(r rune) bool { return r == ' ' }) {
		return expr
	}
	return "(" + expr + ")"
}

// apply renders fn applied to arg, parenthesizing fn when it is a lambda or
// uses an operator.
func apply(fn, arg string) string {
	if scanTopLevel(fn, func(r rune) bool { return strings.ContainsRune(`\<>|+`, r) }) {
		return "(" + fn + ") " + arg
	}
	return fn + " " + arg
}

// scanTopLevel reports whether match holds for any rune outside brackets
// and string literals.
func scanTopLevel(expr string, match func(rune) bool) bool {
	depth := 0
	quoted := false
	escaped := false
	for _, r := range expr {
		switch {
		case quoted:
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				quoted = false
			}
		case r == '"':
			quoted = true
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			depth--
		case depth == 0 && match(r):
			return true
		}
	}
	return false
}

// list renders Elm list items one per line in elm-format style, with the
// opening bracket at indent.
func list(items []string, indent string) string {
	if len(items) == 0 {
		return "[]"
	}
	var b strings.Builder
	for i, item := range items {
		if i == 0 {
			b.WriteString("[ ")
		} else {
			b.WriteString("\n" + indent + ", ")
		}
		b.WriteString(item)
	}
	b.WriteString("\n" + indent + "]")
	return b.String()
}

const tab = "    "
