package elm

import (
	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
)

// encoderExpr returns an Elm function expression of type
// a -> Json.Encode.Value for sh.
func (e *emitter) encoderExpr(sh *ir.Shape, path []string) (string, error) {
	sh, err := e.resolve(sh, path)
	if err != nil {
		return "", err
	}
	switch sh.Kind {
	case ir.KindPrimitive:
		return primitiveEncoder(sh.Prim), nil
	case ir.KindList, ir.KindSet:
		inner, err := e.encoderExpr(sh.Elem, append(path, "[]"))
		if err != nil {
			return "", err
		}
		return "Json.Encode.list " + atom(inner), nil
	case ir.KindOptional:
		inner, err := e.encoderExpr(sh.Elem, path)
		if err != nil {
			return "", err
		}
		if e.nullEncoded(sh.Elem) {
			inner = atom(inner) + " >> List.singleton >> Json.Encode.list identity"
		}
		return "Maybe.map " + atom(inner) + " >> Maybe.withDefault Json.Encode.null", nil
	case ir.KindDict:
		if !ir.IsKeyShape(sh.Key) {
			return "", errors.Unrepresentable(path, "dictionary key %s is not String, Int or Float", sh.Key)
		}
		inner, err := e.encoderExpr(sh.Elem, append(path, "[]"))
		if err != nil {
			return "", err
		}
		return "Json.Encode.dict " + keyToString(sh.Key.Prim) + " " + atom(inner), nil
	case ir.KindProduct:
		return e.defineProductEncoder(sh)
	case ir.KindSum:
		return e.defineSumEncoder(sh)
	default:
		return "", errors.Unrepresentable(path, "unknown shape kind %s", sh.Kind)
	}
}

func primitiveEncoder(p ir.Primitive) string {
	switch p {
	case ir.Bool:
		return "Json.Encode.bool"
	case ir.Int:
		return "Json.Encode.int"
	case ir.Float:
		return "Json.Encode.float"
	case ir.String:
		return "Json.Encode.string"
	default:
		return `\_ -> Json.Encode.null`
	}
}

func keyToString(p ir.Primitive) string {
	switch p {
	case ir.Int:
		return "String.fromInt"
	case ir.Float:
		return "String.fromFloat"
	default:
		return "identity"
	}
}

func (e *emitter) defineProductEncoder(sh *ir.Shape) (string, error) {
	name, err := naming.Target(sh.Name, naming.TypeDecl)
	if err != nil {
		return "", err
	}
	fn, err := naming.Target(sh.Name, naming.Encoder)
	if err != nil {
		return "", err
	}
	begun, err := e.s.TryBegin(name, naming.Encoder, sh.Identity())
	if err != nil || !begun {
		return fn, err
	}

	entries, err := e.fieldEntries(sh, "value")
	if err != nil {
		return "", err
	}

	param := "value"
	switch {
	case len(entries) == 0:
		param = "_"
	case e.s.Wrapped(sh.Name):
		param = "(" + name + " value)"
	}
	text := fn + " : " + name + " -> Json.Encode.Value\n" +
		fn + " " + param + " =\n" +
		tab + objectExpr(entries, tab)
	return fn, e.s.Record(Definition{Name: name, Role: naming.Encoder, Text: text})
}

// fieldEntries renders the ( key, value ) pairs of a product read from the
// record bound to recordVar.
func (e *emitter) fieldEntries(sh *ir.Shape, recordVar string) ([]string, error) {
	fields, err := recordFields(sh, []string{sh.Name})
	if err != nil {
		return nil, err
	}
	entries := make([]string, 0, len(fields))
	for _, f := range fields {
		enc, err := e.encoderExpr(f.shape, f.path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, pair(elmString(f.key), apply(enc, recordVar+"."+f.name)))
	}
	return entries, nil
}

func pair(a, b string) string {
	return "( " + a + ", " + b + " )"
}

// objectExpr renders Json.Encode.object over entries with the expression
// starting at indent.
func objectExpr(entries []string, indent string) string {
	if len(entries) <= 1 {
		if len(entries) == 0 {
			return "Json.Encode.object []"
		}
		return "Json.Encode.object [ " + entries[0] + " ]"
	}
	return "Json.Encode.object\n" + indent + tab + list(entries, indent+tab)
}

func (e *emitter) defineSumEncoder(sh *ir.Shape) (string, error) {
	name, err := naming.Target(sh.Name, naming.TypeDecl)
	if err != nil {
		return "", err
	}
	fn, err := naming.Target(sh.Name, naming.Encoder)
	if err != nil {
		return "", err
	}
	begun, err := e.s.TryBegin(name, naming.Encoder, sh.Identity())
	if err != nil || !begun {
		return fn, err
	}

	branchIndent := tab + tab
	bodyIndent := branchIndent + tab

	text := fn + " : " + name + " -> Json.Encode.Value\n" +
		fn + " value =\n" +
		tab + "case value of"
	for i, v := range sh.Variants {
		ctor, err := e.constructor(sh, v)
		if err != nil {
			return "", err
		}
		tag := pair(elmString(ir.TagKey), "Json.Encode.string "+elmString(v.Name))

		pattern := ctor
		entries := []string{tag}
		switch kind, payload := e.s.table.Payload(v); kind {
		case ir.PayloadRecord:
			pattern += " payload"
			rest, err := e.fieldEntries(payload, "payload")
			if err != nil {
				return "", err
			}
			entries = append(entries, rest...)
		case ir.PayloadValue:
			pattern += " payload"
			enc, err := e.encoderExpr(payload, []string{sh.Name, v.Name})
			if err != nil {
				return "", err
			}
			entries = append(entries, pair(elmString(ir.ValueKey), apply(enc, "payload")))
		}

		if i > 0 {
			text += "\n"
		}
		text += "\n" + branchIndent + pattern + " ->\n" +
			bodyIndent + objectExpr(entries, bodyIndent)
	}
	return fn, e.s.Record(Definition{Name: name, Role: naming.Encoder, Text: text})
}
