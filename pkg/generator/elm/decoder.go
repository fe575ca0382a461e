package elm

import (
	"fmt"
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
)

// decoderExpr returns an Elm expression of type Json.Decode.Decoder a for sh.
func (e *emitter) decoderExpr(sh *ir.Shape, path []string) (string, error) {
	sh, err := e.resolve(sh, path)
	if err != nil {
		return "", err
	}
	switch sh.Kind {
	case ir.KindPrimitive:
		return primitiveDecoder(sh.Prim), nil
	case ir.KindList, ir.KindSet:
		inner, err := e.decoderExpr(sh.Elem, append(path, "[]"))
		if err != nil {
			return "", err
		}
		return "Json.Decode.list " + atom(inner), nil
	case ir.KindOptional:
		inner, err := e.justDecoder(sh.Elem, path)
		if err != nil {
			return "", err
		}
		return "Json.Decode.nullable " + atom(inner), nil
	case ir.KindDict:
		if !ir.IsKeyShape(sh.Key) {
			return "", errors.Unrepresentable(path, "dictionary key %s is not String, Int or Float", sh.Key)
		}
		inner, err := e.decoderExpr(sh.Elem, append(path, "[]"))
		if err != nil {
			return "", err
		}
		switch sh.Key.Prim {
		case ir.Int:
			return "keyedDict String.toInt " + atom(inner), nil
		case ir.Float:
			return "keyedDict String.toFloat " + atom(inner), nil
		default:
			return "Json.Decode.dict " + atom(inner), nil
		}
	case ir.KindProduct:
		return e.defineProductDecoder(sh)
	case ir.KindSum:
		return e.defineSumDecoder(sh)
	default:
		return "", errors.Unrepresentable(path, "unknown shape kind %s", sh.Kind)
	}
}

// justDecoder decodes the content of a Just, unwrapping the one-element
// array written for null-encoded contents.
func (e *emitter) justDecoder(elem *ir.Shape, path []string) (string, error) {
	inner, err := e.decoderExpr(elem, path)
	if err != nil {
		return "", err
	}
	if e.nullEncoded(elem) {
		return "Json.Decode.index 0 " + atom(inner), nil
	}
	return inner, nil
}

func primitiveDecoder(p ir.Primitive) string {
	switch p {
	case ir.Bool:
		return "Json.Decode.bool"
	case ir.Int:
		return "Json.Decode.int"
	case ir.Float:
		return "Json.Decode.float"
	case ir.String:
		return "Json.Decode.string"
	default:
		return "Json.Decode.null ()"
	}
}

// beginDecoder claims the decoder of a named shape. When the decoder is
// already being generated further up the walk, the reference is wrapped in
// Json.Decode.lazy so the cyclic top-level values stay legal Elm.
func (e *emitter) beginDecoder(sh *ir.Shape) (name, fn, ref string, begun bool, err error) {
	if name, err = naming.Target(sh.Name, naming.TypeDecl); err != nil {
		return
	}
	if fn, err = naming.Target(sh.Name, naming.Decoder); err != nil {
		return
	}
	if begun, err = e.s.TryBegin(name, naming.Decoder, sh.Identity()); err != nil {
		return
	}
	ref = fn
	if !begun && e.s.InProgress(name, naming.Decoder) {
		ref = `Json.Decode.lazy (\_ -> ` + fn + ")"
	}
	return
}

func (e *emitter) defineProductDecoder(sh *ir.Shape) (string, error) {
	name, fn, ref, begun, err := e.beginDecoder(sh)
	if err != nil || !begun {
		return ref, err
	}

	var body string
	if len(sh.Fields) == 0 {
		body = "Json.Decode.keyValuePairs Json.Decode.value\n" +
			tab + tab + `|> Json.Decode.map (\_ -> {})`
	} else {
		ctor := name
		if e.s.Wrapped(sh.Name) {
			if ctor, err = e.recordConstructor(name, sh); err != nil {
				return "", err
			}
		}
		if body, err = e.recordDecoder(ctor, sh, tab); err != nil {
			return "", err
		}
	}

	text := fn + " : Json.Decode.Decoder " + name + "\n" +
		fn + " =\n" +
		tab + body
	return fn, e.s.Record(Definition{Name: name, Role: naming.Decoder, Text: text})
}

// recordConstructor renders a lambda building ctor applied to a record of
// the product's fields, e.g. (\f0 f1 -> Node { value = f0, next = f1 }).
func (e *emitter) recordConstructor(ctor string, sh *ir.Shape) (string, error) {
	fields, err := recordFields(sh, []string{sh.Name})
	if err != nil {
		return "", err
	}
	params := make([]string, len(fields))
	assigns := make([]string, len(fields))
	for i, f := range fields {
		params[i] = fmt.Sprintf("f%d", i)
		assigns[i] = f.name + " = " + params[i]
	}
	return `(\` + strings.Join(params, " ") + " -> " + ctor + " { " + strings.Join(assigns, ", ") + " })", nil
}

// recordDecoder renders the applicative pipeline that reads every field of
// sh and feeds them to ctor. The expression starts at indent.
func (e *emitter) recordDecoder(ctor string, sh *ir.Shape, indent string) (string, error) {
	fields, err := recordFields(sh, []string{sh.Name})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Json.Decode.succeed " + ctor)
	for _, f := range fields {
		dec, err := e.fieldDecoder(f)
		if err != nil {
			return "", err
		}
		b.WriteString("\n" + indent + tab + "|> andMap " + atom(dec))
	}
	return b.String(), nil
}

// fieldDecoder reads one field. Optional fields accept both an absent key
// and null.
func (e *emitter) fieldDecoder(f recordField) (string, error) {
	sh, err := e.resolve(f.shape, f.path)
	if err != nil {
		return "", err
	}
	if sh.Kind == ir.KindOptional {
		inner, err := e.justDecoder(sh.Elem, f.path)
		if err != nil {
			return "", err
		}
		return "optionalField " + elmString(f.key) + " " + atom(inner), nil
	}
	dec, err := e.decoderExpr(sh, f.path)
	if err != nil {
		return "", err
	}
	return "Json.Decode.field " + elmString(f.key) + " " + atom(dec), nil
}

func (e *emitter) defineSumDecoder(sh *ir.Shape) (string, error) {
	name, fn, ref, begun, err := e.beginDecoder(sh)
	if err != nil || !begun {
		return ref, err
	}

	const (
		lambdaIndent = tab + tab + tab
		caseIndent   = lambdaIndent + tab
		branchIndent = caseIndent + tab
		bodyIndent   = branchIndent + tab
	)

	var b strings.Builder
	b.WriteString(fn + " : Json.Decode.Decoder " + name + "\n")
	b.WriteString(fn + " =\n")
	b.WriteString(tab + "Json.Decode.field " + elmString(ir.TagKey) + " Json.Decode.string\n")
	b.WriteString(tab + tab + "|> Json.Decode.andThen\n")
	b.WriteString(lambdaIndent + `(\tag ->` + "\n")
	b.WriteString(caseIndent + "case tag of\n")

	for _, v := range sh.Variants {
		ctor, err := e.constructor(sh, v)
		if err != nil {
			return "", err
		}

		var body string
		switch kind, payload := e.s.table.Payload(v); kind {
		case ir.PayloadNone:
			body = "Json.Decode.succeed " + ctor
		case ir.PayloadRecord:
			build, err := e.recordConstructor(ctor, payload)
			if err != nil {
				return "", err
			}
			if body, err = e.recordDecoder(build, payload, bodyIndent); err != nil {
				return "", err
			}
		case ir.PayloadValue:
			dec, err := e.decoderExpr(payload, []string{sh.Name, v.Name})
			if err != nil {
				return "", err
			}
			body = "Json.Decode.map " + ctor + " (Json.Decode.field " + elmString(ir.ValueKey) + " " + atom(dec) + ")"
		}
		b.WriteString(branchIndent + elmString(v.Name) + " ->\n")
		b.WriteString(bodyIndent + body + "\n\n")
	}

	b.WriteString(branchIndent + "_ ->\n")
	b.WriteString(bodyIndent + `Json.Decode.fail ("unrecognized tag " ++ tag)` + "\n")
	b.WriteString(lambdaIndent + ")")

	return fn, e.s.Record(Definition{Name: name, Role: naming.Decoder, Text: b.String()})
}
