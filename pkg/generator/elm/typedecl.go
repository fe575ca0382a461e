package elm

import (
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
)

// typeExpr returns the Elm type expression for sh.
func (e *emitter) typeExpr(sh *ir.Shape, path []string) (string, error) {
	sh, err := e.resolve(sh, path)
	if err != nil {
		return "", err
	}
	switch sh.Kind {
	case ir.KindPrimitive:
		return primitiveType(sh.Prim), nil
	case ir.KindList, ir.KindSet:
		inner, err := e.typeExpr(sh.Elem, append(path, "[]"))
		if err != nil {
			return "", err
		}
		return "List " + atom(inner), nil
	case ir.KindOptional:
		inner, err := e.typeExpr(sh.Elem, path)
		if err != nil {
			return "", err
		}
		return "Maybe " + atom(inner), nil
	case ir.KindDict:
		if !ir.IsKeyShape(sh.Key) {
			return "", errors.Unrepresentable(path, "dictionary key %s is not String, Int or Float", sh.Key)
		}
		inner, err := e.typeExpr(sh.Elem, append(path, "[]"))
		if err != nil {
			return "", err
		}
		return "Dict " + primitiveType(sh.Key.Prim) + " " + atom(inner), nil
	case ir.KindProduct:
		return e.declareProduct(sh)
	case ir.KindSum:
		return e.declareSum(sh)
	default:
		return "", errors.Unrepresentable(path, "unknown shape kind %s", sh.Kind)
	}
}

func primitiveType(p ir.Primitive) string {
	switch p {
	case ir.Bool:
		return "Bool"
	case ir.Int:
		return "Int"
	case ir.Float:
		return "Float"
	case ir.String:
		return "String"
	default:
		return "()"
	}
}

func (e *emitter) declareProduct(sh *ir.Shape) (string, error) {
	name, err := naming.Target(sh.Name, naming.TypeDecl)
	if err != nil {
		return "", err
	}
	begun, err := e.s.TryBegin(name, naming.TypeDecl, sh.Identity())
	if err != nil || !begun {
		return name, err
	}
	if err := e.s.ClaimConstructor(name, sh.Identity()); err != nil {
		return "", err
	}

	fields, err := e.recordTypeFields(sh)
	if err != nil {
		return "", err
	}

	var text string
	if e.s.Wrapped(sh.Name) {
		text = "type " + name + "\n" + tab + "= " + name + " " + inlineRecordType(fields)
	} else {
		text = "type alias " + name + " =\n" + tab + blockRecordType(fields)
	}
	return name, e.s.Record(Definition{Name: name, Role: naming.TypeDecl, Text: text})
}

func (e *emitter) recordTypeFields(sh *ir.Shape) ([]string, error) {
	fields, err := recordFields(sh, []string{sh.Name})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		t, err := e.typeExpr(f.shape, f.path)
		if err != nil {
			return nil, err
		}
		out = append(out, f.name+" : "+t)
	}
	return out, nil
}

func inlineRecordType(fields []string) string {
	if len(fields) == 0 {
		return "{}"
	}
	return "{ " + strings.Join(fields, ", ") + " }"
}

func blockRecordType(fields []string) string {
	if len(fields) == 0 {
		return "{}"
	}
	var b strings.Builder
	for i, f := range fields {
		if i == 0 {
			b.WriteString("{ ")
		} else {
			b.WriteString("\n" + tab + ", ")
		}
		b.WriteString(f)
	}
	b.WriteString("\n" + tab + "}")
	return b.String()
}

func (e *emitter) declareSum(sh *ir.Shape) (string, error) {
	name, err := naming.Target(sh.Name, naming.TypeDecl)
	if err != nil {
		return "", err
	}
	begun, err := e.s.TryBegin(name, naming.TypeDecl, sh.Identity())
	if err != nil || !begun {
		return name, err
	}
	if len(sh.Variants) == 0 {
		return "", errors.Unrepresentable([]string{sh.Name}, "sum has no variants")
	}

	var b strings.Builder
	b.WriteString("type " + name)
	for i, v := range sh.Variants {
		ctor, err := e.constructor(sh, v)
		if err != nil {
			return "", err
		}
		if i == 0 {
			b.WriteString("\n" + tab + "= ")
		} else {
			b.WriteString("\n" + tab + "| ")
		}
		b.WriteString(ctor)

		path := []string{sh.Name, v.Name}
		switch kind, payload := e.s.table.Payload(v); kind {
		case ir.PayloadRecord:
			fields, err := e.recordTypeFields(payload)
			if err != nil {
				return "", err
			}
			b.WriteString(" " + inlineRecordType(fields))
		case ir.PayloadValue:
			t, err := e.typeExpr(payload, path)
			if err != nil {
				return "", err
			}
			b.WriteString(" " + atom(t))
		}
	}
	return name, e.s.Record(Definition{Name: name, Role: naming.TypeDecl, Text: b.String()})
}

// constructor returns the Elm constructor of a variant and claims it.
func (e *emitter) constructor(sh *ir.Shape, v ir.Variant) (string, error) {
	ctor, err := naming.Target(v.Name, naming.Constructor)
	if err != nil {
		return "", errors.Unrepresentable([]string{sh.Name, v.Name}, "variant name %q has no Elm form", v.Name)
	}
	return ctor, e.s.ClaimConstructor(ctor, sh.Identity()+"."+v.Name)
}
