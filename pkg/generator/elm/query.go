package elm

import (
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
)

// defineQueryEncoder emits urlEncode<Name> : Name -> List Url.Builder.QueryParameter
// for a product. Fields may be primitives, optional primitives, lists or sets
// of primitives, or nested products whose fields are flattened under
// dot-joined keys. Sums, dictionaries, units and recursive products have no
// flat query form and are rejected.
func (e *emitter) defineQueryEncoder(sh *ir.Shape, path []string) error {
	sh, err := e.resolve(sh, path)
	if err != nil {
		return err
	}
	if sh.Kind != ir.KindProduct {
		return errors.Unrepresentable(path, "only products can be encoded as query parameters, got %s", sh.Kind)
	}
	if e.s.Wrapped(sh.Name) {
		return errors.Unrepresentable([]string{sh.Name}, "recursive products cannot be encoded as query parameters")
	}

	name, err := naming.Target(sh.Name, naming.TypeDecl)
	if err != nil {
		return err
	}
	fn, err := naming.Target(sh.Name, naming.QueryEncoder)
	if err != nil {
		return err
	}
	begun, err := e.s.TryBegin(name, naming.QueryEncoder, sh.Identity())
	if err != nil || !begun {
		return err
	}

	params, err := e.queryParams(sh, nil, "value", []string{sh.Name})
	if err != nil {
		return err
	}

	param := "value"
	body := "List.concat\n" + tab + tab + list(params, tab+tab)
	if len(params) == 0 {
		param = "_"
		body = "[]"
	}
	text := fn + " : " + name + " -> List Url.Builder.QueryParameter\n" +
		fn + " " + param + " =\n" +
		tab + body
	return e.s.Record(Definition{Name: name, Role: naming.QueryEncoder, Text: text})
}

// queryParams returns one Elm expression of type List Url.Builder.QueryParameter
// per field of sh, in field order.
func (e *emitter) queryParams(sh *ir.Shape, prefix []string, accessor string, path []string) ([]string, error) {
	fields, err := recordFields(sh, []string{sh.Name})
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range fields {
		fpath := append(append([]string(nil), path...), f.key)
		key := strings.Join(append(append([]string(nil), prefix...), f.key), ".")
		value := accessor + "." + f.name

		fs, err := e.resolve(f.shape, fpath)
		if err != nil {
			return nil, err
		}
		switch fs.Kind {
		case ir.KindPrimitive:
			b, err := queryBuilder(fs, key, fpath)
			if err != nil {
				return nil, err
			}
			out = append(out, "[ "+apply(b, value)+" ]")
		case ir.KindOptional:
			inner, err := e.resolve(fs.Elem, fpath)
			if err != nil {
				return nil, err
			}
			b, err := queryBuilder(inner, key, fpath)
			if err != nil {
				return nil, err
			}
			out = append(out, "Maybe.withDefault [] (Maybe.map ("+b+" >> List.singleton) "+value+")")
		case ir.KindList, ir.KindSet:
			inner, err := e.resolve(fs.Elem, fpath)
			if err != nil {
				return nil, err
			}
			b, err := queryBuilder(inner, key, fpath)
			if err != nil {
				return nil, err
			}
			out = append(out, "List.map "+atom(b)+" "+value)
		case ir.KindProduct:
			if e.s.Wrapped(fs.Name) {
				return nil, errors.Unrepresentable(fpath, "recursive product %s cannot be flattened into query parameters", fs.Name)
			}
			nested, err := e.queryParams(fs, append(append([]string(nil), prefix...), f.key), value, fpath)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		default:
			return nil, errors.Unrepresentable(fpath, "%s cannot be encoded as query parameters", fs.Kind)
		}
	}
	return out, nil
}

// queryBuilder returns a function from a primitive value to one
// Url.Builder.QueryParameter under key.
func queryBuilder(sh *ir.Shape, key string, path []string) (string, error) {
	if sh.Kind != ir.KindPrimitive {
		return "", errors.Unrepresentable(path, "%s cannot be encoded as a query parameter value", sh.Kind)
	}
	k := elmString(key)
	switch sh.Prim {
	case ir.Int:
		return "Url.Builder.int " + k, nil
	case ir.String:
		return "Url.Builder.string " + k, nil
	case ir.Float:
		return "String.fromFloat >> Url.Builder.string " + k, nil
	case ir.Bool:
		return `(\flag -> if flag then "true" else "false") >> Url.Builder.string ` + k, nil
	default:
		return "", errors.Unrepresentable(path, "unit cannot be encoded as a query parameter value")
	}
}
