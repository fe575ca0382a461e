package wire

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
)

// Query encodes v as query parameters. Only products qualify; nested
// products are flattened under dot-joined keys, absent optionals are
// omitted and lists repeat their key.
func (c *Codec) Query(v any) (url.Values, error) {
	root := c.table.Resolve(c.root)
	path := rootPath(root)
	if root.Kind != ir.KindProduct {
		return nil, errors.Unrepresentable(path, "only products can be encoded as query parameters, got %s", root.Kind)
	}
	out := url.Values{}
	if err := c.query(out, root, indirect(reflect.ValueOf(v)), nil, path); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Codec) query(out url.Values, sh *ir.Shape, rv reflect.Value, prefix, path []string) error {
	if rv.Kind() != reflect.Struct {
		return errors.Unrepresentable(path, "Go %s cannot be written as product %s", rv.Type(), sh.Name)
	}
	for _, f := range sh.Fields {
		fpath := child(path, f.Name)
		key := strings.Join(append(append([]string(nil), prefix...), f.Name), ".")
		fv, ok := field(rv, f)
		if !ok {
			return errors.Unrepresentable(fpath, "%s has no field for %q", rv.Type(), f.Name)
		}

		fs, err := c.resolve(f.Shape, fpath)
		if err != nil {
			return err
		}
		switch fs.Kind {
		case ir.KindPrimitive:
			s, err := queryValue(fs, indirect(fv), fpath)
			if err != nil {
				return err
			}
			out.Add(key, s)
		case ir.KindOptional:
			if (fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface) && fv.IsNil() {
				continue
			}
			s, err := queryValue(c.table.Resolve(fs.Elem), indirect(fv), fpath)
			if err != nil {
				return err
			}
			out.Add(key, s)
		case ir.KindList, ir.KindSet:
			elem := c.table.Resolve(fs.Elem)
			items := indirect(fv)
			var values []reflect.Value
			switch items.Kind() {
			case reflect.Slice, reflect.Array:
				for i := 0; i < items.Len(); i++ {
					values = append(values, items.Index(i))
				}
			case reflect.Map:
				values = items.MapKeys()
				sortValues(values)
			default:
				return errors.Unrepresentable(fpath, "Go %s cannot be written as %s", items.Type(), fs)
			}
			for _, item := range values {
				s, err := queryValue(elem, indirect(item), fpath)
				if err != nil {
					return err
				}
				out.Add(key, s)
			}
		case ir.KindProduct:
			nested := append(append([]string(nil), prefix...), f.Name)
			if err := c.query(out, fs, indirect(fv), nested, fpath); err != nil {
				return err
			}
		default:
			return errors.Unrepresentable(fpath, "%s cannot be encoded as query parameters", fs.Kind)
		}
	}
	return nil
}

func queryValue(sh *ir.Shape, rv reflect.Value, path []string) (string, error) {
	if sh.Kind != ir.KindPrimitive || sh.Prim == ir.Unit {
		return "", errors.Unrepresentable(path, "%s cannot be encoded as a query parameter value", sh)
	}
	switch sh.Prim {
	case ir.Bool:
		if rv.Kind() == reflect.Bool {
			return strconv.FormatBool(rv.Bool()), nil
		}
	case ir.String:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	default:
		return keyString(sh.Prim, rv, path)
	}
	return "", errors.Unrepresentable(path, "Go %s cannot be written as %s", rv.Type(), sh.Prim)
}
