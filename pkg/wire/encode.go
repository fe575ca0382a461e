package wire

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
)

// Marshal encodes v in the wire format of the codec's root shape.
func (c *Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.encode(&buf, c.root, reflect.ValueOf(v), rootPath(c.root)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Codec) encode(buf *bytes.Buffer, sh *ir.Shape, rv reflect.Value, path []string) error {
	sh, err := c.resolve(sh, path)
	if err != nil {
		return err
	}

	if sh.Kind == ir.KindOptional {
		return c.encodeOptional(buf, sh, rv, path)
	}
	rv = indirect(rv)
	if !rv.IsValid() || ((rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil()) {
		if sh.Kind == ir.KindPrimitive && sh.Prim == ir.Unit {
			buf.WriteString("null")
			return nil
		}
		return errors.Unrepresentable(path, "nil value for %s", sh)
	}

	switch sh.Kind {
	case ir.KindPrimitive:
		return encodePrimitive(buf, sh.Prim, rv, path)
	case ir.KindList, ir.KindSet:
		return c.encodeList(buf, sh, rv, path)
	case ir.KindDict:
		return c.encodeDict(buf, sh, rv, path)
	case ir.KindProduct:
		buf.WriteByte('{')
		if err := c.encodeFields(buf, sh, rv, path, false); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil
	case ir.KindSum:
		return c.encodeSum(buf, sh, rv, path)
	default:
		return errors.Unrepresentable(path, "reference to undefined type %q", sh.Name)
	}
}

func encodePrimitive(buf *bytes.Buffer, p ir.Primitive, rv reflect.Value, path []string) error {
	switch p {
	case ir.Unit:
		buf.WriteString("null")
		return nil
	case ir.Bool:
		if rv.Kind() != reflect.Bool {
			break
		}
		buf.WriteString(strconv.FormatBool(rv.Bool()))
		return nil
	case ir.Int:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			buf.WriteString(strconv.FormatInt(rv.Int(), 10))
			return nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
			return nil
		}
	case ir.Float:
		if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
			break
		}
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.Unrepresentable(path, "%v has no JSON form", f)
		}
		buf.WriteString(formatFloat(f))
		return nil
	case ir.String:
		if rv.Kind() != reflect.String {
			break
		}
		writeString(buf, rv.String())
		return nil
	}
	return errors.Unrepresentable(path, "Go %s cannot be written as %s", rv.Type(), p)
}

func (c *Codec) encodeOptional(buf *bytes.Buffer, sh *ir.Shape, rv reflect.Value, path []string) error {
	if !rv.IsValid() {
		buf.WriteString("null")
		return nil
	}
	if rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		rv = rv.Elem()
	}
	if !c.nullEncoded(sh.Elem) {
		return c.encode(buf, sh.Elem, rv, path)
	}
	buf.WriteByte('[')
	if err := c.encode(buf, sh.Elem, rv, path); err != nil {
		return err
	}
	buf.WriteByte(']')
	return nil
}

func (c *Codec) encodeList(buf *bytes.Buffer, sh *ir.Shape, rv reflect.Value, path []string) error {
	var items []reflect.Value
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i))
		}
	case reflect.Map:
		items = rv.MapKeys()
		sortValues(items)
	default:
		return errors.Unrepresentable(path, "Go %s cannot be written as %s", rv.Type(), sh)
	}

	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := c.encode(buf, sh.Elem, item, child(path, "["+strconv.Itoa(i)+"]")); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func (c *Codec) encodeDict(buf *bytes.Buffer, sh *ir.Shape, rv reflect.Value, path []string) error {
	if rv.Kind() != reflect.Map {
		return errors.Unrepresentable(path, "Go %s cannot be written as %s", rv.Type(), sh)
	}
	keys := rv.MapKeys()
	sortValues(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		key, err := keyString(sh.Key.Prim, indirect(k), path)
		if err != nil {
			return err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, key)
		buf.WriteByte(':')
		if err := c.encode(buf, sh.Elem, rv.MapIndex(k), child(path, "["+key+"]")); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// encodeFields writes the members of a product without the braces. comma
// reports whether a member was already written before them.
func (c *Codec) encodeFields(buf *bytes.Buffer, sh *ir.Shape, rv reflect.Value, path []string, comma bool) error {
	if rv.Kind() != reflect.Struct {
		return errors.Unrepresentable(path, "Go %s cannot be written as product %s", rv.Type(), sh.Name)
	}
	for _, f := range sh.Fields {
		fpath := child(path, f.Name)
		fv, ok := field(rv, f)
		if !ok {
			return errors.Unrepresentable(fpath, "%s has no field for %q", rv.Type(), f.Name)
		}
		if comma {
			buf.WriteByte(',')
		}
		comma = true
		writeString(buf, f.Name)
		buf.WriteByte(':')
		if err := c.encode(buf, f.Shape, fv, fpath); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) encodeSum(buf *bytes.Buffer, sh *ir.Shape, rv reflect.Value, path []string) error {
	v, payload, ok := matchVariant(sh, rv)
	if !ok {
		return errors.Unrepresentable(path, "Go value %v matches no variant of %s", rv.Interface(), sh.Name)
	}

	buf.WriteByte('{')
	writeString(buf, ir.TagKey)
	buf.WriteByte(':')
	writeString(buf, v.Name)

	vpath := child(path, v.Name)
	switch kind, p := c.table.Payload(v); kind {
	case ir.PayloadRecord:
		if err := c.encodeFields(buf, p, indirect(payload), vpath, true); err != nil {
			return err
		}
	case ir.PayloadValue:
		buf.WriteByte(',')
		writeString(buf, ir.ValueKey)
		buf.WriteByte(':')
		if err := c.encode(buf, v.Payload, payload, vpath); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// matchVariant finds the variant rv belongs to: by Go type for interface
// sums, by value for enums. It also returns the value holding the payload.
func matchVariant(sh *ir.Shape, rv reflect.Value) (ir.Variant, reflect.Value, bool) {
	for _, v := range sh.Variants {
		switch {
		case v.Value != nil:
			if rv.Type() == reflect.TypeOf(v.Value) && rv.Interface() == v.Value {
				return v, rv, true
			}
		case v.GoType != nil:
			if rv.Type() == v.GoType {
				return v, rv, true
			}
			if v.GoType.Kind() == reflect.Pointer && rv.Type() == v.GoType.Elem() {
				return v, rv, true
			}
		}
	}
	return ir.Variant{}, reflect.Value{}, false
}

func keyString(p ir.Primitive, k reflect.Value, path []string) (string, error) {
	var buf bytes.Buffer
	if p == ir.String {
		if k.Kind() != reflect.String {
			return "", errors.Unrepresentable(path, "Go %s cannot key a String dictionary", k.Type())
		}
		return k.String(), nil
	}
	if err := encodePrimitive(&buf, p, k, path); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatFloat renders f the way Elm's String.fromFloat does: shortest
// round-trip digits, fixed notation for 1e-6 <= |f| < 1e21 and exponent
// notation without padding outside it, e.g. 1e-7 and 1e+21.
func formatFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Truncate(buf.Len() - 1)
}

func sortValues(vs []reflect.Value) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := indirect(vs[i]), indirect(vs[j])
		switch a.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return a.Int() < b.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			return a.Uint() < b.Uint()
		case reflect.Float32, reflect.Float64:
			return a.Float() < b.Float()
		case reflect.String:
			return a.String() < b.String()
		case reflect.Bool:
			return !a.Bool() && b.Bool()
		}
		return false
	})
}

func rootPath(sh *ir.Shape) []string {
	if sh != nil && sh.Name != "" {
		return []string{sh.Name}
	}
	return nil
}
