package wire

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"reflect"
	"strconv"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
)

// Unmarshal decodes data into the value ptr points to. It accepts what the
// generated Elm decoder accepts: missing required fields, mistyped values,
// non-integral numbers for Int, unknown tags and malformed dictionary keys
// fail with ErrDecodeFailure. Optional fields may be absent or null.
func (c *Codec) Unmarshal(data []byte, ptr any) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.Newf("wire: Unmarshal needs a non-nil pointer, got %T", ptr)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return errors.DecodeFailure(nil, "invalid JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.DecodeFailure(nil, "invalid JSON: trailing data")
	}
	return c.decode(c.root, doc, rv.Elem(), rootPath(c.root))
}

func (c *Codec) decode(sh *ir.Shape, doc any, rv reflect.Value, path []string) error {
	sh, err := c.resolve(sh, path)
	if err != nil {
		return err
	}

	if sh.Kind == ir.KindOptional {
		return c.decodeOptional(sh, doc, rv, path)
	}
	if rv.Kind() == reflect.Pointer && sh.Kind != ir.KindSum {
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return c.decode(sh, doc, rv.Elem(), path)
	}

	switch sh.Kind {
	case ir.KindPrimitive:
		return decodePrimitive(sh.Prim, doc, rv, path)
	case ir.KindList, ir.KindSet:
		return c.decodeList(sh, doc, rv, path)
	case ir.KindDict:
		return c.decodeDict(sh, doc, rv, path)
	case ir.KindProduct:
		obj, ok := doc.(map[string]any)
		if !ok {
			return mismatch(path, "an object", doc)
		}
		return c.decodeFields(sh, obj, rv, path)
	case ir.KindSum:
		return c.decodeSum(sh, doc, rv, path)
	default:
		return errors.Unrepresentable(path, "reference to undefined type %q", sh.Name)
	}
}

func decodePrimitive(p ir.Primitive, doc any, rv reflect.Value, path []string) error {
	switch p {
	case ir.Unit:
		if doc != nil {
			return mismatch(path, "null", doc)
		}
		return nil
	case ir.Bool:
		b, ok := doc.(bool)
		if !ok {
			return mismatch(path, "a boolean", doc)
		}
		if rv.Kind() != reflect.Bool {
			break
		}
		rv.SetBool(b)
		return nil
	case ir.Int:
		n, ok := doc.(json.Number)
		if !ok {
			return mismatch(path, "an integer", doc)
		}
		return setInt(rv, n, path)
	case ir.Float:
		n, ok := doc.(json.Number)
		if !ok {
			return mismatch(path, "a number", doc)
		}
		f, err := n.Float64()
		if err != nil {
			return errors.DecodeFailure(path, "number %s is out of range", n)
		}
		if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
			break
		}
		if rv.OverflowFloat(f) {
			return errors.DecodeFailure(path, "number %s overflows %s", n, rv.Type())
		}
		rv.SetFloat(f)
		return nil
	case ir.String:
		s, ok := doc.(string)
		if !ok {
			return mismatch(path, "a string", doc)
		}
		if rv.Kind() != reflect.String {
			break
		}
		rv.SetString(s)
		return nil
	}
	return errors.Unrepresentable(path, "Go %s cannot hold %s", rv.Type(), p)
}

// setInt accepts integral numbers written with a fraction or exponent, like
// Json.Decode.int does, and rejects everything else.
func setInt(rv reflect.Value, n json.Number, path []string) error {
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return errors.DecodeFailure(path, "expected an integer, got %s", n)
		}
		i = int64(f)
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.OverflowInt(i) {
			return errors.DecodeFailure(path, "integer %s overflows %s", n, rv.Type())
		}
		rv.SetInt(i)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if i < 0 || rv.OverflowUint(uint64(i)) {
			return errors.DecodeFailure(path, "integer %s overflows %s", n, rv.Type())
		}
		rv.SetUint(uint64(i))
		return nil
	}
	return errors.Unrepresentable(path, "Go %s cannot hold Int", rv.Type())
}

func (c *Codec) decodeOptional(sh *ir.Shape, doc any, rv reflect.Value, path []string) error {
	if doc == nil {
		rv.SetZero()
		return nil
	}
	if c.nullEncoded(sh.Elem) {
		arr, ok := doc.([]any)
		if !ok || len(arr) != 1 {
			return mismatch(path, "a one-element array", doc)
		}
		doc = arr[0]
	}
	if rv.Kind() != reflect.Pointer {
		return c.decode(sh.Elem, doc, rv, path)
	}
	target := reflect.New(rv.Type().Elem())
	if err := c.decode(sh.Elem, doc, target.Elem(), path); err != nil {
		return err
	}
	rv.Set(target)
	return nil
}

func (c *Codec) decodeList(sh *ir.Shape, doc any, rv reflect.Value, path []string) error {
	arr, ok := doc.([]any)
	if !ok {
		return mismatch(path, "an array", doc)
	}

	switch rv.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(rv.Type(), len(arr), len(arr))
		for i, item := range arr {
			if err := c.decode(sh.Elem, item, out.Index(i), child(path, "["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
		}
		rv.Set(out)
		return nil
	case reflect.Array:
		if len(arr) != rv.Len() {
			return errors.DecodeFailure(path, "expected %d items, got %d", rv.Len(), len(arr))
		}
		for i, item := range arr {
			if err := c.decode(sh.Elem, item, rv.Index(i), child(path, "["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
		}
		return nil
	case reflect.Map:
		out := reflect.MakeMapWithSize(rv.Type(), len(arr))
		for i, item := range arr {
			k := reflect.New(rv.Type().Key()).Elem()
			if err := c.decode(sh.Elem, item, k, child(path, "["+strconv.Itoa(i)+"]")); err != nil {
				return err
			}
			out.SetMapIndex(k, reflect.Zero(rv.Type().Elem()))
		}
		rv.Set(out)
		return nil
	}
	return errors.Unrepresentable(path, "Go %s cannot hold %s", rv.Type(), sh)
}

func (c *Codec) decodeDict(sh *ir.Shape, doc any, rv reflect.Value, path []string) error {
	obj, ok := doc.(map[string]any)
	if !ok {
		return mismatch(path, "an object", doc)
	}
	if rv.Kind() != reflect.Map {
		return errors.Unrepresentable(path, "Go %s cannot hold %s", rv.Type(), sh)
	}

	out := reflect.MakeMapWithSize(rv.Type(), len(obj))
	for key, item := range obj {
		k := reflect.New(rv.Type().Key()).Elem()
		if err := parseKey(sh.Key.Prim, key, k, path); err != nil {
			return err
		}
		v := reflect.New(rv.Type().Elem()).Elem()
		if err := c.decode(sh.Elem, item, v, child(path, "["+key+"]")); err != nil {
			return err
		}
		out.SetMapIndex(k, v)
	}
	rv.Set(out)
	return nil
}

func parseKey(p ir.Primitive, key string, k reflect.Value, path []string) error {
	switch p {
	case ir.Int:
		if _, err := strconv.ParseInt(key, 10, 64); err != nil {
			return errors.DecodeFailure(path, "invalid dictionary key %q", key)
		}
		return setInt(k, json.Number(key), path)
	case ir.Float:
		f, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return errors.DecodeFailure(path, "invalid dictionary key %q", key)
		}
		return decodePrimitive(ir.Float, json.Number(strconv.FormatFloat(f, 'g', -1, 64)), k, path)
	default:
		return decodePrimitive(ir.String, key, k, path)
	}
}

func (c *Codec) decodeFields(sh *ir.Shape, obj map[string]any, rv reflect.Value, path []string) error {
	if rv.Kind() != reflect.Struct {
		return errors.Unrepresentable(path, "Go %s cannot hold product %s", rv.Type(), sh.Name)
	}
	for _, f := range sh.Fields {
		fpath := child(path, f.Name)
		fv, ok := field(rv, f)
		if !ok {
			return errors.Unrepresentable(fpath, "%s has no field for %q", rv.Type(), f.Name)
		}
		item, present := obj[f.Name]
		if !present {
			if c.isOptional(f.Shape) {
				fv.SetZero()
				continue
			}
			return errors.DecodeFailure(fpath, "missing field %q", f.Name)
		}
		if err := c.decode(f.Shape, item, fv, fpath); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) decodeSum(sh *ir.Shape, doc any, rv reflect.Value, path []string) error {
	obj, ok := doc.(map[string]any)
	if !ok {
		return mismatch(path, "an object", doc)
	}
	tag, ok := obj[ir.TagKey].(string)
	if !ok {
		return errors.DecodeFailure(path, "missing or non-string %q", ir.TagKey)
	}

	var v *ir.Variant
	for i := range sh.Variants {
		if sh.Variants[i].Name == tag {
			v = &sh.Variants[i]
			break
		}
	}
	if v == nil {
		return errors.DecodeFailure(path, "unrecognized tag %q", tag)
	}
	vpath := child(path, v.Name)

	if v.Value != nil {
		val := reflect.ValueOf(v.Value)
		if !val.Type().AssignableTo(rv.Type()) {
			return errors.Unrepresentable(vpath, "Go %s cannot hold enum %s", rv.Type(), sh.Name)
		}
		rv.Set(val)
		return nil
	}
	if v.GoType == nil {
		return errors.Unrepresentable(vpath, "variant has no Go binding")
	}

	target := reflect.New(v.GoType).Elem()
	holder := target
	if v.GoType.Kind() == reflect.Pointer {
		target.Set(reflect.New(v.GoType.Elem()))
		holder = target.Elem()
	}

	switch kind, p := c.table.Payload(*v); kind {
	case ir.PayloadRecord:
		if err := c.decodeFields(p, obj, holder, vpath); err != nil {
			return err
		}
	case ir.PayloadValue:
		item, present := obj[ir.ValueKey]
		if !present {
			return errors.DecodeFailure(vpath, "missing field %q", ir.ValueKey)
		}
		if err := c.decode(v.Payload, item, holder, vpath); err != nil {
			return err
		}
	}

	if !target.Type().AssignableTo(rv.Type()) {
		return errors.Unrepresentable(vpath, "Go %s cannot hold variant %s", rv.Type(), v.GoType)
	}
	rv.Set(target)
	return nil
}

func mismatch(path []string, want string, got any) error {
	return errors.DecodeFailure(path, "expected %s, got %s", want, describe(got))
}

func describe(doc any) string {
	switch doc.(type) {
	case nil:
		return "null"
	case bool:
		return "a boolean"
	case json.Number:
		return "a number"
	case string:
		return "a string"
	case []any:
		return "an array"
	default:
		return "an object"
	}
}
