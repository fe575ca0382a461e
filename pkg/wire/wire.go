// Package wire is the Go side of the JSON format spoken by the generated Elm
// encoders and decoders. Values are read and written through the shape their
// Go type was derived to, so a document produced by Marshal is accepted by
// the Elm decoder and a document produced by the Elm encoder is accepted by
// Unmarshal.
//
//	Product          {"field": ..., ...}, every field always written
//	Sum              {"tag": "Variant"} plus the payload record's fields, or
//	                 {"tag": "Variant", "value": payload} for other payloads
//	Optional         null or the value; [value] when the value itself may be null
//	Dict             {"key": ...} with Int and Float keys in decimal form
//	List, Set        [...]
//	Unit             null
package wire

import (
	"net/url"
	"reflect"
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
)

// Codec reads and writes values of one root shape.
type Codec struct {
	root  *ir.Shape
	table *ir.Table
}

// New validates root and prepares a codec for it.
func New(root *ir.Shape) (*Codec, error) {
	table, err := ir.NewTable(root)
	if err != nil {
		return nil, err
	}
	return &Codec{root: root, table: table}, nil
}

// Marshal encodes v in the wire format of root.
func Marshal(root *ir.Shape, v any) ([]byte, error) {
	c, err := New(root)
	if err != nil {
		return nil, err
	}
	return c.Marshal(v)
}

// Unmarshal decodes data into the value ptr points to.
func Unmarshal(root *ir.Shape, data []byte, ptr any) error {
	c, err := New(root)
	if err != nil {
		return err
	}
	return c.Unmarshal(data, ptr)
}

// Query encodes v, a product value, as the query parameters the generated
// urlEncode function produces.
func Query(root *ir.Shape, v any) (url.Values, error) {
	c, err := New(root)
	if err != nil {
		return nil, err
	}
	return c.Query(v)
}

func (c *Codec) resolve(sh *ir.Shape, path []string) (*ir.Shape, error) {
	if sh == nil {
		return nil, errors.Unrepresentable(path, "no shape")
	}
	return c.table.Resolve(sh), nil
}

func (c *Codec) nullEncoded(sh *ir.Shape) bool {
	sh = c.table.Resolve(sh)
	return sh.Kind == ir.KindOptional || (sh.Kind == ir.KindPrimitive && sh.Prim == ir.Unit)
}

func (c *Codec) isOptional(sh *ir.Shape) bool {
	return c.table.Resolve(sh).Kind == ir.KindOptional
}

// field returns the struct field bound to f, falling back to the json key
// for shapes that were not derived by reflection.
func field(rv reflect.Value, f ir.Field) (reflect.Value, bool) {
	if f.Index != nil {
		return rv.FieldByIndex(f.Index), true
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		key, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if key == "-" {
			continue
		}
		if key == "" {
			key = sf.Name
		}
		if key == f.Name {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// indirect strips interfaces and pointers, stopping at nil.
func indirect(rv reflect.Value) reflect.Value {
	for (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv
}

func child(path []string, seg string) []string {
	return append(append([]string(nil), path...), seg)
}
