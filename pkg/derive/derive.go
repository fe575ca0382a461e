// Package derive builds shapes from Go types by reflection.
//
// Mapping:
//
//	bool                      Bool
//	int*, uint*               Int
//	float32, float64          Float
//	string                    String
//	struct{} (anonymous)      Unit
//	[]T, [N]T                 List T
//	map[K]struct{}            Set K
//	map[K]V                   Dict K V
//	*T                        Optional T
//	named struct              Product, fields from exported fields and json tags
//	registered interface      Sum, see RegisterSum
//	registered enum type      Sum of payload-less variants, see RegisterEnum
//
// A named struct or sum that is already being derived higher up the stack
// becomes a Ref, which is what lets recursive types terminate. A named
// slice, map or pointer type that contains itself is rejected. Channels, functions,
// complex numbers, unregistered interfaces and types with custom JSON
// marshaling have no shape.
package derive

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
)

// Provider lets a type supply its own shape.
type Provider interface {
	ElmShape() *ir.Shape
}

// VariantSpec names one concrete type of a registered interface sum. An
// empty Name defaults to the Go type name.
type VariantSpec struct {
	Name string
	Type reflect.Type
}

type sumSpec struct {
	name     string
	variants []VariantSpec
}

type enumSpec struct {
	name   string
	values []any
}

var (
	providerType      = reflect.TypeOf((*Provider)(nil)).Elem()
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

// Deriver derives and caches shapes. It is safe for concurrent use.
type Deriver struct {
	mu    sync.Mutex
	cache map[reflect.Type]*ir.Shape
	sums  map[reflect.Type]sumSpec
	enums map[reflect.Type]enumSpec
}

// New returns an empty Deriver.
func New() *Deriver {
	return &Deriver{
		cache: make(map[reflect.Type]*ir.Shape),
		sums:  make(map[reflect.Type]sumSpec),
		enums: make(map[reflect.Type]enumSpec),
	}
}

// RegisterSum declares that values of the interface type iface are one of
// variants. An empty name defaults to the interface's Go name.
func (d *Deriver) RegisterSum(iface reflect.Type, name string, variants ...VariantSpec) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return errors.Newf("RegisterSum: %v is not an interface type", iface)
	}
	if name == "" {
		name = iface.Name()
	}
	for _, v := range variants {
		if v.Type == nil {
			return errors.Newf("RegisterSum %s: variant %q has no type", name, v.Name)
		}
		if !v.Type.Implements(iface) {
			return errors.Newf("RegisterSum %s: %s does not implement %s", name, v.Type, iface)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.sums[iface] = sumSpec{name: name, variants: variants}
	clear(d.cache)
	return nil
}

// RegisterEnum declares that t takes exactly the given values. Each value
// becomes a payload-less variant named fmt.Sprint(value).
func (d *Deriver) RegisterEnum(t reflect.Type, name string, values ...any) error {
	if t == nil {
		return errors.New("RegisterEnum: nil type")
	}
	if name == "" {
		name = t.Name()
	}
	converted := make([]any, 0, len(values))
	for _, v := range values {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || !rv.Type().ConvertibleTo(t) {
			return errors.Newf("RegisterEnum %s: value %v is not convertible to %s", name, v, t)
		}
		converted = append(converted, rv.Convert(t).Interface())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.enums[t] = enumSpec{name: name, values: converted}
	clear(d.cache)
	return nil
}

// Shape derives the shape of t.
func (d *Deriver) Shape(t reflect.Type) (*ir.Shape, error) {
	if t == nil {
		return nil, errors.Unrepresentable(nil, "nil type")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cached, ok := d.cache[t]; ok {
		return cached, nil
	}
	x := &derivation{d: d, stack: make(map[reflect.Type]string), entered: make(map[reflect.Type]bool)}
	var path []string
	if t.Name() != "" {
		path = []string{t.Name()}
	}
	s, err := x.shape(t, path, t.Name())
	if err != nil {
		return nil, err
	}
	d.cache[t] = s
	return s, nil
}

type derivation struct {
	d     *Deriver
	stack map[reflect.Type]string
	// entered holds the named containers on the current path. They have no
	// name of their own in the shape, so meeting one again cannot become a Ref.
	entered map[reflect.Type]bool
}

// shape derives t. owner names the enclosing product and is used to name
// anonymous structs.
func (x *derivation) shape(t reflect.Type, path []string, owner string) (*ir.Shape, error) {
	if name, ok := x.stack[t]; ok {
		return ir.RefTo(name), nil
	}

	if t.Kind() != reflect.Interface && t.Implements(providerType) {
		s := reflect.Zero(t).Interface().(Provider).ElmShape()
		if s == nil {
			return nil, errors.Unrepresentable(path, "%s provides no shape", t)
		}
		return s, nil
	}
	if spec, ok := x.d.enums[t]; ok {
		return x.enum(t, spec), nil
	}
	if spec, ok := x.d.sums[t]; ok {
		return x.sum(t, spec, path)
	}
	if t.Name() != "" && customMarshaling(t) {
		return nil, errors.Unrepresentable(path, "%s has custom JSON marshaling", t)
	}
	if t.Name() != "" {
		switch t.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.Pointer:
			if x.entered[t] {
				return nil, errors.Unrepresentable(path, "recursive %s has no named shape", t)
			}
			x.entered[t] = true
			defer delete(x.entered, t)
		}
	}

	switch t.Kind() {
	case reflect.Bool:
		return bound(ir.Prim(ir.Bool), t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return bound(ir.Prim(ir.Int), t), nil
	case reflect.Float32, reflect.Float64:
		return bound(ir.Prim(ir.Float), t), nil
	case reflect.String:
		return bound(ir.Prim(ir.String), t), nil
	case reflect.Slice, reflect.Array:
		elem, err := x.shape(t.Elem(), append(path, "[]"), owner)
		if err != nil {
			return nil, err
		}
		return bound(ir.ListOf(elem), t), nil
	case reflect.Map:
		return x.mapShape(t, path, owner)
	case reflect.Pointer:
		elem, err := x.shape(t.Elem(), path, owner)
		if err != nil {
			return nil, err
		}
		return bound(ir.OptionalOf(elem), t), nil
	case reflect.Struct:
		if t.Name() == "" && t.NumField() == 0 {
			return bound(ir.Prim(ir.Unit), t), nil
		}
		name := t.Name()
		if name == "" {
			name = anonymousName(owner, path)
			if name == "" {
				return nil, errors.Unrepresentable(path, "anonymous struct outside a named type")
			}
		}
		return x.product(t, name, path)
	default:
		return nil, errors.Unrepresentable(path, "Go type %s has no shape", t)
	}
}

func (x *derivation) mapShape(t reflect.Type, path []string, owner string) (*ir.Shape, error) {
	key, err := x.shape(t.Key(), append(path, "[key]"), owner)
	if err != nil {
		return nil, err
	}
	if !ir.IsKeyShape(key) {
		return nil, errors.Unrepresentable(path, "map key %s is not String, Int or Float", t.Key())
	}
	if et := t.Elem(); et.Kind() == reflect.Struct && et.Name() == "" && et.NumField() == 0 {
		return bound(ir.SetOf(key), t), nil
	}
	elem, err := x.shape(t.Elem(), append(path, "[]"), owner)
	if err != nil {
		return nil, err
	}
	return bound(ir.DictOf(key, elem), t), nil
}

func (x *derivation) product(t reflect.Type, name string, path []string) (*ir.Shape, error) {
	if t.Name() != "" && !hasExportedFields(t) && t.NumField() > 0 {
		return nil, errors.Unrepresentable(path, "%s has only unexported fields", t)
	}

	x.stack[t] = name
	defer delete(x.stack, t)

	s := &ir.Shape{Kind: ir.KindProduct, Name: name, ID: typeID(t, path), GoType: t}
	if err := x.collectFields(t, nil, []string{name}, name, &s.Fields); err != nil {
		return nil, err
	}
	return s, nil
}

func (x *derivation) collectFields(t reflect.Type, index []int, path []string, owner string, out *[]ir.Field) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		key, _, _ := strings.Cut(tag, ",")
		idx := append(append([]int(nil), index...), i)

		if sf.Anonymous && key == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Struct {
				if err := x.collectFields(ft, idx, path, owner, out); err != nil {
					return err
				}
				continue
			}
			if ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct {
				return errors.Unrepresentable(append(path, sf.Name), "embedded pointer %s", ft)
			}
		}
		if !sf.IsExported() {
			continue
		}
		if key == "" {
			key = sf.Name
		}

		fs, err := x.shape(sf.Type, append(path, key), owner)
		if err != nil {
			return err
		}
		*out = append(*out, ir.Field{Name: key, Shape: fs, Index: idx})
	}
	return nil
}

func (x *derivation) sum(iface reflect.Type, spec sumSpec, path []string) (*ir.Shape, error) {
	x.stack[iface] = spec.name
	defer delete(x.stack, iface)

	s := &ir.Shape{Kind: ir.KindSum, Name: spec.name, ID: typeID(iface, path), GoType: iface}
	for _, vs := range spec.variants {
		vt := vs.Type
		st := vt
		if st.Kind() == reflect.Pointer {
			st = st.Elem()
		}
		name := vs.Name
		if name == "" {
			name = st.Name()
		}
		vpath := []string{spec.name, name}

		var payload *ir.Shape
		var err error
		switch {
		case st.Kind() == reflect.Struct && st.Name() == "" && st.NumField() == 0:
		case st.Kind() == reflect.Struct:
			payload, err = x.shape(st, vpath, spec.name+name)
		default:
			payload, err = x.shape(vt, vpath, spec.name+name)
		}
		if err != nil {
			return nil, err
		}
		s.Variants = append(s.Variants, ir.Variant{Name: name, Payload: payload, GoType: vt})
	}
	return s, nil
}

func (x *derivation) enum(t reflect.Type, spec enumSpec) *ir.Shape {
	s := &ir.Shape{Kind: ir.KindSum, Name: spec.name, ID: typeID(t, nil), GoType: t}
	for _, v := range spec.values {
		s.Variants = append(s.Variants, ir.Variant{Name: fmt.Sprint(v), Value: v})
	}
	return s
}

func bound(s *ir.Shape, t reflect.Type) *ir.Shape {
	s.GoType = t
	return s
}

func typeID(t reflect.Type, path []string) string {
	if t.Name() == "" {
		return errors.JoinPath(path)
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

func customMarshaling(t reflect.Type) bool {
	pt := reflect.PointerTo(t)
	return t.Implements(jsonMarshalerType) || pt.Implements(jsonMarshalerType) ||
		t.Implements(textMarshalerType) || pt.Implements(textMarshalerType)
}

func hasExportedFields(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() || t.Field(i).Anonymous {
			return true
		}
	}
	return false
}

// anonymousName names an inline struct after its owner and field, e.g.
// Drawing.meta becomes DrawingMeta and Drawing.layers[] DrawingLayersItem.
func anonymousName(owner string, path []string) string {
	if owner == "" {
		return ""
	}
	suffix := ""
	for i := len(path) - 1; i > 0; i-- {
		if strings.HasPrefix(path[i], "[") {
			suffix = "Item"
			continue
		}
		return owner + naming.ToPascalCase(path[i]) + suffix
	}
	return ""
}
