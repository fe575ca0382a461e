// Package ir defines the shape model: a language-independent description of
// a type's structure that drives Elm generation and the reference wire codec.
package ir

import (
	"reflect"
	"strings"
)

// Kind selects which variant of Shape is populated.
type Kind int

const (
	KindPrimitive Kind = iota
	KindList
	KindSet
	KindOptional
	KindDict
	KindProduct
	KindSum
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindOptional:
		return "optional"
	case KindDict:
		return "dict"
	case KindProduct:
		return "product"
	case KindSum:
		return "sum"
	case KindRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Primitive is the scalar carried by a KindPrimitive shape.
type Primitive int

const (
	Bool Primitive = iota + 1
	Int
	Float
	String
	Unit
)

func (p Primitive) String() string {
	switch p {
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case Unit:
		return "Unit"
	default:
		return "?"
	}
}

// Shape is a tagged union over Kind.
//
//	KindPrimitive: Prim
//	KindList, KindSet, KindOptional: Elem
//	KindDict: Key, Elem
//	KindProduct: Name, ID, Fields
//	KindSum: Name, ID, Variants
//	KindRef: Name
type Shape struct {
	Kind     Kind
	Prim     Primitive
	Elem     *Shape
	Key      *Shape
	Name     string
	ID       string
	Fields   []Field
	Variants []Variant

	// GoType binds the shape to the Go type it was derived from. It is nil
	// for shapes built by hand or converted from OpenAPI.
	GoType reflect.Type
}

// Field is one member of a product. Name is the JSON key.
type Field struct {
	Name  string
	Shape *Shape

	// Index is the reflect field index path of the bound Go struct field.
	Index []int
}

// Variant is one alternative of a sum. A nil Payload means the variant
// carries no data.
type Variant struct {
	Name    string
	Payload *Shape

	// GoType is the concrete Go type of an interface-backed variant.
	GoType reflect.Type
	// Value is the Go constant of an enum-backed variant.
	Value any
}

// Prim returns a primitive shape.
func Prim(p Primitive) *Shape { return &Shape{Kind: KindPrimitive, Prim: p} }

// ListOf returns a list shape.
func ListOf(elem *Shape) *Shape { return &Shape{Kind: KindList, Elem: elem} }

// SetOf returns a set shape.
func SetOf(elem *Shape) *Shape { return &Shape{Kind: KindSet, Elem: elem} }

// OptionalOf returns an optional shape.
func OptionalOf(elem *Shape) *Shape { return &Shape{Kind: KindOptional, Elem: elem} }

// DictOf returns a dictionary shape.
func DictOf(key, value *Shape) *Shape { return &Shape{Kind: KindDict, Key: key, Elem: value} }

// ProductOf returns a named product shape.
func ProductOf(name string, fields ...Field) *Shape {
	return &Shape{Kind: KindProduct, Name: name, Fields: fields}
}

// SumOf returns a named sum shape.
func SumOf(name string, variants ...Variant) *Shape {
	return &Shape{Kind: KindSum, Name: name, Variants: variants}
}

// RefTo returns a reference to the product or sum called name.
func RefTo(name string) *Shape { return &Shape{Kind: KindRef, Name: name} }

// F is shorthand for a product field.
func F(name string, shape *Shape) Field { return Field{Name: name, Shape: shape} }

// V is shorthand for a sum variant.
func V(name string, payload *Shape) Variant { return Variant{Name: name, Payload: payload} }

// IsNamed reports whether the shape is a product or a sum.
func (s *Shape) IsNamed() bool {
	return s != nil && (s.Kind == KindProduct || s.Kind == KindSum)
}

// Identity is the source identity used to tell apart types that share a
// name. It falls back to the name.
func (s *Shape) Identity() string {
	if s.ID != "" {
		return s.ID
	}
	return s.Name
}

// String renders the shape for diagnostics, e.g. "Dict String (List Int)".
func (s *Shape) String() string {
	if s == nil {
		return "<none>"
	}
	switch s.Kind {
	case KindPrimitive:
		return s.Prim.String()
	case KindList:
		return "List " + parens(s.Elem.String())
	case KindSet:
		return "Set " + parens(s.Elem.String())
	case KindOptional:
		return "Optional " + parens(s.Elem.String())
	case KindDict:
		return "Dict " + parens(s.Key.String()) + " " + parens(s.Elem.String())
	case KindRef:
		return "&" + s.Name
	default:
		return s.Name
	}
}

func parens(s string) string {
	if strings.Contains(s, " ") {
		return "(" + s + ")"
	}
	return s
}
