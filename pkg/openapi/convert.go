package openapi

import (
	"sort"
	"strings"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
	"github.com/getkin/kin-openapi/openapi3"
)

const componentPrefix = "#/components/schemas/"

// Convert turns the component schemas of doc selected by keep into shapes,
// in component name order. A nil keep selects every component. Components
// that are plain aliases of a primitive, list or map have no name of their
// own in the shape model; they are inlined where referenced and never
// returned as roots.
//
// Mapping:
//
//	object with properties        Product, fields in property name order
//	optional or nullable          Optional
//	additionalProperties only     Dict String
//	string enum                   Sum of payload-less variants
//	oneOf with discriminator      Sum with the mapped objects as payloads
//	array                         List, or Set with uniqueItems
//	$ref                          the referenced component, Ref on cycles
//
// Inline objects and enums are named after their position, e.g.
// Pet_Owner for the owner property of Pet and Pet_Tags_Item for the items of
// its tags array.
func Convert(doc *openapi3.T, keep func(name string) bool) ([]*ir.Shape, error) {
	if doc == nil || doc.Components == nil {
		return nil, nil
	}
	names := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &converter{
		doc:   doc,
		done:  make(map[string]*ir.Shape),
		stack: make(map[string]bool),
	}
	var out []*ir.Shape
	for _, name := range names {
		if keep != nil && !keep(name) {
			continue
		}
		s, err := c.component(name, doc.Components.Schemas[name], []string{name})
		if err != nil {
			return nil, err
		}
		if s.IsNamed() {
			out = append(out, s)
		}
	}
	return out, nil
}

type converter struct {
	doc   *openapi3.T
	done  map[string]*ir.Shape
	stack map[string]bool
}

func (c *converter) component(name string, sr *openapi3.SchemaRef, path []string) (*ir.Shape, error) {
	if s, ok := c.done[name]; ok {
		return s, nil
	}
	if c.stack[name] {
		return ir.RefTo(name), nil
	}
	if sr == nil || sr.Value == nil {
		return nil, errors.Unrepresentable(path, "undefined component %q", name)
	}

	c.stack[name] = true
	defer delete(c.stack, name)

	s, err := c.schema(sr.Value, name, path)
	if err != nil {
		return nil, err
	}
	if s.IsNamed() {
		s.ID = componentPrefix + name
	}
	c.done[name] = s
	return s, nil
}

// ref converts a schema reference in use position. inline names the shape
// when the schema is an inline object or enum.
func (c *converter) ref(sr *openapi3.SchemaRef, inline string, path []string) (*ir.Shape, error) {
	if sr == nil {
		return nil, errors.Unrepresentable(path, "missing schema")
	}

	var s *ir.Shape
	var err error
	if sr.Ref != "" {
		name := refName(sr.Ref)
		if name == "" {
			return nil, errors.Unrepresentable(path, "unsupported reference %q", sr.Ref)
		}
		target := sr
		if schemas := c.doc.Components.Schemas; schemas[name] != nil {
			target = schemas[name]
		}
		s, err = c.component(name, target, path)
	} else {
		if sr.Value == nil {
			return nil, errors.Unrepresentable(path, "missing schema")
		}
		s, err = c.schema(sr.Value, inline, path)
	}
	if err != nil {
		return nil, err
	}

	if sr.Value != nil && sr.Value.Nullable && s.Kind != ir.KindOptional {
		s = ir.OptionalOf(s)
	}
	return s, nil
}

func (c *converter) schema(s *openapi3.Schema, name string, path []string) (*ir.Shape, error) {
	switch {
	case len(s.OneOf) > 0:
		return c.oneOf(s, name, path)
	case len(s.AnyOf) > 0:
		return nil, errors.Unrepresentable(path, "anyOf has no Elm binding")
	case len(s.AllOf) > 0:
		return nil, errors.Unrepresentable(path, "allOf has no Elm binding")
	case s.Not != nil:
		return nil, errors.Unrepresentable(path, "not has no Elm binding")
	case len(s.Enum) > 0:
		return enum(s, name, path)
	}

	switch schemaType(s) {
	case openapi3.TypeString:
		return ir.Prim(ir.String), nil
	case openapi3.TypeInteger:
		return ir.Prim(ir.Int), nil
	case openapi3.TypeNumber:
		return ir.Prim(ir.Float), nil
	case openapi3.TypeBoolean:
		return ir.Prim(ir.Bool), nil
	case openapi3.TypeArray:
		item, err := c.ref(s.Items, name+"_Item", append(path, "[]"))
		if err != nil {
			return nil, err
		}
		if s.UniqueItems {
			return ir.SetOf(item), nil
		}
		return ir.ListOf(item), nil
	case openapi3.TypeObject:
		return c.object(s, name, path)
	}
	return nil, errors.Unrepresentable(path, "schema without a usable type")
}

func (c *converter) object(s *openapi3.Schema, name string, path []string) (*ir.Shape, error) {
	if len(s.Properties) == 0 && s.AdditionalProperties.Schema != nil {
		value, err := c.ref(s.AdditionalProperties.Schema, name+"_Value", append(path, "[]"))
		if err != nil {
			return nil, err
		}
		return ir.DictOf(ir.Prim(ir.String), value), nil
	}
	if name == "" {
		return nil, errors.Unrepresentable(path, "inline object outside a named schema")
	}

	props := make([]string, 0, len(s.Properties))
	for prop := range s.Properties {
		props = append(props, prop)
	}
	sort.Strings(props)

	required := make(map[string]bool, len(s.Required))
	for _, r := range s.Required {
		required[r] = true
	}

	out := ir.ProductOf(name)
	out.ID = errors.JoinPath(path)
	for _, prop := range props {
		fs, err := c.ref(s.Properties[prop], name+"_"+naming.ToPascalCase(prop), append(path, prop))
		if err != nil {
			return nil, err
		}
		if !required[prop] && fs.Kind != ir.KindOptional {
			fs = ir.OptionalOf(fs)
		}
		out.Fields = append(out.Fields, ir.F(prop, fs))
	}
	return out, nil
}

func enum(s *openapi3.Schema, name string, path []string) (*ir.Shape, error) {
	if name == "" {
		return nil, errors.Unrepresentable(path, "inline enum outside a named schema")
	}
	out := ir.SumOf(name)
	out.ID = errors.JoinPath(path)
	for _, v := range s.Enum {
		switch v := v.(type) {
		case nil:
			continue
		case string:
			out.Variants = append(out.Variants, ir.V(v, nil))
		default:
			return nil, errors.Unrepresentable(path, "enum value %v is not a string", v)
		}
	}
	return out, nil
}

// oneOf converts a discriminated union. Each mapped object becomes a variant
// whose payload is the object without the discriminator property.
func (c *converter) oneOf(s *openapi3.Schema, name string, path []string) (*ir.Shape, error) {
	if s.Discriminator == nil || s.Discriminator.PropertyName == "" {
		return nil, errors.Unrepresentable(path, "oneOf without a discriminator has no Elm binding")
	}
	if name == "" {
		return nil, errors.Unrepresentable(path, "inline oneOf outside a named schema")
	}

	type member struct{ tag, ref string }
	var members []member
	if len(s.Discriminator.Mapping) > 0 {
		for tag, ref := range s.Discriminator.Mapping {
			members = append(members, member{tag, ref})
		}
		sort.Slice(members, func(i, j int) bool { return members[i].tag < members[j].tag })
	} else {
		for _, sr := range s.OneOf {
			if sr == nil || sr.Ref == "" {
				return nil, errors.Unrepresentable(path, "oneOf member without a $ref")
			}
			members = append(members, member{refName(sr.Ref), sr.Ref})
		}
	}

	out := ir.SumOf(name)
	out.ID = errors.JoinPath(path)
	for _, m := range members {
		target := refName(m.ref)
		vpath := append(append([]string(nil), path...), m.tag)
		payload, err := c.component(target, c.doc.Components.Schemas[target], vpath)
		if err != nil {
			return nil, err
		}
		if payload.Kind != ir.KindProduct {
			return nil, errors.Unrepresentable(vpath, "discriminated member %q is not an object", target)
		}

		record := ir.ProductOf(name + "_" + naming.ToPascalCase(m.tag))
		record.ID = errors.JoinPath(vpath)
		for _, f := range payload.Fields {
			if f.Name != s.Discriminator.PropertyName {
				record.Fields = append(record.Fields, f)
			}
		}
		out.Variants = append(out.Variants, ir.V(m.tag, record))
	}
	return out, nil
}

func schemaType(s *openapi3.Schema) string {
	if s.Type == nil {
		if len(s.Properties) > 0 || s.AdditionalProperties.Schema != nil {
			return openapi3.TypeObject
		}
		return ""
	}
	for _, t := range *s.Type {
		if t != "null" {
			return t
		}
	}
	return ""
}

func refName(ref string) string {
	if name, ok := strings.CutPrefix(ref, componentPrefix); ok {
		return name
	}
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ""
}
