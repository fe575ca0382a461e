package ir

import (
	"github.com/blimu-dev/elmgen/pkg/errors"
)

// Table indexes every product and sum reachable from a set of roots by
// source name. It is built once per export and used to resolve Refs.
type Table struct {
	byName map[string]*Shape
	order  []string
}

// NewTable validates the roots and indexes their named shapes.
//
// It fails with ErrUnrepresentableType for missing sub-shapes, unnamed
// products or sums, sums without variants, duplicate field or variant
// names, dictionary keys that are not String, Int or Float, variant payload
// records carrying a "tag" field, and Refs that resolve to nothing. Two
// different identities sharing a name fail with ErrNameCollision.
func NewTable(roots ...*Shape) (*Table, error) {
	w := &tableWalker{
		table:   &Table{byName: make(map[string]*Shape)},
		visited: make(map[*Shape]bool),
	}
	for _, root := range roots {
		var path []string
		if root != nil && root.Name != "" {
			path = []string{root.Name}
		}
		if err := w.walk(root, path); err != nil {
			return nil, err
		}
	}
	for _, ref := range w.refs {
		if _, ok := w.table.byName[ref.name]; !ok {
			return nil, errors.Unrepresentable(ref.path, "reference to undefined type %q", ref.name)
		}
	}
	for _, name := range w.table.order {
		if err := w.table.checkPayloads(w.table.byName[name]); err != nil {
			return nil, err
		}
	}
	return w.table, nil
}

// Lookup returns the product or sum registered under name.
func (t *Table) Lookup(name string) (*Shape, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// Names returns the registered names in discovery order.
func (t *Table) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Resolve follows a Ref to its target. Other shapes are returned unchanged.
func (t *Table) Resolve(s *Shape) *Shape {
	if s != nil && s.Kind == KindRef {
		if target, ok := t.byName[s.Name]; ok {
			return target
		}
	}
	return s
}

// PayloadKind describes how a sum variant carries its payload on the wire.
type PayloadKind int

const (
	// PayloadNone: only the tag is written.
	PayloadNone PayloadKind = iota
	// PayloadRecord: the payload product's fields sit beside the tag.
	PayloadRecord
	// PayloadValue: the payload sits under the "value" key.
	PayloadValue
)

// TagKey and ValueKey are the reserved keys of the sum encoding.
const (
	TagKey   = "tag"
	ValueKey = "value"
)

// Payload classifies a variant's payload. For PayloadRecord the returned
// shape is the resolved product.
func (t *Table) Payload(v Variant) (PayloadKind, *Shape) {
	if v.Payload == nil {
		return PayloadNone, nil
	}
	p := t.Resolve(v.Payload)
	if p.Kind == KindProduct {
		if len(p.Fields) == 0 {
			return PayloadNone, nil
		}
		return PayloadRecord, p
	}
	return PayloadValue, v.Payload
}

func (t *Table) checkPayloads(s *Shape) error {
	if s.Kind != KindSum {
		return nil
	}
	for _, v := range s.Variants {
		kind, p := t.Payload(v)
		if kind != PayloadRecord {
			continue
		}
		for _, f := range p.Fields {
			if f.Name == TagKey {
				return errors.Unrepresentable([]string{s.Name, v.Name}, "payload field %q collides with the sum tag", TagKey)
			}
		}
	}
	return nil
}

type pendingRef struct {
	name string
	path []string
}

type tableWalker struct {
	table   *Table
	visited map[*Shape]bool
	refs    []pendingRef
}

func (w *tableWalker) walk(s *Shape, path []string) error {
	if s == nil {
		return errors.Unrepresentable(path, "no shape")
	}
	switch s.Kind {
	case KindPrimitive:
		if s.Prim < Bool || s.Prim > Unit {
			return errors.Unrepresentable(path, "unknown primitive %d", int(s.Prim))
		}
		return nil
	case KindList, KindSet, KindOptional:
		return w.walk(s.Elem, append(path, "[]"))
	case KindDict:
		if s.Key == nil {
			return errors.Unrepresentable(path, "dictionary without a key shape")
		}
		if !IsKeyShape(s.Key) {
			return errors.Unrepresentable(path, "dictionary key %s is not String, Int or Float", s.Key)
		}
		return w.walk(s.Elem, append(path, "[]"))
	case KindRef:
		if s.Name == "" {
			return errors.Unrepresentable(path, "reference without a name")
		}
		w.refs = append(w.refs, pendingRef{name: s.Name, path: append([]string(nil), path...)})
		return nil
	case KindProduct, KindSum:
		return w.walkNamed(s, path)
	default:
		return errors.Unrepresentable(path, "unknown shape kind %d", int(s.Kind))
	}
}

func (w *tableWalker) walkNamed(s *Shape, path []string) error {
	if s.Name == "" {
		return errors.Unrepresentable(path, "%s without a name", s.Kind)
	}
	if w.visited[s] {
		return nil
	}
	w.visited[s] = true

	if prev, ok := w.table.byName[s.Name]; ok {
		if prev.Identity() != s.Identity() || prev.Kind != s.Kind {
			return errors.NameCollision(s.Name, prev.Identity(), s.Identity())
		}
	} else {
		w.table.byName[s.Name] = s
		w.table.order = append(w.table.order, s.Name)
	}

	base := []string{s.Name}
	if s.Kind == KindProduct {
		seen := make(map[string]bool, len(s.Fields))
		for _, f := range s.Fields {
			if seen[f.Name] {
				return errors.Unrepresentable(base, "duplicate field %q", f.Name)
			}
			seen[f.Name] = true
			if err := w.walk(f.Shape, append(base, f.Name)); err != nil {
				return err
			}
		}
		return nil
	}

	if len(s.Variants) == 0 {
		return errors.Unrepresentable(base, "sum has no variants")
	}
	seen := make(map[string]bool, len(s.Variants))
	for _, v := range s.Variants {
		if v.Name == "" {
			return errors.Unrepresentable(base, "variant without a name")
		}
		if seen[v.Name] {
			return errors.Unrepresentable(base, "duplicate variant %q", v.Name)
		}
		seen[v.Name] = true
		if v.Payload == nil {
			continue
		}
		if err := w.walk(v.Payload, append(base, v.Name)); err != nil {
			return err
		}
	}
	return nil
}

// IsKeyShape reports whether s can key a dictionary: its values must have a
// canonical string form.
func IsKeyShape(s *Shape) bool {
	if s == nil || s.Kind != KindPrimitive {
		return false
	}
	switch s.Prim {
	case String, Int, Float:
		return true
	}
	return false
}
