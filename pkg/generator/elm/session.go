package elm

import (
	"sort"

	"github.com/blimu-dev/elmgen/pkg/errors"
	"github.com/blimu-dev/elmgen/pkg/ir"
	"github.com/blimu-dev/elmgen/pkg/naming"
	"go.uber.org/zap"
)

// Role is the kind of top-level definition emitted for a type.
type Role = naming.Role

// Definition is one top-level Elm declaration.
type Definition struct {
	// Name is the Elm type name the definition belongs to.
	Name string
	Role Role
	Text string
}

type state int

const (
	unseen state = iota
	inProgress
	finished
)

type defKey struct {
	name string
	role Role
}

// Session is the per-export registry of definitions. Each (name, role) pair
// moves from unseen to in progress on TryBegin and to finished on Record,
// so every definition is generated at most once and recursive walks stop at
// names that are already being generated.
//
// A Session is owned by one export and must not be shared.
type Session struct {
	table   *ir.Table
	wrapped map[string]bool

	states map[defKey]state
	texts  map[defKey]string
	order  []string
	owners map[string]string
	ctors  map[string]string
}

// NewSession prepares a session for shapes indexed by table.
func NewSession(table *ir.Table) *Session {
	return &Session{
		table:   table,
		wrapped: recursiveProducts(table),
		states:  make(map[defKey]state),
		texts:   make(map[defKey]string),
		owners:  make(map[string]string),
		ctors:   make(map[string]string),
	}
}

// TryBegin claims (name, role) for generation. It returns true when the pair
// was unseen and the caller must now generate and Record it, and false when
// the definition is already in progress or finished. Binding name to an
// identity other than the one it was first claimed with is a NameCollision.
func (s *Session) TryBegin(name string, role Role, identity string) (bool, error) {
	if owner, ok := s.owners[name]; ok {
		if owner != identity {
			return false, errors.NameCollision(name, owner, identity)
		}
	} else {
		s.owners[name] = identity
		s.order = append(s.order, name)
	}

	k := defKey{name, role}
	if s.states[k] != unseen {
		return false, nil
	}
	s.states[k] = inProgress
	return true, nil
}

// InProgress reports whether (name, role) has begun but not been recorded.
func (s *Session) InProgress(name string, role Role) bool {
	return s.states[defKey{name, role}] == inProgress
}

// Record stores the text of a definition claimed with TryBegin.
func (s *Session) Record(def Definition) error {
	k := defKey{def.Name, def.Role}
	if s.states[k] != inProgress {
		return errors.Newf("record %s %s: definition was not begun", def.Role, def.Name)
	}
	s.states[k] = finished
	s.texts[k] = def.Text
	Logger().Debug("recorded definition", zap.String("type", def.Name), zap.Stringer("role", def.Role))
	return nil
}

// ClaimConstructor reserves an Elm constructor for owner. Constructors share
// one namespace across the module, so two owners claiming the same one is a
// NameCollision. Claims by the same owner are idempotent.
func (s *Session) ClaimConstructor(ctor, owner string) error {
	if prev, ok := s.ctors[ctor]; ok && prev != owner {
		return errors.NameCollision(ctor, prev, owner)
	}
	s.ctors[ctor] = owner
	return nil
}

// Wrapped reports whether the product called name sits on a reference cycle
// and is therefore emitted as a single-constructor custom type instead of a
// record alias.
func (s *Session) Wrapped(name string) bool {
	return s.wrapped[name]
}

// Definitions returns the recorded definitions grouped by type name in the
// order names were first claimed, each group in role order.
func (s *Session) Definitions() []Definition {
	roles := []Role{naming.TypeDecl, naming.Encoder, naming.Decoder, naming.QueryEncoder}
	var out []Definition
	for _, name := range s.order {
		for _, role := range roles {
			k := defKey{name, role}
			if s.states[k] != finished {
				continue
			}
			out = append(out, Definition{Name: name, Role: role, Text: s.texts[k]})
		}
	}
	return out
}

// recursiveProducts returns the products that lie on a cycle of
// product-to-product references. Elm rejects recursive type aliases, so
// those products need a custom type. References through a sum do not count
// because a custom type already breaks the alias expansion.
func recursiveProducts(table *ir.Table) map[string]bool {
	edges := make(map[string][]string)
	for _, name := range table.Names() {
		s, _ := table.Lookup(name)
		if s.Kind != ir.KindProduct {
			continue
		}
		seen := make(map[string]bool)
		for _, f := range s.Fields {
			collectProductRefs(table, f.Shape, seen)
		}
		targets := make([]string, 0, len(seen))
		for t := range seen {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		edges[name] = targets
	}

	t := &tarjan{
		edges:   edges,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
		out:     make(map[string]bool),
	}
	for _, name := range table.Names() {
		if _, ok := edges[name]; !ok {
			continue
		}
		if _, visited := t.index[name]; !visited {
			t.connect(name)
		}
	}
	return t.out
}

func collectProductRefs(table *ir.Table, s *ir.Shape, seen map[string]bool) {
	if s == nil {
		return
	}
	switch s.Kind {
	case ir.KindList, ir.KindSet, ir.KindOptional, ir.KindDict:
		collectProductRefs(table, s.Elem, seen)
	case ir.KindProduct:
		seen[s.Name] = true
	case ir.KindRef:
		if target, ok := table.Lookup(s.Name); ok && target.Kind == ir.KindProduct {
			seen[s.Name] = true
		}
	}
}

// tarjan finds strongly connected components and marks every node of a
// component that is either larger than one node or has a self edge.
type tarjan struct {
	edges   map[string][]string
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	next    int
	out     map[string]bool
}

func (t *tarjan) connect(v string) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.edges[v] {
		if _, visited := t.index[w]; !visited {
			t.connect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	var component []string
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		component = append(component, w)
		if w == v {
			break
		}
	}
	if len(component) > 1 || selfEdge(t.edges[v], v) {
		for _, w := range component {
			t.out[w] = true
		}
	}
}

func selfEdge(targets []string, v string) bool {
	for _, w := range targets {
		if w == v {
			return true
		}
	}
	return false
}
