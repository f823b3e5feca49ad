package fixture

import (
	"context"
	"reflect"
	"sort"
	"sync/atomic"
)

// SubjectName is the reserved identifier for the implicit assertion target.
const SubjectName = "subject"

// Scope is a node in the tree of nested test-group declarations. Each scope
// owns the definitions declared directly in it and links to its parent;
// resolution walks toward the root.
//
// Scopes are mutable only while the group tree is being declared. Seal marks
// the tree read-only before any test executes, which is what makes lock-free
// concurrent reads during parallel test execution safe.
type Scope struct {
	parent   *Scope
	children []*Scope
	name     string

	definitions map[string]*Definition

	described     any
	describedType reflect.Type
	hasDescribed  bool

	extensions []Extension
	tags       map[any]any
	sealed     atomic.Bool
}

// ScopeOption is a modifier for scopes
type ScopeOption func(*Scope)

// WithScopeName returns an option that sets a human-readable label on a
// scope, used in error messages and debug output.
func WithScopeName(name string) ScopeOption {
	return func(s *Scope) {
		s.name = name
	}
}

// WithScopeTag returns an option that sets a tag on a scope
func WithScopeTag[T any](tag Tag[T], val T) ScopeOption {
	return func(s *Scope) {
		tag.Set(s, val)
	}
}

// WithExtension returns an option that registers an extension to a scope
func WithExtension(ext Extension) ScopeOption {
	return func(s *Scope) {
		if err := s.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// WithDescribed returns an option that sets the scope's described target to a
// plain value. The default subject resolves to the value unchanged.
func WithDescribed(value any) ScopeOption {
	return func(s *Scope) {
		s.described = value
		s.describedType = nil
		s.hasDescribed = true
	}
}

// WithDescribedType returns an option that sets the scope's described target
// to a type. The default subject resolves to a freshly constructed instance,
// built once per test on first access.
func WithDescribedType(t reflect.Type) ScopeOption {
	return func(s *Scope) {
		s.described = nil
		s.describedType = t
		s.hasDescribed = true
	}
}

// DescribeType returns the reflect.Type for T, for use with
// WithDescribedType.
func DescribeType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// NewScope creates a root scope with optional configuration
func NewScope(opts ...ScopeOption) *Scope {
	s := &Scope{
		definitions: make(map[string]*Definition),
		tags:        make(map[any]any),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Child creates a nested scope. Definitions in the child shadow same-named
// definitions in this scope for tests running against the child.
func (s *Scope) Child(opts ...ScopeOption) *Scope {
	c := NewScope(opts...)
	c.parent = s
	s.children = append(s.children, c)
	return c
}

// Parent returns the enclosing scope, or nil for the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Path returns the slash-joined labels from the root to this scope.
func (s *Scope) Path() string {
	if s.parent == nil {
		return s.label()
	}
	return s.parent.Path() + "/" + s.label()
}

func (s *Scope) label() string {
	switch {
	case s.name != "":
		return s.name
	case s.describedType != nil:
		return s.describedType.String()
	case s.hasDescribed && s.described != nil:
		return reflect.TypeOf(s.described).String()
	default:
		return "scope"
	}
}

// Define registers name in this scope, replacing any prior definition made in
// this scope only. Ancestor definitions for the same name are shadowed, not
// modified; a body can still reach them through ResolveCtx.Super.
func Define(s *Scope, name string, body Body) (*Definition, error) {
	return s.define(name, body, false)
}

// DefineAs registers a definition with a typed body.
func DefineAs[T any](s *Scope, name string, body func(rc *ResolveCtx) (T, error)) (*Definition, error) {
	if body == nil {
		return nil, &MissingBodyError{Name: name, Scope: s}
	}
	return s.define(name, func(rc *ResolveCtx) (any, error) {
		return body(rc)
	}, false)
}

// DefineSubject registers the canonical subject for this scope.
func DefineSubject(s *Scope, body Body) (*Definition, error) {
	return s.define(SubjectName, body, false)
}

// DefineNamedSubject registers a subject under an explicit name. The name and
// the canonical "subject" both resolve to the same definition, and the two
// share one memoized value per test. Upcalls from the body are rejected at
// call time.
func DefineNamedSubject(s *Scope, name string, body Body) (*Definition, error) {
	d, err := s.define(name, body, true)
	if err != nil {
		return nil, err
	}
	s.definitions[SubjectName] = d
	return d, nil
}

func (s *Scope) define(name string, body Body, namedSubject bool) (*Definition, error) {
	if s.sealed.Load() {
		return nil, &SealedScopeError{Name: name, Scope: s}
	}
	if body == nil {
		return nil, &MissingBodyError{Name: name, Scope: s}
	}

	d := &Definition{
		name:         name,
		body:         body,
		scope:        s,
		namedSubject: namedSubject,
		tags:         make(map[any]any),
	}
	definitionSiteTag.Set(d, callerLocation())

	exts := s.effectiveExtensions()

	op := &Operation{
		Kind:       OpDefine,
		Name:       name,
		Definition: d,
		Scope:      s,
	}

	next := func() (any, error) {
		s.definitions[name] = d
		return d, nil
	}

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(context.Background(), currentNext, op)
		}
	}

	if _, err := next(); err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, s)
		}
		return nil, err
	}

	return d, nil
}

// Lookup returns the definition for name in this scope only, without walking
// the chain.
func (s *Scope) Lookup(name string) (*Definition, bool) {
	d, ok := s.definitions[name]
	return d, ok
}

// resolveDefinition walks from start toward the root and returns the first
// definition for name. With upcall set, the walk begins at start's parent so
// a body never re-enters its own scope's definition.
func resolveDefinition(start *Scope, name string, upcall bool) (*Definition, error) {
	cur := start
	if upcall {
		cur = start.parent
	}
	for ; cur != nil; cur = cur.parent {
		if d, ok := cur.definitions[name]; ok {
			return d, nil
		}
	}
	return nil, &NoDefinitionError{Name: name, Scope: start}
}

// Seal marks the whole scope tree read-only, starting from the root. Called
// by the runner once declaration is complete; NewTestRun also seals, so a
// registry can never be mutated while a test is executing.
func (s *Scope) Seal() {
	root := s
	for root.parent != nil {
		root = root.parent
	}
	root.sealRec()
}

func (s *Scope) sealRec() {
	s.sealed.Store(true)
	for _, c := range s.children {
		c.sealRec()
	}
}

// Sealed reports whether the scope has been sealed for execution.
func (s *Scope) Sealed() bool {
	return s.sealed.Load()
}

// UseExtension registers an extension to the scope
func (s *Scope) UseExtension(ext Extension) error {
	if s.sealed.Load() {
		return &SealedScopeError{Name: ext.Name(), Scope: s}
	}
	s.extensions = append(s.extensions, ext)
	sort.SliceStable(s.extensions, func(i, j int) bool {
		return s.extensions[i].Order() < s.extensions[j].Order()
	})
	return ext.Init(s)
}

// effectiveExtensions returns the extensions visible from this scope,
// ancestors first, ordered by Order.
func (s *Scope) effectiveExtensions() []Extension {
	var chain []*Scope
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	var exts []Extension
	for i := len(chain) - 1; i >= 0; i-- {
		exts = append(exts, chain[i].extensions...)
	}
	sort.SliceStable(exts, func(i, j int) bool {
		return exts[i].Order() < exts[j].Order()
	})
	return exts
}

// Dispose releases the extensions registered on this scope and its
// descendants, leaf scopes first.
func (s *Scope) Dispose() error {
	for i := len(s.children) - 1; i >= 0; i-- {
		if err := s.children[i].Dispose(); err != nil {
			return err
		}
	}
	for _, ext := range s.extensions {
		if err := ext.Dispose(s); err != nil {
			return err
		}
	}
	return nil
}

// GetTag retrieves a tag value from the scope
func (s *Scope) GetTag(tag any) (any, bool) {
	val, ok := s.tags[tag]
	return val, ok
}

// SetTag stores a tag value on the scope
func (s *Scope) SetTag(tag any, val any) {
	s.tags[tag] = val
}

// Names returns the names defined directly in this scope, sorted. The
// canonical subject alias created by DefineNamedSubject is included.
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Children returns the directly nested scopes in declaration order.
func (s *Scope) Children() []*Scope {
	out := make([]*Scope, len(s.children))
	copy(out, s.children)
	return out
}
