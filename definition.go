package fixture

// Body is a definition's computation. It runs at most once per test, on the
// first access of the definition's name, and receives the resolution context
// for the running test.
type Body func(rc *ResolveCtx) (any, error)

// Definition is a named lazy computation registered in exactly one scope.
type Definition struct {
	name         string
	body         Body
	scope        *Scope
	namedSubject bool
	tags         map[any]any
}

// Name returns the definition's name. For a named subject this is the
// explicit name, not the canonical alias.
func (d *Definition) Name() string {
	return d.name
}

// OwningScope returns the scope the definition was registered in.
func (d *Definition) OwningScope() *Scope {
	return d.scope
}

// IsSubject reports whether the definition serves as the scope's subject,
// either under the canonical name or as a named subject.
func (d *Definition) IsSubject() bool {
	return d.namedSubject || d.name == SubjectName
}

// GetTag retrieves a tag value from the definition
func (d *Definition) GetTag(tag any) (any, bool) {
	val, ok := d.tags[tag]
	return val, ok
}

// SetTag stores a tag value on the definition
func (d *Definition) SetTag(tag any, val any) {
	d.tags[tag] = val
}

func (d *Definition) eval(run *TestRun) (any, error) {
	rc := &ResolveCtx{run: run, def: d}
	return d.body(rc)
}

// ResolveCtx is passed to definition bodies while they compute. It carries
// the running test's identity and supports reaching other fixtures and the
// enclosing definition of the same name.
type ResolveCtx struct {
	run *TestRun
	def *Definition
}

// Run returns the test run the computation belongs to.
func (rc *ResolveCtx) Run() *TestRun {
	return rc.run
}

// Get resolves another fixture through the run's cache. Triggering the name
// currently being computed reports a cyclic fixture dependency.
func (rc *ResolveCtx) Get(name string) (any, error) {
	return Get(rc.run, name)
}

// Super resolves the same name starting from the owning scope's parent,
// invoking the enclosing definition's body directly. The result is memoized
// only as part of the overriding definition's value.
//
// Named subjects cannot upcall: the canonical alias makes "the enclosing
// subject" ambiguous, so the call fails rather than silently resolving to an
// unrelated ancestor definition.
func (rc *ResolveCtx) Super() (any, error) {
	if rc.def == nil {
		return nil, &NoDefinitionError{Name: SubjectName, Scope: rc.run.scope}
	}
	if rc.def.namedSubject {
		site, _ := definitionSiteTag.Get(rc.def)
		return nil, &UnsupportedUpcallError{Name: rc.def.name, Site: site}
	}

	d, err := resolveDefinition(rc.def.scope, rc.def.name, true)
	if err != nil {
		return nil, err
	}
	return d.eval(rc.run)
}

// GetTag retrieves a tag value from the run's scope
func (rc *ResolveCtx) GetTag(tag any) (any, bool) {
	return rc.run.scope.GetTag(tag)
}

// GetTag retrieves a typed tag value from the run's scope
func GetTag[T any](rc *ResolveCtx, tag Tag[T]) (T, bool) {
	return tag.Get(rc.run.scope)
}

// GetTagOrDefault retrieves a typed tag or returns a default value
func GetTagOrDefault[T any](rc *ResolveCtx, tag Tag[T], defaultVal T) T {
	if val, ok := tag.Get(rc.run.scope); ok {
		return val
	}
	return defaultVal
}

// FetchAs resolves another fixture with a typed result.
func FetchAs[T any](rc *ResolveCtx, name string) (T, error) {
	return GetAs[T](rc.run, name)
}
