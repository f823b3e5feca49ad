package fixture

import (
	"context"

	"github.com/google/uuid"
)

// TestRun represents one executing test. It owns the memoization cache for
// that test: created when the test begins, discarded by Finish, never shared
// with or reused by another test.
type TestRun struct {
	id       string
	testName string
	scope    *Scope
	guard    *PhaseGuard
	cache    *memoCache
	ctx      context.Context
	finished bool
}

// RunOption is a modifier for test runs
type RunOption func(*TestRun)

// WithTestName returns an option that records the test's name on the run.
func WithTestName(name string) RunOption {
	return func(r *TestRun) {
		r.testName = name
	}
}

// WithPhaseGuard returns an option that attaches the group execution's phase
// guard to the run. Runs without a guard are never phase-checked.
func WithPhaseGuard(g *PhaseGuard) RunOption {
	return func(r *TestRun) {
		r.guard = g
	}
}

// WithRunContext returns an option that attaches a context to the run. The
// context is handed to extensions wrapping fixture computation.
func WithRunContext(ctx context.Context) RunOption {
	return func(r *TestRun) {
		r.ctx = ctx
	}
}

// NewTestRun creates the run for a single test executing against scope. The
// scope tree is sealed as a side effect: no definition can be added once any
// test has started.
func NewTestRun(scope *Scope, opts ...RunOption) *TestRun {
	scope.Seal()

	r := &TestRun{
		id:    uuid.NewString(),
		scope: scope,
		cache: newMemoCache(),
		ctx:   context.Background(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ID returns the run's unique identifier.
func (r *TestRun) ID() string {
	return r.id
}

// TestName returns the name recorded with WithTestName, or "".
func (r *TestRun) TestName() string {
	return r.testName
}

// Scope returns the scope the test runs against.
func (r *TestRun) Scope() *Scope {
	return r.scope
}

// Context returns the run's context.
func (r *TestRun) Context() context.Context {
	return r.ctx
}

// Finish discards the run's cache. Further fixture access through the run
// fails; a new test gets a new run.
func (r *TestRun) Finish() {
	r.finished = true
	r.cache.Clear()
}

// Finished reports whether Finish has been called.
func (r *TestRun) Finished() bool {
	return r.finished
}

// Cached reports whether a value for name is already memoized in this run.
func (r *TestRun) Cached(name string) bool {
	_, ok := r.cache.Load(name)
	return ok
}

// guardCheck rejects access while the group's shared phase is active.
func (r *TestRun) guardCheck(name string) error {
	if r.guard == nil {
		return nil
	}
	subject := name == SubjectName
	if def, err := resolveDefinition(r.scope, name, false); err == nil {
		subject = def.IsSubject()
	}
	return r.guard.check(name, subject)
}

// Get resolves name for the running test: phase-guarded, chain-resolved
// through the run's scope, and memoized for the remainder of the test. The
// body behind name runs at most once per run, even when it produces nil or
// false.
func Get(run *TestRun, name string) (any, error) {
	if run.finished {
		return nil, &RunFinishedError{Name: name, RunID: run.id}
	}

	def, defErr := resolveDefinition(run.scope, name, false)

	subject := name == SubjectName
	canonical := name
	if def != nil {
		subject = def.IsSubject()
		canonical = def.name
	}

	// Guarded before anything touches the cache. A miss inside a shared hook
	// must report the phase violation, not NoDefinition.
	if run.guard != nil {
		if err := run.guard.check(name, subject); err != nil {
			return nil, err
		}
	}

	if def == nil {
		if name != SubjectName {
			return nil, defErr
		}
		body, ok := defaultSubjectBody(run.scope)
		if !ok {
			return nil, defErr
		}
		return run.fetch(SubjectName, func() (any, error) {
			return run.compute(SubjectName, nil, body)
		})
	}

	return run.fetch(canonical, func() (any, error) {
		return run.compute(canonical, def, nil)
	})
}

// GetAs resolves name with a typed result.
func GetAs[T any](run *TestRun, name string) (T, error) {
	val, err := Get(run, name)
	if err != nil {
		var zero T
		return zero, err
	}
	return assertType[T](name, val)
}

// MustGet resolves name and panics on error. Intended for generated accessor
// methods where the enclosing runner converts panics into test failures.
func MustGet(run *TestRun, name string) any {
	val, err := Get(run, name)
	if err != nil {
		panic(err)
	}
	return val
}

func (r *TestRun) fetch(name string, compute func() (any, error)) (any, error) {
	if val, ok := r.cache.Load(name); ok {
		return val, nil
	}

	if !r.cache.beginCompute(name) {
		return nil, &CyclicFixtureError{Name: name}
	}
	defer r.cache.endCompute(name)

	val, err := compute()
	if err != nil {
		return nil, err
	}

	r.cache.Store(name, val)
	return val, nil
}

// compute evaluates a definition body (or the default-subject fallback when
// def is nil) wrapped by the scope's extensions, innermost last.
func (r *TestRun) compute(name string, def *Definition, fallback Body) (any, error) {
	exts := r.scope.effectiveExtensions()

	op := &Operation{
		Kind:       OpFetch,
		Name:       name,
		Definition: def,
		Scope:      r.scope,
		Run:        r,
	}

	next := func() (any, error) {
		if def != nil {
			return def.eval(r)
		}
		return fallback(&ResolveCtx{run: r})
	}

	for i := len(exts) - 1; i >= 0; i-- {
		ext := exts[i]
		currentNext := next
		next = func() (any, error) {
			return ext.Wrap(r.ctx, currentNext, op)
		}
	}

	result, err := next()
	if err != nil {
		for _, ext := range exts {
			ext.OnError(err, op, r.scope)
		}
		return nil, err
	}

	return result, nil
}
