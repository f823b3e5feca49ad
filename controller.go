package fixture

// Controller provides typed access to one named fixture on a run
type Controller[T any] struct {
	run  *TestRun
	name string
}

// Accessor creates a controller for a named fixture
func Accessor[T any](run *TestRun, name string) *Controller[T] {
	return &Controller[T]{
		run:  run,
		name: name,
	}
}

// Name returns the fixture name the controller is bound to.
func (c *Controller[T]) Name() string {
	return c.name
}

// Get retrieves the value, computing and memoizing it on first access
func (c *Controller[T]) Get() (T, error) {
	return GetAs[T](c.run, c.name)
}

// canonical maps a subject alias to the name the cache entry lives under.
func (c *Controller[T]) canonical() string {
	if def, err := resolveDefinition(c.run.scope, c.name, false); err == nil {
		return def.name
	}
	return c.name
}

// Peek retrieves the memoized value without computing. Shared-phase access
// reports a miss rather than reading the per-test cache.
func (c *Controller[T]) Peek() (T, bool) {
	if c.run.guard != nil {
		if _, active := c.run.guard.Active(); active {
			var zero T
			return zero, false
		}
	}

	val, ok := c.run.cache.Load(c.canonical())
	if !ok {
		var zero T
		return zero, false
	}

	typed, err := assertType[T](c.name, val)
	if err != nil {
		var zero T
		return zero, false
	}
	return typed, true
}

// IsCached checks if the value is currently memoized. Like Peek, it reports
// a miss during a shared phase instead of reading the per-test cache.
func (c *Controller[T]) IsCached() bool {
	if c.run.guard != nil {
		if _, active := c.run.guard.Active(); active {
			return false
		}
	}
	return c.run.Cached(c.canonical())
}

// Invalidate drops the memoized value so the next Get recomputes. The memo
// contract holds per test by default; this is an explicit escape hatch for
// fixtures that mutate mid-test. A shared hook may not mutate the per-test
// cache, so guarded access fails like any other.
func (c *Controller[T]) Invalidate() error {
	if err := c.run.guardCheck(c.name); err != nil {
		return err
	}
	c.run.cache.Delete(c.canonical())
	return nil
}
