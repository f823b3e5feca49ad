package fixture

// memoCache holds the values computed so far for one executing test. Exactly
// one test owns a cache at a time, so a plain map suffices; presence is
// tracked separately from value truthiness so nil and false results are never
// recomputed.
//
// The inFlight set records names whose bodies are currently executing, which
// turns accidental self-reference into an immediate error instead of
// unbounded recursion.
type memoCache struct {
	entries  map[string]any
	inFlight map[string]bool
}

func newMemoCache() *memoCache {
	return &memoCache{
		entries:  make(map[string]any),
		inFlight: make(map[string]bool),
	}
}

func (c *memoCache) Load(name string) (any, bool) {
	val, ok := c.entries[name]
	return val, ok
}

func (c *memoCache) Store(name string, value any) {
	c.entries[name] = value
}

func (c *memoCache) Delete(name string) {
	delete(c.entries, name)
}

func (c *memoCache) Range(fn func(name string, value any) bool) {
	for name, value := range c.entries {
		if !fn(name, value) {
			return
		}
	}
}

func (c *memoCache) Size() int {
	return len(c.entries)
}

func (c *memoCache) Clear() {
	c.entries = make(map[string]any)
	c.inFlight = make(map[string]bool)
}

func (c *memoCache) beginCompute(name string) bool {
	if c.inFlight[name] {
		return false
	}
	c.inFlight[name] = true
	return true
}

func (c *memoCache) endCompute(name string) {
	delete(c.inFlight, name)
}
