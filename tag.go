package fixture

// Tagged is anything that carries tag metadata. Scopes and definitions both
// qualify.
type Tagged interface {
	GetTag(tag any) (any, bool)
	SetTag(tag any, val any)
}

// Tag is a type-safe key for metadata on scopes and definitions
type Tag[T any] struct {
	key string
}

// NewTag creates a new tag with the given key
func NewTag[T any](key string) Tag[T] {
	return Tag[T]{key: key}
}

// Key returns the tag's key (for debugging)
func (t Tag[T]) Key() string {
	return t.key
}

// Get retrieves the tag value from a carrier
func (t Tag[T]) Get(c Tagged) (T, bool) {
	val, ok := c.GetTag(t)
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// GetOrDefault retrieves the tag value or returns a default
func (t Tag[T]) GetOrDefault(c Tagged, defaultVal T) T {
	if val, ok := t.Get(c); ok {
		return val
	}
	return defaultVal
}

// Set stores the tag value on a carrier
func (t Tag[T]) Set(c Tagged, val T) {
	c.SetTag(t, val)
}

// DefinitionSite carries the file:line where a definition was declared.
// Define sets it automatically; diagnostics read it back.
func DefinitionSite() Tag[string] {
	return definitionSiteTag
}

var definitionSiteTag = NewTag[string]("definition.site")
