package fixture

import (
	"fmt"
)

// NoDefinitionError is returned when a name has no definition anywhere in the
// scope chain.
type NoDefinitionError struct {
	Name  string
	Scope *Scope
}

func (e *NoDefinitionError) Error() string {
	return fmt.Sprintf("no definition for %q in scope %s or any ancestor", e.Name, e.Scope.Path())
}

// UnsupportedUpcallError is returned when a named-subject definition attempts
// an upcall. Named subjects alias the canonical subject and have no defined
// enclosing definition to delegate to.
type UnsupportedUpcallError struct {
	Name string
	Site string
}

func (e *UnsupportedUpcallError) Error() string {
	if e.Site != "" {
		return fmt.Sprintf("upcall from named subject %q (defined at %s) is not supported", e.Name, e.Site)
	}
	return fmt.Sprintf("upcall from named subject %q is not supported", e.Name)
}

// WrongPhaseAccessError is returned when a fixture is accessed while a shared
// (once-per-group) hook is executing. Shared hooks must never touch the
// per-test cache: a value computed there would leak between unrelated tests.
type WrongPhaseAccessError struct {
	Name     string
	Subject  bool
	Phase    PhaseKind
	Location string
}

func (e *WrongPhaseAccessError) Error() string {
	kind := "fixture"
	if e.Subject {
		kind = "subject"
	}
	return fmt.Sprintf("%s %q accessed during %s hook at %s; per-test fixtures are only available from per-test hooks and test bodies",
		kind, e.Name, e.Phase, e.Location)
}

// MissingBodyError is returned at declaration time when a definition is
// registered without a computation body.
type MissingBodyError struct {
	Name  string
	Scope *Scope
}

func (e *MissingBodyError) Error() string {
	return fmt.Sprintf("definition %q in scope %s has no body", e.Name, e.Scope.Path())
}

// CyclicFixtureError is returned when a definition body triggers its own name
// again through anything other than an upcall.
type CyclicFixtureError struct {
	Name string
}

func (e *CyclicFixtureError) Error() string {
	return fmt.Sprintf("fixture %q depends on itself; use Super to reach an enclosing definition", e.Name)
}

// SealedScopeError is returned when a definition is registered after the
// scope tree has been sealed for execution.
type SealedScopeError struct {
	Name  string
	Scope *Scope
}

func (e *SealedScopeError) Error() string {
	return fmt.Sprintf("cannot define %q: scope %s is sealed for execution", e.Name, e.Scope.Path())
}

// RunFinishedError is returned when a fixture is accessed through a run whose
// cache has already been discarded.
type RunFinishedError struct {
	Name  string
	RunID string
}

func (e *RunFinishedError) Error() string {
	return fmt.Sprintf("fixture %q accessed after run %s finished", e.Name, e.RunID)
}

// PhaseStateError is returned for invalid guard transitions such as exiting a
// phase that was never entered or entering twice.
type PhaseStateError struct {
	Op         string
	Kind       PhaseKind
	Active     bool
	ActiveKind PhaseKind
}

func (e *PhaseStateError) Error() string {
	if e.Active {
		return fmt.Sprintf("cannot %s %s: %s is already active", e.Op, e.Kind, e.ActiveKind)
	}
	return fmt.Sprintf("cannot %s %s: no shared phase is active", e.Op, e.Kind)
}

// TypeMismatchError is returned by typed accessors when the computed value
// does not have the requested type.
type TypeMismatchError struct {
	Name string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("fixture %q has type %s, not %s", e.Name, e.Got, e.Want)
}

func assertType[T any](name string, value any) (T, error) {
	if value == nil {
		var zero T
		return zero, nil
	}

	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, &TypeMismatchError{
			Name: name,
			Want: fmt.Sprintf("%T", zero),
			Got:  fmt.Sprintf("%T", value),
		}
	}

	return typed, nil
}
