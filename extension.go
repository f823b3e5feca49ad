package fixture

import "context"

// Extension provides hooks into fixture resolution
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a scope
	Init(scope *Scope) error

	// Wrap intercepts fixture computation on a cache miss, definition
	// registration, and shared-phase transitions. Cached reads are not
	// intercepted. Returning an error without calling next vetoes the
	// operation for OpFetch and OpDefine; shared-phase transitions carry a
	// nil result and are purely observational.
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnError is notified when a computation fails
	OnError(err error, op *Operation, scope *Scope)

	// Dispose is called when the scope is disposed
	Dispose(scope *Scope) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(scope *Scope) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, scope *Scope) {
}

func (e *BaseExtension) Dispose(scope *Scope) error {
	return nil
}

// Operation describes the operation being intercepted. Definition is nil for
// shared-phase transitions and when the default subject is being synthesized
// from the described target; Run is nil for operations that happen outside a
// test (definition registration, shared-phase transitions). For shared-phase
// transitions Name holds the phase kind.
type Operation struct {
	Kind       OperationKind
	Name       string
	Definition *Definition
	Scope      *Scope
	Run        *TestRun
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpFetch indicates a memoized fixture computation
	OpFetch OperationKind = "fetch"
	// OpDefine indicates a definition being registered in a scope
	OpDefine OperationKind = "define"
	// OpSharedEnter indicates a shared-phase hook starting
	OpSharedEnter OperationKind = "shared-enter"
	// OpSharedExit indicates a shared-phase hook ending
	OpSharedExit OperationKind = "shared-exit"
)
