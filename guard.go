package fixture

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
)

// PhaseKind identifies which once-per-group hook is executing.
type PhaseKind string

const (
	// PhaseSharedSetup is a hook that runs once before all tests in a group
	PhaseSharedSetup PhaseKind = "shared setup"
	// PhaseSharedTeardown is a hook that runs once after all tests in a group
	PhaseSharedTeardown PhaseKind = "shared teardown"
)

// PhaseGuard rejects per-test fixture access while a once-per-group hook is
// executing. Create one per group execution, never process-wide: two groups
// running their shared hooks concurrently must not see each other's marker.
//
// The runner brackets each shared hook with EnterSharedPhase and
// ExitSharedPhase, or uses RunShared which restores the idle state even when
// the hook fails or panics.
type PhaseGuard struct {
	mu     sync.Mutex
	active bool
	kind   PhaseKind
	scope  *Scope
}

// GuardOption is a modifier for phase guards
type GuardOption func(*PhaseGuard)

// WithGuardScope returns an option that binds the guard to the group's
// scope, making shared-phase transitions visible to the scope's extensions.
// Unbound guards transition silently.
func WithGuardScope(s *Scope) GuardOption {
	return func(g *PhaseGuard) {
		g.scope = s
	}
}

// NewPhaseGuard creates a guard in the idle state.
func NewPhaseGuard(opts ...GuardOption) *PhaseGuard {
	g := &PhaseGuard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EnterSharedPhase activates the guard for the given hook kind. Entering
// while another shared phase is active is a runner bug and is rejected.
func (g *PhaseGuard) EnterSharedPhase(kind PhaseKind) error {
	g.mu.Lock()
	if g.active {
		active := g.kind
		g.mu.Unlock()
		return &PhaseStateError{Op: "enter", Kind: kind, Active: true, ActiveKind: active}
	}
	g.active = true
	g.kind = kind
	g.mu.Unlock()

	g.emit(OpSharedEnter, kind)
	return nil
}

// ExitSharedPhase deactivates the guard. The kind must match the active
// phase.
func (g *PhaseGuard) ExitSharedPhase(kind PhaseKind) error {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return &PhaseStateError{Op: "exit", Kind: kind}
	}
	if g.kind != kind {
		active := g.kind
		g.mu.Unlock()
		return &PhaseStateError{Op: "exit", Kind: kind, Active: true, ActiveKind: active}
	}
	g.active = false
	g.kind = ""
	g.mu.Unlock()

	g.emit(OpSharedExit, kind)
	return nil
}

// RunShared executes hook inside the guarded phase. The guard returns to
// idle on every exit path, including an error or panic from the hook, so
// subsequent tests are unaffected by a failing shared hook. The exit
// transition is emitted to extensions even on the abnormal paths.
func (g *PhaseGuard) RunShared(kind PhaseKind, hook func() error) error {
	if err := g.EnterSharedPhase(kind); err != nil {
		return err
	}
	defer func() {
		g.mu.Lock()
		g.active = false
		g.kind = ""
		g.mu.Unlock()
		g.emit(OpSharedExit, kind)
	}()

	return hook()
}

// emit notifies the bound scope's extensions of a phase transition. The
// transition has already happened; extension errors are reported through
// OnError but cannot roll it back.
func (g *PhaseGuard) emit(kind OperationKind, phase PhaseKind) {
	if g.scope == nil {
		return
	}
	exts := g.scope.effectiveExtensions()
	if len(exts) == 0 {
		return
	}

	op := &Operation{
		Kind:  kind,
		Name:  string(phase),
		Scope: g.scope,
	}

	next := func() (any, error) {
		return nil, nil
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
			ext.OnError(err, op, g.scope)
		}
	}
}

// Active reports whether a shared phase is currently active and its kind.
func (g *PhaseGuard) Active() (PhaseKind, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.kind, g.active
}

func (g *PhaseGuard) check(name string, subject bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active {
		return nil
	}
	return &WrongPhaseAccessError{
		Name:     name,
		Subject:  subject,
		Phase:    g.kind,
		Location: callerLocation(),
	}
}

const modulePath = "github.com/fixture-fn/fixture-go"

// callerLocation returns the first frame outside this package, as a file:line
// hint for diagnostics.
func callerLocation() string {
	pcs := make([]uintptr, 24)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		internal := strings.HasPrefix(frame.Function, modulePath+".") &&
			!strings.HasSuffix(frame.File, "_test.go")
		if frame.Function != "" && !internal {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return "unknown"
}
