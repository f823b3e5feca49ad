// Package fixture provides lazy, per-test memoized values for test-group
// DSLs: named fixtures with nested-scope overrides, an implicit subject, and
// a guard against touching per-test state from once-per-group hooks.
//
// # Overview
//
// Fixture organizes test state around three core concepts:
//
//  1. Scopes: nodes in the nested test-group tree, each owning its fixture
//     definitions
//  2. Definitions: named lazy computations, resolvable from the declaring
//     scope and every scope nested inside it
//  3. Runs: one per executing test, owning the memoization cache that makes
//     each definition compute at most once per test
//
// # Basic Usage
//
// Declare fixtures while the group tree is being built:
//
//	root := fixture.NewScope(fixture.WithScopeName("accounts"))
//
//	_, err := fixture.Define(root, "balance", func(rc *fixture.ResolveCtx) (any, error) {
//	    return 100, nil
//	})
//
// Access them from a running test:
//
//	run := fixture.NewTestRun(root, fixture.WithTestName("opening balance"))
//	defer run.Finish()
//
//	balance, err := fixture.GetAs[int](run, "balance")
//
// The first access invokes the body; every later access in the same run
// returns the memoized value. A new run starts with an empty cache.
//
// # Overrides and Upcalls
//
// A nested scope may redefine a name. Its body can reach the enclosing
// definition with Super:
//
//	child := root.Child(fixture.WithScopeName("with bonus"))
//
//	_, err := fixture.Define(child, "balance", func(rc *fixture.ResolveCtx) (any, error) {
//	    base, err := rc.Super()
//	    if err != nil {
//	        return nil, err
//	    }
//	    return base.(int) + 50, nil
//	})
//
// Resolution always takes the most-derived definition; Super restarts the
// walk at the owning scope's parent, so a definition never re-enters itself.
//
// # Subjects
//
// The reserved name "subject" is the implicit target of one-line assertions.
// Declare it explicitly, give it a name (the name and "subject" share one
// memoized value), or let it fall back to the scope's described target:
//
//	_, err := fixture.DefineNamedSubject(scope, "account", func(rc *fixture.ResolveCtx) (any, error) {
//	    return NewAccount(), nil
//	})
//
//	scope := fixture.NewScope(fixture.WithDescribedType(fixture.DescribeType[Widget]()))
//	// subject resolves to a fresh Widget per test
//
//	target, err := fixture.Target(run)
//	err = target.Should(matcher)
//
// # Phase Guard
//
// Hooks that run once for a whole group must not read or populate a cache
// owned by a single test. The runner brackets such hooks with a guard:
//
//	guard := fixture.NewPhaseGuard()
//	run := fixture.NewTestRun(scope, fixture.WithPhaseGuard(guard))
//
//	err := guard.RunShared(fixture.PhaseSharedSetup, func() error {
//	    // fixture.Get here fails with WrongPhaseAccessError
//	    return prepareDatabase()
//	})
//
// The guard returns to idle even when the hook fails, so later tests run
// normally.
//
// # Controllers
//
// Controllers provide typed access to one named fixture:
//
//	ctrl := fixture.Accessor[int](run, "balance")
//
//	val, err := ctrl.Get()
//	val, ok := ctrl.Peek()
//	if ctrl.IsCached() { ... }
//	ctrl.Invalidate()
//
// # Extensions
//
// Extensions wrap fixture computation for logging and diagnostics; see the
// extensions subpackage. Cached reads bypass the extension chain.
package fixture
