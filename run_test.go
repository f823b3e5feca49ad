package fixture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMemoizesOncePerRun(t *testing.T) {
	scope := NewScope()
	calls := 0
	_, err := Define(scope, "counter", func(rc *ResolveCtx) (any, error) {
		calls++
		return calls, nil
	})
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	first, err := Get(run, "counter")
	require.NoError(t, err)
	second, err := Get(run, "counter")
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestFreshCachePerRun(t *testing.T) {
	scope := NewScope()
	calls := 0
	_, err := Define(scope, "counter", func(rc *ResolveCtx) (any, error) {
		calls++
		return calls, nil
	})
	require.NoError(t, err)

	run1 := NewTestRun(scope)
	v1, err := Get(run1, "counter")
	require.NoError(t, err)
	run1.Finish()

	run2 := NewTestRun(scope)
	v2, err := Get(run2, "counter")
	require.NoError(t, err)
	run2.Finish()

	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)
	assert.Equal(t, 2, calls)
}

func TestFalsyValuesAreMemoized(t *testing.T) {
	scope := NewScope()

	boolCalls := 0
	_, err := Define(scope, "flag", func(rc *ResolveCtx) (any, error) {
		boolCalls++
		return false, nil
	})
	require.NoError(t, err)

	nilCalls := 0
	_, err = Define(scope, "nothing", func(rc *ResolveCtx) (any, error) {
		nilCalls++
		return nil, nil
	})
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	for i := 0; i < 3; i++ {
		flag, err := Get(run, "flag")
		require.NoError(t, err)
		assert.Equal(t, false, flag)

		nothing, err := Get(run, "nothing")
		require.NoError(t, err)
		assert.Nil(t, nothing)
	}

	assert.Equal(t, 1, boolCalls)
	assert.Equal(t, 1, nilCalls)
}

func TestUpcallReachesEnclosingDefinition(t *testing.T) {
	parent := NewScope(WithScopeName("parent"))
	child := parent.Child(WithScopeName("child"))

	parentCalls := 0
	_, err := Define(parent, "n", func(rc *ResolveCtx) (any, error) {
		parentCalls++
		return 10, nil
	})
	require.NoError(t, err)

	_, err = Define(child, "n", func(rc *ResolveCtx) (any, error) {
		base, err := rc.Super()
		if err != nil {
			return nil, err
		}
		return base.(int) + 1, nil
	})
	require.NoError(t, err)

	childRun := NewTestRun(child)
	defer childRun.Finish()
	val, err := Get(childRun, "n")
	require.NoError(t, err)
	assert.Equal(t, 11, val)

	parentRun := NewTestRun(parent)
	defer parentRun.Finish()
	val, err = Get(parentRun, "n")
	require.NoError(t, err)
	assert.Equal(t, 10, val)

	assert.Equal(t, 2, parentCalls)
}

func TestUpcallThroughThreeLevels(t *testing.T) {
	root := NewScope()
	mid := root.Child()
	leaf := mid.Child()

	_, err := Define(root, "n", func(rc *ResolveCtx) (any, error) { return 1, nil })
	require.NoError(t, err)
	_, err = Define(mid, "n", func(rc *ResolveCtx) (any, error) {
		base, err := rc.Super()
		if err != nil {
			return nil, err
		}
		return base.(int) * 10, nil
	})
	require.NoError(t, err)
	_, err = Define(leaf, "n", func(rc *ResolveCtx) (any, error) {
		base, err := rc.Super()
		if err != nil {
			return nil, err
		}
		return base.(int) + 5, nil
	})
	require.NoError(t, err)

	run := NewTestRun(leaf)
	defer run.Finish()

	val, err := Get(run, "n")
	require.NoError(t, err)
	assert.Equal(t, 15, val)
}

func TestUpcallWithoutAncestorDefinition(t *testing.T) {
	scope := NewScope()
	_, err := Define(scope, "orphan", func(rc *ResolveCtx) (any, error) {
		return rc.Super()
	})
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	_, err = Get(run, "orphan")

	var noDef *NoDefinitionError
	require.ErrorAs(t, err, &noDef)
	assert.Equal(t, "orphan", noDef.Name)
}

func TestFixturesCanDependOnEachOther(t *testing.T) {
	scope := NewScope()
	userCalls := 0

	_, err := Define(scope, "user", func(rc *ResolveCtx) (any, error) {
		userCalls++
		return "alice", nil
	})
	require.NoError(t, err)

	_, err = Define(scope, "greeting", func(rc *ResolveCtx) (any, error) {
		user, err := FetchAs[string](rc, "user")
		if err != nil {
			return nil, err
		}
		return "hello " + user, nil
	})
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	greeting, err := GetAs[string](run, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello alice", greeting)

	// The dependency was memoized along the way
	user, err := Get(run, "user")
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
	assert.Equal(t, 1, userCalls)
}

func TestCyclicFixtureFails(t *testing.T) {
	scope := NewScope()
	_, err := Define(scope, "ouroboros", func(rc *ResolveCtx) (any, error) {
		return rc.Get("ouroboros")
	})
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	_, err = Get(run, "ouroboros")

	var cyclic *CyclicFixtureError
	require.ErrorAs(t, err, &cyclic)
	assert.Equal(t, "ouroboros", cyclic.Name)
}

func TestIndirectCycleFails(t *testing.T) {
	scope := NewScope()
	_, err := Define(scope, "a", func(rc *ResolveCtx) (any, error) {
		return rc.Get("b")
	})
	require.NoError(t, err)
	_, err = Define(scope, "b", func(rc *ResolveCtx) (any, error) {
		return rc.Get("a")
	})
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	_, err = Get(run, "a")

	var cyclic *CyclicFixtureError
	require.ErrorAs(t, err, &cyclic)
}

func TestFailedComputationIsNotMemoized(t *testing.T) {
	scope := NewScope()
	calls := 0
	_, err := Define(scope, "flaky", func(rc *ResolveCtx) (any, error) {
		calls++
		return nil, assert.AnError
	})
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	_, err = Get(run, "flaky")
	require.Error(t, err)
	_, err = Get(run, "flaky")
	require.Error(t, err)

	assert.Equal(t, 2, calls)
	assert.False(t, run.Cached("flaky"))
}

func TestGetAfterFinishFails(t *testing.T) {
	scope := NewScope()
	_, err := Define(scope, "n", func(rc *ResolveCtx) (any, error) { return 1, nil })
	require.NoError(t, err)

	run := NewTestRun(scope)
	run.Finish()

	_, err = Get(run, "n")

	var finished *RunFinishedError
	require.ErrorAs(t, err, &finished)
	assert.Equal(t, run.ID(), finished.RunID)
}

func TestGetAsTypeMismatch(t *testing.T) {
	scope := NewScope()
	_, err := Define(scope, "n", func(rc *ResolveCtx) (any, error) { return "text", nil })
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	_, err = GetAs[int](run, "n")

	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "n", mismatch.Name)
}

func TestMustGetPanicsOnError(t *testing.T) {
	scope := NewScope()
	run := NewTestRun(scope)
	defer run.Finish()

	assert.Panics(t, func() {
		MustGet(run, "missing")
	})
}

func TestRunIdentity(t *testing.T) {
	scope := NewScope()

	run1 := NewTestRun(scope, WithTestName("first"))
	defer run1.Finish()
	run2 := NewTestRun(scope, WithTestName("second"))
	defer run2.Finish()

	assert.NotEqual(t, run1.ID(), run2.ID())
	assert.Equal(t, "first", run1.TestName())
	assert.Same(t, scope, run1.Scope())
}

func TestControllerLifecycle(t *testing.T) {
	scope := NewScope()
	calls := 0
	_, err := Define(scope, "n", func(rc *ResolveCtx) (any, error) {
		calls++
		return calls, nil
	})
	require.NoError(t, err)

	run := NewTestRun(scope)
	defer run.Finish()

	ctrl := Accessor[int](run, "n")

	_, ok := ctrl.Peek()
	assert.False(t, ok)
	assert.False(t, ctrl.IsCached())

	val, err := ctrl.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, val)
	assert.True(t, ctrl.IsCached())

	peeked, ok := ctrl.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, peeked)

	require.NoError(t, ctrl.Invalidate())
	assert.False(t, ctrl.IsCached())

	val, err = ctrl.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, val)
}

func TestResolveCtxExposesRun(t *testing.T) {
	scope := NewScope()
	var seenRun *TestRun
	_, err := Define(scope, "n", func(rc *ResolveCtx) (any, error) {
		seenRun = rc.Run()
		return rc.Run().TestName(), nil
	})
	require.NoError(t, err)

	run := NewTestRun(scope, WithTestName("identity"))
	defer run.Finish()

	val, err := Get(run, "n")
	require.NoError(t, err)
	assert.Equal(t, "identity", val)
	assert.Same(t, run, seenRun)
}
