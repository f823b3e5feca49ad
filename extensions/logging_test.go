package extensions

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fixture "github.com/fixture-fn/fixture-go"
)

func TestLoggingExtensionLogsComputation(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	scope := fixture.NewScope(
		fixture.WithScopeName("billing"),
		fixture.WithExtension(NewLoggingExtension(handler)),
	)
	_, err := fixture.Define(scope, "invoice", func(rc *fixture.ResolveCtx) (any, error) {
		return "inv-1", nil
	})
	require.NoError(t, err)

	run := fixture.NewTestRun(scope, fixture.WithTestName("creates invoice"))
	defer run.Finish()

	_, err = fixture.Get(run, "invoice")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "fixture computed")
	assert.Contains(t, output, "invoice")
	assert.Contains(t, output, "billing")
	assert.Contains(t, output, "creates invoice")

	// Memoized reads are silent
	buf.Reset()
	_, err = fixture.Get(run, "invoice")
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestLoggingExtensionLogsDefinitionsAndPhases(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	scope := fixture.NewScope(
		fixture.WithScopeName("billing"),
		fixture.WithExtension(NewLoggingExtension(handler)),
	)
	_, err := fixture.Define(scope, "invoice", func(rc *fixture.ResolveCtx) (any, error) {
		return "inv-1", nil
	})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "fixture defined")
	assert.Contains(t, buf.String(), "invoice")

	buf.Reset()
	guard := fixture.NewPhaseGuard(fixture.WithGuardScope(scope))
	require.NoError(t, guard.RunShared(fixture.PhaseSharedSetup, func() error {
		return nil
	}))

	output := buf.String()
	assert.Contains(t, output, "shared phase transition")
	assert.Contains(t, output, "shared setup")
}

func TestLoggingExtensionLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	scope := fixture.NewScope(fixture.WithExtension(NewLoggingExtension(handler)))
	_, err := fixture.Define(scope, "broken", func(rc *fixture.ResolveCtx) (any, error) {
		return nil, assert.AnError
	})
	require.NoError(t, err)

	run := fixture.NewTestRun(scope)
	defer run.Finish()

	_, err = fixture.Get(run, "broken")
	require.Error(t, err)

	output := buf.String()
	assert.Contains(t, output, "fixture computation failed")
	assert.Contains(t, output, "broken")
}
