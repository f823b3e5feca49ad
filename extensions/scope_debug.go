package extensions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/m1gwings/treedrawer/tree"

	fixture "github.com/fixture-fn/fixture-go"
)

// ScopeDebugExtension logs a drawing of the scope tree, with the definitions
// each scope declares, when a fixture computation fails. It helps answer the
// usual override-chain questions: which scope's definition actually ran, and
// what shadowed what.
//
// Usage:
//
//	// Human-readable formatted output
//	handler := extensions.NewHumanHandler(os.Stdout, slog.LevelError)
//	ext := extensions.NewScopeDebugExtension(handler)
//
//	// Structured JSON logging
//	ext := extensions.NewScopeDebugExtension(slog.NewJSONHandler(os.Stdout, nil))
//
//	// Silent (for testing)
//	ext := extensions.NewScopeDebugExtension(extensions.NewSilentHandler())
type ScopeDebugExtension struct {
	fixture.BaseExtension

	resolved map[string]bool
	failed   map[string]error
	logger   *slog.Logger
}

// NewScopeDebugExtension creates a scope debug extension writing through the
// given slog handler.
func NewScopeDebugExtension(logHandler slog.Handler) *ScopeDebugExtension {
	return &ScopeDebugExtension{
		BaseExtension: fixture.NewBaseExtension("scope-debug"),
		resolved:      make(map[string]bool),
		failed:        make(map[string]error),
		logger:        slog.New(logHandler),
	}
}

// Wrap tracks fixture outcomes for the tree rendering. Only computations
// count: a defined-but-never-fetched name stays unmarked.
func (e *ScopeDebugExtension) Wrap(ctx context.Context, next func() (any, error), op *fixture.Operation) (any, error) {
	if op.Kind != fixture.OpFetch {
		return next()
	}

	result, err := next()

	if err == nil {
		e.resolved[op.Name] = true
	} else {
		e.failed[op.Name] = err
	}

	return result, err
}

// OnError logs the scope tree when a computation fails
func (e *ScopeDebugExtension) OnError(err error, op *fixture.Operation, scope *fixture.Scope) {
	e.logger.Error("Fixture Resolution Error",
		"fixture", op.Name,
		"scope", scope.Path(),
		"error", err.Error(),
		"scope_tree", e.drawScopeTree(scope),
	)
}

// drawScopeTree renders the tree from the root, marking each definition with
// its outcome in this run so far.
func (e *ScopeDebugExtension) drawScopeTree(scope *fixture.Scope) string {
	root := scope
	for root.Parent() != nil {
		root = root.Parent()
	}

	t := tree.NewTree(tree.NodeString(e.scopeLabel(root)))
	e.addChildren(t, root)
	return t.String()
}

func (e *ScopeDebugExtension) addChildren(t *tree.Tree, s *fixture.Scope) {
	for i, child := range s.Children() {
		t.AddChild(tree.NodeString(e.scopeLabel(child)))
		childTree, err := t.Child(i)
		if err != nil {
			continue
		}
		e.addChildren(childTree, child)
	}
}

func (e *ScopeDebugExtension) scopeLabel(s *fixture.Scope) string {
	names := s.Names()
	if len(names) == 0 {
		return s.Path()
	}

	marked := make([]string, 0, len(names))
	for _, name := range names {
		switch {
		case e.resolved[name]:
			marked = append(marked, name+" ✓")
		case e.failed[name] != nil:
			marked = append(marked, name+" ✗")
		default:
			marked = append(marked, name)
		}
	}
	return fmt.Sprintf("%s [%s]", s.Path(), strings.Join(marked, " "))
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}

// HumanHandler is a slog.Handler that formats records for terminals: colored
// levels, one attribute per line, scope trees printed verbatim.
type HumanHandler struct {
	writer io.Writer
	level  slog.Level
}

// NewHumanHandler creates a new human-readable log handler
func NewHumanHandler(writer io.Writer, level slog.Level) *HumanHandler {
	return &HumanHandler{
		writer: writer,
		level:  level,
	}
}

func (h *HumanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *HumanHandler) Handle(ctx context.Context, record slog.Record) error {
	if _, err := fmt.Fprintf(h.writer, "%s %s\n", h.levelLabel(record.Level), record.Message); err != nil {
		return err
	}

	var outerErr error
	record.Attrs(func(attr slog.Attr) bool {
		val := attr.Value.String()
		if strings.Contains(val, "\n") {
			// Multi-line values (tree drawings) go on their own block
			_, outerErr = fmt.Fprintf(h.writer, "  %s:\n%s\n", attr.Key, val)
		} else {
			_, outerErr = fmt.Fprintf(h.writer, "  %s: %s\n", attr.Key, val)
		}
		return outerErr == nil
	})
	return outerErr
}

func (h *HumanHandler) levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return color.New(color.FgRed, color.Bold).Sprintf("[%s]", level)
	case level >= slog.LevelWarn:
		return color.New(color.FgYellow).Sprintf("[%s]", level)
	default:
		return color.New(color.FgCyan).Sprintf("[%s]", level)
	}
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	return h
}
