package stepper

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type logEntry struct {
	Level   string
	Message string
	Args    []any
}

// testLogger records log entries for assertions.
type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *testLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Level: level, Message: msg, Args: args})
}

func (l *testLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *testLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }
func (l *testLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *testLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }

func (l *testLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// testPlugin is a configurable plugin whose hooks are recorded in a shared
// journal.
type testPlugin struct {
	name     string
	deps     []string
	journal  *journal
	build    func(app *App) error
	startErr error
	stopErr  error
}

func (p *testPlugin) Name() string { return p.name }

func (p *testPlugin) Dependencies() []string { return p.deps }

func (p *testPlugin) Build(app *App) error {
	p.journal.add("build:" + p.name)
	if p.build != nil {
		return p.build(app)
	}
	return nil
}

func (p *testPlugin) Start(context.Context) error {
	p.journal.add("start:" + p.name)
	return p.startErr
}

func (p *testPlugin) Stop(context.Context) error {
	p.journal.add("stop:" + p.name)
	return p.stopErr
}

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) addf(format string, args ...any) {
	j.add(fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func newTestApp(t *testing.T, opts ...Option) (*App, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	app, err := NewApp(append([]Option{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return app, logger
}

func initTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	app, _ := newTestApp(t, opts...)
	require.NoError(t, app.Init(context.Background()))
	return app
}
