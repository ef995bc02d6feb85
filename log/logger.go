package log

import (
	"context"

	"github.com/finch-technologies/go-queue/log/logstorage"
	"github.com/finch-technologies/go-queue/log/zero"
	"github.com/rs/zerolog"
)

// Logger is the logging surface handed out to the rest of the module.
// zerolog backs it, with an optional secondary store behind the writer.
type Logger interface {
	Debug(v ...any)
	Debugf(s string, v ...any)
	Info(v ...any)
	Infof(s string, v ...any)
	Warning(v ...any)
	Error(v ...any)
	Errorf(s string, v ...any)
	ErrorStack(stack, s string, v ...any)
	DebugFields(msg string, fields map[string]any)
	InfoFields(msg string, fields map[string]any)
	ErrorFields(msg string, fields map[string]any)
	Fatal(v ...any)
	Fatalf(s string, v ...any)
	GetContext() context.Context
}

var hasInit bool

// Init sets the zerolog context logger once. Loggers created before the log
// store is reachable simply run without it.
func Init() {
	if hasInit {
		return
	}

	store, err := logstorage.GetDatabase()

	if err != nil {
		store = nil
	}

	z := zero.New(context.Background(), nil, store)

	zerolog.DefaultContextLogger = z.GetLogger()

	hasInit = true
}

// New builds a logger carrying the given fields on every event. Fields with
// empty values are dropped.
func New(ctx context.Context, fields map[string]string) Logger {
	Init()

	store, _ := logstorage.GetDatabase()

	return zero.New(ctx, fields, store)
}

// FromContext recovers the logger embedded in ctx, falling back to the
// default logger when ctx carries none.
func FromContext(ctx context.Context) Logger {
	return zero.FromContext(ctx)
}
