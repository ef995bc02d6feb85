package zero

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/finch-technologies/go-queue/env"
	"github.com/finch-technologies/go-queue/log/logstorage"
	"github.com/rs/zerolog"
)

// ZeroLogger adapts zerolog to the module's logger interface. Events go to
// stdout, prettified on local machines, and to the log store when one is
// configured.
type ZeroLogger struct {
	logger  *zerolog.Logger
	context context.Context
}

func New(ctx context.Context, fields map[string]string, store logstorage.Store) *ZeroLogger {
	zerolog.SetGlobalLevel(getLevel())

	var console io.Writer = os.Stdout

	if env.IsLocal() {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}

	var sink io.Writer = console

	if store != nil {
		sink = io.MultiWriter(console, store)
	}

	loggerCtx := zerolog.New(sink).With().Timestamp()

	for key, value := range fields {
		if value != "" {
			loggerCtx = loggerCtx.Str(key, value)
		}
	}

	logger := loggerCtx.Logger()

	return &ZeroLogger{
		logger:  &logger,
		context: logger.WithContext(ctx),
	}
}

// FromContext recovers the logger zerolog stashed in ctx. Without one,
// zerolog falls back to its default context logger, which Init points at a
// fully wired instance.
func FromContext(ctx context.Context) *ZeroLogger {
	if ctx == nil {
		ctx = context.Background()
	}

	return &ZeroLogger{
		logger:  zerolog.Ctx(ctx),
		context: ctx,
	}
}

func getLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))

	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}

	return level
}

func (z *ZeroLogger) GetLogger() *zerolog.Logger {
	return z.logger
}

func (z *ZeroLogger) GetContext() context.Context {
	return z.context
}

func (z *ZeroLogger) Debug(v ...any) {
	z.logger.Debug().Msg(fmt.Sprint(v...))
}

func (z *ZeroLogger) Debugf(s string, v ...any) {
	z.logger.Debug().Msg(fmt.Sprintf(s, v...))
}

func (z *ZeroLogger) Info(v ...any) {
	z.logger.Info().Msg(fmt.Sprint(v...))
}

func (z *ZeroLogger) Infof(s string, v ...any) {
	z.logger.Info().Msg(fmt.Sprintf(s, v...))
}

func (z *ZeroLogger) Warning(v ...any) {
	z.logger.Warn().Msg(fmt.Sprint(v...))
}

func (z *ZeroLogger) Error(v ...any) {
	z.logger.Error().Stack().Msg(fmt.Sprint(v...))
}

func (z *ZeroLogger) Errorf(s string, v ...any) {
	z.logger.Error().Stack().Msg(fmt.Sprintf(s, v...))
}

func (z *ZeroLogger) ErrorStack(stack, s string, v ...any) {
	z.logger.Error().Stack().Msg(fmt.Sprintf(s, v...) + "\n\n" + stack)
}

func (z *ZeroLogger) DebugFields(msg string, fields map[string]any) {
	event := z.logger.Debug()
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (z *ZeroLogger) InfoFields(msg string, fields map[string]any) {
	event := z.logger.Info()
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (z *ZeroLogger) ErrorFields(msg string, fields map[string]any) {
	event := z.logger.Error()
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

func (z *ZeroLogger) Fatal(v ...any) {
	z.logger.Fatal().Msg(fmt.Sprint(v...))
}

func (z *ZeroLogger) Fatalf(s string, v ...any) {
	z.logger.Fatal().Msg(fmt.Sprintf(s, v...))
}
