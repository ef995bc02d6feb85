package log

import (
	"context"
)

// Package level functions log through a default logger so callers do not
// have to thread one around.
var logger = New(context.Background(), nil)

func Debug(v ...any) {
	logger.Debug(v...)
}

func Debugf(s string, v ...any) {
	logger.Debugf(s, v...)
}

func Info(v ...any) {
	logger.Info(v...)
}

func Infof(s string, v ...any) {
	logger.Infof(s, v...)
}

func Warning(v ...any) {
	logger.Warning(v...)
}

func Error(v ...any) {
	logger.Error(v...)
}

func Errorf(s string, v ...any) {
	logger.Errorf(s, v...)
}

// ErrorStack logs an error with a captured stack trace appended, used by the
// panic recovery helpers.
func ErrorStack(stack, s string, v ...any) {
	logger.ErrorStack(stack, s, v...)
}

func DebugFields(msg string, fields map[string]any) {
	logger.DebugFields(msg, fields)
}

func InfoFields(msg string, fields map[string]any) {
	logger.InfoFields(msg, fields)
}

func ErrorFields(msg string, fields map[string]any) {
	logger.ErrorFields(msg, fields)
}

func Fatal(v ...any) {
	logger.Fatal(v...)
}

func Fatalf(s string, v ...any) {
	logger.Fatalf(s, v...)
}
