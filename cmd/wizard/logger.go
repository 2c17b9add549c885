package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-wizard"
)

// glogLogger adapts a go-logger instance to wizard.Logger. The wizard logs
// printf style, go-logger takes key/value pairs, so messages are formatted
// here and structured data travels through WithFields.
type glogLogger struct {
	logger glog.Logger
}

func newLogger(out io.Writer, level, format string) wizard.Logger {
	var base glog.Logger
	if format == "json" {
		base = glog.NewLogger(glog.WithWriter(out), glog.WithLoggerTypeJSON(), glog.WithLevel(level))
	} else {
		base = glog.NewLogger(glog.WithWriter(out), glog.WithLevel(level))
	}
	return glogLogger{logger: base}
}

func (l glogLogger) Trace(msg string, args ...any) { l.logger.Trace(formatMessage(msg, args)) }
func (l glogLogger) Debug(msg string, args ...any) { l.logger.Debug(formatMessage(msg, args)) }
func (l glogLogger) Info(msg string, args ...any)  { l.logger.Info(formatMessage(msg, args)) }
func (l glogLogger) Warn(msg string, args ...any)  { l.logger.Warn(formatMessage(msg, args)) }
func (l glogLogger) Error(msg string, args ...any) { l.logger.Error(formatMessage(msg, args)) }
func (l glogLogger) Fatal(msg string, args ...any) { l.logger.Fatal(formatMessage(msg, args)) }

func formatMessage(msg string, args []any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

func (l glogLogger) WithContext(ctx context.Context) wizard.Logger {
	return glogLogger{logger: l.logger.WithContext(ctx)}
}

func (l glogLogger) WithFields(fields map[string]any) wizard.Logger {
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return glogLogger{logger: fl.WithFields(fields)}
	}
	return l
}
