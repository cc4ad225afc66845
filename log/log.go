// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package log exports the leveled logging primitives used across barrel.
// By default it logs to stderr; a host process can redirect records to
// its own sink (e.g. zap, via internal/zapadapter) by calling Register.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is the interface for logging messages.
type Logger interface {
	Printf(format string, v ...interface{})
	Print(v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}

// Level represents the severity of a log record.
type Level int

// Levels, from least to most severe.
const (
	DebugLevel Level = iota
	InfoLevel
	ErrorLevel
	DisabledLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case ErrorLevel:
		return "error"
	case DisabledLevel:
		return "disabled"
	}
	return "unknown"
}

// ExternalLogger describes a host-provided sink that records are mirrored
// to in addition to (or instead of) the default stderr logger.
type ExternalLogger interface {
	Log(Level, string)
	Flush()
}

// The package-level loggers, one per severity.
var (
	Debug = &logger{DebugLevel}
	Info  = &logger{InfoLevel}
	Error = &logger{ErrorLevel}
)

var (
	threshold   = InfoLevel
	defaultSink Logger = newStdLogger(os.Stderr)
	external    ExternalLogger
)

// Register connects an ExternalLogger to the package. It may only be
// called once; a second call panics, since two external sinks would
// silently double-log every record.
func Register(e ExternalLogger) {
	if external != nil {
		panic("log: external logger already registered")
	}
	external = e
}

// SetOutput redirects the default stderr logger to w. Passing nil
// disables the default logger entirely (useful once an ExternalLogger
// has been registered and stderr output would be redundant).
func SetOutput(w io.Writer) {
	if w == nil {
		defaultSink = nil
		return
	}
	defaultSink = newStdLogger(w)
}

// SetLevel sets the minimum severity that will be logged.
func SetLevel(level string) error {
	l, err := parseLevel(level)
	if err != nil {
		return err
	}
	threshold = l
	return nil
}

// GetLevel returns the current minimum severity as a string.
func GetLevel() string {
	return threshold.String()
}

// At reports whether level would currently be logged.
func At(level string) bool {
	l, err := parseLevel(level)
	if err != nil {
		return false
	}
	return threshold <= l
}

func parseLevel(s string) (Level, error) {
	switch s {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "error":
		return ErrorLevel, nil
	case "disabled":
		return DisabledLevel, nil
	}
	return DisabledLevel, fmt.Errorf("log: invalid level %q", s)
}

type logger struct {
	level Level
}

var _ Logger = (*logger)(nil)

func (l *logger) suppressed() bool {
	return l.level < threshold
}

func (l *logger) Printf(format string, v ...interface{}) {
	if l.suppressed() {
		return
	}
	if external != nil {
		external.Log(l.level, fmt.Sprintf(format, v...))
	}
	if defaultSink != nil {
		defaultSink.Printf(format, v...)
	}
}

func (l *logger) Print(v ...interface{}) {
	if l.suppressed() {
		return
	}
	if external != nil {
		external.Log(l.level, fmt.Sprint(v...))
	}
	if defaultSink != nil {
		defaultSink.Print(v...)
	}
}

// Fatal logs unconditionally, regardless of the current threshold, and
// then terminates the process.
func (l *logger) Fatal(v ...interface{}) {
	if external != nil {
		external.Log(l.level, fmt.Sprint(v...))
		external.Flush()
	}
	if defaultSink != nil {
		defaultSink.Fatal(v...)
	} else {
		log.Fatal(v...)
	}
}

func (l *logger) Fatalf(format string, v ...interface{}) {
	if external != nil {
		external.Log(l.level, fmt.Sprintf(format, v...))
		external.Flush()
	}
	if defaultSink != nil {
		defaultSink.Fatalf(format, v...)
	} else {
		log.Fatalf(format, v...)
	}
}

// Flush flushes the registered ExternalLogger, if any.
func Flush() {
	if external != nil {
		external.Flush()
	}
}

// Package-level convenience functions log at InfoLevel, matching the
// teacher's default-to-Info idiom.
func Printf(format string, v ...interface{}) { Info.Printf(format, v...) }
func Print(v ...interface{})                 { Info.Print(v...) }
func Fatal(v ...interface{})                 { Info.Fatal(v...) }
func Fatalf(format string, v ...interface{}) { Info.Fatalf(format, v...) }

func newStdLogger(w io.Writer) Logger {
	return log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}
