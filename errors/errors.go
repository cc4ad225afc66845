// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error handling used across barrel: a single
// Error type carrying an operation name, a Kind, and an optional
// underlying cause.
package errors

import (
	"bytes"
	"fmt"
	"runtime"
)

// Error is the type that implements the error interface.
// It contains a number of fields, each of different type.
// An Error value may leave some values unset.
type Error struct {
	// Key is the key being operated on, if any.
	Key string
	// Op is the operation being performed, usually the name of the
	// method being invoked (Get, Set, Remove, Compact). It should not
	// contain a colon.
	Op string
	// Kind is the class of error, such as an I/O failure, or Other if
	// its class is unknown or irrelevant.
	Kind Kind
	// Err is the underlying error that triggered this one, if any.
	Err error
}

var (
	_       error = (*Error)(nil)
	zeroErr Error
)

// Separator is the string used to join nested errors. Nested errors are
// indented on a new line by default; a host process may instead choose
// to keep each error on a single line by setting this to something like
// ": ".
var Separator = ":\n\t"

// Kind classifies an error so that callers can branch on it without a
// type assertion.
type Kind uint8

// Kinds of errors recognized by the store.
const (
	Other                  Kind = iota // Unclassified error; not printed.
	Invalid                            // Invalid argument, e.g. an empty key.
	IO                                 // Underlying filesystem or codec transport failure.
	NotExist                           // Key not found (the KeyNotFound case).
	Corrupt                            // A log record could not be decoded during replay.
	UnexpectedCommandType              // An indexed position decoded to something other than Set.
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case Invalid:
		return "invalid argument"
	case IO:
		return "I/O error"
	case NotExist:
		return "key not found"
	case Corrupt:
		return "corrupt log"
	case UnexpectedCommandType:
		return "unexpected command type"
	}
	return "unknown error kind"
}

// E builds an error value from its arguments. The type of each argument
// determines its meaning. If more than one argument of a given type is
// given, only the last one is recorded.
//
// The types are:
//
//	string
//	    The operation being performed, or, if Op is already set, the
//	    key being operated on.
//	errors.Kind
//	    The class of error.
//	error
//	    The underlying error that triggered this one.
//
// If Kind is unset or Other, it is pulled up from the underlying
// error, the way the teacher's upspin/errors.E does for Path/User/Kind.
func E(args ...interface{}) error {
	if len(args) == 0 {
		return nil
	}
	e := &Error{}
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			if e.Op == "" {
				e.Op = arg
			} else {
				e.Key = arg
			}
		case Kind:
			e.Kind = arg
		case *Error:
			cp := *arg
			e.Err = &cp
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			return Errorf("errors.E: bad call from %s:%d: %v", file, line, args)
		}
	}
	prev, ok := e.Err.(*Error)
	if !ok {
		return e
	}
	// The previous error was also one of ours. Suppress duplication so
	// the message doesn't repeat the same key or kind twice.
	if prev.Key == e.Key {
		prev.Key = ""
	}
	if prev.Kind == e.Kind {
		prev.Kind = Other
	}
	if e.Kind == Other {
		e.Kind = prev.Kind
		prev.Kind = Other
	}
	return e
}

func pad(b *bytes.Buffer, str string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(str)
}

func (e *Error) Error() string {
	b := new(bytes.Buffer)
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Key != "" {
		pad(b, ": ")
		b.WriteString("key ")
		b.WriteString(e.Key)
	}
	if e.Kind != 0 {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		if prevErr, ok := e.Err.(*Error); ok {
			if *prevErr != zeroErr {
				pad(b, Separator)
				b.WriteString(e.Err.Error())
			}
		} else {
			pad(b, ": ")
			b.WriteString(e.Err.Error())
		}
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

// Unwrap lets the standard library's errors.Is/errors.As traverse a
// chain of *Error values.
func (e *Error) Unwrap() error {
	return e.Err
}

// Str returns an error that formats as the given text. It is intended to
// be used as the error-typed argument to E.
func Str(text string) error {
	return &errorString{text}
}

type errorString struct {
	s string
}

func (e *errorString) Error() string {
	return e.s
}

// Errorf is equivalent to fmt.Errorf but returns a plain error, so
// callers need only import this package for all error handling.
func Errorf(format string, args ...interface{}) error {
	return &errorString{fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given Kind, walking the Err
// chain the way debug traces walk it.
func Is(err error, kind Kind) bool {
	for err != nil {
		e, ok := err.(*Error)
		if !ok {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// Ops returns the op trace of err, from outermost to innermost.
func Ops(err error) []string {
	var ops []string
	for {
		e, ok := err.(*Error)
		if !ok {
			return ops
		}
		if e.Op != "" {
			ops = append(ops, e.Op)
		}
		if e.Err == nil {
			return ops
		}
		err = e.Err
	}
}
