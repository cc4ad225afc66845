// Copyright 2016 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	if err := SetLevel("error"); err != nil {
		t.Fatal(err)
	}
	defer SetLevel("info")

	Debug.Printf("should not appear")
	Info.Printf("should not appear either")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below threshold, got %q", buf.String())
	}

	Error.Printf("boom %d", 1)
	if !strings.Contains(buf.String(), "boom 1") {
		t.Fatalf("expected error message in output, got %q", buf.String())
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	if err := SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestAt(t *testing.T) {
	if err := SetLevel("info"); err != nil {
		t.Fatal(err)
	}
	defer SetLevel("info")

	if !At("error") {
		t.Fatal("expected error level to be active at info threshold")
	}
	if At("debug") {
		t.Fatal("expected debug level to be inactive at info threshold")
	}
}

type recordingExternal struct {
	lines   []string
	flushed bool
}

func (r *recordingExternal) Log(_ Level, msg string) { r.lines = append(r.lines, msg) }
func (r *recordingExternal) Flush()                  { r.flushed = true }

func TestRegisterMirrorsToExternalLogger(t *testing.T) {
	rec := &recordingExternal{}
	Register(rec)

	Info.Printf("hello %s", "world")
	if len(rec.lines) != 1 || rec.lines[0] != "hello world" {
		t.Fatalf("expected external logger to receive the message, got %v", rec.lines)
	}

	Flush()
	if !rec.flushed {
		t.Fatal("expected Flush to reach the external logger")
	}
}
