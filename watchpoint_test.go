// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"testing"
	"time"
)

func TestWatchPointStartsUninitialized(t *testing.T) {
	wp := NewWatchPoint("/tmp/x")
	if got := wp.Status(); got != Uninitialized {
		t.Fatalf("initial status = %s, want UNINITIALIZED", got)
	}
}

func TestWatchPointAwaitListeningStarted(t *testing.T) {
	wp := NewWatchPoint("/tmp/x")
	go func() {
		time.Sleep(10 * time.Millisecond)
		wp.setStatus(Listening)
	}()

	got := wp.awaitListeningStarted(time.Second)
	if got != Listening {
		t.Fatalf("awaitListeningStarted = %s, want LISTENING", got)
	}
}

func TestWatchPointAwaitListeningStartedTimeout(t *testing.T) {
	wp := NewWatchPoint("/tmp/x")
	got := wp.awaitListeningStarted(10 * time.Millisecond)
	if got != Uninitialized {
		t.Fatalf("awaitListeningStarted on timeout = %s, want UNINITIALIZED", got)
	}
}

func TestWatchPointAwaitFinished(t *testing.T) {
	wp := NewWatchPoint("/tmp/x")
	wp.setStatus(Listening)
	go func() {
		time.Sleep(10 * time.Millisecond)
		wp.setStatus(Finished)
	}()

	if !wp.awaitFinished(time.Second) {
		t.Fatal("awaitFinished returned false before deadline")
	}
}

func TestWatchPointFailedToListenIsTerminal(t *testing.T) {
	wp := NewWatchPoint("/tmp/x")
	wp.setStatus(FailedToListen)
	if !wp.awaitFinished(10 * time.Millisecond) {
		t.Fatal("FailedToListen should satisfy awaitFinished")
	}
}
