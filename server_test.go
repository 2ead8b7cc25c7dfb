// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"path/filepath"
	"testing"
	"time"
)

func TestServerStartWatchingBasicChanges(t *testing.T) {
	tmp := t.TempDir()
	s, sink := newServer(t)
	defer s.Close()

	if err := s.StartWatchingContext(tmp, 2*time.Second); err != nil {
		t.Fatalf("StartWatching: %s", err)
	}

	c := newCollector(sink)
	touch(t, tmp, "a.txt")
	rm(t, tmp, "a.txt")

	got := changePaths(tmp, c.stop(t))
	want := []string{
		"CREATED /a.txt",
		"REMOVED /a.txt",
	}
	if !equalStrings(got, want) {
		t.Errorf("got:\n%v\nwant:\n%v", got, want)
	}
}

func TestServerDuplicateRootRejected(t *testing.T) {
	tmp := t.TempDir()
	s, _ := newServer(t, tmp)
	defer s.Close()

	err := s.StartWatching(tmp)
	if err == nil {
		t.Fatal("expected an error watching an already-watched root")
	}
}

func TestServerStopWatchingUnknownRoot(t *testing.T) {
	s, _ := newServer(t)
	defer s.Close()

	err := s.StopWatching(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected ErrNotWatching for an unwatched root")
	}
}

func TestServerStopWatchingTransitionsToFinished(t *testing.T) {
	tmp := t.TempDir()
	s, _ := newServer(t, tmp)
	defer s.Close()

	s.mu.RLock()
	wp := s.roots[tmp]
	s.mu.RUnlock()
	if wp == nil {
		t.Fatal("root not registered")
	}
	if got := wp.Status(); got != Listening {
		t.Fatalf("status after StartWatching = %s, want LISTENING", got)
	}

	if err := s.StopWatchingContext(tmp, 2*time.Second); err != nil {
		t.Fatalf("StopWatching: %s", err)
	}
	if got := wp.Status(); got != Finished {
		t.Fatalf("status after StopWatching = %s, want FINISHED", got)
	}
}

func TestServerCloseIsIdempotent(t *testing.T) {
	s := NewServer()
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %s", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %s", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %s", err)
	}
}

func TestServerOperationsFailAfterClose(t *testing.T) {
	s := NewServer()
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %s", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	if err := s.StartWatching(t.TempDir()); err != ErrClosed {
		t.Fatalf("StartWatching after Close = %v, want ErrClosed", err)
	}
}

func TestServerInvalidPathRejected(t *testing.T) {
	s := NewServer()
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %s", err)
	}
	defer s.Close()

	err := s.StartWatching(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected an error watching a non-existent path")
	}
}

func TestServerWatchingReportsRoots(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	s, _ := newServer(t, a, b)
	defer s.Close()

	got := s.Watching()
	if len(got) != 2 {
		t.Fatalf("Watching() = %v, want 2 entries", got)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
