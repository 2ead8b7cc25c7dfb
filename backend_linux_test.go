//go:build linux

// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLinuxBackendRecursiveWatchesSubdirectories(t *testing.T) {
	tmp := t.TempDir()
	mkdir(t, tmp, "sub")

	s := NewServer(WithRecursive(true), WithSinkCapacity(64))
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %s", err)
	}
	defer s.Close()
	if err := s.StartWatchingContext(tmp, 2*time.Second); err != nil {
		t.Fatalf("StartWatching: %s", err)
	}

	sink := s.Sink().(*ChannelSink)
	c := newCollector(sink)
	touch(t, tmp, "sub", "leaf.txt")

	got := changePaths(tmp, c.stop(t))
	want := []string{"CREATED " + string(filepath.Separator) + filepath.Join("sub", "leaf.txt")}
	if !equalStrings(got, want) {
		t.Errorf("got:\n%v\nwant:\n%v", got, want)
	}
}

func TestLinuxBackendRootRemovalInvalidatesWatchPoint(t *testing.T) {
	tmp := t.TempDir()
	inner := filepath.Join(tmp, "watched")
	mkdir(t, inner)

	s := NewServer(WithSinkCapacity(64))
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %s", err)
	}
	defer s.Close()
	if err := s.StartWatchingContext(inner, 2*time.Second); err != nil {
		t.Fatalf("StartWatching: %s", err)
	}

	s.mu.RLock()
	wp := s.roots[inner]
	s.mu.RUnlock()

	rm(t, inner)
	if !wp.awaitFinished(2 * time.Second) {
		t.Fatal("watch point did not reach a terminal state after root removal")
	}
	if got := wp.Status(); got != Finished {
		t.Fatalf("status after root removal = %s, want FINISHED", got)
	}
}

func TestLinuxBackendModifyAndMove(t *testing.T) {
	tmp := t.TempDir()
	s, sink := newServer(t, tmp)
	defer s.Close()

	touch(t, tmp, "file.txt")
	c := newCollector(sink)
	cat(t, "hello", tmp, "file.txt")
	mv(t, filepath.Join(tmp, "file.txt"), tmp, "renamed.txt")

	got := changePaths(tmp, c.stop(t))
	// The CREATED for file.txt was emitted before the collector started,
	// but the buffered sink still holds it, so the collector sees it too.
	want := []string{
		"CREATED " + string(filepath.Separator) + "file.txt",
		"CREATED " + string(filepath.Separator) + "renamed.txt",
		"MODIFIED " + string(filepath.Separator) + "file.txt",
		"REMOVED " + string(filepath.Separator) + "file.txt",
	}
	if !equalStrings(got, want) {
		t.Errorf("got:\n%v\nwant:\n%v", got, want)
	}
}
