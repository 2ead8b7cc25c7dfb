// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// We wait a little after most commands; gives the OS time to sync
// things and makes things more consistent across platforms, grounded
// on the teacher's eventSeparator/waitForEvents (helpers_test.go).
func eventSeparator() { time.Sleep(50 * time.Millisecond) }
func waitForEvents()  { time.Sleep(500 * time.Millisecond) }

// newServer starts a Server watching every root in add, failing the
// test on any error.
func newServer(t *testing.T, add ...string) (*Server, *ChannelSink) {
	t.Helper()
	s := NewServer(WithSinkCapacity(64))
	if err := s.Start(); err != nil {
		t.Fatalf("newServer: Start: %s", err)
	}
	sink := s.Sink().(*ChannelSink)
	for _, root := range add {
		if err := s.StartWatchingContext(root, 2*time.Second); err != nil {
			t.Fatalf("newServer: StartWatching(%q): %s", root, err)
		}
	}
	return s, sink
}

func mkdir(t *testing.T, path ...string) {
	t.Helper()
	if err := os.Mkdir(filepath.Join(path...), 0o755); err != nil {
		t.Fatalf("mkdir(%q): %s", filepath.Join(path...), err)
	}
	eventSeparator()
}

func touch(t *testing.T, path ...string) {
	t.Helper()
	fp, err := os.Create(filepath.Join(path...))
	if err != nil {
		t.Fatalf("touch(%q): %s", filepath.Join(path...), err)
	}
	if err := fp.Close(); err != nil {
		t.Fatalf("touch(%q): %s", filepath.Join(path...), err)
	}
	eventSeparator()
}

func cat(t *testing.T, data string, path ...string) {
	t.Helper()
	fp, err := os.OpenFile(filepath.Join(path...), os.O_RDWR|os.O_APPEND, 0666)
	if err != nil {
		t.Fatalf("cat(%q): %s", filepath.Join(path...), err)
	}
	if _, err := fp.WriteString(data); err != nil {
		t.Fatalf("cat(%q): %s", filepath.Join(path...), err)
	}
	if err := fp.Close(); err != nil {
		t.Fatalf("cat(%q): %s", filepath.Join(path...), err)
	}
	eventSeparator()
}

func rm(t *testing.T, path ...string) {
	t.Helper()
	if err := os.Remove(filepath.Join(path...)); err != nil {
		t.Fatalf("rm(%q): %s", filepath.Join(path...), err)
	}
	eventSeparator()
}

func mv(t *testing.T, src string, dst ...string) {
	t.Helper()
	var err error
	switch runtime.GOOS {
	case "windows":
		err = os.Rename(src, filepath.Join(dst...))
	default:
		err = exec.Command("mv", src, filepath.Join(dst...)).Run()
	}
	if err != nil {
		t.Fatalf("mv(%q, %q): %s", src, filepath.Join(dst...), err)
	}
	eventSeparator()
}

// eventCollector gathers every event a Server's sink emits onto a
// plain slice, grounded on the teacher's eventCollector
// (helpers_test.go) generalized from channel-pair draining (Events +
// Errors) to a single typed Event stream.
type eventCollector struct {
	sink *ChannelSink
	mu   sync.Mutex
	got  []Event
	done chan struct{}
}

func newCollector(sink *ChannelSink) *eventCollector {
	c := &eventCollector{sink: sink, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		for e := range sink.Events() {
			c.mu.Lock()
			c.got = append(c.got, e)
			c.mu.Unlock()
		}
	}()
	return c
}

func (c *eventCollector) stop(t *testing.T) []Event {
	t.Helper()
	waitForEvents()
	c.sink.Close()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event collector did not observe sink close in time")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.got...)
}

func eventsString(tmp string, evs []Event) string {
	b := new(strings.Builder)
	for i, e := range evs {
		if i > 0 {
			b.WriteString("\n")
		}
		path := strings.TrimPrefix(e.Path, tmp)
		fmt.Fprintf(b, "%-8s %-10q %s", e.Kind, path, e.Change)
	}
	return b.String()
}

// changePaths extracts the (Change, relative-path) pairs from evs,
// dropping everything that isn't a KindChange event, sorted for
// order-independent comparison.
func changePaths(tmp string, evs []Event) []string {
	var out []string
	for _, e := range evs {
		if e.Kind != KindChange {
			continue
		}
		out = append(out, fmt.Sprintf("%s %s", e.Change, strings.TrimPrefix(e.Path, tmp)))
	}
	sort.Strings(out)
	return out
}
