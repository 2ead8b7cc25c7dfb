// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"sync"
	"time"
)

// Status is one of the five lifecycle states a WatchPoint passes
// through, per §3.
type Status int

const (
	Uninitialized Status = iota
	Listening
	NotListening
	Finished
	FailedToListen
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "UNINITIALIZED"
	case Listening:
		return "LISTENING"
	case NotListening:
		return "NOT_LISTENING"
	case Finished:
		return "FINISHED"
	case FailedToListen:
		return "FAILED_TO_LISTEN"
	default:
		return "Status(?)"
	}
}

// WatchPoint is the platform-neutral half of a single root
// subscription: the root path, its status, and the status-change
// notifier. Each platform backend keeps a pointer to it next to its
// own OS resource handle(s) (windows.Handle + overlapped buffer,
// inotify watch descriptors, a path in the shared FSEventStream) — grounded on the
// teacher's per-platform `watch` struct (windows.go, backend_inotify.go),
// generalized so Server-side code never needs to know which backend
// it's driving.
//
// Only the backend goroutine mutates status after creation (§3
// invariant 1); readers use Status()/awaitListeningStarted.
type WatchPoint struct {
	Root string

	mu       sync.Mutex
	status   Status
	reached  chan struct{} // closed when status first leaves Uninitialized
	finished chan struct{} // closed when status reaches a terminal state
	once     sync.Once
	finOnce  sync.Once
}

// NewWatchPoint creates a WatchPoint in the Uninitialized state.
func NewWatchPoint(root string) *WatchPoint {
	return &WatchPoint{
		Root:     root,
		status:   Uninitialized,
		reached:  make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Status returns the current lifecycle state.
func (w *WatchPoint) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// setStatus transitions the WatchPoint. It must be called only from
// the backend goroutine (§3 invariant 1).
func (w *WatchPoint) setStatus(s Status) {
	w.mu.Lock()
	prev := w.status
	w.status = s
	w.mu.Unlock()

	if prev == Uninitialized && s != Uninitialized {
		w.once.Do(func() { close(w.reached) })
	}
	if s == Finished || s == FailedToListen {
		w.finOnce.Do(func() { close(w.finished) })
	}
}

// awaitListeningStarted blocks until status first leaves
// Uninitialized, or until deadline elapses, whichever comes first; it
// returns the status observed at that point. A zero deadline means
// wait indefinitely.
func (w *WatchPoint) awaitListeningStarted(deadline time.Duration) Status {
	if deadline <= 0 {
		<-w.reached
		return w.Status()
	}
	select {
	case <-w.reached:
	case <-time.After(deadline):
	}
	return w.Status()
}

// awaitFinished blocks until status reaches Finished or
// FailedToListen, or until deadline elapses. Returns true if a
// terminal state was reached.
func (w *WatchPoint) awaitFinished(deadline time.Duration) bool {
	if deadline <= 0 {
		<-w.finished
		return true
	}
	select {
	case <-w.finished:
		return true
	case <-time.After(deadline):
		return false
	}
}
