// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// controlOp names a control-plane request posted to the backend
// goroutine, grounded on the teacher's `input` struct + `opAddWatch`/
// `opRemoveWatch` (windows.go) generalized with a terminate op since
// the teacher handles Close() as a separate channel rather than a
// request variant.
type controlOp int

const (
	opAdd controlOp = iota
	opRemove
	opTerminate
)

type controlRequest struct {
	op    controlOp
	root  string
	reply chan error
}

// platformBackend is the per-OS event pump Server drives. Exactly one
// implementation is compiled in per build tag (backend_linux.go,
// backend_windows.go, backend_darwin.go, backend_other.go). Every
// method except wake and newPlatformBackend itself runs only on the
// single backend goroutine Server.Start spawns, per §5's "all
// OS-resource mutation happens on that thread".
type platformBackend interface {
	// init performs one-time OS resource acquisition (inotify
	// instance + eventfd, IOCP handle, FSEventStream scaffold).
	init(s *Server) error
	// loop is the backend goroutine's body: it blocks in the OS wait
	// primitive, processes control requests and OS records, and
	// returns only after a terminate request has been fully
	// processed.
	loop(s *Server)
	// wake interrupts loop's OS wait primitive so it notices a newly
	// posted control request. Safe to call from any goroutine.
	wake() error
}

// Server is the platform-neutral façade of §4.5: it owns the root→
// WatchPoint map, mediates start/stop/close across goroutines, and
// enforces at-most-one backend goroutine.
type Server struct {
	opts    serverOpts
	sink    EventSink
	ownSink *ChannelSink // non-nil iff Server created its own sink

	backend  platformBackend
	requests chan controlRequest

	mu     sync.RWMutex
	roots  map[string]*WatchPoint
	closed bool

	started     bool
	startErr    chan error
	backendDone chan struct{}
}

// NewServer constructs a Server around the given options but does
// not start its backend goroutine; call Start for that. Grounded on
// the teacher's NewWatcher/NewBufferedWatcher split, generalized so
// construction and OS-thread startup are two distinct, separately
// failable steps per §4.5 ("start(callback_sink): ... blocks the
// caller until the thread either signals ready ... or fails").
func NewServer(opts ...ServerOption) *Server {
	o := getServerOpts(opts...)

	s := &Server{
		opts:        o,
		roots:       make(map[string]*WatchPoint),
		requests:    make(chan controlRequest, 8),
		startErr:    make(chan error, 1),
		backendDone: make(chan struct{}),
	}
	if o.sink != nil {
		s.sink = o.sink
	} else {
		s.ownSink = NewChannelSink(o.sinkCapacity, o.backpressure)
		s.sink = s.ownSink
	}
	s.backend = newPlatformBackend()
	return s
}

// Sink returns the EventSink events are posted to. When the Server was
// constructed without WithSink, this is the *ChannelSink it created;
// callers that want to range over Events() should type-assert it.
func (s *Server) Sink() EventSink { return s.sink }

// Start spawns the backend goroutine and blocks until it either
// signals readiness (OS resources acquired, event pump entered) or
// fails to initialize (§4.5).
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.backendDone)
		if err := s.backend.init(s); err != nil {
			s.startErr <- err
			return
		}
		close(s.startErr)
		s.backend.loop(s)
	}()

	err, ok := <-s.startErr
	if ok {
		return err
	}
	return nil
}

// StartWatching subscribes to root per §4.5: it blocks until the
// resulting WatchPoint leaves Uninitialized. Fails synchronously with
// ErrAlreadyWatching if root is already tracked, ErrClosed if Close
// has completed, or ErrInvalidPath if root can't be resolved to an
// existing directory.
func (s *Server) StartWatching(root string) error {
	return s.StartWatchingContext(root, 0)
}

// StartWatchingContext is StartWatching with an explicit deadline for
// the "leaves Uninitialized" wait; a zero deadline waits indefinitely.
// A timeout here does not cancel the underlying arm attempt (§5
// Cancellation) — it only releases the caller.
func (s *Server) StartWatchingContext(root string, deadline time.Duration) error {
	norm, err := normalizeRoot(root)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPath, root)
	}
	if fi, err := os.Stat(norm); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrInvalidPath, root)
	}

	s.mu.RLock()
	closed := s.closed
	_, exists := s.roots[norm]
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyWatching, norm)
	}

	reply := make(chan error, 1)
	req := controlRequest{op: opAdd, root: norm, reply: reply}
	if err := s.post(req); err != nil {
		return err
	}

	err = <-reply
	if err != nil {
		return err
	}

	s.mu.RLock()
	wp := s.roots[norm]
	s.mu.RUnlock()
	if wp == nil {
		return ErrClosed
	}
	wp.awaitListeningStarted(deadline)
	if wp.Status() == FailedToListen {
		return fmt.Errorf("%w: %s", ErrResourceExhausted, norm)
	}
	return nil
}

// StopWatching unsubscribes root per §4.5: it blocks until the
// corresponding WatchPoint reaches Finished or deadline elapses.
// Fails with ErrNotWatching if root is unknown.
func (s *Server) StopWatching(root string) error {
	return s.StopWatchingContext(root, 0)
}

func (s *Server) StopWatchingContext(root string, deadline time.Duration) error {
	norm, err := normalizeRoot(root)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPath, root)
	}

	s.mu.RLock()
	closed := s.closed
	wp, exists := s.roots[norm]
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotWatching, norm)
	}

	reply := make(chan error, 1)
	req := controlRequest{op: opRemove, root: norm, reply: reply}
	if err := s.post(req); err != nil {
		return err
	}
	if err := <-reply; err != nil {
		return err
	}

	wp.awaitFinished(deadline)
	return nil
}

// Close tears the backend goroutine down: it cancels every
// WatchPoint, waits for the goroutine to exit, and marks the Server
// closed so further operations fail with ErrClosed (§4.5, §3
// invariant 3).
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	if !started {
		if s.ownSink != nil {
			s.ownSink.Close()
		}
		return nil
	}

	reply := make(chan error, 1)
	_ = s.post(controlRequest{op: opTerminate, reply: reply})
	<-s.backendDone

	if s.ownSink != nil {
		s.ownSink.Close()
	}
	return nil
}

// Watching returns a snapshot of roots currently tracked (any status).
// Grounded on the teacher's WatchList() (windows.go, backend_inotify.go).
func (s *Server) Watching() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.roots))
	for root := range s.roots {
		out = append(out, root)
	}
	return out
}

// post enqueues a control request and wakes the backend, failing fast
// with ErrClosed if Close has already completed.
func (s *Server) post(req controlRequest) error {
	s.mu.RLock()
	closed := s.closed && req.op != opTerminate
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	select {
	case s.requests <- req:
	default:
		// Backend goroutine hasn't drained in a while; still queue
		// it, just block until there's room rather than failing.
		s.requests <- req
	}
	return s.backend.wake()
}

// emit posts e to the sink, converting a sink failure into a single
// best-effort Failure event rather than silently dropping, per §4.1.
// When the Server owns its sink and it runs BackpressureDropWithOverflow,
// this also opportunistically flushes the coalesced Overflow event a
// prior dropped enqueue left pending, so it surfaces promptly on the
// very next successful send rather than only when a test reaches in.
func (s *Server) emit(e Event) {
	if err := s.sink.Enqueue(e); err != nil {
		s.logf(LogLevelError, "sink enqueue failed: %v", err)
		if e.Kind != KindFailure {
			_ = s.sink.Enqueue(FailureEvent(ErrorKindResourceExhausted,
				fmt.Sprintf("sink rejected %s: %v", e, err)))
		}
		return
	}
	if s.ownSink != nil {
		s.ownSink.drainDroppedOverflow()
	}
}

// failRoot records a BackendFault, emits it, and terminates the
// WatchPoint, per §7's "BackendFault ... surfaced as a Failure event
// and the affected Watch Point transitions to FINISHED".
func (s *Server) failRoot(wp *WatchPoint, message string) {
	wp.setStatus(Finished)
	s.emit(FailureEvent(ErrorKindBackendFault, message))
	s.mu.Lock()
	if existing, ok := s.roots[wp.Root]; ok && existing == wp {
		delete(s.roots, wp.Root)
	}
	s.mu.Unlock()
}
