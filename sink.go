// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import "sync"

// BackpressurePolicy selects what a ChannelSink does when its buffer
// is full and the backend posts another event. A Server built without
// WithBackpressure uses BackpressureBlock.
type BackpressurePolicy int

const (
	// BackpressureBlock blocks the calling backend goroutine until
	// room is available. This is the teacher's implicit behavior
	// (an unbuffered or small buffered Events channel just blocks the
	// sender).
	BackpressureBlock BackpressurePolicy = iota
	// BackpressureDropWithOverflow drops the event and substitutes a
	// single coalesced Overflow event the next time space frees up,
	// rather than blocking the backend goroutine indefinitely.
	BackpressureDropWithOverflow
	// BackpressureFail makes Enqueue return ErrResourceExhausted when
	// the buffer is full; the event is not delivered. The Server logs
	// the error and makes one best-effort attempt to enqueue a Failure
	// event in its place. The sink is not closed and the Server keeps
	// running.
	BackpressureFail
)

// EventSink is the host-owned queue the core posts events to. The
// core never reads from it; Enqueue must be safe to call from the
// backend goroutine and must not silently drop Change, Overflow or
// Unknown events (§4.1) — only Failure-then-teardown is permitted
// when the sink itself can't keep up.
type EventSink interface {
	Enqueue(Event) error
}

// ChannelSink is the default EventSink: a buffered Go channel plus a
// configurable backpressure policy, generalizing the teacher's
// NewBufferedWatcher(sz uint) (backend_inotify.go) from "one fixed
// buffer, implicit block" into an explicit, pluggable strategy.
type ChannelSink struct {
	events chan Event
	policy BackpressurePolicy

	mu        sync.Mutex
	dropped   bool
	closed    bool
	closeOnce sync.Once
}

// NewChannelSink creates a ChannelSink with the given channel capacity
// and backpressure policy. A capacity of 0 yields an unbuffered
// channel, matching the teacher's default (NewWatcher calls
// NewBufferedWatcher(0)).
func NewChannelSink(capacity int, policy BackpressurePolicy) *ChannelSink {
	return &ChannelSink{
		events: make(chan Event, capacity),
		policy: policy,
	}
}

// Events returns the receive side of the sink's channel.
func (s *ChannelSink) Events() <-chan Event { return s.events }

// Enqueue implements EventSink.
func (s *ChannelSink) Enqueue(e Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mu.Unlock()

	switch s.policy {
	case BackpressureBlock:
		s.events <- e
		return nil
	case BackpressureDropWithOverflow:
		select {
		case s.events <- e:
			return nil
		default:
			s.mu.Lock()
			s.dropped = true
			s.mu.Unlock()
			return nil
		}
	case BackpressureFail:
		select {
		case s.events <- e:
			return nil
		default:
			return ErrResourceExhausted
		}
	default:
		s.events <- e
		return nil
	}
}

// drainDroppedOverflow emits a single coalesced Overflow event if
// BackpressureDropWithOverflow has dropped at least one event since
// the last Overflow was delivered. Server.emit calls this after every
// successful Enqueue.
func (s *ChannelSink) drainDroppedOverflow() {
	s.mu.Lock()
	if !s.dropped {
		s.mu.Unlock()
		return
	}
	s.dropped = false
	s.mu.Unlock()

	select {
	case s.events <- OverflowEvent(""):
	default:
		// Still no room: keep the Overflow pending for the next drain.
		s.mu.Lock()
		s.dropped = true
		s.mu.Unlock()
	}
}

// Close marks the sink closed; further Enqueue calls return
// ErrClosed. The Server calls this only after its backend goroutine
// has fully exited, so there is no concurrent Enqueue to race with
// the channel close — that ordering is what makes "no event is ever
// observed on the sink" after close returns (§8) hold.
func (s *ChannelSink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	})
}
