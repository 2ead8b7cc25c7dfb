// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import "fmt"

// Kind discriminates the four Event shapes of the wire contract. It
// replaces the teacher's inheritance-shaped handler hierarchy with a
// plain tagged union, per the "tagged variants, not inheritance"
// design note.
type Kind int

const (
	// KindChange carries a semantic file-system change.
	KindChange Kind = iota
	// KindOverflow signals that the OS or an intermediate buffer
	// dropped events.
	KindOverflow
	// KindUnknown carries an OS record the backend couldn't classify.
	KindUnknown
	// KindFailure carries a structured backend error.
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindChange:
		return "Change"
	case KindOverflow:
		return "Overflow"
	case KindUnknown:
		return "Unknown"
	case KindFailure:
		return "Failure"
	default:
		return "Kind(?)"
	}
}

// ChangeKind enumerates the semantic change an Event of KindChange
// carries.
type ChangeKind int

const (
	Created ChangeKind = iota
	Modified
	Removed
	Invalidated
)

func (c ChangeKind) String() string {
	switch c {
	case Created:
		return "CREATED"
	case Modified:
		return "MODIFIED"
	case Removed:
		return "REMOVED"
	case Invalidated:
		return "INVALIDATED"
	default:
		return "ChangeKind(?)"
	}
}

// Event is the single value type posted to an EventSink. Only the
// fields relevant to its Kind are populated; see the ChangeEvent,
// OverflowEvent, UnknownEvent and FailureEvent constructors.
type Event struct {
	Kind Kind

	// Path is set for KindChange (always absolute) and, optionally,
	// for KindUnknown.
	Path string
	// Change is meaningful only when Kind == KindChange.
	Change ChangeKind

	// Scope is set for KindOverflow when the overflow is known to be
	// confined to one root; empty means "global".
	Scope string

	// FailureKind and Message are meaningful only when Kind ==
	// KindFailure.
	FailureKind ErrorKind
	Message     string
}

// ChangeEvent builds a KindChange event.
func ChangeEvent(kind ChangeKind, path string) Event {
	return Event{Kind: KindChange, Change: kind, Path: path}
}

// OverflowEvent builds a KindOverflow event. scope may be empty to
// mean the overflow isn't attributable to a single root.
func OverflowEvent(scope string) Event {
	return Event{Kind: KindOverflow, Scope: scope}
}

// UnknownEvent builds a KindUnknown event. path may be empty when the
// OS record carried none.
func UnknownEvent(path string) Event {
	return Event{Kind: KindUnknown, Path: path}
}

// FailureEvent builds a KindFailure event.
func FailureEvent(kind ErrorKind, message string) Event {
	return Event{Kind: KindFailure, FailureKind: kind, Message: message}
}

// String renders the event as its kind followed by its detail, e.g.
// `CREATED "/a"` or `OVERFLOW (global)`, mirroring the teacher's
// Event.String on fsnotify.Event.
func (e Event) String() string {
	switch e.Kind {
	case KindChange:
		return fmt.Sprintf("%s %q", e.Change, e.Path)
	case KindOverflow:
		if e.Scope == "" {
			return "OVERFLOW (global)"
		}
		return fmt.Sprintf("OVERFLOW %q", e.Scope)
	case KindUnknown:
		return fmt.Sprintf("UNKNOWN %q", e.Path)
	case KindFailure:
		return fmt.Sprintf("FAILURE %s: %s", e.FailureKind, e.Message)
	default:
		return "invalid event"
	}
}
