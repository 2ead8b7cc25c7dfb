// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import "time"

// serverOpts collects the result of applying ServerOption values,
// grounded on the teacher's own (unexported) withOpts/getOptions
// functional-options pattern referenced throughout backend_inotify.go,
// backend_recursive.go and kq.go, generalized from per-Add options to
// per-Server construction options since §6 scopes buffer size and
// latency to the whole server, not to one call to startWatching.
type serverOpts struct {
	bufferSize   int
	latency      time.Duration
	logLevel     LogLevel
	backpressure BackpressurePolicy
	sinkCapacity int
	recursive    bool
	sink         EventSink
}

var defaultServerOpts = serverOpts{
	bufferSize:   defaultWindowsBufferSize,
	latency:      0,
	logLevel:     LogLevelError,
	backpressure: BackpressureBlock,
	sinkCapacity: 0,
	recursive:    false,
}

const (
	defaultWindowsBufferSize = 16 * 1024
	minWindowsBufferSize     = 4 * 1024
	maxWindowsBufferSize     = 64 * 1024 * 1024
)

// ServerOption configures a Server at construction time.
type ServerOption func(*serverOpts)

// WithBufferSize sets the per-directory ReadDirectoryChangesW buffer
// size on Windows; it's a no-op on other platforms. Clamped to
// [4KiB, 64MiB] per §6. Must be set before the first call to
// StartWatching (§6).
func WithBufferSize(bytes int) ServerOption {
	return func(o *serverOpts) {
		if bytes < minWindowsBufferSize {
			bytes = minWindowsBufferSize
		}
		if bytes > maxWindowsBufferSize {
			bytes = maxWindowsBufferSize
		}
		o.bufferSize = bytes
	}
}

// WithLatency sets the FSEventStream coalescing latency on macOS; a
// no-op on other platforms. Must be set before Start (§6).
func WithLatency(d time.Duration) ServerOption {
	return func(o *serverOpts) { o.latency = d }
}

// WithLogLevel adjusts internal diagnostic verbosity: it gates the
// Server's stderr log lines and does not change Failure event text.
func WithLogLevel(level LogLevel) ServerOption {
	return func(o *serverOpts) { o.logLevel = level }
}

// WithBackpressure selects the default sink's behavior when its
// buffer is full; see the Backpressure design note.
func WithBackpressure(policy BackpressurePolicy) ServerOption {
	return func(o *serverOpts) { o.backpressure = policy }
}

// WithSinkCapacity sets the channel capacity of the default
// ChannelSink the Server creates when WithSink isn't used. Grounded on
// the teacher's NewBufferedWatcher(sz uint).
func WithSinkCapacity(n int) ServerOption {
	return func(o *serverOpts) { o.sinkCapacity = n }
}

// WithSink supplies a host-owned EventSink instead of the Server's
// default ChannelSink.
func WithSink(sink EventSink) ServerOption {
	return func(o *serverOpts) { o.sink = sink }
}

// WithRecursive resolves the §9 Open Question on Linux recursive
// subscription: when true, startWatching walks the subtree and
// registers one inotify watch per directory (grounded on
// backend_recursive.go's `/...` convention); false (the default)
// subscribes the root only, leaving subdirectory discovery to the
// consumer as §1 Non-goals intend. No-op on Windows and macOS, whose
// native primitives (ReadDirectoryChangesW, FSEventStream) are
// recursive by construction.
func WithRecursive(recursive bool) ServerOption {
	return func(o *serverOpts) { o.recursive = recursive }
}

func getServerOpts(opts ...ServerOption) serverOpts {
	o := defaultServerOpts
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
