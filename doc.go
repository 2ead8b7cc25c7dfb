// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fswatch bridges the native directory-change notification
// primitives of Windows (ReadDirectoryChangesW), Linux (inotify) and
// macOS (FSEvents) behind one Server façade.
//
// A host constructs a Server around an EventSink, then drives it with
// StartWatching, StopWatching and Close from any goroutine; a single
// dedicated backend goroutine owns the underlying OS resources and is
// the only thing that ever mutates a WatchPoint after it is created.
package fswatch
