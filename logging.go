// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"fmt"
	"os"
	"time"
)

// LogLevel gates which diagnostic lines the Server writes to stderr.
// It does not change the text of Failure events, and it never
// suppresses or adds events.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelInfo
	LogLevelDebug
)

// debugEnv mirrors the teacher's FSNOTIFY_DEBUG env var
// (internal/debug_linux.go et al.): set it to force LogLevelDebug
// regardless of what a Server was constructed with, useful for
// one-off diagnosis without touching caller code.
var debugEnv = os.Getenv("FSWATCH_DEBUG") != ""

func (s *Server) logf(level LogLevel, format string, args ...interface{}) {
	effective := s.opts.logLevel
	if debugEnv && effective < LogLevelDebug {
		effective = LogLevelDebug
	}
	if level > effective {
		return
	}
	fmt.Fprintf(os.Stderr, "%s fswatch[%s]: %s\n",
		time.Now().Format("15:04:05.000000000"), level, fmt.Sprintf(format, args...))
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "LogLevel(?)"
	}
}
