// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"path/filepath"
	"strings"
)

// normalizeRoot turns a host-supplied root into the absolute,
// separator-trimmed form this package uses as a map key and as the
// prefix for emitted event paths. Grounded on the teacher's pervasive
// filepath.Clean(name) (windows.go:Add, backend_inotify.go:AddWith),
// extended per §4.2 to always force an absolute path (the teacher
// accepts relative paths and lets the OS resolve them against the
// watch handle; the spec requires absolute paths on the wire) and to
// apply the platform hook (platformNormalize) for long-path escaping
// or NFD.
func normalizeRoot(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	abs = trimTrailingSeparator(abs)
	return platformNormalize(abs)
}

// trimTrailingSeparator strips a trailing separator, except when the
// path is itself a root marker ("/" on POSIX, "C:\" on Windows).
func trimTrailingSeparator(path string) string {
	if len(path) <= 1 {
		return path
	}
	trimmed := strings.TrimRight(path, string(filepath.Separator))
	if trimmed == "" {
		return path[:1]
	}
	// Preserve "C:\" on Windows: volume root needs the trailing sep.
	if vol := filepath.VolumeName(trimmed); vol == trimmed {
		return trimmed + string(filepath.Separator)
	}
	return trimmed
}

// joinEventPath concatenates a watch root with the OS-reported
// relative sub-path using the platform separator, per §4.2 ("Emitted
// event paths are always absolute ... concatenated with the
// OS-reported relative sub-path").
func joinEventPath(root, rel string) string {
	if rel == "" {
		return root
	}
	return filepath.Join(root, rel)
}
