// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build darwin

package fswatch

import "golang.org/x/text/unicode/norm"

// platformNormalize canonicalises a macOS path to NFD, matching what
// HFS+/APFS hand back from FSEvents callbacks so that root paths and
// OS-reported sub-paths compare equal byte-for-byte (§4.2: "on macOS,
// accept and emit NFD"). Grounded on golang.org/x/text, a direct
// dependency of both mutagen-io/mutagen and syncthing/syncthing in the
// retrieval pack — the teacher itself never needs this since its
// macOS backend is kqueue-based and doesn't touch Unicode form.
func platformNormalize(path string) (string, error) {
	return norm.NFD.String(path), nil
}
