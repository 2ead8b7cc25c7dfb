// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import (
	"path/filepath"
	"testing"
)

func TestNormalizeRootMakesAbsolute(t *testing.T) {
	tmp := t.TempDir()
	got, err := normalizeRoot(tmp)
	if err != nil {
		t.Fatalf("normalizeRoot: %s", err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("normalizeRoot(%q) = %q, want an absolute path", tmp, got)
	}
}

func TestNormalizeRootIsIdempotent(t *testing.T) {
	tmp := t.TempDir()
	once, err := normalizeRoot(tmp)
	if err != nil {
		t.Fatalf("normalizeRoot: %s", err)
	}
	twice, err := normalizeRoot(once)
	if err != nil {
		t.Fatalf("normalizeRoot (second pass): %s", err)
	}
	if once != twice {
		t.Fatalf("normalizeRoot not idempotent: %q != %q", once, twice)
	}
}

func TestTrimTrailingSeparator(t *testing.T) {
	cases := []struct{ in, want string }{
		{string(filepath.Separator), string(filepath.Separator)},
		{"a" + string(filepath.Separator), "a"},
		{"a", "a"},
	}
	for _, c := range cases {
		if got := trimTrailingSeparator(c.in); got != c.want {
			t.Errorf("trimTrailingSeparator(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestJoinEventPath(t *testing.T) {
	root := filepath.FromSlash("/watched/root")
	if got, want := joinEventPath(root, ""), root; got != want {
		t.Errorf("joinEventPath(root, \"\") = %q, want %q", got, want)
	}
	want := filepath.Join(root, "sub", "file.txt")
	if got := joinEventPath(root, filepath.Join("sub", "file.txt")); got != want {
		t.Errorf("joinEventPath = %q, want %q", got, want)
	}
}
