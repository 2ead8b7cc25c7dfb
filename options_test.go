// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package fswatch

import "testing"

func TestWithBufferSizeClamps(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, minWindowsBufferSize},
		{minWindowsBufferSize - 1, minWindowsBufferSize},
		{maxWindowsBufferSize + 1, maxWindowsBufferSize},
		{defaultWindowsBufferSize, defaultWindowsBufferSize},
	}
	for _, c := range cases {
		o := getServerOpts(WithBufferSize(c.in))
		if o.bufferSize != c.want {
			t.Errorf("WithBufferSize(%d) = %d, want %d", c.in, o.bufferSize, c.want)
		}
	}
}

func TestDefaultServerOptsAreSane(t *testing.T) {
	o := getServerOpts()
	if o.backpressure != BackpressureBlock {
		t.Errorf("default backpressure = %v, want BackpressureBlock", o.backpressure)
	}
	if o.recursive {
		t.Error("default recursive = true, want false")
	}
	if o.sink != nil {
		t.Error("default sink should be nil until a Server creates its own")
	}
}

func TestWithRecursiveOption(t *testing.T) {
	o := getServerOpts(WithRecursive(true))
	if !o.recursive {
		t.Error("WithRecursive(true) did not set recursive")
	}
}

func TestWithSinkOverridesDefault(t *testing.T) {
	custom := NewChannelSink(4, BackpressureFail)
	o := getServerOpts(WithSink(custom))
	if o.sink != custom {
		t.Error("WithSink did not install the custom sink")
	}
}
