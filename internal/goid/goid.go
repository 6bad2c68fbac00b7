// Package goid resolves the numeric id of the calling goroutine.
//
// The id is the one the runtime prints in stack traces. It is stable for the
// lifetime of the goroutine and never reused while the goroutine is alive,
// which makes it suitable as a registry key for goroutine-affine state.
package goid

import (
	"bytes"
	"runtime"
	"strconv"
)

var prefix = []byte("goroutine ")

// ID returns the runtime id of the calling goroutine.
func ID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, prefix)
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		// The first line of a single-goroutine stack dump always has the
		// form "goroutine N [status]:". Anything else is a runtime change.
		panic("goid: malformed stack header: " + string(buf[:n]))
	}
	return id
}
