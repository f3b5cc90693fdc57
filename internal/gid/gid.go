// Package gid extracts the current goroutine's numeric ID from the
// runtime-provided stack trace. Go has no public goroutine-local storage
// API, and none of the retrieved example repositories carry a dependency
// addressing it (the common ecosystem solutions wrap exactly this same
// runtime.Stack trick), so this narrow helper is implemented directly
// against the standard library rather than against a schema-pack
// dependency or an invented one.
//
// It exists solely to back chatctx/factory.go's thread-local Context
// store, which spec §4.3 calls "per-thread storage keyed by (factory,
// thread, provider name)". A goroutine ID is the closest Go analogue to
// an OS thread ID for that purpose.
package gid

import (
	"bytes"
	"runtime"
	"strconv"
)

// Current returns the calling goroutine's ID, parsed out of the header
// line of its own runtime.Stack dump ("goroutine 123 [running]: ...").
func Current() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	fields := bytes.Fields(buf)
	if len(fields) < 2 {
		return 0
	}

	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
