// Package stacktrace locate the caller of a panic for the logs.
package stacktrace

import (
	"fmt"
	"runtime"
	"strings"
)

// Callers the frame skip levels above the caller, as
// "pkg/dir/file.go:42 pkg.Func".
func Callers(skip int) string {
	pcs := make([]uintptr, 1)
	if runtime.Callers(skip+2, pcs) == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames(pcs).Next()
	return fmt.Sprintf("%s:%d %s", lastElements(frame.File, 3), frame.Line, lastElements(frame.Function, 1))
}

// PanicLocation the first frame outside the runtime after a recovered panic.
func PanicLocation() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && !strings.HasPrefix(frame.Function, "internal/runtime") {
			return fmt.Sprintf("%s:%d %s", lastElements(frame.File, 3), frame.Line, lastElements(frame.Function, 1))
		}
		if !more {
			return ""
		}
	}
}

// lastElements the last n slash separated elements of path
func lastElements(path string, n int) string {
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")
	if len(parts) <= n {
		return strings.Join(parts, "/")
	}
	return strings.Join(parts[len(parts)-n:], "/")
}
