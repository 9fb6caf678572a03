// backtrace.go parses and captures stack frames for exception records.

package activerabbit

import (
	"regexp"
	"runtime"
	"strings"
)

// goFileLinePattern matches the location line of a runtime stack trace:
// "\t/app/main.go:42 +0x1a8". The offset suffix is optional.
var goFileLinePattern = regexp.MustCompile(`^\s*(.+\.go):(\d+)(?:\s+\+0x[0-9a-fA-F]+)?$`)

// ParseBacktrace parses the text form of a stack trace (as produced by
// debug.Stack) into frames. Goroutine headers are skipped; function lines
// and their location lines are paired up; any line that does not match the
// expected shape is kept as a raw frame rather than dropped.
func ParseBacktrace(trace string) []Frame {
	if trace == "" {
		return nil
	}

	var frames []Frame
	var pending *Frame // function line waiting for its file:line

	flush := func() {
		if pending != nil {
			frames = append(frames, *pending)
			pending = nil
		}
	}

	for _, line := range strings.Split(trace, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "goroutine ") && strings.HasSuffix(trimmed, ":") {
			flush()
			continue
		}

		if m := goFileLinePattern.FindStringSubmatch(line); m != nil {
			num := parseInt(m[2])
			if pending != nil {
				pending.File = m[1]
				pending.Line = num
				flush()
			} else {
				frames = append(frames, Frame{File: m[1], Line: num})
			}
			continue
		}

		// A function line: "main.doSomething(0x1234, ...)" or
		// "created by main.main in goroutine 5".
		flush()
		if method, ok := parseFunctionLine(trimmed); ok {
			pending = &Frame{Method: method}
		} else {
			frames = append(frames, Frame{Raw: trimmed})
		}
	}
	flush()

	return frames
}

// parseFunctionLine extracts the function name from a stack function line.
func parseFunctionLine(line string) (string, bool) {
	s := strings.TrimPrefix(line, "created by ")
	if i := strings.Index(s, " in goroutine "); i >= 0 {
		s = s[:i]
	}
	// Strip the argument list; the paren belongs to the call site, not the
	// method path.
	if i := strings.LastIndex(s, "("); i > 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t") {
		return "", false
	}
	// Function names always carry a package qualifier.
	if !strings.Contains(s, ".") {
		return "", false
	}
	return s, true
}

// captureFrames records the caller's stack as frames, skipping the given
// number of frames (the SDK's own) plus the runtime internals.
func captureFrames(skip int) []Frame {
	const maxFrames = 64
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(skip+2, pcs) // +2 for Callers and captureFrames
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	var out []Frame
	for {
		fr, more := frames.Next()
		if fr.Function != "" || fr.File != "" {
			out = append(out, Frame{
				File:   fr.File,
				Line:   fr.Line,
				Method: fr.Function,
			})
		}
		if !more {
			break
		}
	}
	return out
}

// trimRecoveredStack strips the capture preamble from a stack recorded
// inside a recover handler: the debug.Stack call itself, this SDK's wrapper
// frames, and the runtime's panic dispatch, so the panicking function leads
// the record. A stack with no panic dispatch in it loses only leading
// capture frames.
func trimRecoveredStack(frames []Frame) []Frame {
	last := -1
	for i, f := range frames {
		if isPanicFrame(f) {
			last = i
		}
	}
	if last >= 0 {
		return frames[last+1:]
	}

	i := 0
	for i < len(frames) && isCaptureFrame(frames[i]) {
		i++
	}
	return frames[i:]
}

// isPanicFrame matches the runtime's panic dispatch: the gopanic frame, the
// raw "panic(...)" line debug.Stack prints for it, and the bare panic.go
// location left over when that line could not be parsed as a function.
func isPanicFrame(f Frame) bool {
	if f.Method == "runtime.gopanic" {
		return true
	}
	if f.Method == "" && strings.HasPrefix(f.Raw, "panic(") {
		return true
	}
	return f.Method == "" && f.Raw == "" && strings.Contains(f.File, "runtime/panic.go")
}

// isCaptureFrame matches the frames that capturing a stack inside the SDK
// adds above the host's own.
func isCaptureFrame(f Frame) bool {
	if strings.HasPrefix(f.Method, "runtime/debug.") || strings.HasPrefix(f.Method, sdkMethodPrefix) {
		return true
	}
	return f.Method == "" && strings.Contains(f.File, "runtime/debug/stack.go")
}

// isAppFrame reports whether a frame belongs to the host application rather
// than the runtime, the test harness, or this SDK. Panic dispatch frames
// never qualify; other raw frames count as application frames, since we
// have no basis to exclude what we could not parse.
func isAppFrame(f Frame) bool {
	if isPanicFrame(f) {
		return false
	}
	method := f.Method
	if method == "" {
		return f.Raw != "" || f.File != ""
	}
	for _, prefix := range []string{"runtime.", "runtime/", "testing.", "reflect.", sdkMethodPrefix} {
		if strings.HasPrefix(method, prefix) {
			return false
		}
	}
	return true
}

func parseInt(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
