package relock

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"

	"github.com/DataDog/gostackparse"
)

const (
	// stackBufferSize is the initial buffer used to capture a stack
	// trace. It doubles until the whole trace fits.
	stackBufferSize = 4 << 10

	// callersSize is the initial number of program counters captured.
	// It doubles until the whole stack fits.
	callersSize = 64
)

// goroutine is the calling goroutine's id and frames, innermost first.
type goroutine struct {
	id     int
	frames []*gostackparse.Frame
}

// currentGoroutine identifies the calling goroutine and captures all
// of its frames. The frames start with currentGoroutine's caller.
//
// The id comes from the runtime.Stack header. Tracebacks elide the
// middle of deep stacks, so the frames come from runtime.Callers,
// which does not.
func currentGoroutine() goroutine {
	return goroutine{
		id:     currentGoroutineID(),
		frames: callerFrames(),
	}
}

func currentGoroutineID() int {
	buf := make([]byte, stackBufferSize)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	goroutines, errs := gostackparse.Parse(bytes.NewReader(dropElided(buf)))
	if len(goroutines) == 0 {
		panic(fmt.Sprintf("relock: cannot parse goroutine stack: %v", errs))
	}
	return goroutines[0].ID
}

// dropElided removes the "...N frames elided..." lines the runtime
// writes into tracebacks of deep stacks. gostackparse rejects them.
func dropElided(buf []byte) []byte {
	out := buf[:0]
	for len(buf) > 0 {
		line := buf
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			line, buf = buf[:i+1], buf[i+1:]
		} else {
			buf = nil
		}
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("...")) && bytes.HasSuffix(trimmed, []byte("frames elided...")) {
			continue
		}
		out = append(out, line...)
	}
	return out
}

func callerFrames() []*gostackparse.Frame {
	pcs := make([]uintptr, callersSize)
	for {
		// skip runtime.Callers and callerFrames
		n := runtime.Callers(2, pcs)
		if n < len(pcs) {
			pcs = pcs[:n]
			break
		}
		pcs = make([]uintptr, 2*len(pcs))
	}

	if len(pcs) == 0 {
		return nil
	}

	var frames []*gostackparse.Frame
	it := runtime.CallersFrames(pcs)
	for {
		f, more := it.Next()
		frames = append(frames, &gostackparse.Frame{Func: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}

	for len(frames) > 0 && strings.HasSuffix(frames[0].Func, ".currentGoroutine") {
		frames = frames[1:]
	}
	return frames
}
