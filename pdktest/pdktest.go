// Package pdktest provides host doubles for testing plugin code natively.
//
// Plugin logic written against pdk.PDK runs unchanged on a
// hostfuncs.Kernel; FaultyHost layers on top of any env.Host to make
// chosen imports trap and to count allocations, so tests can check that
// every scoped region is released exactly once.
package pdktest

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/reglet-dev/pdk/hostfuncs"
)

// NewKernel returns a kernel with input installed for a fresh call.
func NewKernel(t testing.TB, input []byte, opts ...hostfuncs.KernelOption) *hostfuncs.Kernel {
	t.Helper()

	k := hostfuncs.NewKernel(opts...)
	if err := k.BeginCall(context.Background(), input); err != nil {
		t.Fatalf("pdktest: begin call: %v", err)
	}
	return k
}

// LogLine is one message received by a LogRecorder.
type LogLine struct {
	Message string
	Level   slog.Level
}

// LogRecorder collects plugin log lines. Use Sink with
// hostfuncs.WithLogSink.
type LogRecorder struct {
	lines []LogLine
	mu    sync.Mutex
}

// Sink returns a hostfuncs.LogSink writing into r.
func (r *LogRecorder) Sink() hostfuncs.LogSink {
	return func(level slog.Level, message string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.lines = append(r.lines, LogLine{Level: level, Message: message})
	}
}

// Lines returns the recorded lines in order.
func (r *LogRecorder) Lines() []LogLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogLine(nil), r.lines...)
}
