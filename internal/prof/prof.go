// Package prof toggles CPU, heap, and runtime-trace capture for one CLI
// invocation.
package prof

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// Options name the output paths of the profilers to enable. Empty paths
// leave the corresponding profiler off.
type Options struct {
	CPUPath   string
	MemPath   string
	TracePath string
}

// Session owns the profilers started for a run. Stop must be called exactly
// when the profiled work is finished; it is safe on a nil session and safe
// to call more than once.
type Session struct {
	cpu     *os.File
	tr      *os.File
	memPath string
	stopped bool
}

// Start enables the profilers selected in opts. On any failure everything
// already started is torn down again.
func Start(opts Options) (*Session, error) {
	s := &Session{memPath: opts.MemPath}
	if opts.CPUPath != "" {
		f, err := os.Create(opts.CPUPath)
		if err != nil {
			return nil, err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("start cpu profile: %w", err)
		}
		s.cpu = f
	}
	if opts.TracePath != "" {
		f, err := os.Create(opts.TracePath)
		if err != nil {
			s.Stop()
			return nil, err
		}
		if err := trace.Start(f); err != nil {
			_ = f.Close()
			s.Stop()
			return nil, fmt.Errorf("start runtime trace: %w", err)
		}
		s.tr = f
	}
	return s, nil
}

// Stop halts the active profilers and, when requested, captures a heap
// profile. Heap-write failures are reported on stderr so a deferred Stop
// does not swallow them.
func (s *Session) Stop() {
	if s == nil || s.stopped {
		return
	}
	s.stopped = true
	if s.tr != nil {
		trace.Stop()
		_ = s.tr.Close()
		s.tr = nil
	}
	if s.cpu != nil {
		pprof.StopCPUProfile()
		_ = s.cpu.Close()
		s.cpu = nil
	}
	if s.memPath != "" {
		if err := writeHeap(s.memPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write heap profile: %v\n", err)
		}
	}
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
