package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestExtractNativeRuntime(t *testing.T) {
	dir := t.TempDir()
	sources, err := extractNativeRuntime(dir)
	if err != nil {
		t.Fatalf("extractNativeRuntime: %v", err)
	}
	if len(sources) == 0 {
		t.Fatal("no sources extracted")
	}
	for _, src := range sources {
		if !strings.HasSuffix(src, ".c") {
			t.Errorf("source list holds a non-C file: %s", src)
		}
		if _, err := os.Stat(src); err != nil {
			t.Errorf("listed source missing on disk: %v", err)
		}
	}
	// The header ships alongside the sources so includes resolve in place.
	if _, err := os.Stat(filepath.Join(dir, "rt_metadata.h")); err != nil {
		t.Errorf("rt_metadata.h not extracted: %v", err)
	}
}

func TestExtractNativeRuntimeIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	first, err := extractNativeRuntime(dir)
	if err != nil {
		t.Fatalf("first extraction: %v", err)
	}
	second, err := extractNativeRuntime(dir)
	if err != nil {
		t.Fatalf("second extraction: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("extraction not stable: %d then %d sources", len(first), len(second))
	}
}

func TestRuntimeFileAllowed(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"native/rt_metadata.c", true},
		{"native/rt_metadata.h", true},
		{"native/rt_signals_linux.c", runtime.GOOS == "linux"},
		{"native/rt_signals_darwin.c", runtime.GOOS == "darwin"},
		{"native/rt_signals_windows.c", runtime.GOOS == "windows"},
	}
	for _, tc := range cases {
		if got := runtimeFileAllowed(tc.path); got != tc.want {
			t.Errorf("runtimeFileAllowed(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
