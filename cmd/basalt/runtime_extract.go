package main

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	runtimeembed "basalt/runtime"
)

// extractNativeRuntime writes the embedded C runtime sources into dir and
// returns the extracted .c paths, host-filtered and sorted. Emitted modules
// compile and link against these files.
func extractNativeRuntime(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create runtime dir: %w", err)
	}
	fsys := runtimeembed.NativeRuntimeFS()
	var sources []string
	walkErr := fs.WalkDir(fsys, "native", func(entryPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !runtimeFileAllowed(entryPath) {
			return nil
		}
		rel := strings.TrimPrefix(entryPath, "native/")
		if rel == entryPath {
			return fmt.Errorf("unexpected embedded runtime path: %s", entryPath)
		}
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return err
		}
		data, err := fs.ReadFile(fsys, entryPath)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o600); err != nil {
			return err
		}
		if strings.HasSuffix(entryPath, ".c") {
			sources = append(sources, dst)
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to extract runtime sources: %w", walkErr)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("embedded runtime sources missing (build bug)")
	}
	sort.Strings(sources)
	return sources, nil
}

// runtimeFileAllowed filters OS-suffixed runtime files to the host.
func runtimeFileAllowed(entryPath string) bool {
	base := path.Base(entryPath)
	if strings.HasSuffix(base, "_linux.c") || strings.HasSuffix(base, "_linux.h") {
		return runtime.GOOS == "linux"
	}
	if strings.HasSuffix(base, "_darwin.c") || strings.HasSuffix(base, "_darwin.h") {
		return runtime.GOOS == "darwin"
	}
	if strings.HasSuffix(base, "_windows.c") || strings.HasSuffix(base, "_windows.h") {
		return runtime.GOOS == "windows"
	}
	return true
}
