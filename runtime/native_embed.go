// Package runtimeembed carries the native runtime sources emitted modules
// link against.
package runtimeembed

import (
	"embed"
	"io/fs"
)

//go:embed native/*.c native/*.h
var nativeRuntimeFS embed.FS

// NativeRuntimeFS exposes the C runtime sources for extraction next to
// emitted modules.
func NativeRuntimeFS() fs.FS {
	return nativeRuntimeFS
}
