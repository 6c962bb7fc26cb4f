// Package target describes the machine a module is emitted for and loads
// the basalt.toml manifest selecting it.
package target

import "fmt"

// Target fixes the machine-level parameters metadata emission depends on.
type Target struct {
	// Name identifies the target in diagnostics and summaries.
	Name string
	// WordSize is the pointer width in bytes.
	WordSize int
	// Interop links emitted class metadata against the legacy object-model
	// runtime.
	Interop bool
}

// Default is the host-shaped target used when the manifest names none.
func Default() Target {
	return Target{Name: "native64", WordSize: 8}
}

// WordBits is the pointer width in bits.
func (t Target) WordBits() int {
	if t.WordSize <= 0 {
		return 64
	}
	return t.WordSize * 8
}

// Validate reports whether the target can be emitted for.
func (t Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("target has no name")
	}
	switch t.WordSize {
	case 4, 8:
		return nil
	default:
		return fmt.Errorf("target %q: word size %d is not supported (expected 4 or 8)", t.Name, t.WordSize)
	}
}
