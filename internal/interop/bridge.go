// Package interop names the pieces of the legacy object-model runtime that
// class metadata links against: class and metaclass objects, dispatch cache
// sentinels, selector references, and the load-time class list.
package interop

import (
	"strings"

	"basalt/internal/decl"
)

// Runtime-owned sentinel objects.
const (
	// RootClassSymbol is the class object every native root class adopts as
	// its superclass when the bridge is enabled.
	RootClassSymbol = "rt_class_root"
	// EmptyCacheSymbol primes a fresh class's method cache slot.
	EmptyCacheSymbol = "rt_empty_cache"
	// EmptyVTableSymbol primes a fresh class's legacy vtable slot.
	EmptyVTableSymbol = "rt_empty_vtable"
)

// Bridge answers interop questions for one emission target.
type Bridge struct {
	enabled bool
	dynamic bool
}

// New returns a bridge; when disabled, classes keep null superclass roots
// and skip registration.
func New(enabled bool) *Bridge {
	return &Bridge{enabled: enabled}
}

// Enabled reports whether the legacy object model is present at runtime.
func (b *Bridge) Enabled() bool { return b.enabled }

// SetDynamicSelectors switches selector references from load-time data the
// legacy linker rewrites to registration calls at first use, for targets
// without a static legacy image.
func (b *Bridge) SetDynamicSelectors(on bool) { b.dynamic = on }

// DynamicSelectors reports whether selector names must be registered with
// the runtime instead of referenced statically.
func (b *Bridge) DynamicSelectors() bool { return b.enabled && b.dynamic }

// HasNativeMetadata reports whether the class is described by records this
// compiler emits. Foreign classes live entirely in the legacy runtime.
func (b *Bridge) HasNativeMetadata(d *decl.Nominal) bool {
	return d != nil && !d.ForeignClass
}

// ClassObjectSymbol names the legacy class object of a foreign class.
func (b *Bridge) ClassObjectSymbol(d *decl.Nominal) string {
	return "basalt.class." + symbolPart(d.QualifiedName())
}

// MetaclassSymbol names the metaclass object backing a native class's
// metadata flags word.
func (b *Bridge) MetaclassSymbol(d *decl.Nominal) string {
	return "basalt.metaclass." + symbolPart(d.QualifiedName())
}

// RodataSymbol names the read-only class description blob whose tagged
// address sits in the class-data slot.
func (b *Bridge) RodataSymbol(d *decl.Nominal) string {
	return "basalt.rodata." + symbolPart(d.QualifiedName())
}

// SelectorSymbol names the selector-reference global for a method name.
func (b *Bridge) SelectorSymbol(name string) string {
	return "basalt.selref." + symbolPart(name)
}

// symbolPart rewrites a source name into symbol-safe characters.
func symbolPart(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			sb.WriteRune(r)
		case r == ':':
			sb.WriteByte('_')
		default:
			sb.WriteByte('$')
		}
	}
	return sb.String()
}
