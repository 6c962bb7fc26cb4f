package meta

import (
	"fmt"
	"strings"

	"basalt/internal/decl"
)

// Symbol naming scheme. Records and patterns are keyed by the qualified
// declaration name; the other families reference code or data owned by
// collaborating emitters.
const (
	recordPrefix  = "basalt.meta."
	patternPrefix = "basalt.pattern."
	fillPrefix    = "basalt.fill."
	slotPrefix    = "basalt.slot."
	methodPrefix  = "basalt.method."
	destroyPrefix = "basalt.destroy."
	witnessPrefix = "basalt.witness."
	accessPrefix  = "basalt.typemeta."
)

// RecordSymbol names the constant metadata record of a non-generic
// declaration.
func RecordSymbol(d *decl.Nominal) string {
	return recordPrefix + mangleIdent(d.QualifiedName())
}

// PatternSymbol names the metadata template of a generic declaration.
func PatternSymbol(d *decl.Nominal) string {
	return patternPrefix + mangleIdent(d.QualifiedName())
}

// FillSymbol names a template's generated fill procedure.
func FillSymbol(d *decl.Nominal) string {
	return fillPrefix + mangleIdent(d.QualifiedName())
}

// MethodSymbol names the emitted implementation of a method.
func MethodSymbol(m *decl.Method) string {
	return methodPrefix + mangleIdent(m.FullName())
}

// DestructorSymbol names a class's deallocating destructor.
func DestructorSymbol(d *decl.Nominal) string {
	return destroyPrefix + mangleIdent(d.QualifiedName())
}

// SlotOffsetSymbol names the global holding a fresh vtable slot's word
// offset from the address point, consumed by dispatch call sites.
func SlotOffsetSymbol(m *decl.Method) string {
	return slotPrefix + mangleIdent(m.FullName())
}

// ConformanceSymbol names the protocol witness table proving that the
// labeled type conforms to the protocol. The table itself is emitted by the
// conformance emitter.
func ConformanceSymbol(typeLabel string, proto *decl.Nominal) string {
	return witnessPrefix + mangleIdent(typeLabel) + "." + mangleIdent(proto.QualifiedName())
}

// AccessorSymbol names the generated metadata accessor for a type
// expression.
func AccessorSymbol(typeLabel string) string {
	return accessPrefix + mangleIdent(typeLabel)
}

func intMetadataSymbol(bits int) string {
	return fmt.Sprintf("%sint%d", recordPrefix, bits)
}

// mangleIdent keeps identifier characters and dots, and flattens anything
// else to an underscore so type labels survive as symbol fragments.
func mangleIdent(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
