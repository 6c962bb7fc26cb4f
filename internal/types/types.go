package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindOpaque is a primitive bit pattern with a fixed width and alignment.
	KindOpaque
	// KindNominal is a reference to a non-generic named declaration.
	KindNominal
	// KindBoundGeneric is a generic named declaration applied to arguments.
	KindBoundGeneric
	// KindTuple is a positional aggregate, optionally with element labels.
	KindTuple
	// KindFunc is a non-generic function type (input -> result).
	KindFunc
	// KindMetatype is the type of a type value.
	KindMetatype
	// KindArchetype is a generic parameter placeholder inside its context.
	KindArchetype
	// KindModule is the type of a module reference.
	KindModule
	// KindArray is a fixed-length homogeneous aggregate.
	KindArray
	// KindPolymorphic is a generic (uninstantiated) function type.
	KindPolymorphic
	// KindInOut is a storage-qualified parameter type.
	KindInOut
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindOpaque:
		return "opaque"
	case KindNominal:
		return "nominal"
	case KindBoundGeneric:
		return "bound-generic"
	case KindTuple:
		return "tuple"
	case KindFunc:
		return "func"
	case KindMetatype:
		return "metatype"
	case KindArchetype:
		return "archetype"
	case KindModule:
		return "module"
	case KindArray:
		return "array"
	case KindPolymorphic:
		return "polymorphic"
	case KindInOut:
		return "inout"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of opaque primitives in bits.
type Width uint16

const (
	Width1  Width = 1
	Width8  Width = 8
	Width16 Width = 16
	Width32 Width = 32
	Width64 Width = 64
)

// Type is a compact descriptor for any supported type. Compound kinds keep
// their data in interner side tables addressed by Payload.
type Type struct {
	Kind    Kind
	Elem    TypeID // instance type (metatype), element (array), referent (inout)
	Count   uint32 // array length; opaque alignment in bytes
	Width   Width  // opaque bit width
	Payload uint32 // side-table slot for nominal/bound/tuple/func/archetype/module
}

// Descriptor helpers ---------------------------------------------------------

// MakeOpaque describes a primitive bit pattern of the given width and byte
// alignment.
func MakeOpaque(width Width, align uint32) Type {
	return Type{Kind: KindOpaque, Width: width, Count: align}
}

// MakeMetatype describes the type of a type value for the given instance type.
func MakeMetatype(instance TypeID) Type {
	return Type{Kind: KindMetatype, Elem: instance}
}

// MakeArray describes a fixed-length array of element type.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeInOut describes a storage-qualified parameter type.
func MakeInOut(elem TypeID) Type {
	return Type{Kind: KindInOut, Elem: elem}
}
