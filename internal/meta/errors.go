package meta

import (
	"fmt"

	"basalt/internal/types"
)

// InternalError is the payload of panics raised on violated invariants:
// a locator target that was never scanned, a dependent witness table on a
// class, a malformed override chain. These are compiler bugs, not bad input
// programs, and there is no safe recovery because downstream offset
// arithmetic would silently corrupt memory.
type InternalError struct {
	Op     string
	Detail string
}

func (e *InternalError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("metadata invariant violated in %s: %s", e.Op, e.Detail)
}

// ice aborts compilation with an internal contract error.
func ice(op, format string, args ...any) {
	panic(&InternalError{Op: op, Detail: fmt.Sprintf(format, args...)})
}

// Shape enumerates input shapes the metadata backend knowingly does not
// support. They are diagnosed, never silently mis-emitted, and kept distinct
// from invariant violations so they are not mistaken for correctness bugs.
type Shape uint8

const (
	// ShapePolymorphicFunction is a first-class generic function type.
	ShapePolymorphicFunction Shape = iota + 1
	// ShapeArray is a raw fixed-length array type.
	ShapeArray
	// ShapeModule is a module reference type.
	ShapeModule
	// ShapeInOut is a storage-qualified parameter type.
	ShapeInOut
	// ShapeGenericNesting is a declaration nested inside a generic context;
	// its parent reference would depend on the ancestor's arguments.
	ShapeGenericNesting
	// ShapeDependentStorage is a non-generic declaration whose stored layout
	// depends on generic arguments it does not bind, so its witness table
	// cannot be constant-folded and it has no fill procedure to defer to.
	ShapeDependentStorage
)

func (s Shape) String() string {
	switch s {
	case ShapePolymorphicFunction:
		return "first-class generic function type"
	case ShapeArray:
		return "raw array type"
	case ShapeModule:
		return "module type"
	case ShapeInOut:
		return "storage-qualified type"
	case ShapeGenericNesting:
		return "declaration nested in a generic context"
	case ShapeDependentStorage:
		return "non-generic declaration with instantiation-dependent storage"
	default:
		return fmt.Sprintf("Shape(%d)", s)
	}
}

// UnsupportedError reports a known compiler limitation for one input shape.
type UnsupportedError struct {
	Shape Shape
	// Type is the offending type expression, NoTypeID for declaration-level
	// shapes.
	Type types.TypeID
	// Decl is the qualified declaration name for declaration-level shapes.
	Decl string
}

func (e *UnsupportedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Decl != "":
		return fmt.Sprintf("unsupported: %s (%s)", e.Shape, e.Decl)
	case e.Type != types.NoTypeID:
		return fmt.Sprintf("unsupported: %s (type#%d)", e.Shape, e.Type)
	default:
		return fmt.Sprintf("unsupported: %s", e.Shape)
	}
}
