package layout

import (
	"fmt"
	"strings"

	"basalt/internal/types"
)

// ErrorKind enumerates layout calculation failures.
type ErrorKind uint8

const (
	// ErrRecursiveUnsized indicates a recursive value type with no fixed size.
	ErrRecursiveUnsized ErrorKind = iota + 1
	// ErrNoRuntimeValue indicates a type that has no value representation at
	// runtime (modules, polymorphic function shapes).
	ErrNoRuntimeValue
	// ErrUnknownType indicates a TypeID the interner does not know.
	ErrUnknownType
	// ErrDependent indicates a layout that depends on unbound generic
	// arguments and is only known at instantiation time.
	ErrDependent
)

// IsDependent reports whether err marks a generic-argument-dependent layout.
func IsDependent(err error) bool {
	le, ok := err.(*Error)
	return ok && le != nil && le.Kind == ErrDependent
}

// Error represents a failure during memory layout calculation.
type Error struct {
	Kind  ErrorKind
	Type  types.TypeID
	Cycle []types.TypeID // for ErrRecursiveUnsized
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (type#%d)", e.Type)
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case ErrNoRuntimeValue:
		return fmt.Sprintf("type has no runtime value representation (type#%d)", e.Type)
	case ErrUnknownType:
		return fmt.Sprintf("unknown type (type#%d)", e.Type)
	case ErrDependent:
		return fmt.Sprintf("layout depends on generic arguments (type#%d)", e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}
