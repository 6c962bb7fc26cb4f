// Package decl is the finalized declaration model handed to the metadata
// backend. Declarations arrive fully resolved: names bound, override edges
// established, generic parameters carrying their archetypes. The backend
// never mutates them.
package decl

import (
	"fmt"

	"basalt/internal/types"
)

// Kind enumerates nominal declaration kinds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindStruct
	KindEnum
	KindClass
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindClass:
		return "class"
	case KindProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Nominal is a finalized nominal type declaration. Identity is pointer
// identity; a declaration outlives the compilation run that emits it.
type Nominal struct {
	Name string
	Kind Kind

	// Parent is the lexically enclosing nominal, nil at module top level.
	Parent *Nominal

	// Generics holds the declaration's own generic parameters, nil when the
	// declaration is not generic.
	Generics *GenericParams

	// Superclass is the direct base class, classes only.
	Superclass *Nominal

	// ForeignClass marks a class imported from the legacy object model.
	// Foreign classes have no native metadata records and no vtable.
	ForeignClass bool

	Fields  []*Field
	Cases   []Case
	Methods []*Method

	// Type is the interned nominal (or generic-self) type, assigned when the
	// declaration is registered with an interner.
	Type types.TypeID
}

// TypeName implements types.DeclHandle.
func (n *Nominal) TypeName() string { return n.Name }

// QualifiedName joins the lexical nesting chain with dots.
func (n *Nominal) QualifiedName() string {
	if n.Parent == nil {
		return n.Name
	}
	return n.Parent.QualifiedName() + "." + n.Name
}

// IsGeneric reports whether the declaration has its own generic parameters.
func (n *Nominal) IsGeneric() bool { return n.Generics != nil && len(n.Generics.Params) > 0 }

// InGenericContext reports whether any lexical ancestor is generic. Such
// declarations cannot be emitted as plain records: their parent reference
// would depend on the ancestor's arguments.
func (n *Nominal) InGenericContext() bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.IsGeneric() {
			return true
		}
	}
	return false
}

// SuperchainRootFirst returns the class hierarchy from the root down to and
// including the receiver. Non-class declarations return just themselves.
func (n *Nominal) SuperchainRootFirst() []*Nominal {
	if n.Superclass == nil {
		return []*Nominal{n}
	}
	return append(n.Superclass.SuperchainRootFirst(), n)
}

// MethodNamed returns the first method with the given name, nil when absent.
func (n *Nominal) MethodNamed(name string) *Method {
	for _, m := range n.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Register interns the declaration's nominal type (or, for a generic
// declaration, its self type applied to its own archetypes) and stores it on
// the declaration. Registering twice is idempotent.
func (n *Nominal) Register(in *types.Interner) types.TypeID {
	if n.Type != types.NoTypeID {
		return n.Type
	}
	if n.IsGeneric() {
		n.Type = in.RegisterBoundGeneric(n, n.Generics.Archetypes())
	} else {
		n.Type = in.RegisterNominal(n)
	}
	return n.Type
}
