package decl

import "basalt/internal/types"

// Field is a stored property (structs, classes) or payload storage slot.
type Field struct {
	Name string
	Type types.TypeID
}

// Case is an enum case; Payload is NoTypeID for cases without one.
type Case struct {
	Name    string
	Payload types.TypeID
}

// Method is a finalized function member of a class or protocol.
type Method struct {
	Name string

	// Class is the declaring nominal.
	Class *Nominal

	// Type is the curried method type: receiver level applied first, then
	// the formal parameter level, yielding the result.
	Type types.TypeID

	// Overrides points at the directly overridden method in a superclass,
	// nil when the method introduces itself.
	Overrides *Method

	// Static methods dispatch on the metatype and never occupy vtable slots.
	Static bool
}

// FullName is the method name qualified by its declaring type, for symbols
// and messages.
func (m *Method) FullName() string {
	if m.Class == nil {
		return m.Name
	}
	return m.Class.QualifiedName() + "." + m.Name
}

// Root walks the override chain to the method that first introduced this
// entry point.
func (m *Method) Root() *Method {
	cur := m
	for cur.Overrides != nil {
		cur = cur.Overrides
	}
	return cur
}
