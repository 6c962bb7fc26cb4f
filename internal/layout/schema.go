package layout

import (
	"basalt/internal/decl"
	"basalt/internal/types"
)

// ScalarClass classifies one exploded scalar.
type ScalarClass uint8

const (
	ScalarInteger ScalarClass = iota + 1
	ScalarPointer
)

// SchemaElem is one scalar of an exploded value.
type SchemaElem struct {
	Class ScalarClass
	Bits  uint32
}

// Schema is the calling-convention representation of a value: either a flat
// sequence of scalars, or a single address when the value must live in
// memory.
type Schema struct {
	Elems  []SchemaElem
	Memory bool
}

// maxDirectResultScalars bounds how many scalars a function result may
// occupy before it is returned through memory.
const maxDirectResultScalars = 4

// EqualRepresentation reports whether two schemas describe the same physical
// representation: both in memory, or scalar-for-scalar identical.
func (s Schema) EqualRepresentation(o Schema) bool {
	if s.Memory != o.Memory {
		return false
	}
	if s.Memory {
		return true
	}
	if len(s.Elems) != len(o.Elems) {
		return false
	}
	for i := range s.Elems {
		if s.Elems[i] != o.Elems[i] {
			return false
		}
	}
	return true
}

func memorySchema() Schema { return Schema{Memory: true} }

// SchemaOf computes the explosion schema of a type.
func (e *Engine) SchemaOf(id types.TypeID) (Schema, error) {
	return e.schemaOf(id, make(map[types.TypeID]bool, 8))
}

// RequiresIndirectResult reports whether a function returning the type must
// do so through a caller-provided address.
func (e *Engine) RequiresIndirectResult(id types.TypeID) (bool, error) {
	s, err := e.SchemaOf(id)
	if err != nil {
		return false, err
	}
	return s.Memory || len(s.Elems) > maxDirectResultScalars, nil
}

func (e *Engine) schemaOf(id types.TypeID, active map[types.TypeID]bool) (Schema, error) {
	if active[id] {
		return Schema{}, &Error{Kind: ErrRecursiveUnsized, Type: id}
	}
	active[id] = true
	defer delete(active, id)

	tt, ok := e.Types.Lookup(id)
	if !ok {
		return Schema{}, &Error{Kind: ErrUnknownType, Type: id}
	}
	word := uint32(e.wordSize() * 8)

	switch tt.Kind {
	case types.KindOpaque:
		return Schema{Elems: []SchemaElem{{Class: ScalarInteger, Bits: uint32(tt.Width)}}}, nil

	case types.KindNominal:
		info, _ := e.Types.NominalInfo(id)
		d, ok := info.Decl.(*decl.Nominal)
		if !ok {
			return Schema{}, &Error{Kind: ErrUnknownType, Type: id}
		}
		switch d.Kind {
		case decl.KindClass:
			return Schema{Elems: []SchemaElem{{Class: ScalarPointer, Bits: word}}}, nil
		case decl.KindProtocol:
			return memorySchema(), nil
		case decl.KindStruct:
			var elems []SchemaElem
			for _, f := range d.Fields {
				fs, err := e.schemaOf(f.Type, active)
				if err != nil {
					return Schema{}, err
				}
				if fs.Memory {
					return memorySchema(), nil
				}
				elems = append(elems, fs.Elems...)
			}
			return Schema{Elems: elems}, nil
		case decl.KindEnum:
			for _, c := range d.Cases {
				if c.Payload != types.NoTypeID {
					return memorySchema(), nil
				}
			}
			return Schema{Elems: []SchemaElem{{Class: ScalarInteger, Bits: 32}}}, nil
		default:
			return Schema{}, &Error{Kind: ErrUnknownType, Type: id}
		}

	case types.KindBoundGeneric:
		info, _ := e.Types.BoundGenericInfo(id)
		if d, ok := info.Decl.(*decl.Nominal); ok && d.Kind == decl.KindClass {
			return Schema{Elems: []SchemaElem{{Class: ScalarPointer, Bits: word}}}, nil
		}
		return memorySchema(), nil

	case types.KindTuple:
		info, ok := e.Types.TupleInfo(id)
		if !ok {
			return Schema{}, &Error{Kind: ErrUnknownType, Type: id}
		}
		var elems []SchemaElem
		for _, el := range info.Elems {
			es, err := e.schemaOf(el, active)
			if err != nil {
				return Schema{}, err
			}
			if es.Memory {
				return memorySchema(), nil
			}
			elems = append(elems, es.Elems...)
		}
		return Schema{Elems: elems}, nil

	case types.KindFunc, types.KindPolymorphic:
		return Schema{Elems: []SchemaElem{
			{Class: ScalarPointer, Bits: word},
			{Class: ScalarPointer, Bits: word},
		}}, nil

	case types.KindMetatype:
		if e.MetatypeIsThin(id) {
			return Schema{}, nil
		}
		return Schema{Elems: []SchemaElem{{Class: ScalarPointer, Bits: word}}}, nil

	case types.KindArchetype:
		return memorySchema(), nil

	case types.KindInOut:
		return Schema{Elems: []SchemaElem{{Class: ScalarPointer, Bits: word}}}, nil

	case types.KindArray:
		return memorySchema(), nil

	case types.KindModule:
		return Schema{}, &Error{Kind: ErrNoRuntimeValue, Type: id}

	default:
		return Schema{}, &Error{Kind: ErrUnknownType, Type: id}
	}
}
