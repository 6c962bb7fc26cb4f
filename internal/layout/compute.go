package layout

import (
	"fortio.org/safecast"

	"basalt/internal/decl"
	"basalt/internal/types"
)

// existentialBufferWords is the inline value buffer of an existential
// container, in words. The container is the buffer, the type metadata
// pointer, and one witness table per conformance.
const existentialBufferWords = 3

func (e *Engine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *Error) {
	if id == types.NoTypeID {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
	}
	typesIn := e.Types
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
	}

	switch tt.Kind {
	case types.KindOpaque:
		return opaqueLayout(tt), nil

	case types.KindNominal:
		info, ok := typesIn.NominalInfo(id)
		if !ok {
			return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
		}
		return e.nominalLayout(id, info.Decl, state)

	case types.KindBoundGeneric:
		info, ok := typesIn.BoundGenericInfo(id)
		if !ok {
			return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
		}
		if d, ok := info.Decl.(*decl.Nominal); ok && d.Kind == decl.KindClass {
			return e.ptrLayout(), nil
		}
		// Value-typed generic content has no fixed layout until instantiated.
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrDependent, Type: id}

	case types.KindTuple:
		return e.tupleLayout(id, state)

	case types.KindFunc, types.KindPolymorphic:
		// Thick function: code pointer plus context.
		l := e.ptrLayout()
		return TypeLayout{Size: 2 * l.Size, Align: l.Align}, nil

	case types.KindMetatype:
		if e.MetatypeIsThin(id) {
			return TypeLayout{Size: 0, Align: 1}, nil
		}
		return e.ptrLayout(), nil

	case types.KindArchetype:
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrDependent, Type: id}

	case types.KindModule:
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrNoRuntimeValue, Type: id}

	case types.KindArray:
		return e.arrayLayout(tt.Elem, tt.Count, state)

	case types.KindInOut:
		return e.ptrLayout(), nil

	default:
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
	}
}

func (e *Engine) nominalLayout(id types.TypeID, handle types.DeclHandle, state *layoutState) (TypeLayout, *Error) {
	d, ok := handle.(*decl.Nominal)
	if !ok || d == nil {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
	}
	switch d.Kind {
	case decl.KindClass:
		return e.ptrLayout(), nil
	case decl.KindProtocol:
		return e.existentialLayout(1), nil
	case decl.KindStruct:
		return e.structLayout(d, state)
	case decl.KindEnum:
		return e.enumLayout(d, state)
	default:
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
	}
}

func (e *Engine) structLayout(d *decl.Nominal, state *layoutState) (TypeLayout, *Error) {
	offsets := make([]int, len(d.Fields))
	aligns := make([]int, len(d.Fields))
	size := 0
	align := 1
	for i, f := range d.Fields {
		fl, err := e.layoutOf(f.Type, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := maxInt(1, fl.Align)
		size = roundUp(size, fAlign)
		offsets[i] = size
		aligns[i] = fAlign
		size += fl.Size
		align = maxInt(align, fAlign)
	}
	size = roundUp(size, align)
	return TypeLayout{
		Size:         size,
		Align:        align,
		FieldOffsets: offsets,
		FieldAligns:  aligns,
	}, nil
}

// enumLayout lays an enum out as a u32 tag followed by the largest case
// payload, aligned for every payload.
func (e *Engine) enumLayout(d *decl.Nominal, state *layoutState) (TypeLayout, *Error) {
	maxPayloadSize := 0
	payloadAlign := 1
	for _, c := range d.Cases {
		if c.Payload == types.NoTypeID {
			continue
		}
		pl, err := e.layoutOf(c.Payload, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		maxPayloadSize = maxInt(maxPayloadSize, pl.Size)
		payloadAlign = maxInt(payloadAlign, pl.Align)
	}

	tagSize := 4
	tagAlign := 4
	if maxPayloadSize == 0 {
		return TypeLayout{
			Size:     tagSize,
			Align:    tagAlign,
			TagSize:  tagSize,
			TagAlign: tagAlign,
		}, nil
	}
	payloadOffset := roundUp(tagSize, payloadAlign)
	overallAlign := maxInt(tagAlign, payloadAlign)
	size := roundUp(payloadOffset+maxPayloadSize, overallAlign)
	return TypeLayout{
		Size:          size,
		Align:         overallAlign,
		TagSize:       tagSize,
		TagAlign:      tagAlign,
		PayloadOffset: payloadOffset,
	}, nil
}

func (e *Engine) tupleLayout(id types.TypeID, state *layoutState) (TypeLayout, *Error) {
	info, ok := e.Types.TupleInfo(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrUnknownType, Type: id}
	}
	size := 0
	align := 1
	for _, elem := range info.Elems {
		el, err := e.layoutOf(elem, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		a := maxInt(1, el.Align)
		size = roundUp(size, a)
		size += el.Size
		align = maxInt(align, a)
	}
	size = roundUp(size, align)
	return TypeLayout{Size: size, Align: align}, nil
}

func (e *Engine) arrayLayout(elem types.TypeID, length uint32, state *layoutState) (TypeLayout, *Error) {
	el, err := e.layoutOf(elem, state)
	if err != nil {
		return TypeLayout{Size: 0, Align: 1}, err
	}
	n, convErr := safecast.Conv[int](length)
	if convErr != nil || n < 0 {
		n = 0
	}
	return TypeLayout{
		Size:  el.Stride() * n,
		Align: maxInt(1, el.Align),
	}, nil
}

func (e *Engine) existentialLayout(conformances int) TypeLayout {
	word := e.wordSize()
	return TypeLayout{
		Size:  (existentialBufferWords + 1 + conformances) * word,
		Align: word,
	}
}

// MetatypeIsThin reports whether a metatype value carries no runtime payload.
// Class, archetype, and existential instance types need a real metadata
// pointer at runtime; everything else is statically known.
func (e *Engine) MetatypeIsThin(id types.TypeID) bool {
	tt, ok := e.Types.Lookup(id)
	if !ok || tt.Kind != types.KindMetatype {
		return false
	}
	inst, ok := e.Types.Lookup(tt.Elem)
	if !ok {
		return false
	}
	switch inst.Kind {
	case types.KindArchetype, types.KindMetatype:
		return false
	case types.KindNominal:
		info, ok := e.Types.NominalInfo(tt.Elem)
		if !ok {
			return false
		}
		if d, ok := info.Decl.(*decl.Nominal); ok {
			return d.Kind != decl.KindClass && d.Kind != decl.KindProtocol
		}
		return false
	case types.KindBoundGeneric:
		info, ok := e.Types.BoundGenericInfo(tt.Elem)
		if !ok {
			return false
		}
		if d, ok := info.Decl.(*decl.Nominal); ok {
			return d.Kind != decl.KindClass
		}
		return false
	default:
		return true
	}
}

func opaqueLayout(tt types.Type) TypeLayout {
	size := int(tt.Width) / 8
	if tt.Width%8 != 0 {
		size++
	}
	align := int(tt.Count)
	if align <= 0 {
		align = maxInt(1, size)
	}
	return TypeLayout{Size: size, Align: align}
}

func (e *Engine) wordSize() int {
	ws := e.Target.WordSize
	if ws <= 0 {
		ws = 8
	}
	return ws
}

func (e *Engine) ptrLayout() TypeLayout {
	word := e.wordSize()
	return TypeLayout{Size: word, Align: word}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
