package meta

import (
	"fmt"
	"strings"

	"basalt/internal/decl"
	"basalt/internal/ir"
	"basalt/internal/types"
)

// emptyTupleSymbol is the runtime's exported record for the empty tuple.
const emptyTupleSymbol = "rt_tuple_empty"

// Refs emits metadata-pointer values for type expressions into one
// function. Results are cached per instance, so a type referenced twice in
// a function resolves once. Archetype bindings are installed by the caller
// before emission reaches the archetype.
//
// An instance serves one function builder on one goroutine, and raw use
// must not overlap the context's parallel emission phase: both write the
// same module.
type Refs struct {
	ctx       *Context
	b         *ir.FuncBuilder
	cache     map[types.TypeID]ir.Value
	witnesses map[witnessKey]ir.Value
}

type witnessKey struct {
	id    types.TypeID
	proto *decl.Nominal
}

// NewRefs creates a resolver emitting into b.
func (c *Context) NewRefs(b *ir.FuncBuilder) *Refs {
	return &Refs{
		ctx:       c,
		b:         b,
		cache:     make(map[types.TypeID]ir.Value),
		witnesses: make(map[witnessKey]ir.Value),
	}
}

// BindArchetype installs the metadata value standing in for a generic
// parameter in the current function.
func (r *Refs) BindArchetype(id types.TypeID, metadata ir.Value) {
	r.cache[id] = metadata
}

// BindWitnessTable installs the witness table proving an archetype's
// conformance to proto in the current function.
func (r *Refs) BindWitnessTable(id types.TypeID, proto *decl.Nominal, table ir.Value) {
	r.witnesses[witnessKey{id: id, proto: proto}] = table
}

// Metadata emits a value producing the metadata pointer for a type
// expression. Known-unsupported shapes return *UnsupportedError; malformed
// inputs are internal contract violations.
func (r *Refs) Metadata(id types.TypeID) (ir.Value, error) {
	if v, ok := r.cache[id]; ok {
		return v, nil
	}
	v, err := r.metadata(id)
	if err != nil {
		return ir.Value{}, err
	}
	r.cache[id] = v
	return v, nil
}

func (r *Refs) metadata(id types.TypeID) (ir.Value, error) {
	tt, ok := r.ctx.Types.Lookup(id)
	if !ok {
		ice("ref", "unknown type #%d", id)
	}
	switch tt.Kind {
	case types.KindOpaque:
		return r.opaque(tt), nil
	case types.KindNominal:
		return r.nominal(id)
	case types.KindBoundGeneric:
		return r.boundGeneric(id)
	case types.KindTuple:
		return r.tuple(id)
	case types.KindFunc:
		return r.function(id)
	case types.KindMetatype:
		inst, err := r.Metadata(tt.Elem)
		if err != nil {
			return ir.Value{}, err
		}
		return r.b.CallRuntime(ir.RTMetatypeMetadata, inst), nil
	case types.KindArchetype:
		// Bound archetypes were served from the cache above.
		ice("ref", "unbound archetype %s", types.Label(r.ctx.Types, id))
		return ir.Value{}, nil
	case types.KindModule:
		return ir.Value{}, &UnsupportedError{Shape: ShapeModule, Type: id}
	case types.KindArray:
		return ir.Value{}, &UnsupportedError{Shape: ShapeArray, Type: id}
	case types.KindPolymorphic:
		return ir.Value{}, &UnsupportedError{Shape: ShapePolymorphicFunction, Type: id}
	case types.KindInOut:
		return ir.Value{}, &UnsupportedError{Shape: ShapeInOut, Type: id}
	default:
		ice("ref", "no metadata for %s type", tt.Kind)
		return ir.Value{}, nil
	}
}

// opaque resolves a primitive bit pattern to the shared fixed-width integer
// record for its width. Only byte-aligned power-of-two shapes exist at
// runtime.
func (r *Refs) opaque(tt types.Type) ir.Value {
	bits := int(tt.Width)
	bytes := bits / 8
	if bits%8 != 0 {
		bytes++
	}
	align := int(tt.Count)
	if bytes != align || bytes&(bytes-1) != 0 {
		ice("ref", "opaque b%d has size %d align %d", bits, bytes, align)
	}
	return r.ctx.intMetadataRef(bits, bytes).Operand(r.ctx.Module)
}

func (r *Refs) nominal(id types.TypeID) (ir.Value, error) {
	info, ok := r.ctx.Types.NominalInfo(id)
	if !ok {
		ice("ref", "nominal type #%d has no declaration", id)
	}
	d, ok := info.Decl.(*decl.Nominal)
	if !ok {
		ice("ref", "unrecognized declaration handle %T", info.Decl)
	}
	if d.InGenericContext() {
		return ir.Value{}, &UnsupportedError{Shape: ShapeGenericNesting, Type: id, Decl: d.QualifiedName()}
	}
	if d.IsGeneric() {
		ice("ref", "generic %s referenced without arguments", d.QualifiedName())
	}
	if d.ForeignClass {
		// No native record exists; ask the legacy runtime to wrap the
		// class object.
		sym := r.ctx.Bridge.ClassObjectSymbol(d)
		r.ctx.Module.ExternGlobal(sym, "ptr")
		return r.b.CallRuntime(ir.RTLegacyClassMetadata, ir.Symbol(sym).Operand(r.ctx.Module)), nil
	}
	return r.ctx.recordRef(d).Operand(r.ctx.Module), nil
}

// boundGeneric instantiates a generic declaration: pack one word per
// argument and then one per witness table into a stack buffer, in the same
// two-phase order the template recorded its fill operations, and hand
// buffer and pattern to the runtime.
func (r *Refs) boundGeneric(id types.TypeID) (ir.Value, error) {
	info, ok := r.ctx.Types.BoundGenericInfo(id)
	if !ok {
		ice("ref", "bound generic type #%d has no declaration", id)
	}
	d, ok := info.Decl.(*decl.Nominal)
	if !ok {
		ice("ref", "unrecognized declaration handle %T", info.Decl)
	}
	if d.ForeignClass {
		ice("ref", "foreign class %s cannot be generic", d.QualifiedName())
	}
	if !d.IsGeneric() {
		ice("ref", "non-generic %s bound to arguments", d.QualifiedName())
	}
	if d.InGenericContext() {
		return ir.Value{}, &UnsupportedError{Shape: ShapeGenericNesting, Type: id, Decl: d.QualifiedName()}
	}
	params := d.Generics.Params
	if len(info.Args) != len(params) {
		ice("ref", "%s bound to %d of %d arguments", d.QualifiedName(), len(info.Args), len(params))
	}

	m := r.ctx.Module
	pattern := PatternSymbol(d)
	m.ExternGlobal(pattern, "ptr")

	words := len(info.Args) + d.Generics.WitnessCount()
	arrayTy := fmt.Sprintf("[%d x ptr]", words)
	buf := r.b.Alloca(arrayTy)
	slot := 0
	for _, a := range info.Args {
		mv, err := r.Metadata(a)
		if err != nil {
			return ir.Value{}, err
		}
		r.b.Store(mv, r.b.GEPIndex(arrayTy, buf, int64(slot)))
		slot++
	}
	for i, a := range info.Args {
		for _, proto := range params[i].Constraints {
			r.b.Store(r.WitnessTable(a, proto), r.b.GEPIndex(arrayTy, buf, int64(slot)))
			slot++
		}
	}
	return r.b.CallRuntime(ir.RTGenericMetadata, ir.Symbol(pattern).Operand(m), buf), nil
}

// WitnessTable emits the witness table proving id's conformance to proto:
// the installed binding for archetypes, the linked conformance record
// otherwise.
func (r *Refs) WitnessTable(id types.TypeID, proto *decl.Nominal) ir.Value {
	key := witnessKey{id: id, proto: proto}
	if v, ok := r.witnesses[key]; ok {
		return v
	}
	if r.ctx.Types.Kind(id) == types.KindArchetype {
		ice("ref", "unbound witness table for %s: %s",
			types.Label(r.ctx.Types, id), proto.QualifiedName())
	}
	sym := ConformanceSymbol(types.Label(r.ctx.Types, id), proto)
	r.ctx.Module.ExternGlobal(sym, "ptr")
	v := ir.Symbol(sym).Operand(r.ctx.Module)
	r.witnesses[key] = v
	return v
}

func (r *Refs) tuple(id types.TypeID) (ir.Value, error) {
	info, ok := r.ctx.Types.TupleInfo(id)
	if !ok {
		ice("ref", "tuple type #%d has no element list", id)
	}
	m := r.ctx.Module
	switch len(info.Elems) {
	case 0:
		m.ExternGlobal(emptyTupleSymbol, "ptr")
		return ir.SymbolWordOffset(emptyTupleSymbol, 1).Operand(m), nil
	case 1:
		// Labels do not change the representation; a labeled single
		// element is the element at runtime.
		return r.Metadata(info.Elems[0])
	case 2:
		m0, err := r.Metadata(info.Elems[0])
		if err != nil {
			return ir.Value{}, err
		}
		m1, err := r.Metadata(info.Elems[1])
		if err != nil {
			return ir.Value{}, err
		}
		return r.b.CallRuntime(ir.RTTupleMetadata2, m0, m1, r.tupleLabels(info), ir.Null().Operand(m)), nil
	case 3:
		m0, err := r.Metadata(info.Elems[0])
		if err != nil {
			return ir.Value{}, err
		}
		m1, err := r.Metadata(info.Elems[1])
		if err != nil {
			return ir.Value{}, err
		}
		m2, err := r.Metadata(info.Elems[2])
		if err != nil {
			return ir.Value{}, err
		}
		return r.b.CallRuntime(ir.RTTupleMetadata3, m0, m1, m2, r.tupleLabels(info), ir.Null().Operand(m)), nil
	default:
		arrayTy := fmt.Sprintf("[%d x ptr]", len(info.Elems))
		buf := r.b.Alloca(arrayTy)
		for i, e := range info.Elems {
			mv, err := r.Metadata(e)
			if err != nil {
				return ir.Value{}, err
			}
			r.b.Store(mv, r.b.GEPIndex(arrayTy, buf, int64(i)))
		}
		count := ir.WordConst(int64(len(info.Elems))).Operand(m)
		return r.b.CallRuntime(ir.RTTupleMetadata, count, buf, r.tupleLabels(info), ir.Null().Operand(m)), nil
	}
}

// tupleLabels interns the label string: every element contributes its label
// and one space, labeled or not. Fully unlabeled tuples pass null.
func (r *Refs) tupleLabels(info *types.TupleInfo) ir.Value {
	if !info.HasLabels() {
		return ir.Null().Operand(r.ctx.Module)
	}
	var sb strings.Builder
	for _, l := range info.Labels {
		sb.WriteString(l)
		sb.WriteByte(' ')
	}
	sym := r.ctx.Module.InternCString(sb.String())
	return ir.Symbol(sym).Operand(r.ctx.Module)
}

func (r *Refs) function(id types.TypeID) (ir.Value, error) {
	info, ok := r.ctx.Types.FuncInfo(id)
	if !ok {
		ice("ref", "function type #%d has no signature", id)
	}
	in, err := r.Metadata(info.Input)
	if err != nil {
		return ir.Value{}, err
	}
	out, err := r.Metadata(info.Result)
	if err != nil {
		return ir.Value{}, err
	}
	return r.b.CallRuntime(ir.RTFunctionMetadata, in, out), nil
}

// ObjectClass emits the class metadata of a live object: a header load
// when every class is native, a runtime call when legacy instances may
// appear.
func (r *Refs) ObjectClass(obj ir.Value) ir.Value {
	if r.ctx.Bridge.Enabled() {
		return r.b.CallRuntime(ir.RTObjectClass, obj)
	}
	return r.b.Load("ptr", obj)
}

// ObjectType emits the dynamic type metadata of a live object, unwrapping
// legacy instances.
func (r *Refs) ObjectType(obj ir.Value) ir.Value {
	return r.b.CallRuntime(ir.RTObjectType, obj)
}

// ClassFromMetatype turns a metatype value into a class object the legacy
// runtime accepts. Wrapper records for legacy classes store the wrapped
// class object one word past the address point; native class metadata is
// its own class object.
func (r *Refs) ClassFromMetatype(meta ir.Value) ir.Value {
	if !r.ctx.Bridge.Enabled() {
		return meta
	}
	b := r.b
	m := r.ctx.Module
	kind := b.Load(m.WordType(), meta)
	isWrapper := b.ICmpEq(kind, ir.WordConst(kindLegacyWrapper).Operand(m))
	orig := b.CurrentBlock()
	wrapped := b.NewBlock("wrapped")
	join := b.NewBlock("join")
	b.CondBr(isWrapper, wrapped, join)
	b.StartBlock(wrapped)
	inner := b.Load("ptr", b.GEPWord(meta, 1))
	b.Br(join)
	b.StartBlock(join)
	return b.Phi("ptr",
		ir.PhiIncoming{Value: meta, From: orig},
		ir.PhiIncoming{Value: inner, From: wrapped})
}

// SelectorRef emits the canonical selector handle for a method name. With
// a static legacy image the handle loads from a selector-reference global
// the legacy linker rewrites; dynamic targets register the name at first
// use instead.
func (r *Refs) SelectorRef(name string) ir.Value {
	if !r.ctx.Bridge.Enabled() {
		ice("ref", "selector reference without legacy interop")
	}
	m := r.ctx.Module
	cstr := m.InternCString(name)
	if r.ctx.Bridge.DynamicSelectors() {
		return r.b.CallRuntime(ir.RTRegisterSelector, ir.Symbol(cstr).Operand(m))
	}
	sym := r.ctx.Bridge.SelectorSymbol(name)
	if !m.HasGlobal(sym) {
		r.ctx.define(&ir.Global{
			Name:    sym,
			Linkage: "internal",
			Init:    ir.Symbol(cstr),
			Align:   m.Target.WordSize,
		})
	}
	return r.b.Load("ptr", ir.Symbol(sym).Operand(m))
}
