package meta

import (
	"basalt/internal/decl"
	"basalt/internal/layout"
	"basalt/internal/types"
)

// Methods are curried two levels deep: receiver, then formal parameters.
const methodCurryLevels = 2

// Overrides resolves virtual dispatch decisions for class hierarchies:
// which method introduces a fresh vtable slot, which slot an override lands
// in, and the final overrider stored in each slot. Not safe for concurrent
// use; the emission context serializes access to its instance.
type Overrides struct {
	layout *layout.Engine
	types  *types.Interner

	fresh map[*decl.Method]bool
	slot  map[*decl.Method]*decl.Method
}

// NewOverrides creates a resolver backed by the engine's representation
// queries.
func NewOverrides(eng *layout.Engine) *Overrides {
	return &Overrides{
		layout: eng,
		types:  eng.Types,
		fresh:  make(map[*decl.Method]bool),
		slot:   make(map[*decl.Method]*decl.Method),
	}
}

// FinalOverriders maps every method in d's hierarchy to the most-derived
// method occupying its slot. Each method defaults to itself; a recorded
// override redirects the overridden method's entry, and entries are
// resolved by chasing redirects, so the result does not depend on the order
// methods are visited in.
func (o *Overrides) FinalOverriders(d *decl.Nominal) map[*decl.Method]*decl.Method {
	redirect := make(map[*decl.Method]*decl.Method)
	for _, c := range d.SuperchainRootFirst() {
		for _, m := range c.Methods {
			if _, ok := redirect[m]; !ok {
				redirect[m] = m
			}
			if m.Overrides != nil {
				redirect[m.Overrides] = m
			}
		}
	}

	out := make(map[*decl.Method]*decl.Method, len(redirect))
	for m := range redirect {
		out[m] = chaseFinal(redirect, m)
	}
	return out
}

func chaseFinal(redirect map[*decl.Method]*decl.Method, m *decl.Method) *decl.Method {
	cur := m
	for n := 0; n < len(redirect); n++ {
		next, ok := redirect[cur]
		if !ok || next == cur {
			return cur
		}
		cur = next
	}
	ice("override", "cyclic override chain at %s", m.FullName())
	return nil
}

// FreshSlot reports whether m introduces its own vtable slot. A method that
// overrides nothing always does. An override walks its chain from the
// nearest ancestor outward: an ancestor without a native vtable entry
// forces a fresh slot, the first representation-compatible ancestor means
// reuse, and exhausting the chain means none was compatible.
func (o *Overrides) FreshSlot(m *decl.Method) bool {
	if m.Static {
		return false
	}
	if got, ok := o.fresh[m]; ok {
		return got
	}
	fresh := o.computeFreshSlot(m)
	o.fresh[m] = fresh
	return fresh
}

func (o *Overrides) computeFreshSlot(m *decl.Method) bool {
	if m.Overrides == nil {
		return true
	}
	for over := m.Overrides; over != nil; over = over.Overrides {
		if !hasNativeVTableEntry(over) {
			return true
		}
		if o.compatible(m, over) {
			return false
		}
	}
	return true
}

// SlotMethod resolves the method whose slot m occupies: the highest
// ancestor reachable through a chain of compatible overrides. Compatibility
// is transitive along accepted links, so the anchor moves up with each
// compatible ancestor found.
func (o *Overrides) SlotMethod(m *decl.Method) *decl.Method {
	if got, ok := o.slot[m]; ok {
		return got
	}
	anchor := m
	for cur := m.Overrides; cur != nil; cur = cur.Overrides {
		if !hasNativeVTableEntry(cur) {
			break
		}
		if o.compatible(anchor, cur) {
			anchor = cur
		}
	}
	o.slot[m] = anchor
	return anchor
}

func hasNativeVTableEntry(m *decl.Method) bool {
	return m.Class != nil && !m.Class.ForeignClass
}

// compatible reports whether derived can occupy base's slot: every curried
// parameter level pairwise compatible, and the results compatible under the
// convention the base's result representation selects.
func (o *Overrides) compatible(derived, base *decl.Method) bool {
	dt, bt := derived.Type, base.Type
	for level := 0; level < methodCurryLevels; level++ {
		if dt == bt {
			return true
		}
		di, ok := o.types.FuncInfo(dt)
		if !ok {
			ice("override", "method %s has non-function type", derived.FullName())
		}
		bi, ok := o.types.FuncInfo(bt)
		if !ok {
			ice("override", "method %s has non-function type", base.FullName())
		}
		if !o.compatibleType(di.Input, bi.Input) {
			return false
		}
		dt, bt = di.Result, bi.Result
	}
	return o.compatibleResult(dt, bt)
}

// compatibleType decides representation compatibility of one position.
// Identical types are compatible; class references subtype freely behind
// one pointer; tuples are compared position by position. Anything else,
// such as a changed scalar count or a non-class nominal identity change,
// forces a fresh slot.
func (o *Overrides) compatibleType(a, b types.TypeID) bool {
	if a == b {
		return true
	}
	if o.isClassRef(a) && o.isClassRef(b) {
		return true
	}
	ai, aok := o.types.TupleInfo(a)
	bi, bok := o.types.TupleInfo(b)
	if aok && bok {
		if len(ai.Elems) != len(bi.Elems) {
			return false
		}
		for i := range ai.Elems {
			if !o.compatibleType(ai.Elems[i], bi.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// compatibleResult additionally requires the two results to agree on
// direct-versus-indirect return. A representation query that fails resolves
// to a fresh slot rather than a guess.
func (o *Overrides) compatibleResult(a, b types.TypeID) bool {
	if a == b {
		return true
	}
	ai, err := o.layout.RequiresIndirectResult(a)
	if err != nil {
		return false
	}
	bi, err := o.layout.RequiresIndirectResult(b)
	if err != nil {
		return false
	}
	if ai != bi {
		return false
	}
	return o.compatibleType(a, b)
}

func (o *Overrides) isClassRef(id types.TypeID) bool {
	switch o.types.Kind(id) {
	case types.KindNominal:
		info, ok := o.types.NominalInfo(id)
		if !ok {
			return false
		}
		d, ok := info.Decl.(*decl.Nominal)
		return ok && d.Kind == decl.KindClass
	case types.KindBoundGeneric:
		info, ok := o.types.BoundGenericInfo(id)
		if !ok {
			return false
		}
		d, ok := info.Decl.(*decl.Nominal)
		return ok && d.Kind == decl.KindClass
	default:
		return false
	}
}
