package meta

import (
	"basalt/internal/decl"
	"basalt/internal/interop"
	"basalt/internal/ir"
	"basalt/internal/layout"
)

// codeRefSig is the declared shape of code symbols whose address a record
// takes (destructors, method implementations). Nothing in this module calls
// through the declaration; the code generator defines the real signature.
var codeRefSig = ir.FuncSig{Ret: "void", Params: []string{"ptr"}}

// classBuilder assembles class records: a heap header ahead of the address
// point, the legacy-interop header at it, then one section per hierarchy
// level. Method slots store the final overrider's code address; stored-field
// offsets stay zero until the post-link binding step, because they depend on
// the dynamic layout of the superclass.
type classBuilder struct {
	*recorder
	finals map[*decl.Method]*decl.Method
}

func (b *classBuilder) addDestructor() {
	sym := DestructorSymbol(b.d)
	b.ctx.Module.DeclareFunc(sym, codeRefSig)
	b.push(recordField{role: roleDestructor, init: ir.Symbol(sym)})
}

func (b *classBuilder) addValueWitnessTable() {
	sym := layout.ReferenceWitnesses
	if foreignRooted(b.d) {
		sym = layout.LegacyReferenceWitnesses
	}
	b.ctx.Module.ExternGlobal(sym, "ptr")
	b.push(recordField{role: roleValueWitnesses, init: ir.Symbol(sym)})
}

// addFlags stores the metaclass address when the legacy runtime is present:
// it reads this word as the record's isa. Small kind tags never collide
// with real pointers.
func (b *classBuilder) addFlags() {
	if b.ctx.Bridge.Enabled() {
		sym := b.ctx.Bridge.MetaclassSymbol(b.d)
		b.ctx.Module.ExternGlobal(sym, "ptr")
		b.push(recordField{role: roleFlags, init: ir.PtrToIntConst(sym, 0)})
		return
	}
	b.push(recordField{role: roleFlags, init: ir.WordConst(kindClass)})
}

func (b *classBuilder) addSuperclass() {
	sup := b.d.Superclass
	switch {
	case sup != nil:
		b.push(recordField{role: roleSuperclass, init: b.ctx.constantClassRef(sup)})
	case b.ctx.Bridge.Enabled():
		// Root classes adopt the runtime's root class object so legacy
		// message sends can climb past them.
		b.ctx.Module.ExternGlobal(interop.RootClassSymbol, "ptr")
		b.push(recordField{role: roleSuperclass, init: ir.Symbol(interop.RootClassSymbol)})
	default:
		b.push(recordField{role: roleSuperclass, init: ir.Null()})
	}
}

func (b *classBuilder) addCacheSlot(i int) {
	if !b.ctx.Bridge.Enabled() {
		b.push(recordField{role: roleCache, init: ir.Null()})
		return
	}
	var sym string
	switch i {
	case 0:
		sym = interop.EmptyCacheSymbol
	case 1:
		sym = interop.EmptyVTableSymbol
	default:
		ice("emit", "class %s has no cache slot %d", b.d.QualifiedName(), i)
	}
	b.ctx.Module.ExternGlobal(sym, "ptr")
	b.push(recordField{role: roleCache, init: ir.Symbol(sym)})
}

// addClassData stores the read-only class description with the low bit set,
// which marks a native class to the legacy runtime. Without the bridge only
// the marker bit remains.
func (b *classBuilder) addClassData() {
	if b.ctx.Bridge.Enabled() {
		sym := b.ctx.Bridge.RodataSymbol(b.d)
		b.ctx.Module.ExternGlobal(sym, "ptr")
		b.push(recordField{role: roleClassData, init: ir.PtrToIntConst(sym, 1)})
		return
	}
	b.push(recordField{role: roleClassData, init: ir.WordConst(1)})
}

func (b *classBuilder) addFieldOffset(owner *decl.Nominal, f *decl.Field) {
	idx := b.push(recordField{role: roleFieldOffset, init: ir.WordConst(0), owner: owner, field: f})
	if b.tmpl == nil {
		b.ctx.Module.AddFixup(ir.Fixup{
			Symbol: RecordSymbol(b.d),
			Word:   idx,
			Class:  owner.QualifiedName(),
			Field:  f.Name,
		})
	}
}

func (b *classBuilder) addMethod(owner *decl.Nominal, m *decl.Method) {
	fo, ok := b.finals[m]
	if !ok {
		ice("emit", "no final overrider for %s in %s", m.FullName(), b.d.QualifiedName())
	}
	sym := MethodSymbol(fo)
	b.ctx.Module.DeclareFunc(sym, codeRefSig)
	b.push(recordField{role: roleMethod, init: ir.Symbol(sym), owner: owner, method: m})
}

// foreignRooted reports whether any ancestor lives in the legacy object
// model; such hierarchies take the legacy reference witnesses.
func foreignRooted(d *decl.Nominal) bool {
	for c := d.Superclass; c != nil; c = c.Superclass {
		if c.ForeignClass {
			return true
		}
	}
	return false
}
