package meta

import (
	"basalt/internal/decl"
	"basalt/internal/ir"
)

// valueBuilder assembles struct and enum records. The value witness table
// comes constant-folded from the layout engine whenever the declaration's
// storage has a fixed shape; a dependent table is normal for templates and
// a diagnosed limitation for direct records, which have no fill procedure
// to defer to.
type valueBuilder struct {
	*recorder
}

func (b *valueBuilder) addFlags() {
	kind := int64(kindStruct)
	if b.d.Kind == decl.KindEnum {
		kind = kindEnum
	}
	b.push(recordField{role: roleFlags, init: ir.WordConst(kind)})
}

func (b *valueBuilder) addValueWitnessTable() {
	wt, err := b.ctx.Layout.WitnessTableFor(b.d.Type)
	if err != nil {
		b.fail(err)
		b.push(recordField{role: roleValueWitnesses, init: ir.Null()})
		return
	}
	if wt.Dependent {
		if b.tmpl == nil {
			b.fail(&UnsupportedError{
				Shape: ShapeDependentStorage,
				Type:  b.d.Type,
				Decl:  b.d.QualifiedName(),
			})
			b.push(recordField{role: roleValueWitnesses, init: ir.Null()})
			return
		}
		// The fill procedure points this slot at the tail-placed table.
		b.tmpl.dependentVWT = true
		b.push(recordField{role: roleValueWitnesses, init: ir.Null()})
		return
	}
	b.ctx.Module.ExternGlobal(wt.Symbol, "ptr")
	b.push(recordField{role: roleValueWitnesses, init: ir.Symbol(wt.Symbol)})
}
