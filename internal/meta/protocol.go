package meta

import (
	"basalt/internal/ir"
	"basalt/internal/layout"
)

// protocolBuilder assembles existential descriptors: the boxed-existential
// witness table and the kind word. Protocols are always emitted directly,
// never as templates.
type protocolBuilder struct {
	*recorder
}

func (b *protocolBuilder) addValueWitnessTable() {
	b.ctx.Module.ExternGlobal(layout.ExistentialWitnesses, "ptr")
	b.push(recordField{role: roleValueWitnesses, init: ir.Symbol(layout.ExistentialWitnesses)})
}

func (b *protocolBuilder) addFlags() {
	b.push(recordField{role: roleFlags, init: ir.WordConst(kindProtocol)})
}
