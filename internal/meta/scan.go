package meta

import "basalt/internal/decl"

// fieldVisitor receives the ordered field notifications of one record scan.
// The scan is the single source of field order: builders consume it to
// append constants, the locator consumes it to count positions, and the two
// must never diverge. Generated code reads records by computed offset with
// no tag to check against at runtime.
type fieldVisitor interface {
	addDestructor()
	addValueWitnessTable()
	noteAddressPoint()
	addFlags()
	addTypeDescriptor()
	addSuperclass()
	addCacheSlot(i int)
	addClassData()
	addParent(owner *decl.Nominal)
	addGenericArgument(owner *decl.Nominal, p *decl.GenericParam)
	addGenericWitnessTable(owner *decl.Nominal, p *decl.GenericParam, proto *decl.Nominal)
	addFieldOffset(owner *decl.Nominal, f *decl.Field)
	addMethod(owner *decl.Nominal, m *decl.Method)
}

// scanner drives the per-kind field order. Vtable slot membership is part
// of the order, so class scans need the override table.
type scanner struct {
	overrides *Overrides
}

func (s scanner) scan(d *decl.Nominal, v fieldVisitor) {
	switch d.Kind {
	case decl.KindStruct, decl.KindEnum:
		s.scanValue(d, v)
	case decl.KindClass:
		s.scanClass(d, v)
	case decl.KindProtocol:
		s.scanProtocol(d, v)
	default:
		ice("scan", "no metadata layout for %s %s", d.Kind, d.QualifiedName())
	}
}

// scanValue lays out struct and enum records: the value witness table one
// word before the address point, the kind flags at it, then the descriptor
// and parent slots, then the generic section.
func (s scanner) scanValue(d *decl.Nominal, v fieldVisitor) {
	v.addValueWitnessTable()
	v.noteAddressPoint()
	v.addFlags()
	v.addTypeDescriptor()
	v.addParent(d)
	scanGenerics(d, v)
}

// scanClass lays out class records: the heap header (destructor, value
// witness table) before the address point, the interop header at and after
// it, then one section per hierarchy level from the root down. Foreign
// ancestors contribute no native fields; the legacy runtime owns their
// layout.
func (s scanner) scanClass(d *decl.Nominal, v fieldVisitor) {
	v.addDestructor()
	v.addValueWitnessTable()
	v.noteAddressPoint()
	v.addFlags()
	v.addSuperclass()
	v.addCacheSlot(0)
	v.addCacheSlot(1)
	v.addClassData()

	for _, c := range d.SuperchainRootFirst() {
		if c.ForeignClass {
			continue
		}
		v.addParent(c)
		scanGenerics(c, v)
		for _, f := range c.Fields {
			v.addFieldOffset(c, f)
		}
		for _, m := range c.Methods {
			if m.Static {
				continue
			}
			if s.overrides.FreshSlot(m) {
				v.addMethod(c, m)
			}
		}
	}
}

// scanProtocol lays out an existential descriptor: the boxed-existential
// witness table, then the flags at the address point. Protocols are never
// generic.
func (s scanner) scanProtocol(d *decl.Nominal, v fieldVisitor) {
	if d.IsGeneric() {
		ice("scan", "generic protocol %s", d.QualifiedName())
	}
	v.addValueWitnessTable()
	v.noteAddressPoint()
	v.addFlags()
}

// scanGenerics emits one level's generic section: every argument slot
// first, then every witness table slot. Instantiation buffers are packed in
// the same two-phase order, so fill operations line up by construction.
func scanGenerics(owner *decl.Nominal, v fieldVisitor) {
	if !owner.IsGeneric() {
		return
	}
	for _, p := range owner.Generics.Params {
		v.addGenericArgument(owner, p)
	}
	for _, p := range owner.Generics.Params {
		for _, proto := range p.Constraints {
			v.addGenericWitnessTable(owner, p, proto)
		}
	}
}
