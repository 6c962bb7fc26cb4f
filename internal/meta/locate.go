package meta

import (
	"basalt/internal/decl"
	"basalt/internal/ir"
)

// Fixed positions relative to the address point. The value witness pointer
// precedes every address point; struct and enum records keep the parent
// reference two words past it.
const (
	valueWitnessSlot = -1
	valueParentSlot  = 2
)

// countingVisitor replays a scan counting one word per slot. Finders embed
// it, shadow the notification they match on, and offset() turns the mark
// into a signed word offset from the address point. State is scoped to one
// lookup and discarded.
type countingVisitor struct {
	op     string
	idx    int
	ap     int
	apSet  bool
	hit    int
	hitSet bool
}

func (v *countingVisitor) step() { v.idx++ }

func (v *countingVisitor) mark() {
	if v.hitSet {
		ice(v.op, "target matched twice")
	}
	v.hit = v.idx
	v.hitSet = true
}

func (v *countingVisitor) noteAddressPoint() {
	if v.apSet {
		ice(v.op, "address point noted twice")
	}
	v.ap = v.idx
	v.apSet = true
}

func (v *countingVisitor) offset() int {
	if !v.apSet {
		ice(v.op, "scan noted no address point")
	}
	if !v.hitSet {
		ice(v.op, "target slot not in the record")
	}
	return v.hit - v.ap
}

func (v *countingVisitor) addDestructor()        { v.step() }
func (v *countingVisitor) addValueWitnessTable() { v.step() }
func (v *countingVisitor) addFlags()             { v.step() }
func (v *countingVisitor) addTypeDescriptor()    { v.step() }
func (v *countingVisitor) addSuperclass()        { v.step() }
func (v *countingVisitor) addCacheSlot(int)      { v.step() }
func (v *countingVisitor) addClassData()         { v.step() }

func (v *countingVisitor) addParent(*decl.Nominal) { v.step() }

func (v *countingVisitor) addGenericArgument(*decl.Nominal, *decl.GenericParam) { v.step() }

func (v *countingVisitor) addGenericWitnessTable(*decl.Nominal, *decl.GenericParam, *decl.Nominal) {
	v.step()
}

func (v *countingVisitor) addFieldOffset(*decl.Nominal, *decl.Field) { v.step() }

func (v *countingVisitor) addMethod(*decl.Nominal, *decl.Method) { v.step() }

type fieldOffsetFinder struct {
	*countingVisitor
	field *decl.Field
}

func (v *fieldOffsetFinder) addFieldOffset(owner *decl.Nominal, f *decl.Field) {
	if f == v.field {
		v.mark()
	}
	v.step()
}

type methodFinder struct {
	*countingVisitor
	method *decl.Method
}

func (v *methodFinder) addMethod(owner *decl.Nominal, m *decl.Method) {
	if m == v.method {
		v.mark()
	}
	v.step()
}

type parentFinder struct {
	*countingVisitor
	owner *decl.Nominal
}

func (v *parentFinder) addParent(owner *decl.Nominal) {
	if owner == v.owner {
		v.mark()
	}
	v.step()
}

type argumentFinder struct {
	*countingVisitor
	param *decl.GenericParam
}

func (v *argumentFinder) addGenericArgument(owner *decl.Nominal, p *decl.GenericParam) {
	if p == v.param {
		v.mark()
	}
	v.step()
}

type witnessFinder struct {
	*countingVisitor
	param *decl.GenericParam
	proto *decl.Nominal
}

func (v *witnessFinder) addGenericWitnessTable(owner *decl.Nominal, p *decl.GenericParam, proto *decl.Nominal) {
	if p == v.param && proto == v.proto {
		v.mark()
	}
	v.step()
}

// addressPointOf computes a declaration's address point from the scan
// alone. Record references are derivable without emitting anything, so
// emission order between declarations never matters.
func (c *Context) addressPointOf(d *decl.Nominal) int {
	v := &countingVisitor{op: "locate"}
	scanner{overrides: c.overrides}.scan(d, v)
	if !v.apSet {
		ice("locate", "scan of %s noted no address point", d.QualifiedName())
	}
	return v.ap
}

func (c *Context) locate(d *decl.Nominal, v fieldVisitor, cv *countingVisitor) int {
	scanner{overrides: c.overrides}.scan(d, v)
	return cv.offset()
}

// FieldOffsetSlot returns the word offset of the metadata slot holding a
// stored field's byte offset. d is the class whose metadata the call site
// indexes; the field may be declared on d or any native ancestor, and the
// offset is identical in every descendant's record.
func (c *Context) FieldOffsetSlot(d *decl.Nominal, f *decl.Field) int {
	cv := &countingVisitor{op: "locate"}
	return c.locate(d, &fieldOffsetFinder{countingVisitor: cv, field: f}, cv)
}

// MethodSlot returns the vtable slot offset a virtual call on m indexes:
// the slot of the ancestor method m's chain resolves to, located in that
// method's declaring class and valid against every descendant's metadata.
func (c *Context) MethodSlot(m *decl.Method) int {
	s := c.overrides.SlotMethod(m)
	cv := &countingVisitor{op: "locate"}
	return c.locate(s.Class, &methodFinder{countingVisitor: cv, method: s}, cv)
}

// ParentSlot returns the offset of d's own parent reference. Value records
// keep it at a fixed position, so class hierarchies are the only scan.
func (c *Context) ParentSlot(d *decl.Nominal) int {
	switch d.Kind {
	case decl.KindStruct, decl.KindEnum:
		return valueParentSlot
	}
	cv := &countingVisitor{op: "locate"}
	return c.locate(d, &parentFinder{countingVisitor: cv, owner: d}, cv)
}

// GenericArgumentSlot returns the offset of a generic parameter's metadata
// slot inside d's records (equivalently, inside every instantiation of d's
// template).
func (c *Context) GenericArgumentSlot(d *decl.Nominal, p *decl.GenericParam) int {
	cv := &countingVisitor{op: "locate"}
	return c.locate(d, &argumentFinder{countingVisitor: cv, param: p}, cv)
}

// WitnessTableSlot returns the offset of the witness-table slot proving p's
// conformance to proto inside d's records.
func (c *Context) WitnessTableSlot(d *decl.Nominal, p *decl.GenericParam, proto *decl.Nominal) int {
	cv := &countingVisitor{op: "locate"}
	return c.locate(d, &witnessFinder{countingVisitor: cv, param: p, proto: proto}, cv)
}

func loadSlot(b *ir.FuncBuilder, metadata ir.Value, off int, ty string) ir.Value {
	return b.Load(ty, b.GEPWord(metadata, int64(off)))
}

// EmitLoadValueWitnesses loads the value witness table pointer of any
// metadata record.
func (c *Context) EmitLoadValueWitnesses(b *ir.FuncBuilder, metadata ir.Value) ir.Value {
	return loadSlot(b, metadata, valueWitnessSlot, "ptr")
}

// EmitLoadParent loads d's parent metadata reference out of a record.
func (c *Context) EmitLoadParent(b *ir.FuncBuilder, metadata ir.Value, d *decl.Nominal) ir.Value {
	return loadSlot(b, metadata, c.ParentSlot(d), "ptr")
}

// EmitLoadGenericArgument loads the metadata bound to a generic parameter
// out of an instantiated record.
func (c *Context) EmitLoadGenericArgument(b *ir.FuncBuilder, metadata ir.Value, d *decl.Nominal, p *decl.GenericParam) ir.Value {
	return loadSlot(b, metadata, c.GenericArgumentSlot(d, p), "ptr")
}

// EmitLoadWitnessTable loads the witness table bound for (parameter,
// protocol) out of an instantiated record.
func (c *Context) EmitLoadWitnessTable(b *ir.FuncBuilder, metadata ir.Value, d *decl.Nominal, p *decl.GenericParam, proto *decl.Nominal) ir.Value {
	return loadSlot(b, metadata, c.WitnessTableSlot(d, p, proto), "ptr")
}

// EmitLoadFieldOffset loads a stored field's dynamic byte offset out of a
// class record.
func (c *Context) EmitLoadFieldOffset(b *ir.FuncBuilder, metadata ir.Value, d *decl.Nominal, f *decl.Field) ir.Value {
	return loadSlot(b, metadata, c.FieldOffsetSlot(d, f), c.Module.WordType())
}

// EmitLoadMethod loads the code pointer a virtual call on m dispatches to.
func (c *Context) EmitLoadMethod(b *ir.FuncBuilder, metadata ir.Value, m *decl.Method) ir.Value {
	return loadSlot(b, metadata, c.MethodSlot(m), "ptr")
}
