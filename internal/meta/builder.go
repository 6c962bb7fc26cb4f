package meta

import (
	"basalt/internal/decl"
	"basalt/internal/ir"
)

// recordBuilder assembles a Record while the scanner replays a
// declaration's field order.
type recordBuilder interface {
	fieldVisitor
	finish() (*Record, error)
}

// newBuilder creates the kind-specific builder for a declaration. tmpl is
// nil for direct records; template emission passes the overlay that records
// fill operations and the dependent-witness decision.
func (c *Context) newBuilder(d *decl.Nominal, tmpl *templateLayout) recordBuilder {
	r := &recorder{ctx: c, d: d, rec: newRecord(d), tmpl: tmpl}
	switch d.Kind {
	case decl.KindStruct, decl.KindEnum:
		return &valueBuilder{recorder: r}
	case decl.KindClass:
		return &classBuilder{recorder: r, finals: c.overrides.FinalOverriders(d)}
	case decl.KindProtocol:
		return &protocolBuilder{recorder: r}
	default:
		ice("emit", "no metadata layout for %s %s", d.Kind, d.QualifiedName())
		return nil
	}
}

// recorder is the shared builder core: the record under construction, the
// optional template overlay, and a sticky error. Visitor methods cannot
// fail, so the first failure is held and every later slot still appends a
// placeholder, keeping positions aligned with the scan either way.
type recorder struct {
	ctx  *Context
	d    *decl.Nominal
	rec  *Record
	tmpl *templateLayout
	err  error
}

func (r *recorder) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *recorder) push(f recordField) int {
	return r.rec.append(f)
}

// pushGeneric appends a caller-filled slot, recording a fill operation when
// building a template. The operation is noted before the append so its
// destination is the slot's own payload index.
func (r *recorder) pushGeneric(f recordField) {
	if r.tmpl != nil {
		r.tmpl.note(r.rec.Len())
	}
	r.rec.append(f)
}

func (r *recorder) finish() (*Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.rec, nil
}

func (r *recorder) noteAddressPoint() {
	r.rec.noteAddressPoint()
}

func (r *recorder) addTypeDescriptor() {
	// Descriptors are not emitted yet; the slot is reserved.
	r.push(recordField{role: roleTypeDescriptor, init: ir.Null()})
}

func (r *recorder) addParent(owner *decl.Nominal) {
	// Nested parent references are bound by the runtime, not folded here.
	r.push(recordField{role: roleParent, init: ir.Null(), owner: owner})
}

func (r *recorder) addGenericArgument(owner *decl.Nominal, p *decl.GenericParam) {
	r.pushGeneric(recordField{role: roleGenericArg, init: ir.Null(), owner: owner, param: p})
}

func (r *recorder) addGenericWitnessTable(owner *decl.Nominal, p *decl.GenericParam, proto *decl.Nominal) {
	r.pushGeneric(recordField{role: roleGenericWitness, init: ir.Null(), owner: owner, param: p, proto: proto})
}

// The remaining slots are kind-specific; reaching a default means the
// scanner and the builder disagree about the declaration's kind.

func (r *recorder) addDestructor()          { r.badSlot(roleDestructor) }
func (r *recorder) addValueWitnessTable()   { r.badSlot(roleValueWitnesses) }
func (r *recorder) addFlags()               { r.badSlot(roleFlags) }
func (r *recorder) addSuperclass()          { r.badSlot(roleSuperclass) }
func (r *recorder) addCacheSlot(int)        { r.badSlot(roleCache) }
func (r *recorder) addClassData()           { r.badSlot(roleClassData) }
func (r *recorder) addFieldOffset(*decl.Nominal, *decl.Field) { r.badSlot(roleFieldOffset) }
func (r *recorder) addMethod(*decl.Nominal, *decl.Method)     { r.badSlot(roleMethod) }

func (r *recorder) badSlot(role fieldRole) {
	ice("emit", "%s slot in a %s record (%s)", role, r.d.Kind, r.d.QualifiedName())
}
