package meta

import (
	"fmt"

	"basalt/internal/decl"
	"basalt/internal/ir"
)

// Record kind discriminators, mirroring the runtime's metadata kind values.
// Class metadata stores a metaclass pointer in the kind slot when legacy
// interop is enabled; pointer values never collide with these small tags.
const (
	kindClass         = 0
	kindStruct        = 1
	kindEnum          = 2
	kindOpaque        = 8
	kindTuple         = 9
	kindFunction      = 10
	kindProtocol      = 12
	kindMetatype      = 13
	kindLegacyWrapper = 14
)

// fieldRole tags one logical field of a metadata record.
type fieldRole uint8

const (
	roleDestructor fieldRole = iota + 1
	roleValueWitnesses
	roleFlags
	roleTypeDescriptor
	roleSuperclass
	roleCache
	roleClassData
	roleParent
	roleGenericArg
	roleGenericWitness
	roleFieldOffset
	roleMethod
	roleWitnessPattern
)

func (r fieldRole) String() string {
	switch r {
	case roleDestructor:
		return "destructor"
	case roleValueWitnesses:
		return "value-witness-table"
	case roleFlags:
		return "flags"
	case roleTypeDescriptor:
		return "type-descriptor"
	case roleSuperclass:
		return "superclass"
	case roleCache:
		return "cache"
	case roleClassData:
		return "class-data"
	case roleParent:
		return "parent"
	case roleGenericArg:
		return "generic-argument"
	case roleGenericWitness:
		return "generic-witness-table"
	case roleFieldOffset:
		return "field-offset"
	case roleMethod:
		return "method"
	case roleWitnessPattern:
		return "witness-pattern"
	default:
		return fmt.Sprintf("fieldRole(%d)", r)
	}
}

// recordField is one word of an assembled record with the identity that
// produced it.
type recordField struct {
	role fieldRole
	init ir.Const

	owner  *decl.Nominal
	field  *decl.Field
	param  *decl.GenericParam
	proto  *decl.Nominal
	method *decl.Method
}

// Record is the ordered constant-field list of one metadata record, plus
// the designated address point. Builders append in scan order; the locator
// recomputes positions from the same scan without ever touching a Record.
type Record struct {
	decl   *decl.Nominal
	fields []recordField
	ap     int
	apSet  bool
}

func newRecord(d *decl.Nominal) *Record {
	return &Record{decl: d, ap: -1}
}

// Decl returns the declaration the record describes.
func (r *Record) Decl() *decl.Nominal { return r.decl }

// append adds one field and returns its absolute word index.
func (r *Record) append(f recordField) int {
	r.fields = append(r.fields, f)
	return len(r.fields) - 1
}

// noteAddressPoint designates the next field as index zero for readers.
// Exactly one address point per record.
func (r *Record) noteAddressPoint() {
	if r.apSet {
		ice("record", "address point set twice for %s", r.decl.QualifiedName())
	}
	r.ap = len(r.fields)
	r.apSet = true
}

// AddressPoint is the absolute word index readers treat as offset zero.
func (r *Record) AddressPoint() int {
	if !r.apSet {
		ice("record", "no address point noted for %s", r.decl.QualifiedName())
	}
	return r.ap
}

// Len is the record length in words.
func (r *Record) Len() int { return len(r.fields) }

// Words returns the constant initializer of every field in order.
func (r *Record) Words() []ir.Const {
	out := make([]ir.Const, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.init
	}
	return out
}

// WordAt returns the constant at an address-point-relative word offset.
func (r *Record) WordAt(offset int) ir.Const {
	idx := r.AddressPoint() + offset
	if idx < 0 || idx >= len(r.fields) {
		ice("record", "offset %d outside record %s", offset, r.decl.QualifiedName())
	}
	return r.fields[idx].init
}
