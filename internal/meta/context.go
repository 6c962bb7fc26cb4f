// Package meta synthesizes runtime type metadata: constant descriptor
// records for non-generic declarations, instantiation templates with
// generated fill procedures for generic ones, vtable slot resolution for
// class hierarchies, and use-site emission of metadata pointers for
// arbitrary type expressions.
//
// One scanner defines the field order of every record kind. The builders
// consume it to append constants and the locator consumes it to count
// positions; generated code reads records by computed word offset, so the
// two sides agreeing on the order is the contract everything else rests on.
package meta

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"basalt/internal/decl"
	"basalt/internal/interop"
	"basalt/internal/ir"
	"basalt/internal/layout"
	"basalt/internal/types"
)

// Context owns metadata emission for one module. Records and templates are
// memoized by declaration identity; concurrent requests for one declaration
// converge on a single emission. The context serializes all module writes,
// so EnsureMetadata may be called from parallel workers.
type Context struct {
	Types  *types.Interner
	Layout *layout.Engine
	Bridge *interop.Bridge
	Module *ir.Module

	overrides *Overrides

	mu        sync.Mutex
	flight    singleflight.Group
	emitted   map[*decl.Nominal]*Emitted
	failed    map[*decl.Nominal]error
	intMeta   map[int]string
	accessors map[types.TypeID]string
}

// Emitted is the durable result of one declaration's emission.
type Emitted struct {
	Decl *decl.Nominal

	// Symbol names the record global, or the template global for generic
	// declarations.
	Symbol string

	// AddressPoint is the word index readers treat as offset zero: absolute
	// within the global for records, payload-relative for templates.
	AddressPoint int

	// Words is the emitted payload's word count. Template payloads include
	// their dependent-table reservation.
	Words int

	// Template is set for generic declarations.
	Template *Template
}

// NewContext creates an emission context writing into mod.
func NewContext(mod *ir.Module, eng *layout.Engine, bridge *interop.Bridge) *Context {
	return &Context{
		Types:     eng.Types,
		Layout:    eng,
		Bridge:    bridge,
		Module:    mod,
		overrides: NewOverrides(eng),
		emitted:   make(map[*decl.Nominal]*Emitted),
		failed:    make(map[*decl.Nominal]error),
		intMeta:   make(map[int]string),
		accessors: make(map[types.TypeID]string),
	}
}

// EnsureMetadata emits the record or template for a declaration, or returns
// the already-emitted result. Failures are memoized too: a declaration that
// could not be emitted reports the same error at every request site.
func (c *Context) EnsureMetadata(d *decl.Nominal) (*Emitted, error) {
	if d == nil {
		ice("emit", "nil declaration")
	}
	if d.ForeignClass {
		ice("emit", "foreign class %s has no native record", d.QualifiedName())
	}
	if d.InGenericContext() {
		return nil, &UnsupportedError{Shape: ShapeGenericNesting, Decl: d.QualifiedName()}
	}

	v, err, _ := c.flight.Do(fmt.Sprintf("%p", d), func() (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.emitted[d]; ok {
			return e, nil
		}
		if err, ok := c.failed[d]; ok {
			return nil, err
		}
		e, err := c.emit(d)
		if err != nil {
			c.failed[d] = err
			return nil, err
		}
		c.emitted[d] = e
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Emitted), nil
}

func (c *Context) emit(d *decl.Nominal) (*Emitted, error) {
	if d.IsGeneric() {
		return c.emitTemplate(d)
	}
	return c.emitRecord(d)
}

// emitRecord assembles and defines the constant record of a non-generic
// declaration.
func (c *Context) emitRecord(d *decl.Nominal) (*Emitted, error) {
	b := c.newBuilder(d, nil)
	scanner{overrides: c.overrides}.scan(d, b)
	rec, err := b.finish()
	if err != nil {
		return nil, err
	}

	sym := RecordSymbol(d)
	c.define(&ir.Global{
		Name: sym,
		// Class records stay writable: the legacy runtime realizes them in
		// place at load time.
		Const: d.Kind != decl.KindClass,
		Init:  ir.Aggregate(rec.Words()...),
		Align: c.Module.Target.WordSize,
	})

	ap := rec.AddressPoint()
	if d.Kind == decl.KindClass {
		c.defineSlotOffsets(d)
		if c.Bridge.Enabled() {
			c.Module.RegisterClass(ir.SymbolWordOffset(sym, int64(ap)))
		}
	}
	return &Emitted{Decl: d, Symbol: sym, AddressPoint: ap, Words: rec.Len()}, nil
}

// define installs a global; a duplicate means the memoization above it is
// broken.
func (c *Context) define(g *ir.Global) {
	if err := c.Module.DefineGlobal(g); err != nil {
		ice("emit", "%v", err)
	}
}

// defineSlotOffsets emits one constant global per fresh vtable slot the
// class declares, holding the slot's word offset from the address point.
// Call sites dispatch through these without reconstructing the scan. A
// subclass record extends its superclass's slot layout, so the offset is
// valid against any descendant's metadata too.
func (c *Context) defineSlotOffsets(d *decl.Nominal) {
	for _, m := range d.Methods {
		if m.Static || !c.overrides.FreshSlot(m) {
			continue
		}
		c.define(&ir.Global{
			Name:  SlotOffsetSymbol(m),
			Const: true,
			Init:  ir.WordConst(int64(c.MethodSlot(m))),
			Align: c.Module.Target.WordSize,
		})
	}
}

// recordRef returns the address-point-adjusted constant reference to a
// non-generic declaration's record. The symbol and address point derive
// from the declaration alone, so referencing never forces emission and
// emission order between declarations does not matter.
func (c *Context) recordRef(d *decl.Nominal) ir.Const {
	sym := RecordSymbol(d)
	c.Module.ExternGlobal(sym, "ptr")
	return ir.SymbolWordOffset(sym, int64(c.addressPointOf(d)))
}

// constantClassRef resolves a superclass slot: the class object for foreign
// classes, the record reference for emittable native classes, and null when
// only the runtime can produce the metadata (generic ancestry).
func (c *Context) constantClassRef(d *decl.Nominal) ir.Const {
	if d.ForeignClass {
		sym := c.Bridge.ClassObjectSymbol(d)
		c.Module.ExternGlobal(sym, "ptr")
		return ir.Symbol(sym)
	}
	if d.IsGeneric() || d.InGenericContext() {
		// No constant record exists; the runtime binds the reference when
		// it realizes the class.
		return ir.Null()
	}
	return c.recordRef(d)
}

// intMetadataRef returns the address-point-adjusted reference to the shared
// metadata record for a fixed-width integer, synthesizing the record on
// first use. bits must already be validated by the caller.
func (c *Context) intMetadataRef(bits, bytes int) ir.Const {
	sym, ok := c.intMeta[bits]
	if !ok {
		sym = intMetadataSymbol(bits)
		vwt := layout.PodWitnessSymbol(bytes, bytes)
		c.Module.ExternGlobal(vwt, "ptr")
		c.define(&ir.Global{
			Name:  sym,
			Const: true,
			Init:  ir.Aggregate(ir.Symbol(vwt), ir.WordConst(kindOpaque)),
			Align: c.Module.Target.WordSize,
		})
		c.intMeta[bits] = sym
	}
	return ir.SymbolWordOffset(sym, 1)
}

// EmitTypeAccessor emits (once per type) a niladic function returning the
// metadata pointer for a context-free type expression, and returns its
// symbol. Unsupported shapes are reported before anything is emitted.
func (c *Context) EmitTypeAccessor(id types.TypeID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sym, ok := c.accessors[id]; ok {
		return sym, nil
	}
	if err := c.checkSupported(id); err != nil {
		return "", err
	}

	sym := AccessorSymbol(types.Label(c.Types, id))
	fb := c.Module.NewFunc(sym, ir.FuncSig{Ret: "ptr"}, true)
	r := c.NewRefs(fb)
	v, err := r.Metadata(id)
	if err != nil {
		ice("accessor", "unchecked shape for %s: %v", types.Label(c.Types, id), err)
	}
	fb.Ret(v)
	c.accessors[id] = sym
	return sym, nil
}

// checkSupported walks a type expression and reports the unsupported shapes
// Metadata would diagnose, without emitting anything. Accessors are
// context-free, so an archetype anywhere is a caller bug.
func (c *Context) checkSupported(id types.TypeID) error {
	tt, ok := c.Types.Lookup(id)
	if !ok {
		ice("accessor", "unknown type #%d", id)
	}
	switch tt.Kind {
	case types.KindOpaque:
		return nil
	case types.KindNominal:
		if info, ok := c.Types.NominalInfo(id); ok {
			if d, ok := info.Decl.(*decl.Nominal); ok && d.InGenericContext() {
				return &UnsupportedError{Shape: ShapeGenericNesting, Type: id, Decl: d.QualifiedName()}
			}
		}
		return nil
	case types.KindBoundGeneric:
		info, ok := c.Types.BoundGenericInfo(id)
		if !ok {
			return nil
		}
		if d, ok := info.Decl.(*decl.Nominal); ok && d.InGenericContext() {
			return &UnsupportedError{Shape: ShapeGenericNesting, Type: id, Decl: d.QualifiedName()}
		}
		for _, a := range info.Args {
			if err := c.checkSupported(a); err != nil {
				return err
			}
		}
		return nil
	case types.KindTuple:
		info, ok := c.Types.TupleInfo(id)
		if !ok {
			return nil
		}
		for _, e := range info.Elems {
			if err := c.checkSupported(e); err != nil {
				return err
			}
		}
		return nil
	case types.KindFunc:
		info, ok := c.Types.FuncInfo(id)
		if !ok {
			return nil
		}
		if err := c.checkSupported(info.Input); err != nil {
			return err
		}
		return c.checkSupported(info.Result)
	case types.KindMetatype:
		return c.checkSupported(tt.Elem)
	case types.KindArchetype:
		ice("accessor", "archetype in a context-free accessor")
		return nil
	case types.KindModule:
		return &UnsupportedError{Shape: ShapeModule, Type: id}
	case types.KindArray:
		return &UnsupportedError{Shape: ShapeArray, Type: id}
	case types.KindPolymorphic:
		return &UnsupportedError{Shape: ShapePolymorphicFunction, Type: id}
	case types.KindInOut:
		return &UnsupportedError{Shape: ShapeInOut, Type: id}
	default:
		ice("accessor", "no metadata for %s type", tt.Kind)
		return nil
	}
}
