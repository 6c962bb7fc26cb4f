package meta

import (
	"testing"

	"basalt/internal/decl"
	"basalt/internal/interop"
	"basalt/internal/ir"
	"basalt/internal/layout"
	"basalt/internal/target"
	"basalt/internal/types"
)

// world bundles the collaborators one emission context needs, built fresh
// per test so module state never leaks between cases.
type world struct {
	types  *types.Interner
	layout *layout.Engine
	module *ir.Module
	ctx    *Context
}

func newWorld(t *testing.T, withInterop bool) *world {
	t.Helper()
	tgt := target.Target{Name: "native64", WordSize: 8, Interop: withInterop}
	if err := tgt.Validate(); err != nil {
		t.Fatalf("test target invalid: %v", err)
	}
	in := types.NewInterner()
	eng := layout.New(tgt, in)
	mod := ir.NewModule("test", tgt)
	return &world{
		types:  in,
		layout: eng,
		module: mod,
		ctx:    NewContext(mod, eng, interop.New(withInterop)),
	}
}

func (w *world) structOf(t *testing.T, name string, fields ...*decl.Field) *decl.Nominal {
	t.Helper()
	d := &decl.Nominal{Name: name, Kind: decl.KindStruct, Fields: fields}
	d.Register(w.types)
	return d
}

func (w *world) enumOf(t *testing.T, name string, cases ...decl.Case) *decl.Nominal {
	t.Helper()
	d := &decl.Nominal{Name: name, Kind: decl.KindEnum, Cases: cases}
	d.Register(w.types)
	return d
}

func (w *world) protocolOf(t *testing.T, name string) *decl.Nominal {
	t.Helper()
	d := &decl.Nominal{Name: name, Kind: decl.KindProtocol}
	d.Register(w.types)
	return d
}

func (w *world) classOf(t *testing.T, name string, super *decl.Nominal, fields ...*decl.Field) *decl.Nominal {
	t.Helper()
	d := &decl.Nominal{Name: name, Kind: decl.KindClass, Superclass: super, Fields: fields}
	d.Register(w.types)
	return d
}

func (w *world) foreignClass(t *testing.T, name string) *decl.Nominal {
	t.Helper()
	d := &decl.Nominal{Name: name, Kind: decl.KindClass, ForeignClass: true}
	d.Register(w.types)
	return d
}

// genericStructOf binds archetypes for the parameters and registers the
// declaration's self type.
func (w *world) genericStructOf(t *testing.T, name string, params []*decl.GenericParam, fields ...*decl.Field) *decl.Nominal {
	t.Helper()
	d := &decl.Nominal{
		Name:     name,
		Kind:     decl.KindStruct,
		Generics: &decl.GenericParams{Params: params},
		Fields:   fields,
	}
	d.Generics.BindArchetypes(w.types, d)
	d.Register(w.types)
	return d
}

func (w *world) genericClassOf(t *testing.T, name string, params []*decl.GenericParam, fields ...*decl.Field) *decl.Nominal {
	t.Helper()
	d := &decl.Nominal{
		Name:     name,
		Kind:     decl.KindClass,
		Generics: &decl.GenericParams{Params: params},
		Fields:   fields,
	}
	d.Generics.BindArchetypes(w.types, d)
	d.Register(w.types)
	return d
}

// methodOf appends a method to c with the curried type receiver -> (params
// -> result) and returns it.
func (w *world) methodOf(t *testing.T, c *decl.Nominal, name string, over *decl.Method, params, result types.TypeID) *decl.Method {
	t.Helper()
	recv := c.Type
	if recv == types.NoTypeID {
		t.Fatalf("class %s not registered before adding methods", c.Name)
	}
	m := &decl.Method{
		Name:      name,
		Class:     c,
		Type:      w.types.RegisterFunc(recv, w.types.RegisterFunc(params, result)),
		Overrides: over,
	}
	c.Methods = append(c.Methods, m)
	return m
}

func (w *world) mustEmit(t *testing.T, d *decl.Nominal) *Emitted {
	t.Helper()
	e, err := w.ctx.EnsureMetadata(d)
	if err != nil {
		t.Fatalf("EnsureMetadata(%s): %v", d.QualifiedName(), err)
	}
	return e
}

// buildRecord runs the scan straight into a fresh builder, bypassing the
// memoized emission path, so tests can inspect the assembled fields.
// Generic declarations get a throwaway template overlay, the same mode the
// real emission gives them.
func (w *world) buildRecord(t *testing.T, d *decl.Nominal) *Record {
	t.Helper()
	var tl *templateLayout
	if d.IsGeneric() {
		tl = &templateLayout{}
	}
	b := w.ctx.newBuilder(d, tl)
	scanner{overrides: w.ctx.overrides}.scan(d, b)
	rec, err := b.finish()
	if err != nil {
		t.Fatalf("building record for %s: %v", d.QualifiedName(), err)
	}
	return rec
}

func (w *world) newFunc(t *testing.T, name string) *ir.FuncBuilder {
	t.Helper()
	return w.module.NewFunc(name, ir.FuncSig{Ret: "void"}, true)
}

// wordAt renders the record word at an address-point-relative offset.
func (w *world) wordAt(rec *Record, off int) string {
	return rec.WordAt(off).ValueString(w.module)
}

// recoverInternal runs fn and returns the InternalError it panicked with,
// nil when it returned normally. Other panic payloads propagate.
func recoverInternal(t *testing.T, fn func()) (ie *InternalError) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		got, ok := r.(*InternalError)
		if !ok {
			panic(r)
		}
		ie = got
	}()
	fn()
	return nil
}
