package meta

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"basalt/internal/decl"
	"basalt/internal/types"
)

func TestEnsureMetadataConcurrent(t *testing.T) {
	w := newWorld(t, false)
	point := w.structOf(t, "Point", &decl.Field{Name: "x", Type: w.types.Builtins().Int32})

	const n = 8
	got := make([]*Emitted, n)
	var g errgroup.Group
	for i := range got {
		i := i
		g.Go(func() error {
			e, err := w.ctx.EnsureMetadata(point)
			got[i] = e
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent emission failed: %v", err)
	}
	for i, e := range got {
		if e != got[0] {
			t.Fatalf("request %d got a different emission: %p vs %p", i, e, got[0])
		}
	}
	if n := strings.Count(w.module.Render(), "@basalt.meta.Point = "); n != 1 {
		t.Fatalf("record defined %d times under contention, want once", n)
	}
}

func TestConcurrentRecordsAndAccessors(t *testing.T) {
	// Records and accessors share the module; interleaved requests must
	// serialize their writes and still emit each artifact once.
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32
	point := w.structOf(t, "Point", &decl.Field{Name: "x", Type: i32})

	var g errgroup.Group
	for iter := 0; iter < 4; iter++ {
		g.Go(func() error {
			_, err := w.ctx.EnsureMetadata(point)
			return err
		})
		g.Go(func() error {
			_, err := w.ctx.EmitTypeAccessor(i32)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("mixed emission failed: %v", err)
	}
	out := w.module.Render()
	if n := strings.Count(out, "@basalt.meta.Point = "); n != 1 {
		t.Errorf("record defined %d times, want once", n)
	}
	if n := strings.Count(out, "define internal ptr @basalt.typemeta.b32()"); n != 1 {
		t.Errorf("accessor defined %d times, want once", n)
	}
}

func TestForeignClassHasNoRecord(t *testing.T) {
	w := newWorld(t, true)
	legacy := w.foreignClass(t, "LegacyView")
	ie := recoverInternal(t, func() { w.ctx.EnsureMetadata(legacy) })
	if ie == nil {
		t.Fatal("emitting a foreign class did not abort; the legacy runtime owns it")
	}
}

func TestGenericNestingRejected(t *testing.T) {
	w := newWorld(t, false)
	outer := w.genericStructOf(t, "Outer", []*decl.GenericParam{{Name: "T"}})
	inner := &decl.Nominal{Name: "Inner", Kind: decl.KindStruct, Parent: outer}
	inner.Register(w.types)

	_, err := w.ctx.EnsureMetadata(inner)
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.Shape != ShapeGenericNesting {
		t.Fatalf("err = %v, want the generic-nesting limitation", err)
	}
	if ue.Decl != "Outer.Inner" {
		t.Errorf("limitation names %q, want the nested declaration", ue.Decl)
	}
}

func TestSlotOffsetGlobalsCoverFreshSlotsOnly(t *testing.T) {
	w := newWorld(t, false)
	i64 := w.types.Builtins().Int64
	unit := w.types.Builtins().Unit
	base := w.classOf(t, "Base", nil, &decl.Field{Name: "x", Type: i64})
	fb := w.methodOf(t, base, "f", nil, unit, unit)
	derived := w.classOf(t, "Derived", base, &decl.Field{Name: "y", Type: i64})
	w.methodOf(t, derived, "f", fb, unit, unit)
	w.methodOf(t, derived, "g", nil, unit, unit)

	w.mustEmit(t, base)
	w.mustEmit(t, derived)

	out := w.module.Render()
	if !strings.Contains(out, "@basalt.slot.Base.f = constant i64 7") {
		t.Errorf("introducing method has no slot offset:\n%s", out)
	}
	if !strings.Contains(out, "@basalt.slot.Derived.g = constant i64 10") {
		t.Errorf("derived-level method has no slot offset:\n%s", out)
	}
	// The compatible override dispatches through the base slot; publishing
	// a second offset for it would split call sites across two words.
	if strings.Contains(out, "@basalt.slot.Derived.f") {
		t.Error("override claimed its own slot offset")
	}
}

func TestRenderDeterministic(t *testing.T) {
	build := func() string {
		w := newWorld(t, true)
		i32 := w.types.Builtins().Int32
		i64 := w.types.Builtins().Int64
		unit := w.types.Builtins().Unit

		point := w.structOf(t, "Point",
			&decl.Field{Name: "x", Type: i32},
			&decl.Field{Name: "y", Type: i32},
		)
		base := w.classOf(t, "Base", nil, &decl.Field{Name: "x", Type: i64})
		fb := w.methodOf(t, base, "f", nil, unit, unit)
		derived := w.classOf(t, "Derived", base, &decl.Field{Name: "y", Type: i64})
		w.methodOf(t, derived, "f", fb, unit, unit)
		box := w.genericStructOf(t, "Box", []*decl.GenericParam{{Name: "T"}},
			&decl.Field{Name: "value"},
		)
		box.Fields[0].Type = box.Generics.Params[0].Archetype

		w.mustEmit(t, point)
		w.mustEmit(t, base)
		w.mustEmit(t, derived)
		w.mustEmit(t, box)
		if _, err := w.ctx.EmitTypeAccessor(i32); err != nil {
			t.Fatalf("accessor: %v", err)
		}
		r := w.ctx.NewRefs(w.newFunc(t, "user"))
		if _, err := r.Metadata(w.types.RegisterTuple([]types.TypeID{i32, i64}, nil)); err != nil {
			t.Fatalf("tuple ref: %v", err)
		}
		r.SelectorRef("draw")
		return w.module.Render()
	}

	first := build()
	second := build()
	if first != second {
		t.Fatal("identical build sequences rendered different modules")
	}
}
