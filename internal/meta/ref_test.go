package meta

import (
	"errors"
	"strings"
	"testing"

	"basalt/internal/decl"
	"basalt/internal/ir"
	"basalt/internal/types"
)

func TestOpaqueMetadataSharesOneRecord(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32

	r1 := w.ctx.NewRefs(w.newFunc(t, "f1"))
	r2 := w.ctx.NewRefs(w.newFunc(t, "f2"))
	v1, err := r1.Metadata(i32)
	if err != nil {
		t.Fatalf("Metadata(b32): %v", err)
	}
	v2, err := r2.Metadata(i32)
	if err != nil {
		t.Fatalf("Metadata(b32): %v", err)
	}
	if v1 != v2 {
		t.Errorf("resolvers disagree on the shared record: %q vs %q", v1.Name, v2.Name)
	}
	if want := "getelementptr inbounds (i64, ptr @basalt.meta.int32, i64 1)"; v1.Name != want {
		t.Errorf("reference = %q, want %q", v1.Name, want)
	}

	out := w.module.Render()
	if n := strings.Count(out, "@basalt.meta.int32 = constant"); n != 1 {
		t.Fatalf("int record defined %d times, want once:\n%s", n, out)
	}
	if !strings.Contains(out, "{ ptr @rt_vwt_pod_4_4, i64 8 }") {
		t.Errorf("int record body wrong:\n%s", out)
	}
}

func TestOpaqueRejectsUnrepresentableShapes(t *testing.T) {
	// The runtime only has integer records for byte-aligned power-of-two
	// widths; anything else reaching the resolver is a front-end bug.
	w := newWorld(t, false)
	odd := w.types.Intern(types.MakeOpaque(types.Width16, 3))
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	ie := recoverInternal(t, func() { r.Metadata(odd) })
	if ie == nil {
		t.Fatal("misaligned opaque shape resolved without aborting")
	}
}

func TestEmptyTupleMetadata(t *testing.T) {
	w := newWorld(t, false)
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	v, err := r.Metadata(w.types.Builtins().Unit)
	if err != nil {
		t.Fatalf("Metadata(unit): %v", err)
	}
	if want := "getelementptr inbounds (i64, ptr @rt_tuple_empty, i64 1)"; v.Name != want {
		t.Errorf("unit reference = %q, want %q", v.Name, want)
	}
	if !strings.Contains(w.module.Render(), "@rt_tuple_empty = external global ptr") {
		t.Error("runtime's empty tuple record never declared")
	}
}

func TestTupleMetadataCachedPerResolver(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32
	pair := w.types.RegisterTuple([]types.TypeID{i32, i32}, nil)
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	v1, err := r.Metadata(pair)
	if err != nil {
		t.Fatalf("Metadata(pair): %v", err)
	}
	v2, err := r.Metadata(pair)
	if err != nil {
		t.Fatalf("Metadata(pair) again: %v", err)
	}
	if v1 != v2 {
		t.Errorf("same type resolved to different values: %q vs %q", v1.Name, v2.Name)
	}
	out := w.module.Render()
	if n := strings.Count(out, "call ptr @rt_tuple_metadata2"); n != 1 {
		t.Fatalf("pair built %d times within one function, want once:\n%s", n, out)
	}
	// Fully unlabeled tuples pass a null label string.
	if !strings.Contains(out, ", ptr null, ptr null)") {
		t.Errorf("unlabeled pair should pass null labels:\n%s", out)
	}
}

func TestTupleLabelsRideAlong(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32
	labeled := w.types.RegisterTuple([]types.TypeID{i32, i32}, []string{"x", "y"})
	plain := w.types.RegisterTuple([]types.TypeID{i32, i32}, nil)
	if labeled == plain {
		t.Fatal("labels must participate in tuple identity")
	}

	r := w.ctx.NewRefs(w.newFunc(t, "f"))
	if _, err := r.Metadata(labeled); err != nil {
		t.Fatalf("Metadata(labeled): %v", err)
	}

	out := w.module.Render()
	// "x y " with the terminator: every element contributes label + space.
	if !strings.Contains(out, `c"\78\20\79\20\00"`) {
		t.Errorf("label string not interned as expected:\n%s", out)
	}
	if !strings.Contains(out, "ptr @.str.0, ptr null)") {
		t.Errorf("label string not passed to the tuple builder:\n%s", out)
	}
}

func TestWideTupleMetadataUsesElementBuffer(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32
	wide := w.types.RegisterTuple([]types.TypeID{i32, i32, i32, i32}, nil)
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	if _, err := r.Metadata(wide); err != nil {
		t.Fatalf("Metadata(wide): %v", err)
	}
	out := w.module.Render()
	if !strings.Contains(out, "alloca [4 x ptr]") {
		t.Errorf("no element buffer allocated:\n%s", out)
	}
	if !strings.Contains(out, "call ptr @rt_tuple_metadata(i64 4, ptr %t") {
		t.Errorf("variadic tuple entry point not used:\n%s", out)
	}
}

func TestSingleLabeledTupleIsItsElement(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32
	single := w.types.RegisterTuple([]types.TypeID{i32}, []string{"only"})
	if single == i32 {
		t.Fatal("labeled single-element tuple should be a distinct type")
	}
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	v, err := r.Metadata(single)
	if err != nil {
		t.Fatalf("Metadata(single): %v", err)
	}
	elem, err := r.Metadata(i32)
	if err != nil {
		t.Fatalf("Metadata(b32): %v", err)
	}
	if v != elem {
		t.Errorf("labeled single = %q, element = %q; representations must match", v.Name, elem.Name)
	}
}

func TestNominalReferenceNeverForcesEmission(t *testing.T) {
	w := newWorld(t, false)
	point := w.structOf(t, "Point", &decl.Field{Name: "x", Type: w.types.Builtins().Int32})
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	v, err := r.Metadata(point.Type)
	if err != nil {
		t.Fatalf("Metadata(Point): %v", err)
	}
	if want := "getelementptr inbounds (i64, ptr @basalt.meta.Point, i64 1)"; v.Name != want {
		t.Errorf("reference = %q, want %q", v.Name, want)
	}
	if !strings.Contains(w.module.Render(), "@basalt.meta.Point = external global ptr") {
		t.Error("unemitted record should be declared external")
	}

	// Emitting afterwards supersedes the declaration.
	w.mustEmit(t, point)
	out := w.module.Render()
	if strings.Contains(out, "@basalt.meta.Point = external") {
		t.Error("extern declaration survived the definition")
	}
	if !strings.Contains(out, "@basalt.meta.Point = constant") {
		t.Error("record definition missing after emission")
	}
}

func TestBoundGenericPacksArgumentsThenWitnesses(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32
	i64 := w.types.Builtins().Int64
	printable := w.protocolOf(t, "Printable")
	pair := w.genericStructOf(t, "Pair", []*decl.GenericParam{
		{Name: "A"},
		{Name: "B", Constraints: []*decl.Nominal{printable}},
	})
	bound := w.types.RegisterBoundGeneric(pair, []types.TypeID{i32, i64})
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	v, err := r.Metadata(bound)
	if err != nil {
		t.Fatalf("Metadata(Pair<b32, b64>): %v", err)
	}
	if v.Type != "ptr" {
		t.Errorf("instantiation yields %s, want ptr", v.Type)
	}

	out := w.module.Render()
	if !strings.Contains(out, "alloca [3 x ptr]") {
		t.Fatalf("buffer should hold two arguments and one witness:\n%s", out)
	}
	arg0 := strings.Index(out, "store ptr getelementptr inbounds (i64, ptr @basalt.meta.int32, i64 1)")
	arg1 := strings.Index(out, "store ptr getelementptr inbounds (i64, ptr @basalt.meta.int64, i64 1)")
	wit := strings.Index(out, "store ptr @basalt.witness.b64.Printable")
	call := strings.Index(out, "call ptr @rt_generic_metadata(ptr @basalt.pattern.Pair, ptr %t")
	if arg0 < 0 || arg1 < 0 || wit < 0 || call < 0 {
		t.Fatalf("instantiation sequence incomplete:\n%s", out)
	}
	if !(arg0 < arg1 && arg1 < wit && wit < call) {
		t.Errorf("buffer packed out of order (stores at %d, %d, %d; call at %d)", arg0, arg1, wit, call)
	}

	// Referencing an instantiation must not emit the pattern itself.
	if !strings.Contains(out, "@basalt.pattern.Pair = external global ptr") {
		t.Error("pattern should be declared, not defined, by a reference")
	}

	if v2, err := r.Metadata(bound); err != nil || v2 != v {
		t.Errorf("instantiation not cached: %v %v", v2, err)
	}
	if n := strings.Count(w.module.Render(), "call ptr @rt_generic_metadata"); n != 1 {
		t.Errorf("runtime asked %d times for one type in one function", n)
	}
}

func TestArchetypeBindings(t *testing.T) {
	w := newWorld(t, false)
	printable := w.protocolOf(t, "Printable")
	box := w.genericStructOf(t, "Box", []*decl.GenericParam{
		{Name: "T", Constraints: []*decl.Nominal{printable}},
	})
	arche := box.Generics.Params[0].Archetype
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	if ie := recoverInternal(t, func() { r.Metadata(arche) }); ie == nil {
		t.Fatal("unbound archetype resolved without aborting")
	}
	if ie := recoverInternal(t, func() { r.WitnessTable(arche, printable) }); ie == nil {
		t.Fatal("unbound archetype witness resolved without aborting")
	}

	md := ir.Value{Name: "%arg.T", Type: "ptr"}
	wt := ir.Value{Name: "%arg.T.Printable", Type: "ptr"}
	r.BindArchetype(arche, md)
	r.BindWitnessTable(arche, printable, wt)
	if v, err := r.Metadata(arche); err != nil || v != md {
		t.Errorf("bound archetype = %v, %v; want the installed value", v, err)
	}
	if v := r.WitnessTable(arche, printable); v != wt {
		t.Errorf("bound witness = %v; want the installed value", v)
	}
}

func TestConformanceWitnessReference(t *testing.T) {
	w := newWorld(t, false)
	printable := w.protocolOf(t, "Printable")
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	v := r.WitnessTable(w.types.Builtins().Int32, printable)
	if v.Name != "@basalt.witness.b32.Printable" {
		t.Errorf("witness reference = %q", v.Name)
	}
	if !strings.Contains(w.module.Render(), "@basalt.witness.b32.Printable = external global ptr") {
		t.Error("conformance record should be declared external; the conformance emitter defines it")
	}
}

func TestUnsupportedTypeShapes(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32
	unit := w.types.Builtins().Unit
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	cases := []struct {
		name  string
		id    types.TypeID
		shape Shape
	}{
		{"module", w.types.RegisterModule("core"), ShapeModule},
		{"array", w.types.Intern(types.MakeArray(i32, 4)), ShapeArray},
		{"polymorphic", w.types.RegisterPolymorphic(unit, unit), ShapePolymorphicFunction},
		{"inout", w.types.Intern(types.MakeInOut(i32)), ShapeInOut},
	}
	for _, tc := range cases {
		_, err := r.Metadata(tc.id)
		var ue *UnsupportedError
		if !errors.As(err, &ue) {
			t.Errorf("%s: err = %v, want a known limitation", tc.name, err)
			continue
		}
		if ue.Shape != tc.shape || ue.Type != tc.id {
			t.Errorf("%s: got shape %v for type #%d, want %v for #%d",
				tc.name, ue.Shape, ue.Type, tc.shape, tc.id)
		}
	}
}

func TestFunctionAndMetatypeMetadata(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32
	fn := w.types.RegisterFunc(i32, i32)
	mt := w.types.Intern(types.MakeMetatype(i32))
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	if _, err := r.Metadata(fn); err != nil {
		t.Fatalf("Metadata(b32 -> b32): %v", err)
	}
	if _, err := r.Metadata(mt); err != nil {
		t.Fatalf("Metadata(b32.Type): %v", err)
	}
	out := w.module.Render()
	if !strings.Contains(out, "call ptr @rt_function_metadata(") {
		t.Error("function metadata never requested")
	}
	if !strings.Contains(out, "call ptr @rt_metatype_metadata(") {
		t.Error("metatype metadata never requested")
	}
}

func TestForeignClassMetadataWrapsClassObject(t *testing.T) {
	w := newWorld(t, true)
	legacy := w.foreignClass(t, "LegacyView")
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	v, err := r.Metadata(legacy.Type)
	if err != nil {
		t.Fatalf("Metadata(LegacyView): %v", err)
	}
	if v.Type != "ptr" {
		t.Errorf("wrapped metadata is %s, want ptr", v.Type)
	}
	if !strings.Contains(w.module.Render(), "call ptr @rt_legacy_class_metadata(ptr @basalt.class.LegacyView)") {
		t.Errorf("legacy wrap call missing:\n%s", w.module.Render())
	}
}

func TestObjectQueries(t *testing.T) {
	obj := ir.Value{Name: "%obj", Type: "ptr"}

	w := newWorld(t, false)
	r := w.ctx.NewRefs(w.newFunc(t, "f"))
	r.ObjectClass(obj)
	if !strings.Contains(w.module.Render(), "load ptr, ptr %obj") {
		t.Error("without the bridge the class is a header load")
	}

	wi := newWorld(t, true)
	ri := wi.ctx.NewRefs(wi.newFunc(t, "f"))
	ri.ObjectClass(obj)
	ri.ObjectType(obj)
	out := wi.module.Render()
	if !strings.Contains(out, "call ptr @rt_object_class(ptr %obj)") {
		t.Error("with the bridge the class query goes through the runtime")
	}
	if !strings.Contains(out, "call ptr @rt_object_type(ptr %obj)") {
		t.Error("dynamic type query missing")
	}
}

func TestClassFromMetatype(t *testing.T) {
	w := newWorld(t, false)
	r := w.ctx.NewRefs(w.newFunc(t, "f"))
	md := ir.Symbol("m").Operand(w.module)
	if v := r.ClassFromMetatype(md); v != md {
		t.Errorf("without legacy wrappers the metatype is the class object, got %v", v)
	}

	wi := newWorld(t, true)
	fb := wi.newFunc(t, "f")
	ri := wi.ctx.NewRefs(fb)
	v := ri.ClassFromMetatype(ir.Symbol("m").Operand(wi.module))
	if v.Type != "ptr" {
		t.Errorf("unwrapped class is %s, want ptr", v.Type)
	}
	fb.RetVoid()

	out := wi.module.Render()
	for _, want := range []string{
		"load i64, ptr @m",
		"icmp eq i64",
		"br i1 ",
		"wrapped:",
		"join:",
		"getelementptr inbounds i64, ptr @m, i64 1",
		"phi ptr [ @m, %entry ], [ %t",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSelectorRefStatic(t *testing.T) {
	w := newWorld(t, true)
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	v := r.SelectorRef("draw")
	r.SelectorRef("draw")
	if v.Type != "ptr" {
		t.Errorf("selector handle is %s, want ptr", v.Type)
	}
	out := w.module.Render()
	if n := strings.Count(out, "@basalt.selref.draw = internal global ptr @.str.0"); n != 1 {
		t.Fatalf("selector reference defined %d times, want once:\n%s", n, out)
	}
	if !strings.Contains(out, "load ptr, ptr @basalt.selref.draw") {
		t.Error("selector handle should load through the rewritable reference")
	}
}

func TestSelectorRefDynamic(t *testing.T) {
	w := newWorld(t, true)
	w.ctx.Bridge.SetDynamicSelectors(true)
	r := w.ctx.NewRefs(w.newFunc(t, "f"))

	r.SelectorRef("draw")
	out := w.module.Render()
	if !strings.Contains(out, "call ptr @rt_register_selector(ptr @.str.0)") {
		t.Errorf("dynamic selector should register at first use:\n%s", out)
	}
	if strings.Contains(out, "@basalt.selref.") {
		t.Error("dynamic targets have no selector-reference data")
	}
}

func TestSelectorRefRequiresBridge(t *testing.T) {
	w := newWorld(t, false)
	r := w.ctx.NewRefs(w.newFunc(t, "f"))
	if ie := recoverInternal(t, func() { r.SelectorRef("draw") }); ie == nil {
		t.Fatal("selector reference without interop did not abort")
	}
}

func TestEmitTypeAccessor(t *testing.T) {
	w := newWorld(t, false)
	i32 := w.types.Builtins().Int32

	sym, err := w.ctx.EmitTypeAccessor(i32)
	if err != nil {
		t.Fatalf("EmitTypeAccessor(b32): %v", err)
	}
	if sym != "basalt.typemeta.b32" {
		t.Errorf("accessor symbol = %q", sym)
	}
	again, err := w.ctx.EmitTypeAccessor(i32)
	if err != nil || again != sym {
		t.Fatalf("repeat emission: %q, %v", again, err)
	}

	out := w.module.Render()
	if n := strings.Count(out, "define internal ptr @basalt.typemeta.b32()"); n != 1 {
		t.Fatalf("accessor defined %d times, want once:\n%s", n, out)
	}
	if !strings.Contains(out, "ret ptr getelementptr inbounds (i64, ptr @basalt.meta.int32, i64 1)") {
		t.Errorf("accessor should return the shared record reference:\n%s", out)
	}
}

func TestEmitTypeAccessorChecksBeforeEmitting(t *testing.T) {
	w := newWorld(t, false)
	arr := w.types.Intern(types.MakeArray(w.types.Builtins().Int32, 4))

	sym, err := w.ctx.EmitTypeAccessor(arr)
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.Shape != ShapeArray {
		t.Fatalf("err = %v, want the array limitation", err)
	}
	if sym != "" {
		t.Errorf("failed accessor still returned symbol %q", sym)
	}
	if strings.Contains(w.module.Render(), "basalt.typemeta") {
		t.Error("nothing may be emitted for a rejected accessor")
	}
}

func TestEmitTypeAccessorRejectsArchetypes(t *testing.T) {
	w := newWorld(t, false)
	box := w.genericStructOf(t, "Box", []*decl.GenericParam{{Name: "T"}})
	arche := box.Generics.Params[0].Archetype

	ie := recoverInternal(t, func() { w.ctx.EmitTypeAccessor(arche) })
	if ie == nil {
		t.Fatal("archetype accessor did not abort; accessors are context-free")
	}
}
