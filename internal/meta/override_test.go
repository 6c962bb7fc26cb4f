package meta

import (
	"testing"

	"basalt/internal/decl"
	"basalt/internal/types"
)

func TestFinalOverridersResolveWholeChain(t *testing.T) {
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit

	a := w.classOf(t, "A", nil)
	b := w.classOf(t, "B", a)
	c := w.classOf(t, "C", b)
	fa := w.methodOf(t, a, "f", nil, unit, unit)
	fb := w.methodOf(t, b, "f", fa, unit, unit)
	fc := w.methodOf(t, c, "f", fb, unit, unit)

	finals := w.ctx.overrides.FinalOverriders(c)
	for _, m := range []*decl.Method{fa, fb, fc} {
		if got := finals[m]; got != fc {
			t.Fatalf("final overrider of %s = %v, want C.f", m.FullName(), got)
		}
	}
}

func TestFinalOverridersIndependentOfMethodOrder(t *testing.T) {
	// Two chains interleaved, with the method lists of the middle and leaf
	// classes reversed relative to each other: the resolution must not
	// depend on which entry the walk happens to see first.
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit

	a := w.classOf(t, "A", nil)
	b := w.classOf(t, "B", a)
	c := w.classOf(t, "C", b)
	fa := w.methodOf(t, a, "f", nil, unit, unit)
	ga := w.methodOf(t, a, "g", nil, unit, unit)
	gb := w.methodOf(t, b, "g", ga, unit, unit)
	fb := w.methodOf(t, b, "f", fa, unit, unit)
	fc := w.methodOf(t, c, "f", fb, unit, unit)
	gc := w.methodOf(t, c, "g", gb, unit, unit)

	finals := w.ctx.overrides.FinalOverriders(c)
	want := map[*decl.Method]*decl.Method{
		fa: fc, fb: fc, fc: fc,
		ga: gc, gb: gc, gc: gc,
	}
	for m, fo := range want {
		if got := finals[m]; got != fo {
			t.Errorf("final overrider of %s = %s, want %s", m.FullName(), got.FullName(), fo.FullName())
		}
	}
}

func TestFinalOverridersMidChainView(t *testing.T) {
	// From B's standpoint, C does not exist: the chain resolves to B.
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit

	a := w.classOf(t, "A", nil)
	b := w.classOf(t, "B", a)
	c := w.classOf(t, "C", b)
	fa := w.methodOf(t, a, "f", nil, unit, unit)
	fb := w.methodOf(t, b, "f", fa, unit, unit)
	w.methodOf(t, c, "f", fb, unit, unit)

	finals := w.ctx.overrides.FinalOverriders(b)
	if finals[fa] != fb || finals[fb] != fb {
		t.Fatalf("B-level finals = %v, want both entries resolving to B.f", finals)
	}
}

func TestFreshSlotIntroducingMethod(t *testing.T) {
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit
	c := w.classOf(t, "C", nil)
	m := w.methodOf(t, c, "f", nil, unit, unit)

	if !w.ctx.overrides.FreshSlot(m) {
		t.Fatalf("method without an override chain must claim a fresh slot")
	}
	if got := w.ctx.overrides.SlotMethod(m); got != m {
		t.Fatalf("SlotMethod of an introducing method = %s, want itself", got.FullName())
	}
}

func TestFreshSlotStaticMethod(t *testing.T) {
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit
	c := w.classOf(t, "C", nil)
	m := w.methodOf(t, c, "make", nil, unit, unit)
	m.Static = true

	if w.ctx.overrides.FreshSlot(m) {
		t.Fatalf("static methods never occupy vtable slots")
	}
}

func TestFreshSlotIdenticalOverrideReusesSlot(t *testing.T) {
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit
	i32 := w.types.Builtins().Int32

	base := w.classOf(t, "Base", nil)
	derived := w.classOf(t, "Derived", base)
	mb := w.methodOf(t, base, "f", nil, i32, unit)
	md := w.methodOf(t, derived, "f", mb, i32, unit)

	if w.ctx.overrides.FreshSlot(md) {
		t.Fatalf("override with an unchanged signature must reuse the slot")
	}
	if got := w.ctx.overrides.SlotMethod(md); got != mb {
		t.Fatalf("SlotMethod = %s, want Base.f", got.FullName())
	}
}

func TestFreshSlotCovariantClassParameter(t *testing.T) {
	// Narrowing a class-typed parameter changes nothing at the
	// representation level: one pointer either way.
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit

	animal := w.classOf(t, "Animal", nil)
	dog := w.classOf(t, "Dog", animal)
	keeper := w.classOf(t, "Keeper", nil)
	dogKeeper := w.classOf(t, "DogKeeper", keeper)

	mb := w.methodOf(t, keeper, "feed", nil, animal.Type, unit)
	md := w.methodOf(t, dogKeeper, "feed", mb, dog.Type, unit)

	if w.ctx.overrides.FreshSlot(md) {
		t.Fatalf("class-typed parameter change must stay slot-compatible")
	}
	if got := w.ctx.overrides.SlotMethod(md); got != mb {
		t.Fatalf("SlotMethod = %s, want Keeper.feed", got.FullName())
	}
}

func TestFreshSlotTupleArityChange(t *testing.T) {
	// A substitution that changes the unpacked element count changes the
	// calling convention; the override needs its own slot.
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit
	i32 := w.types.Builtins().Int32
	two := w.types.RegisterTuple([]types.TypeID{i32, i32}, nil)
	three := w.types.RegisterTuple([]types.TypeID{i32, i32, i32}, nil)

	base := w.classOf(t, "Base", nil)
	derived := w.classOf(t, "Derived", base)
	mb := w.methodOf(t, base, "f", nil, unit, two)
	md := w.methodOf(t, derived, "f", mb, unit, three)

	if !w.ctx.overrides.FreshSlot(md) {
		t.Fatalf("tuple arity change must force a fresh slot")
	}
	if got := w.ctx.overrides.SlotMethod(md); got != md {
		t.Fatalf("SlotMethod = %s, want the override itself", got.FullName())
	}
}

func TestFreshSlotLabelOnlyTupleChangeCompatible(t *testing.T) {
	// Labels distinguish tuple types but not their layout.
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit
	i32 := w.types.Builtins().Int32
	plain := w.types.RegisterTuple([]types.TypeID{i32, i32}, nil)
	labeled := w.types.RegisterTuple([]types.TypeID{i32, i32}, []string{"x", "y"})
	if plain == labeled {
		t.Fatalf("label-only tuples must intern distinctly")
	}

	base := w.classOf(t, "Base", nil)
	derived := w.classOf(t, "Derived", base)
	mb := w.methodOf(t, base, "f", nil, plain, unit)
	md := w.methodOf(t, derived, "f", mb, labeled, unit)

	if w.ctx.overrides.FreshSlot(md) {
		t.Fatalf("label-only tuple change must stay slot-compatible")
	}
}

func TestFreshSlotIndirectResultChange(t *testing.T) {
	// The base returns one scalar directly; the override returns a struct
	// too wide for registers, so the result convention flips to indirect.
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit
	i64 := w.types.Builtins().Int64

	wide := w.structOf(t, "Wide",
		&decl.Field{Name: "a", Type: i64},
		&decl.Field{Name: "b", Type: i64},
		&decl.Field{Name: "c", Type: i64},
		&decl.Field{Name: "d", Type: i64},
		&decl.Field{Name: "e", Type: i64},
	)
	indirect, err := w.layout.RequiresIndirectResult(wide.Type)
	if err != nil || !indirect {
		t.Fatalf("fixture: Wide should return indirectly (err=%v)", err)
	}

	base := w.classOf(t, "Base", nil)
	derived := w.classOf(t, "Derived", base)
	mb := w.methodOf(t, base, "f", nil, unit, i64)
	md := w.methodOf(t, derived, "f", mb, unit, wide.Type)

	if !w.ctx.overrides.FreshSlot(md) {
		t.Fatalf("direct-to-indirect result change must force a fresh slot")
	}
}

func TestFreshSlotOverridingForeignMethod(t *testing.T) {
	// The ancestor entry lives in the legacy vtable, not in native
	// metadata; the native class introduces its own slot.
	w := newWorld(t, true)
	unit := w.types.Builtins().Unit

	legacy := w.foreignClass(t, "LegacyView")
	mb := w.methodOf(t, legacy, "draw", nil, unit, unit)
	native := w.classOf(t, "NativeView", legacy)
	md := w.methodOf(t, native, "draw", mb, unit, unit)

	if !w.ctx.overrides.FreshSlot(md) {
		t.Fatalf("override of a foreign method must claim a native slot")
	}
	if got := w.ctx.overrides.SlotMethod(md); got != md {
		t.Fatalf("SlotMethod = %s, want the native method", got.FullName())
	}
}

func TestSlotMethodClimbsCompatibleChain(t *testing.T) {
	// A three-level chain with every link compatible anchors dispatch at
	// the root; a mid-chain incompatibility pins later overrides there.
	w := newWorld(t, false)
	unit := w.types.Builtins().Unit
	i32 := w.types.Builtins().Int32
	i64 := w.types.Builtins().Int64

	a := w.classOf(t, "A", nil)
	b := w.classOf(t, "B", a)
	c := w.classOf(t, "C", b)

	fa := w.methodOf(t, a, "f", nil, i32, unit)
	fb := w.methodOf(t, b, "f", fa, i32, unit)
	fc := w.methodOf(t, c, "f", fb, i32, unit)
	if got := w.ctx.overrides.SlotMethod(fc); got != fa {
		t.Fatalf("fully compatible chain: SlotMethod = %s, want A.f", got.FullName())
	}

	ga := w.methodOf(t, a, "g", nil, i32, unit)
	gb := w.methodOf(t, b, "g", ga, i64, unit) // changed scalar width: fresh
	gc := w.methodOf(t, c, "g", gb, i64, unit)
	if !w.ctx.overrides.FreshSlot(gb) {
		t.Fatalf("fixture: B.g should be incompatible with A.g")
	}
	if got := w.ctx.overrides.SlotMethod(gc); got != gb {
		t.Fatalf("chain broken at B: SlotMethod = %s, want B.g", got.FullName())
	}
}
