package decl

import (
	"testing"

	"basalt/internal/types"
)

func TestQualifiedName(t *testing.T) {
	outer := &Nominal{Name: "Outer", Kind: KindStruct}
	inner := &Nominal{Name: "Inner", Kind: KindStruct, Parent: outer}
	if got := inner.QualifiedName(); got != "Outer.Inner" {
		t.Fatalf("QualifiedName = %q, want Outer.Inner", got)
	}
}

func TestSuperchainRootFirst(t *testing.T) {
	a := &Nominal{Name: "A", Kind: KindClass}
	b := &Nominal{Name: "B", Kind: KindClass, Superclass: a}
	c := &Nominal{Name: "C", Kind: KindClass, Superclass: b}
	chain := c.SuperchainRootFirst()
	if len(chain) != 3 || chain[0] != a || chain[1] != b || chain[2] != c {
		t.Fatalf("superchain order wrong: %v", chain)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	in := types.NewInterner()
	point := &Nominal{Name: "Point", Kind: KindStruct}
	first := point.Register(in)
	if first == types.NoTypeID {
		t.Fatalf("registration produced no type")
	}
	if point.Register(in) != first {
		t.Fatalf("second registration must return the stored type")
	}
}

func TestRegisterGenericSelfType(t *testing.T) {
	in := types.NewInterner()
	box := &Nominal{Name: "Box", Kind: KindStruct}
	box.Generics = &GenericParams{Params: []*GenericParam{{Name: "T"}}}
	box.Generics.BindArchetypes(in, box)
	id := box.Register(in)
	info, ok := in.BoundGenericInfo(id)
	if !ok {
		t.Fatalf("generic self type must be a bound generic")
	}
	if len(info.Args) != 1 || info.Args[0] != box.Generics.Params[0].Archetype {
		t.Fatalf("self type must apply the declaration's own archetypes")
	}
}

func TestInGenericContext(t *testing.T) {
	box := &Nominal{Name: "Box", Kind: KindStruct}
	box.Generics = &GenericParams{Params: []*GenericParam{{Name: "T"}}}
	nested := &Nominal{Name: "Iter", Kind: KindStruct, Parent: box}
	if !nested.InGenericContext() {
		t.Fatalf("nesting inside a generic type is a generic context")
	}
	if box.InGenericContext() {
		t.Fatalf("a generic declaration is not itself nested")
	}
}

func TestMethodRoot(t *testing.T) {
	base := &Method{Name: "draw"}
	mid := &Method{Name: "draw", Overrides: base}
	leaf := &Method{Name: "draw", Overrides: mid}
	if leaf.Root() != base {
		t.Fatalf("Root must walk to the introducing method")
	}
}
