package types

import "testing"

type testDecl string

func (d testDecl) TypeName() string { return string(d) }

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Int32 == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindTuple {
		t.Fatalf("expected unit to be the empty tuple, got %v", unit.Kind)
	}
	if info, ok := in.TupleInfo(b.Unit); !ok || len(info.Elems) != 0 {
		t.Fatalf("unit must have zero elements")
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().Int64
	meta1 := in.Intern(MakeMetatype(elem))
	meta2 := in.Intern(MakeMetatype(elem))
	if meta1 != meta2 {
		t.Fatalf("metatypes should be deduplicated")
	}
	arr1 := in.Intern(MakeArray(elem, 4))
	arr2 := in.Intern(MakeArray(elem, 4))
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
	if in.Intern(MakeArray(elem, 5)) == arr1 {
		t.Fatalf("array length must affect identity")
	}
}

func TestTupleIdentity(t *testing.T) {
	in := NewInterner()
	a := in.Builtins().Int32
	b := in.Builtins().Int64

	pair1 := in.RegisterTuple([]TypeID{a, b}, nil)
	pair2 := in.RegisterTuple([]TypeID{a, b}, nil)
	if pair1 != pair2 {
		t.Fatalf("structurally equal tuples must intern to one TypeID")
	}
	if in.RegisterTuple([]TypeID{b, a}, nil) == pair1 {
		t.Fatalf("element order must affect identity")
	}

	labeled := in.RegisterTuple([]TypeID{a, b}, []string{"x", ""})
	if labeled == pair1 {
		t.Fatalf("labels must affect identity")
	}
	if in.RegisterTuple([]TypeID{a, b}, []string{"", ""}) != pair1 {
		t.Fatalf("all-empty labels are the unlabeled tuple")
	}

	if in.RegisterTuple([]TypeID{a}, nil) != a {
		t.Fatalf("one-element unlabeled tuple collapses to the element")
	}
}

func TestNominalAndBoundGenericIdentity(t *testing.T) {
	in := NewInterner()
	point := testDecl("Point")
	dict := testDecl("Dict")
	a := in.Builtins().Int32
	b := in.Builtins().Int64

	if in.RegisterNominal(point) != in.RegisterNominal(point) {
		t.Fatalf("same declaration must intern to one nominal TypeID")
	}
	if in.RegisterNominal(point) == in.RegisterNominal(dict) {
		t.Fatalf("distinct declarations must not collide")
	}

	d1 := in.RegisterBoundGeneric(dict, []TypeID{a, b})
	d2 := in.RegisterBoundGeneric(dict, []TypeID{a, b})
	if d1 != d2 {
		t.Fatalf("same application must intern to one TypeID")
	}
	if in.RegisterBoundGeneric(dict, []TypeID{b, a}) == d1 {
		t.Fatalf("argument order must affect identity")
	}
}

func TestFuncIdentity(t *testing.T) {
	in := NewInterner()
	a := in.Builtins().Int32
	u := in.Builtins().Unit
	f1 := in.RegisterFunc(a, u)
	f2 := in.RegisterFunc(a, u)
	if f1 != f2 {
		t.Fatalf("function types should be deduplicated")
	}
	if in.RegisterPolymorphic(a, u) == f1 {
		t.Fatalf("polymorphic and plain function types must differ")
	}
}

func TestArchetypesAreFresh(t *testing.T) {
	in := NewInterner()
	owner := testDecl("Box")
	t1 := in.RegisterArchetype("T", owner, 0, nil)
	t2 := in.RegisterArchetype("T", owner, 0, nil)
	if t1 == t2 {
		t.Fatalf("each archetype registration is a distinct placeholder")
	}
}
