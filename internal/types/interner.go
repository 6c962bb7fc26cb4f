package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Bool    TypeID
	Int8    TypeID
	Int16   TypeID
	Int32   TypeID
	Int64   TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Structurally equal type expressions intern to the same TypeID, so TypeID
// equality is type identity everywhere downstream.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins

	nominals   []NominalInfo
	bounds     []BoundGenericInfo
	tuples     []TupleInfo
	funcs      []FuncInfo
	archetypes []ArchetypeInfo
	modules    []ModuleInfo

	nominalIndex map[DeclHandle]TypeID
	boundIndex   map[boundKey]TypeID
	tupleIndex   map[string]TypeID
	funcIndex    map[funcKey]TypeID
	polyIndex    map[funcKey]TypeID
	moduleIndex  map[string]TypeID
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:        make(map[typeKey]TypeID, 64),
		nominalIndex: make(map[DeclHandle]TypeID),
		boundIndex:   make(map[boundKey]TypeID),
		tupleIndex:   make(map[string]TypeID),
		funcIndex:    make(map[funcKey]TypeID),
		polyIndex:    make(map[funcKey]TypeID),
		moduleIndex:  make(map[string]TypeID),
	}
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.RegisterTuple(nil, nil)
	in.builtins.Bool = in.Intern(MakeOpaque(Width8, 1))
	in.builtins.Int8 = in.builtins.Bool
	in.builtins.Int16 = in.Intern(MakeOpaque(Width16, 2))
	in.builtins.Int32 = in.Intern(MakeOpaque(Width32, 4))
	in.builtins.Int64 = in.Intern(MakeOpaque(Width64, 8))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID. Only kinds
// without side-table payloads may be interned directly; compound kinds go
// through their Register constructors.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	key := typeKey(t)
	in.index[key] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Kind returns the kind for a TypeID, KindInvalid when absent.
func (in *Interner) Kind(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Width   Width
	Payload uint32
}

// argsKey renders a type-argument list as a stable map key.
func argsKey(args []TypeID) string {
	if len(args) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return sb.String()
}

func cloneTypeArgs(args []TypeID) []TypeID {
	if len(args) == 0 {
		return nil
	}
	out := make([]TypeID, len(args))
	copy(out, args)
	return out
}
