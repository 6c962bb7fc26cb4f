package layout

import (
	"fmt"

	"basalt/internal/decl"
	"basalt/internal/types"
)

// Value witness tables live in the language runtime. Concrete value types
// share per-shape tables; references and existentials have fixed ones.
const (
	// ReferenceWitnesses operates on native reference-counted pointers.
	ReferenceWitnesses = "rt_vwt_ref"
	// LegacyReferenceWitnesses operates on references handled by the legacy
	// object-model runtime.
	LegacyReferenceWitnesses = "rt_vwt_ref_legacy"
	// ExistentialWitnesses operates on boxed existential containers.
	ExistentialWitnesses = "rt_vwt_existential"
	// InitWitnessesFunc computes and stores a record's witness table at
	// instantiation time, reading the generic arguments already filled in.
	InitWitnessesFunc = "rt_vwt_initialize"
)

// TableSlots is the word count of one value witness table: destroy, copy
// and take initializers/assignments, plus size, alignment and stride.
const TableSlots = 8

// Witnesses describes where a type's value witness table comes from.
type Witnesses struct {
	// Symbol names the runtime global holding the table. Empty when the
	// table is Dependent.
	Symbol string
	// Dependent means the table cannot be constant-folded: it depends on
	// the type's unbound generic arguments and must be produced at
	// instantiation time.
	Dependent bool
}

// WitnessTableFor selects the value witness table a metadata record for the
// given self type points at.
func (e *Engine) WitnessTableFor(id types.TypeID) (Witnesses, error) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return Witnesses{}, &Error{Kind: ErrUnknownType, Type: id}
	}

	switch tt.Kind {
	case types.KindNominal:
		info, _ := e.Types.NominalInfo(id)
		if d, ok := info.Decl.(*decl.Nominal); ok {
			switch d.Kind {
			case decl.KindClass:
				return Witnesses{Symbol: ReferenceWitnesses}, nil
			case decl.KindProtocol:
				return Witnesses{Symbol: ExistentialWitnesses}, nil
			}
		}
	case types.KindBoundGeneric:
		info, _ := e.Types.BoundGenericInfo(id)
		if d, ok := info.Decl.(*decl.Nominal); ok && d.Kind == decl.KindClass {
			return Witnesses{Symbol: ReferenceWitnesses}, nil
		}
	}

	l, err := e.LayoutOf(id)
	if err != nil {
		if IsDependent(err) {
			return Witnesses{Dependent: true}, nil
		}
		return Witnesses{}, err
	}
	return Witnesses{Symbol: PodWitnessSymbol(l.Size, l.Align)}, nil
}

// PodWitnessSymbol names the runtime's shared table for trivially copyable
// values of the given size and alignment.
func PodWitnessSymbol(size, align int) string {
	return fmt.Sprintf("rt_vwt_pod_%d_%d", size, align)
}
