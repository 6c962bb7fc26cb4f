package types

import (
	"fmt"

	"fortio.org/safecast"
)

// DeclHandle is the identity of a nominal declaration as seen by the type
// interner. The concrete type lives in the decl package; here it is only
// compared and carried. Implementations must be comparable (pointers are).
type DeclHandle interface {
	TypeName() string
}

// NominalInfo stores metadata for a non-generic nominal type.
type NominalInfo struct {
	Decl DeclHandle
}

// BoundGenericInfo stores a generic declaration applied to type arguments.
type BoundGenericInfo struct {
	Decl DeclHandle
	Args []TypeID
}

type boundKey struct {
	decl DeclHandle
	args string
}

// RegisterNominal creates or finds the type of a non-generic declaration.
func (in *Interner) RegisterNominal(d DeclHandle) TypeID {
	if d == nil {
		return NoTypeID
	}
	if id, ok := in.nominalIndex[d]; ok {
		return id
	}
	slot := in.appendNominalInfo(NominalInfo{Decl: d})
	id := in.internRaw(Type{Kind: KindNominal, Payload: slot})
	in.nominalIndex[d] = id
	return id
}

// RegisterBoundGeneric creates or finds the application of a generic
// declaration to the given argument list. Argument order and identity are
// part of the type identity.
func (in *Interner) RegisterBoundGeneric(d DeclHandle, args []TypeID) TypeID {
	if d == nil {
		return NoTypeID
	}
	key := boundKey{decl: d, args: argsKey(args)}
	if id, ok := in.boundIndex[key]; ok {
		return id
	}
	slot := in.appendBoundInfo(BoundGenericInfo{Decl: d, Args: cloneTypeArgs(args)})
	id := in.internRaw(Type{Kind: KindBoundGeneric, Payload: slot})
	in.boundIndex[key] = id
	return id
}

// NominalInfo returns metadata for the provided nominal TypeID.
func (in *Interner) NominalInfo(id TypeID) (*NominalInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindNominal {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.nominals) {
		return nil, false
	}
	return &in.nominals[tt.Payload], true
}

// BoundGenericInfo returns metadata for the provided bound generic TypeID.
func (in *Interner) BoundGenericInfo(id TypeID) (*BoundGenericInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindBoundGeneric {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.bounds) {
		return nil, false
	}
	return &in.bounds[tt.Payload], true
}

// NominalDecl returns the declaration handle behind a nominal or bound
// generic TypeID, nil when the type is neither.
func (in *Interner) NominalDecl(id TypeID) DeclHandle {
	if info, ok := in.NominalInfo(id); ok {
		return info.Decl
	}
	if info, ok := in.BoundGenericInfo(id); ok {
		return info.Decl
	}
	return nil
}

func (in *Interner) appendNominalInfo(info NominalInfo) uint32 {
	if in.nominals == nil {
		in.nominals = append(in.nominals, NominalInfo{})
	}
	in.nominals = append(in.nominals, info)
	slot, err := safecast.Conv[uint32](len(in.nominals) - 1)
	if err != nil {
		panic(fmt.Errorf("nominal info overflow: %w", err))
	}
	return slot
}

func (in *Interner) appendBoundInfo(info BoundGenericInfo) uint32 {
	if in.bounds == nil {
		in.bounds = append(in.bounds, BoundGenericInfo{})
	}
	in.bounds = append(in.bounds, info)
	slot, err := safecast.Conv[uint32](len(in.bounds) - 1)
	if err != nil {
		panic(fmt.Errorf("bound generic info overflow: %w", err))
	}
	return slot
}
