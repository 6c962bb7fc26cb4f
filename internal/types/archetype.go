package types

import (
	"fmt"

	"fortio.org/safecast"
)

// ArchetypeInfo stores a generic parameter placeholder. Each registration is
// a distinct archetype: identity follows the declaring context, not the
// structure.
type ArchetypeInfo struct {
	Name         string
	Owner        DeclHandle
	Index        uint32
	Conformances []DeclHandle // protocol declarations, in constraint order
}

// RegisterArchetype allocates a fresh archetype for a generic parameter.
func (in *Interner) RegisterArchetype(name string, owner DeclHandle, index uint32, conformances []DeclHandle) TypeID {
	slot := in.appendArchetypeInfo(ArchetypeInfo{
		Name:         name,
		Owner:        owner,
		Index:        index,
		Conformances: cloneHandles(conformances),
	})
	return in.internRaw(Type{Kind: KindArchetype, Payload: slot})
}

// ArchetypeInfo returns metadata for the provided archetype TypeID.
func (in *Interner) ArchetypeInfo(id TypeID) (*ArchetypeInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindArchetype {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.archetypes) {
		return nil, false
	}
	return &in.archetypes[tt.Payload], true
}

func (in *Interner) appendArchetypeInfo(info ArchetypeInfo) uint32 {
	if in.archetypes == nil {
		in.archetypes = append(in.archetypes, ArchetypeInfo{})
	}
	in.archetypes = append(in.archetypes, info)
	slot, err := safecast.Conv[uint32](len(in.archetypes) - 1)
	if err != nil {
		panic(fmt.Errorf("archetype info overflow: %w", err))
	}
	return slot
}

func cloneHandles(hs []DeclHandle) []DeclHandle {
	if len(hs) == 0 {
		return nil
	}
	out := make([]DeclHandle, len(hs))
	copy(out, hs)
	return out
}
