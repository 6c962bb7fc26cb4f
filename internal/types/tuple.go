package types

import (
	"fmt"
	"slices"
	"strings"

	"fortio.org/safecast"
)

// TupleInfo stores the element types and labels for a tuple type. Labels is
// either nil (no element labeled) or has one entry per element with "" for
// unlabeled positions.
type TupleInfo struct {
	Elems  []TypeID
	Labels []string
}

// HasLabels reports whether any element carries a label.
func (ti *TupleInfo) HasLabels() bool {
	for _, l := range ti.Labels {
		if l != "" {
			return true
		}
	}
	return false
}

// RegisterTuple creates or finds an existing tuple type with the given
// elements and labels. A one-element unlabeled tuple is the element itself.
// Labels participate in type identity even though they do not change the
// in-memory representation.
func (in *Interner) RegisterTuple(elems []TypeID, labels []string) TypeID {
	if labels != nil && len(labels) != len(elems) {
		panic("types: tuple label count mismatch")
	}
	if allEmptyLabels(labels) {
		labels = nil
	}
	if len(elems) == 1 && labels == nil {
		return elems[0]
	}
	key := tupleMapKey(elems, labels)
	if id, ok := in.tupleIndex[key]; ok {
		return id
	}
	slot := in.appendTupleInfo(TupleInfo{Elems: cloneTypeArgs(elems), Labels: slices.Clone(labels)})
	id := in.internRaw(Type{Kind: KindTuple, Payload: slot})
	in.tupleIndex[key] = id
	return id
}

// TupleInfo returns the element descriptors for a tuple TypeID.
func (in *Interner) TupleInfo(id TypeID) (*TupleInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.tuples) {
		return nil, false
	}
	return &in.tuples[tt.Payload], true
}

func (in *Interner) appendTupleInfo(info TupleInfo) uint32 {
	if in.tuples == nil {
		in.tuples = append(in.tuples, TupleInfo{})
	}
	in.tuples = append(in.tuples, info)
	slot, err := safecast.Conv[uint32](len(in.tuples) - 1)
	if err != nil {
		panic(fmt.Errorf("tuple info overflow: %w", err))
	}
	return slot
}

func allEmptyLabels(labels []string) bool {
	for _, l := range labels {
		if l != "" {
			return false
		}
	}
	return true
}

func tupleMapKey(elems []TypeID, labels []string) string {
	var sb strings.Builder
	sb.WriteString(argsKey(elems))
	sb.WriteByte(';')
	for i, l := range labels {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(l)
	}
	return sb.String()
}
