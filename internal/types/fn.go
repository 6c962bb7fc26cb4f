package types

import (
	"fmt"

	"fortio.org/safecast"
)

// FuncInfo stores the input and result types of a function type. Methods are
// curried: the outer function maps the receiver to an inner function over the
// formal parameters.
type FuncInfo struct {
	Input  TypeID
	Result TypeID
}

type funcKey struct {
	input  TypeID
	result TypeID
}

// RegisterFunc creates or finds the non-generic function type input -> result.
func (in *Interner) RegisterFunc(input, result TypeID) TypeID {
	key := funcKey{input: input, result: result}
	if id, ok := in.funcIndex[key]; ok {
		return id
	}
	slot := in.appendFuncInfo(FuncInfo{Input: input, Result: result})
	id := in.internRaw(Type{Kind: KindFunc, Payload: slot})
	in.funcIndex[key] = id
	return id
}

// RegisterPolymorphic creates or finds a generic function type. The shape is
// kept only so the metadata layer can report it as unsupported; argument
// signatures are not modeled.
func (in *Interner) RegisterPolymorphic(input, result TypeID) TypeID {
	key := funcKey{input: input, result: result}
	if id, ok := in.polyIndex[key]; ok {
		return id
	}
	slot := in.appendFuncInfo(FuncInfo{Input: input, Result: result})
	id := in.internRaw(Type{Kind: KindPolymorphic, Payload: slot})
	in.polyIndex[key] = id
	return id
}

// FuncInfo returns input/result for a func or polymorphic TypeID.
func (in *Interner) FuncInfo(id TypeID) (*FuncInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || (tt.Kind != KindFunc && tt.Kind != KindPolymorphic) {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.funcs) {
		return nil, false
	}
	return &in.funcs[tt.Payload], true
}

func (in *Interner) appendFuncInfo(info FuncInfo) uint32 {
	if in.funcs == nil {
		in.funcs = append(in.funcs, FuncInfo{})
	}
	in.funcs = append(in.funcs, info)
	slot, err := safecast.Conv[uint32](len(in.funcs) - 1)
	if err != nil {
		panic(fmt.Errorf("func info overflow: %w", err))
	}
	return slot
}
