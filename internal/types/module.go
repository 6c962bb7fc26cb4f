package types

import (
	"fmt"

	"fortio.org/safecast"
)

// ModuleInfo stores the name of a referenced module. Module types only exist
// so the metadata layer can reject them explicitly.
type ModuleInfo struct {
	Name string
}

// RegisterModule creates or finds the type of a module reference.
func (in *Interner) RegisterModule(name string) TypeID {
	if id, ok := in.moduleIndex[name]; ok {
		return id
	}
	slot := in.appendModuleInfo(ModuleInfo{Name: name})
	id := in.internRaw(Type{Kind: KindModule, Payload: slot})
	in.moduleIndex[name] = id
	return id
}

// ModuleInfo returns metadata for the provided module TypeID.
func (in *Interner) ModuleInfo(id TypeID) (*ModuleInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindModule {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.modules) {
		return nil, false
	}
	return &in.modules[tt.Payload], true
}

func (in *Interner) appendModuleInfo(info ModuleInfo) uint32 {
	if in.modules == nil {
		in.modules = append(in.modules, ModuleInfo{})
	}
	in.modules = append(in.modules, info)
	slot, err := safecast.Conv[uint32](len(in.modules) - 1)
	if err != nil {
		panic(fmt.Errorf("module info overflow: %w", err))
	}
	return slot
}
