package decl

import "basalt/internal/types"

// GenericParams is the ordered generic parameter list of a declaration.
// Parameter order is the canonical generic-argument order everywhere: record
// slots, fill operations, and instantiation buffers all follow it.
type GenericParams struct {
	Params []*GenericParam
}

// GenericParam is one generic parameter with its resolved constraints and
// the archetype the front end allocated for it.
type GenericParam struct {
	Name        string
	Constraints []*Nominal // protocol declarations, in source order
	Archetype   types.TypeID
}

// Archetypes returns the parameters' archetypes in declaration order.
func (g *GenericParams) Archetypes() []types.TypeID {
	if g == nil || len(g.Params) == 0 {
		return nil
	}
	out := make([]types.TypeID, len(g.Params))
	for i, p := range g.Params {
		out[i] = p.Archetype
	}
	return out
}

// BindArchetypes allocates archetypes for parameters that do not have one
// yet. Owners construct parameters first, then bind once against the
// interner that will serve the compilation.
func (g *GenericParams) BindArchetypes(in *types.Interner, owner *Nominal) {
	if g == nil {
		return
	}
	for i, p := range g.Params {
		if p.Archetype != types.NoTypeID {
			continue
		}
		conformances := make([]types.DeclHandle, 0, len(p.Constraints))
		for _, c := range p.Constraints {
			conformances = append(conformances, c)
		}
		p.Archetype = in.RegisterArchetype(p.Name, owner, uint32(i), conformances)
	}
}

// WitnessCount is the number of witness-table slots the parameter list
// demands: one per (parameter, constraint) pair.
func (g *GenericParams) WitnessCount() int {
	if g == nil {
		return 0
	}
	n := 0
	for _, p := range g.Params {
		n += len(p.Constraints)
	}
	return n
}
