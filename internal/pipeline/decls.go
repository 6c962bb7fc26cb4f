package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"basalt/internal/decl"
	"basalt/internal/target"
	"basalt/internal/types"
)

// BuildDecls resolves the manifest's declaration descriptions into
// finalized declarations registered with the interner. Names may refer to
// any declaration in the manifest regardless of order; the result keeps
// manifest order.
func BuildDecls(cfgs []target.DeclConfig, in *types.Interner) ([]*decl.Nominal, error) {
	b := &declBuilder{in: in, byName: make(map[string]*decl.Nominal, len(cfgs))}
	return b.build(cfgs)
}

type declBuilder struct {
	in     *types.Interner
	byName map[string]*decl.Nominal
}

func (b *declBuilder) build(cfgs []target.DeclConfig) ([]*decl.Nominal, error) {
	out := make([]*decl.Nominal, 0, len(cfgs))
	for _, c := range cfgs {
		if b.byName[c.Name] != nil {
			return nil, fmt.Errorf("decl %q: declared twice", c.Name)
		}
		kind := declKind(c.Kind)
		if kind == decl.KindInvalid {
			return nil, fmt.Errorf("decl %q: unknown kind %q", c.Name, c.Kind)
		}
		d := &decl.Nominal{Name: c.Name, Kind: kind, ForeignClass: c.Foreign}
		b.byName[c.Name] = d
		out = append(out, d)
	}

	// Superclass edges and generic parameters come before registration:
	// the self type depends on the archetypes, the archetypes on the
	// constraint protocols.
	for i, c := range cfgs {
		d := out[i]
		if c.Superclass != "" {
			super := b.byName[c.Superclass]
			if super == nil {
				return nil, fmt.Errorf("decl %q: unknown superclass %q", c.Name, c.Superclass)
			}
			if super.Kind != decl.KindClass {
				return nil, fmt.Errorf("decl %q: superclass %q is a %s", c.Name, c.Superclass, super.Kind)
			}
			d.Superclass = super
		}
		g, err := b.generics(d, c.Generics)
		if err != nil {
			return nil, err
		}
		d.Generics = g
	}
	for _, d := range out {
		depth := 0
		for s := d.Superclass; s != nil; s = s.Superclass {
			depth++
			if depth > len(out) {
				return nil, fmt.Errorf("decl %q: superclass cycle", d.Name)
			}
		}
	}
	for _, d := range out {
		d.Generics.BindArchetypes(b.in, d)
		d.Register(b.in)
	}

	// Members last: field and payload types may name any declaration, and
	// override edges need superclass methods in place, so classes resolve
	// root-first.
	order := make([]int, len(cfgs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(out[order[a]].SuperchainRootFirst()) < len(out[order[b]].SuperchainRootFirst())
	})
	for _, i := range order {
		if err := b.members(out[i], cfgs[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func declKind(name string) decl.Kind {
	switch name {
	case "struct":
		return decl.KindStruct
	case "enum":
		return decl.KindEnum
	case "class":
		return decl.KindClass
	case "protocol":
		return decl.KindProtocol
	default:
		return decl.KindInvalid
	}
}

// generics parses entries of the form "T" or "T: Show + Eq".
func (b *declBuilder) generics(d *decl.Nominal, specs []string) (*decl.GenericParams, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	params := make([]*decl.GenericParam, 0, len(specs))
	for _, spec := range specs {
		name, rest, _ := strings.Cut(spec, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("decl %q: malformed generic parameter %q", d.Name, spec)
		}
		p := &decl.GenericParam{Name: name}
		if strings.TrimSpace(rest) != "" {
			for _, cname := range strings.Split(rest, "+") {
				cname = strings.TrimSpace(cname)
				proto := b.byName[cname]
				if proto == nil || proto.Kind != decl.KindProtocol {
					return nil, fmt.Errorf("decl %q: constraint %q is not a declared protocol", d.Name, cname)
				}
				p.Constraints = append(p.Constraints, proto)
			}
		}
		params = append(params, p)
	}
	return &decl.GenericParams{Params: params}, nil
}

func (b *declBuilder) members(d *decl.Nominal, c target.DeclConfig) error {
	if d.Kind == decl.KindProtocol && len(c.Fields) > 0 {
		return fmt.Errorf("decl %q: protocols have no stored fields", d.Name)
	}
	for _, spec := range c.Fields {
		name, ty, err := b.typedMember(d, spec)
		if err != nil {
			return err
		}
		d.Fields = append(d.Fields, &decl.Field{Name: name, Type: ty})
	}
	for _, spec := range c.Cases {
		name, rest, hasPayload := strings.Cut(spec, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("decl %q: malformed case %q", d.Name, spec)
		}
		cs := decl.Case{Name: name}
		if hasPayload {
			id, err := b.typeNamed(d, strings.TrimSpace(rest))
			if err != nil {
				return fmt.Errorf("decl %q: case %q: %w", d.Name, name, err)
			}
			cs.Payload = id
		}
		d.Cases = append(d.Cases, cs)
	}
	for _, spec := range c.Methods {
		if err := b.method(d, spec); err != nil {
			return err
		}
	}
	return nil
}

// typedMember parses "name: type".
func (b *declBuilder) typedMember(d *decl.Nominal, spec string) (string, types.TypeID, error) {
	name, ty, ok := strings.Cut(spec, ":")
	name = strings.TrimSpace(name)
	tyName := strings.TrimSpace(ty)
	if !ok || name == "" || tyName == "" {
		return "", types.NoTypeID, fmt.Errorf("decl %q: malformed member %q, want \"name: type\"", d.Name, spec)
	}
	id, err := b.typeNamed(d, tyName)
	if err != nil {
		return "", types.NoTypeID, fmt.Errorf("decl %q: member %q: %w", d.Name, name, err)
	}
	return name, id, nil
}

// typeNamed resolves a type name: the declaration's own generic parameters
// shadow builtins, builtins shadow nothing, and any other name must be a
// declaration from the same manifest.
func (b *declBuilder) typeNamed(d *decl.Nominal, name string) (types.TypeID, error) {
	if d.Generics != nil {
		for _, p := range d.Generics.Params {
			if p.Name == name {
				return p.Archetype, nil
			}
		}
	}
	bi := b.in.Builtins()
	switch name {
	case "unit":
		return bi.Unit, nil
	case "bool":
		return bi.Bool, nil
	case "int8":
		return bi.Int8, nil
	case "int16":
		return bi.Int16, nil
	case "int32":
		return bi.Int32, nil
	case "int64":
		return bi.Int64, nil
	}
	if ref := b.byName[name]; ref != nil {
		return ref.Type, nil
	}
	return types.NoTypeID, fmt.Errorf("unknown type %q", name)
}

// method parses "name" or "static name". Non-static class methods override
// the nearest same-named superclass method automatically.
func (b *declBuilder) method(d *decl.Nominal, spec string) error {
	name := strings.TrimSpace(spec)
	static := false
	if rest, ok := strings.CutPrefix(name, "static "); ok {
		name = strings.TrimSpace(rest)
		static = true
	}
	if name == "" {
		return fmt.Errorf("decl %q: malformed method %q", d.Name, spec)
	}
	if d.MethodNamed(name) != nil {
		return fmt.Errorf("decl %q: method %q declared twice", d.Name, name)
	}
	unit := b.in.Builtins().Unit
	m := &decl.Method{
		Name:   name,
		Class:  d,
		Type:   b.in.RegisterFunc(d.Type, b.in.RegisterFunc(unit, unit)),
		Static: static,
	}
	if !static && d.Kind == decl.KindClass {
		for s := d.Superclass; s != nil; s = s.Superclass {
			if base := s.MethodNamed(name); base != nil && !base.Static {
				m.Overrides = base
				break
			}
		}
	}
	d.Methods = append(d.Methods, m)
	return nil
}
