package types

import (
	"fmt"
	"strings"
)

// Label returns a user-friendly label for a TypeID.
func Label(typesIn *Interner, id TypeID) string {
	return labelDepth(typesIn, id, 0)
}

func labelDepth(typesIn *Interner, id TypeID, depth int) string {
	if id == NoTypeID {
		return "?"
	}
	if depth > 6 {
		return "..."
	}
	if typesIn == nil {
		return "?"
	}
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindOpaque:
		return fmt.Sprintf("b%d", tt.Width)
	case KindNominal:
		if info, ok := typesIn.NominalInfo(id); ok && info.Decl != nil {
			return info.Decl.TypeName()
		}
		return "?"
	case KindBoundGeneric:
		info, ok := typesIn.BoundGenericInfo(id)
		if !ok || info.Decl == nil {
			return "?"
		}
		parts := make([]string, len(info.Args))
		for i, a := range info.Args {
			parts[i] = labelDepth(typesIn, a, depth+1)
		}
		return info.Decl.TypeName() + "<" + strings.Join(parts, ", ") + ">"
	case KindTuple:
		info, ok := typesIn.TupleInfo(id)
		if !ok {
			return "?"
		}
		parts := make([]string, len(info.Elems))
		for i, e := range info.Elems {
			part := labelDepth(typesIn, e, depth+1)
			if info.Labels != nil && info.Labels[i] != "" {
				part = info.Labels[i] + ": " + part
			}
			parts[i] = part
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindFunc:
		info, ok := typesIn.FuncInfo(id)
		if !ok {
			return "?"
		}
		return labelDepth(typesIn, info.Input, depth+1) + " -> " + labelDepth(typesIn, info.Result, depth+1)
	case KindPolymorphic:
		info, ok := typesIn.FuncInfo(id)
		if !ok {
			return "?"
		}
		return "<...> " + labelDepth(typesIn, info.Input, depth+1) + " -> " + labelDepth(typesIn, info.Result, depth+1)
	case KindMetatype:
		return labelDepth(typesIn, tt.Elem, depth+1) + ".Type"
	case KindArchetype:
		if info, ok := typesIn.ArchetypeInfo(id); ok && info.Name != "" {
			return info.Name
		}
		return "?"
	case KindModule:
		if info, ok := typesIn.ModuleInfo(id); ok {
			return "module " + info.Name
		}
		return "module ?"
	case KindArray:
		return fmt.Sprintf("[%d]%s", tt.Count, labelDepth(typesIn, tt.Elem, depth+1))
	case KindInOut:
		return "inout " + labelDepth(typesIn, tt.Elem, depth+1)
	default:
		return "?"
	}
}
