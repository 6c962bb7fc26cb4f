package ir

import "fmt"

// Runtime entry points of the metadata ABI.
const (
	// RTGenericMetadata instantiates a generic metadata template with a
	// packed argument buffer, returning the record's address point.
	RTGenericMetadata = "rt_generic_metadata"
	// RTTupleMetadata2 and RTTupleMetadata3 build small tuple metadata from
	// the element metadata, a label string, and proposed value witnesses.
	RTTupleMetadata2 = "rt_tuple_metadata2"
	RTTupleMetadata3 = "rt_tuple_metadata3"
	// RTTupleMetadata builds tuple metadata of any arity from an element
	// array.
	RTTupleMetadata = "rt_tuple_metadata"
	// RTFunctionMetadata builds function type metadata from input and
	// result metadata.
	RTFunctionMetadata = "rt_function_metadata"
	// RTMetatypeMetadata builds metatype metadata from instance metadata.
	RTMetatypeMetadata = "rt_metatype_metadata"
	// RTLegacyClassMetadata returns type metadata for a legacy class object
	// that has no native record.
	RTLegacyClassMetadata = "rt_legacy_class_metadata"
	// RTObjectClass returns the class object of a possibly-legacy instance.
	RTObjectClass = "rt_object_class"
	// RTObjectType returns type metadata for an instance's dynamic type.
	RTObjectType = "rt_object_type"
	// RTRegisterSelector registers a selector name with the legacy runtime
	// and returns its canonical handle.
	RTRegisterSelector = "rt_register_selector"
	// RTInitializeWitnesses fills a record's dependent value witness table
	// from its already-stored generic arguments.
	RTInitializeWitnesses = "rt_vwt_initialize"
)

type runtimeDecl struct {
	name   string
	ret    string
	params []string
}

func runtimeDecls(word string) []runtimeDecl {
	return []runtimeDecl{
		{name: RTGenericMetadata, ret: "ptr", params: []string{"ptr", "ptr"}},
		{name: RTTupleMetadata2, ret: "ptr", params: []string{"ptr", "ptr", "ptr", "ptr"}},
		{name: RTTupleMetadata3, ret: "ptr", params: []string{"ptr", "ptr", "ptr", "ptr", "ptr"}},
		{name: RTTupleMetadata, ret: "ptr", params: []string{word, "ptr", "ptr", "ptr"}},
		{name: RTFunctionMetadata, ret: "ptr", params: []string{"ptr", "ptr"}},
		{name: RTMetatypeMetadata, ret: "ptr", params: []string{"ptr"}},
		{name: RTLegacyClassMetadata, ret: "ptr", params: []string{"ptr"}},
		{name: RTObjectClass, ret: "ptr", params: []string{"ptr"}},
		{name: RTObjectType, ret: "ptr", params: []string{"ptr"}},
		{name: RTRegisterSelector, ret: "ptr", params: []string{"ptr"}},
		{name: RTInitializeWitnesses, ret: "void", params: []string{"ptr"}},
	}
}

// EnsureRuntime marks a runtime entry point as used and returns its
// signature. Unknown names are a caller bug.
func (m *Module) EnsureRuntime(name string) FuncSig {
	if sig, ok := m.runtime[name]; ok {
		return sig
	}
	for _, d := range runtimeDecls(m.WordType()) {
		if d.name == name {
			sig := FuncSig{Ret: d.ret, Params: d.params}
			m.runtime[name] = sig
			return sig
		}
	}
	panic(fmt.Sprintf("ir: unknown runtime entry point %q", name))
}
