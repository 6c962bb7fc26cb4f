// Package ir builds native modules as LLVM-flavored text: constant globals,
// functions with SSA registers, runtime declarations, and the bookkeeping
// the link step needs (fix-ups, class registrations). Builders append text
// eagerly; rendering a module is deterministic for a deterministic build
// order.
package ir

import (
	"fmt"

	"basalt/internal/target"
)

// Module is one emission unit.
type Module struct {
	Name   string
	Target target.Target

	globals []*Global
	funcs   []*Func

	globalIndex map[string]*Global
	funcIndex   map[string]*Func
	runtime     map[string]FuncSig
	externs     map[string]string
	externFns   map[string]FuncSig

	strs     []*stringConst
	strIndex map[string]*stringConst

	classes []Const
	fixups  []Fixup
}

// Global is a module-level definition.
type Global struct {
	Name string
	// Linkage is empty for external visibility, or "private"/"internal".
	Linkage string
	// Const marks read-only data. Templates stay writable: the runtime owns
	// their private data words.
	Const bool
	Init  Const
	Align int // bytes, 0 for default
}

// Fixup records a metadata slot whose final value is bound after linking.
type Fixup struct {
	// Symbol is the record global the slot lives in.
	Symbol string
	// Word indexes the slot from the start of the global, in words.
	Word int
	// Class and Field identify the stored property the slot describes.
	Class string
	Field string
}

// NewModule creates an empty module for the target.
func NewModule(name string, tgt target.Target) *Module {
	return &Module{
		Name:        name,
		Target:      tgt,
		globalIndex: make(map[string]*Global),
		funcIndex:   make(map[string]*Func),
		runtime:     make(map[string]FuncSig),
		externs:     make(map[string]string),
		externFns:   make(map[string]FuncSig),
		strIndex:    make(map[string]*stringConst),
	}
}

// WordType is the LLVM integer type of one pointer word.
func (m *Module) WordType() string {
	return fmt.Sprintf("i%d", m.Target.WordBits())
}

// DefineGlobal installs a definition. Defining one symbol twice is a bug in
// the caller's memoization.
func (m *Module) DefineGlobal(g *Global) error {
	if g == nil || g.Name == "" {
		return fmt.Errorf("ir: global without a name")
	}
	if _, ok := m.globalIndex[g.Name]; ok {
		return fmt.Errorf("ir: duplicate global %q", g.Name)
	}
	m.globalIndex[g.Name] = g
	m.globals = append(m.globals, g)
	delete(m.externs, g.Name)
	return nil
}

// HasGlobal reports whether the module defines the symbol.
func (m *Module) HasGlobal(name string) bool {
	_, ok := m.globalIndex[name]
	return ok
}

// ExternGlobal declares a symbol defined elsewhere (runtime tables, class
// objects). Declaring after a definition is a no-op.
func (m *Module) ExternGlobal(name, ty string) {
	if name == "" || m.HasGlobal(name) {
		return
	}
	if _, ok := m.externs[name]; ok {
		return
	}
	m.externs[name] = ty
}

// DeclareFunc declares a function defined elsewhere so its address can be
// taken in constant initializers. Declaring after a definition, or twice, is
// a no-op.
func (m *Module) DeclareFunc(name string, sig FuncSig) {
	if name == "" {
		return
	}
	if _, ok := m.funcIndex[name]; ok {
		return
	}
	if _, ok := m.externFns[name]; ok {
		return
	}
	m.externFns[name] = sig
}

// RegisterClass appends a class metadata reference to the module's class
// list, picked up by the legacy object-model runtime at load time. The
// reference must already be address-point adjusted.
func (m *Module) RegisterClass(ref Const) {
	m.classes = append(m.classes, ref)
}

// Classes returns the registered class metadata references in order.
func (m *Module) Classes() []Const {
	return m.classes
}

// AddFixup records a deferred slot binding.
func (m *Module) AddFixup(f Fixup) {
	m.fixups = append(m.fixups, f)
}

// Fixups returns the recorded deferred slot bindings in order.
func (m *Module) Fixups() []Fixup {
	return m.fixups
}
