package ir

import (
	"fmt"
	"strings"
)

// FuncSig is a function signature in LLVM type strings.
type FuncSig struct {
	Ret    string
	Params []string
}

// Func is a defined function.
type Func struct {
	Name     string
	Sig      FuncSig
	Internal bool

	blocks  []*Block
	nextTmp int
}

// Block is a basic block under construction.
type Block struct {
	Label string
	lines []string
	done  bool
}

// Value is an SSA register or immediate operand with its LLVM type.
type Value struct {
	Name string
	Type string
}

// FuncBuilder appends instructions to one function.
type FuncBuilder struct {
	m   *Module
	f   *Func
	cur *Block
}

// NewFunc starts a function definition and positions the builder at its
// entry block.
func (m *Module) NewFunc(name string, sig FuncSig, internal bool) *FuncBuilder {
	f := &Func{Name: name, Sig: sig, Internal: internal}
	m.funcs = append(m.funcs, f)
	m.funcIndex[name] = f
	delete(m.externFns, name)
	b := &FuncBuilder{m: m, f: f}
	b.StartBlock(b.NewBlock("entry"))
	return b
}

// Module returns the module the builder emits into.
func (b *FuncBuilder) Module() *Module { return b.m }

// Param returns the i-th formal parameter.
func (b *FuncBuilder) Param(i int) Value {
	if i < 0 || i >= len(b.f.Sig.Params) {
		panic(fmt.Sprintf("ir: function %s has no parameter %d", b.f.Name, i))
	}
	return Value{Name: fmt.Sprintf("%%p%d", i), Type: b.f.Sig.Params[i]}
}

// NewBlock creates a block with a unique label derived from hint.
func (b *FuncBuilder) NewBlock(hint string) *Block {
	label := hint
	if label == "" {
		label = "bb"
	}
	n := 0
	for _, blk := range b.f.blocks {
		if blk.Label == label {
			n++
			label = fmt.Sprintf("%s.%d", hint, n)
		}
	}
	blk := &Block{Label: label}
	b.f.blocks = append(b.f.blocks, blk)
	return blk
}

// StartBlock positions the builder at blk.
func (b *FuncBuilder) StartBlock(blk *Block) {
	b.cur = blk
}

// CurrentBlock returns the block the builder appends to.
func (b *FuncBuilder) CurrentBlock() *Block { return b.cur }

func (b *FuncBuilder) tmp() string {
	name := fmt.Sprintf("%%t%d", b.f.nextTmp)
	b.f.nextTmp++
	return name
}

func (b *FuncBuilder) emitf(format string, args ...any) {
	if b.cur == nil {
		panic("ir: builder has no current block")
	}
	if b.cur.done {
		panic(fmt.Sprintf("ir: block %s already terminated", b.cur.Label))
	}
	b.cur.lines = append(b.cur.lines, "  "+fmt.Sprintf(format, args...))
}

// Alloca reserves stack storage for one value of the given type.
func (b *FuncBuilder) Alloca(ty string) Value {
	t := b.tmp()
	b.emitf("%s = alloca %s", t, ty)
	return Value{Name: t, Type: "ptr"}
}

// Load reads a value of the given type from addr.
func (b *FuncBuilder) Load(ty string, addr Value) Value {
	t := b.tmp()
	b.emitf("%s = load %s, ptr %s", t, ty, addr.Name)
	return Value{Name: t, Type: ty}
}

// Store writes val to addr.
func (b *FuncBuilder) Store(val, addr Value) {
	b.emitf("store %s %s, ptr %s", val.Type, val.Name, addr.Name)
}

// GEPWord displaces a pointer by a constant number of words.
func (b *FuncBuilder) GEPWord(base Value, words int64) Value {
	if words == 0 {
		return base
	}
	t := b.tmp()
	b.emitf("%s = getelementptr inbounds %s, ptr %s, i64 %d", t, b.m.WordType(), base.Name, words)
	return Value{Name: t, Type: "ptr"}
}

// GEPIndex indexes element idx of an array-typed allocation.
func (b *FuncBuilder) GEPIndex(arrayTy string, base Value, idx int64) Value {
	t := b.tmp()
	b.emitf("%s = getelementptr inbounds %s, ptr %s, i64 0, i64 %d", t, arrayTy, base.Name, idx)
	return Value{Name: t, Type: "ptr"}
}

// PtrToInt converts a pointer to a word-sized integer.
func (b *FuncBuilder) PtrToInt(v Value) Value {
	t := b.tmp()
	b.emitf("%s = ptrtoint ptr %s to %s", t, v.Name, b.m.WordType())
	return Value{Name: t, Type: b.m.WordType()}
}

// ICmpEq compares two operands for equality, yielding i1.
func (b *FuncBuilder) ICmpEq(lhs, rhs Value) Value {
	t := b.tmp()
	b.emitf("%s = icmp eq %s %s, %s", t, lhs.Type, lhs.Name, rhs.Name)
	return Value{Name: t, Type: "i1"}
}

// And computes a bitwise and.
func (b *FuncBuilder) And(lhs, rhs Value) Value {
	t := b.tmp()
	b.emitf("%s = and %s %s, %s", t, lhs.Type, lhs.Name, rhs.Name)
	return Value{Name: t, Type: lhs.Type}
}

// Call invokes a declared or defined function.
func (b *FuncBuilder) Call(ret string, callee string, args ...Value) Value {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Type + " " + a.Name
	}
	if ret == "void" {
		b.emitf("call void @%s(%s)", callee, strings.Join(parts, ", "))
		return Value{}
	}
	t := b.tmp()
	b.emitf("%s = call %s @%s(%s)", t, ret, callee, strings.Join(parts, ", "))
	return Value{Name: t, Type: ret}
}

// CallRuntime invokes a runtime entry point, declaring it on first use.
func (b *FuncBuilder) CallRuntime(name string, args ...Value) Value {
	sig := b.m.EnsureRuntime(name)
	return b.Call(sig.Ret, name, args...)
}

// Br ends the current block with an unconditional branch.
func (b *FuncBuilder) Br(dst *Block) {
	b.emitf("br label %%%s", dst.Label)
	b.cur.done = true
}

// CondBr ends the current block with a conditional branch.
func (b *FuncBuilder) CondBr(cond Value, then, els *Block) {
	b.emitf("br i1 %s, label %%%s, label %%%s", cond.Name, then.Label, els.Label)
	b.cur.done = true
}

// PhiIncoming pairs a value with its predecessor block.
type PhiIncoming struct {
	Value Value
	From  *Block
}

// Phi merges values arriving from predecessor blocks.
func (b *FuncBuilder) Phi(ty string, incoming ...PhiIncoming) Value {
	t := b.tmp()
	parts := make([]string, len(incoming))
	for i, in := range incoming {
		parts[i] = fmt.Sprintf("[ %s, %%%s ]", in.Value.Name, in.From.Label)
	}
	b.emitf("%s = phi %s %s", t, ty, strings.Join(parts, ", "))
	return Value{Name: t, Type: ty}
}

// Ret ends the current block returning v.
func (b *FuncBuilder) Ret(v Value) {
	b.emitf("ret %s %s", v.Type, v.Name)
	b.cur.done = true
}

// RetVoid ends the current block returning nothing.
func (b *FuncBuilder) RetVoid() {
	b.emitf("ret void")
	b.cur.done = true
}

// Unreachable ends the current block as unreachable.
func (b *FuncBuilder) Unreachable() {
	b.emitf("unreachable")
	b.cur.done = true
}
