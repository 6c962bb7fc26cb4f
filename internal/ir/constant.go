package ir

import (
	"fmt"
	"strings"
)

// ConstKind enumerates constant forms.
type ConstKind uint8

const (
	// ConstInt is an integer; Bits 0 means one pointer word.
	ConstInt ConstKind = iota + 1
	// ConstNull is a null pointer.
	ConstNull
	// ConstSymbol is the address of a global.
	ConstSymbol
	// ConstSymbolOffset is a global's address displaced by a word count.
	// Address-point-adjusted metadata references render this way.
	ConstSymbolOffset
	// ConstPtrToInt is a global's address as an integer word, optionally
	// with an addend (tagged pointers set their low bits through it).
	ConstPtrToInt
	// ConstAggregate is an anonymous struct of constants.
	ConstAggregate
	// ConstZeroPtrArray is a zero-filled array of pointer words.
	ConstZeroPtrArray
)

// Const is a constant initializer or immediate operand.
type Const struct {
	Kind   ConstKind
	Bits   int    // ConstInt: width; 0 = pointer word
	Int    int64  // ConstInt value, ConstPtrToInt addend
	Sym    string // referenced global
	Offset int64  // ConstSymbolOffset displacement in words
	Elems  []Const
	Count  int // ConstZeroPtrArray length
}

// IntConst is an integer constant of an explicit width.
func IntConst(bits int, v int64) Const { return Const{Kind: ConstInt, Bits: bits, Int: v} }

// WordConst is an integer constant of pointer-word width.
func WordConst(v int64) Const { return Const{Kind: ConstInt, Int: v} }

// Null is the null pointer constant.
func Null() Const { return Const{Kind: ConstNull} }

// Symbol is the address of a global.
func Symbol(name string) Const { return Const{Kind: ConstSymbol, Sym: name} }

// SymbolWordOffset is a global's address displaced by off words.
func SymbolWordOffset(name string, off int64) Const {
	if off == 0 {
		return Symbol(name)
	}
	return Const{Kind: ConstSymbolOffset, Sym: name, Offset: off}
}

// PtrToIntConst is a global's address as a word-sized integer plus addend.
func PtrToIntConst(name string, addend int64) Const {
	return Const{Kind: ConstPtrToInt, Sym: name, Int: addend}
}

// Aggregate is an anonymous struct constant.
func Aggregate(elems ...Const) Const { return Const{Kind: ConstAggregate, Elems: elems} }

// ZeroPtrArray is a zero-initialized [n x ptr].
func ZeroPtrArray(n int) Const { return Const{Kind: ConstZeroPtrArray, Count: n} }

// TypeString renders the constant's LLVM type.
func (c Const) TypeString(m *Module) string {
	switch c.Kind {
	case ConstInt:
		if c.Bits == 0 {
			return m.WordType()
		}
		return fmt.Sprintf("i%d", c.Bits)
	case ConstNull, ConstSymbol, ConstSymbolOffset:
		return "ptr"
	case ConstPtrToInt:
		return m.WordType()
	case ConstAggregate:
		parts := make([]string, len(c.Elems))
		for i, e := range c.Elems {
			parts[i] = e.TypeString(m)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case ConstZeroPtrArray:
		return fmt.Sprintf("[%d x ptr]", c.Count)
	default:
		panic(fmt.Sprintf("ir: unknown const kind %d", c.Kind))
	}
}

// ValueString renders the constant's LLVM value.
func (c Const) ValueString(m *Module) string {
	switch c.Kind {
	case ConstInt:
		return fmt.Sprintf("%d", c.Int)
	case ConstNull:
		return "null"
	case ConstSymbol:
		return "@" + c.Sym
	case ConstSymbolOffset:
		return fmt.Sprintf("getelementptr inbounds (%s, ptr @%s, i64 %d)", m.WordType(), c.Sym, c.Offset)
	case ConstPtrToInt:
		expr := fmt.Sprintf("ptrtoint (ptr @%s to %s)", c.Sym, m.WordType())
		if c.Int != 0 {
			return fmt.Sprintf("add (%s %s, %s %d)", m.WordType(), expr, m.WordType(), c.Int)
		}
		return expr
	case ConstAggregate:
		parts := make([]string, len(c.Elems))
		for i, e := range c.Elems {
			parts[i] = e.TypeString(m) + " " + e.ValueString(m)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case ConstZeroPtrArray:
		return "zeroinitializer"
	default:
		panic(fmt.Sprintf("ir: unknown const kind %d", c.Kind))
	}
}

// Operand renders the constant as a typed instruction operand.
func (c Const) Operand(m *Module) Value {
	return Value{Name: c.ValueString(m), Type: c.TypeString(m)}
}
