package meta

import (
	"fortio.org/safecast"

	"basalt/internal/decl"
	"basalt/internal/ir"
	"basalt/internal/layout"
)

// templatePrivateWords is the runtime-owned private data area of a template
// header, in pointer words.
const templatePrivateWords = 8

// FillOp copies one caller-supplied word into a fresh record at
// instantiation: word From of the argument buffer into payload word To.
type FillOp struct {
	From int
	To   int
}

// Template describes an emitted generic metadata pattern.
type Template struct {
	// Symbol names the pattern global; FillSymbol its fill procedure.
	Symbol     string
	FillSymbol string

	// Size is the instantiated record's length in pointer words: the
	// payload plus any dependent witness tail, header excluded.
	Size int

	// AddressPoint is the payload-relative word index of the address point.
	AddressPoint int

	// FillOps enumerate every generic argument and witness slot, in the
	// order the instantiation buffer must be packed.
	FillOps []FillOp

	// DependentWitnesses marks a tail-placed value witness table at payload
	// word DependentIndex, pointed to and initialized by the fill
	// procedure.
	DependentWitnesses bool
	DependentIndex     int
}

// templateLayout is the overlay template emission threads through a kind
// builder: the fill operations in slot order plus the dependent-witness
// decision the value builder takes.
type templateLayout struct {
	ops          []FillOp
	dependentVWT bool
}

// note records the fill operation for the payload slot about to be
// appended. The source index is a running counter over all caller-filled
// slots, so the argument buffer is packed exactly as the scan orders the
// section: every argument, then every witness table.
func (t *templateLayout) note(payloadIdx int) {
	t.ops = append(t.ops, FillOp{From: len(t.ops), To: payloadIdx})
}

// emitTemplate assembles and defines the metadata pattern of a generic
// declaration: header, payload laid out by the kind builder, dependent
// witness tail when the layout engine could not fold the table, and the
// generated fill procedure.
func (c *Context) emitTemplate(d *decl.Nominal) (*Emitted, error) {
	tl := &templateLayout{}
	b := c.newBuilder(d, tl)
	scanner{overrides: c.overrides}.scan(d, b)
	rec, err := b.finish()
	if err != nil {
		return nil, err
	}

	dependentIdx := 0
	if tl.dependentVWT {
		if d.Kind == decl.KindClass {
			ice("template", "dependent value witness table on class %s", d.QualifiedName())
		}
		dependentIdx = rec.Len()
		for slot := 0; slot < layout.TableSlots; slot++ {
			rec.append(recordField{role: roleWitnessPattern, init: ir.Null()})
		}
	}

	fillSym := c.emitFillProc(d, rec, tl, dependentIdx)

	ap := rec.AddressPoint()
	size, err := safecast.Conv[uint32](rec.Len())
	if err != nil {
		ice("template", "record size overflows the header in %s", d.QualifiedName())
	}
	fills, err := safecast.Conv[uint16](len(tl.ops))
	if err != nil {
		ice("template", "fill count overflows the header in %s", d.QualifiedName())
	}
	apWord, err := safecast.Conv[uint16](ap)
	if err != nil {
		ice("template", "address point overflows the header in %s", d.QualifiedName())
	}

	header := []ir.Const{
		ir.Symbol(fillSym),
		ir.IntConst(32, int64(size)),
		ir.IntConst(16, int64(fills)),
		ir.IntConst(16, int64(apWord)),
		ir.ZeroPtrArray(templatePrivateWords),
	}
	sym := PatternSymbol(d)
	c.define(&ir.Global{
		Name: sym,
		// The runtime writes the private data area; patterns are never
		// constant.
		Const: false,
		Init:  ir.Aggregate(append(header, rec.Words()...)...),
		Align: c.Module.Target.WordSize,
	})

	if d.Kind == decl.KindClass {
		c.defineSlotOffsets(d)
	}

	return &Emitted{
		Decl:         d,
		Symbol:       sym,
		AddressPoint: ap,
		Words:        rec.Len(),
		Template: &Template{
			Symbol:             sym,
			FillSymbol:         fillSym,
			Size:               rec.Len(),
			AddressPoint:       ap,
			FillOps:            tl.ops,
			DependentWitnesses: tl.dependentVWT,
			DependentIndex:     dependentIdx,
		},
	}, nil
}

// emitFillProc generates the instantiation procedure: copy every recorded
// fill operation word for word, then (strictly after all copies) point
// the witness slot at the tail table and hand the record to the runtime's
// witness initializer, which resolves the generic arguments from the
// now-filled slots.
func (c *Context) emitFillProc(d *decl.Nominal, rec *Record, tl *templateLayout, dependentIdx int) string {
	name := FillSymbol(d)
	fb := c.Module.NewFunc(name, ir.FuncSig{Ret: "void", Params: []string{"ptr", "ptr"}}, true)
	record := fb.Param(0)
	args := fb.Param(1)
	word := c.Module.WordType()

	for _, op := range tl.ops {
		v := fb.Load(word, fb.GEPWord(args, int64(op.From)))
		fb.Store(v, fb.GEPWord(record, int64(op.To)))
	}

	if tl.dependentVWT {
		ap := rec.AddressPoint()
		if ap < 1 {
			ice("template", "no witness slot ahead of the address point in %s", d.QualifiedName())
		}
		tail := fb.GEPWord(record, int64(dependentIdx))
		fb.Store(fb.PtrToInt(tail), fb.GEPWord(record, int64(ap-1)))
		fb.CallRuntime(ir.RTInitializeWitnesses, fb.GEPWord(record, int64(ap)))
	}

	fb.RetVoid()
	return name
}
