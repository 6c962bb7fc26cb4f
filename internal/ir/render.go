package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Render prints the module as LLVM-flavored text.
func (m *Module) Render() string {
	var buf strings.Builder
	m.renderPreamble(&buf)
	m.renderRuntimeDecls(&buf)
	m.renderExterns(&buf)
	m.renderStrings(&buf)
	m.renderGlobals(&buf)
	m.renderClassList(&buf)
	m.renderFuncs(&buf)
	return buf.String()
}

func (m *Module) renderPreamble(buf *strings.Builder) {
	fmt.Fprintf(buf, "; module %s\n", m.Name)
	fmt.Fprintf(buf, "target datalayout = \"p:%d:%d\"\n\n", m.Target.WordBits(), m.Target.WordBits())
}

func (m *Module) renderRuntimeDecls(buf *strings.Builder) {
	if len(m.runtime) == 0 && len(m.externFns) == 0 {
		return
	}
	decls := make(map[string]FuncSig, len(m.runtime)+len(m.externFns))
	for name, sig := range m.runtime {
		decls[name] = sig
	}
	for name, sig := range m.externFns {
		decls[name] = sig
	}
	names := make([]string, 0, len(decls))
	for name := range decls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sig := decls[name]
		fmt.Fprintf(buf, "declare %s @%s(%s)\n", sig.Ret, name, strings.Join(sig.Params, ", "))
	}
	buf.WriteString("\n")
}

func (m *Module) renderExterns(buf *strings.Builder) {
	if len(m.externs) == 0 {
		return
	}
	names := make([]string, 0, len(m.externs))
	for name := range m.externs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(buf, "@%s = external global %s\n", name, m.externs[name])
	}
	buf.WriteString("\n")
}

func (m *Module) renderStrings(buf *strings.Builder) {
	if len(m.strs) == 0 {
		return
	}
	for _, sc := range m.strs {
		fmt.Fprintf(buf, "@%s = private unnamed_addr constant [%d x i8] %s\n",
			sc.globalName, sc.arrayLen, formatBytes(sc.bytes, sc.arrayLen))
	}
	buf.WriteString("\n")
}

func (m *Module) renderGlobals(buf *strings.Builder) {
	if len(m.globals) == 0 {
		return
	}
	for _, g := range m.globals {
		keyword := "global"
		if g.Const {
			keyword = "constant"
		}
		linkage := ""
		if g.Linkage != "" {
			linkage = g.Linkage + " "
		}
		align := ""
		if g.Align > 0 {
			align = fmt.Sprintf(", align %d", g.Align)
		}
		fmt.Fprintf(buf, "@%s = %s%s %s %s%s\n",
			g.Name, linkage, keyword, g.Init.TypeString(m), g.Init.ValueString(m), align)
	}
	buf.WriteString("\n")
}

func (m *Module) renderClassList(buf *strings.Builder) {
	if len(m.classes) == 0 {
		return
	}
	parts := make([]string, len(m.classes))
	for i, ref := range m.classes {
		parts[i] = "ptr " + ref.ValueString(m)
	}
	fmt.Fprintf(buf, "@basalt.classes = appending global [%d x ptr] [%s], section \"basalt_classlist\"\n\n",
		len(m.classes), strings.Join(parts, ", "))
}

func (m *Module) renderFuncs(buf *strings.Builder) {
	for _, f := range m.funcs {
		m.renderFunc(buf, f)
	}
}

func (m *Module) renderFunc(buf *strings.Builder, f *Func) {
	params := make([]string, len(f.Sig.Params))
	for i, p := range f.Sig.Params {
		params[i] = fmt.Sprintf("%s %%p%d", p, i)
	}
	linkage := ""
	if f.Internal {
		linkage = "internal "
	}
	fmt.Fprintf(buf, "define %s%s @%s(%s) {\n", linkage, f.Sig.Ret, f.Name, strings.Join(params, ", "))
	for _, blk := range f.blocks {
		fmt.Fprintf(buf, "%s:\n", blk.Label)
		for _, line := range blk.lines {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	buf.WriteString("}\n\n")
}
