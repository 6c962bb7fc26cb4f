package ir

import (
	"fmt"
	"strings"
)

type stringConst struct {
	bytes      []byte
	arrayLen   int
	globalName string
}

// InternCString interns a NUL-terminated byte string and returns the symbol
// of its private global. Equal contents share one global.
func (m *Module) InternCString(s string) string {
	if sc, ok := m.strIndex[s]; ok {
		return sc.globalName
	}
	bytes := append([]byte(s), 0)
	sc := &stringConst{
		bytes:      bytes,
		arrayLen:   len(bytes),
		globalName: fmt.Sprintf(".str.%d", len(m.strs)),
	}
	m.strIndex[s] = sc
	m.strs = append(m.strs, sc)
	return sc.globalName
}

func formatBytes(data []byte, arrayLen int) string {
	var sb strings.Builder
	sb.WriteString("c\"")
	for i := 0; i < arrayLen; i++ {
		b := byte(0)
		if i < len(data) {
			b = data[i]
		}
		fmt.Fprintf(&sb, "\\%02X", b)
	}
	sb.WriteString("\"")
	return sb.String()
}
