package newick

import (
	"io"
	"strconv"
	"strings"

	gr "github.com/jsdoublel/orthoprune/internal/graphs"
)

// String serializes t as "(child1,child2,...)label:length" in postorder,
// terminated by ";\n". Absent branch lengths are omitted.
func String(t *gr.Tree) string {
	var b strings.Builder
	writeNode(&b, t, t.Root())
	b.WriteString(";\n")
	return b.String()
}

// Write serializes t to w.
func Write(w io.Writer, t *gr.Tree) error {
	_, err := io.WriteString(w, String(t))
	return err
}

func writeNode(b *strings.Builder, t *gr.Tree, n gr.NodeID) {
	if !t.IsTip(n) {
		b.WriteByte(descStart)
		for i, c := range t.Children(n) {
			if i > 0 {
				b.WriteByte(delimiter)
			}
			writeNode(b, t, c)
		}
		b.WriteByte(descEnd)
	}
	b.WriteString(t.Label(n))
	if length, ok := t.Length(n); ok {
		b.WriteByte(lengthStart)
		b.WriteString(strconv.FormatFloat(length, 'g', -1, 64))
	}
}
