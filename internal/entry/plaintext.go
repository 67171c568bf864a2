package entry

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// PlainText strips markdown structure from body, returning the prose with
// blocks separated by single spaces. The index stores this form so search
// matches text the way the user reads it, not raw markup.
func PlainText(body string) string {
	src := []byte(body)
	root := md.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch t := n.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.AutoLink:
				b.Write(t.URL(src))
			case *ast.FencedCodeBlock, *ast.CodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(src))
					b.WriteByte(' ')
				}
			}
			return ast.WalkContinue, nil
		}
		// Block boundary; keeps adjacent paragraphs from gluing together.
		if n.Type() == ast.TypeBlock {
			b.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(b.String()), " ")
}

// Preview returns the first max runes of the plain-text body, with an
// ellipsis when truncated.
func Preview(body string, max int) string {
	plain := PlainText(body)
	runes := []rune(plain)
	if len(runes) <= max {
		return plain
	}
	return string(runes[:max]) + "..."
}
