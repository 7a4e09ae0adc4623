package ai

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// PlainText strips markdown markup before embedding. Headings and list
// structure add tokens without adding meaning, and the markers themselves
// skew similarity for short library entries.
func PlainText(markdown string) string {
	src := []byte(markdown)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var parts []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			segment := v.Segment
			parts = append(parts, string(segment.Value(src)))
			if v.SoftLineBreak() || v.HardLineBreak() {
				parts = append(parts, "\n")
			}
		case *ast.FencedCodeBlock:
			lines := v.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				parts = append(parts, string(line.Value(src)))
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if len(parts) > 0 {
				parts = append(parts, "\n")
			}
		}
		return ast.WalkContinue, nil
	})
	joined := strings.Join(parts, "")
	return strings.TrimSpace(joined)
}
