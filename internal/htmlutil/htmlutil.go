// Package htmlutil flattens markup into line-oriented text.
package htmlutil

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms end a line in the flattened text.
var blockAtoms = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Footer: true, atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true, atom.Hr: true,
	atom.Li: true, atom.Main: true, atom.Nav: true, atom.Ol: true, atom.P: true,
	atom.Section: true, atom.Table: true, atom.Tbody: true, atom.Thead: true,
	atom.Tr: true, atom.Ul: true,
}

var (
	inlineSpace = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
)

// FlattenText parses markup and returns its visible text with one line per
// block element. Script and style contents are dropped.
func FlattenText(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var buffer bytes.Buffer
	writeText(doc, &buffer)
	return tidy(buffer.String())
}

func writeText(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		buffer.WriteString(node.Data)
		return
	case html.ElementNode:
		if node.DataAtom == atom.Script || node.DataAtom == atom.Style || node.DataAtom == atom.Noscript {
			return
		}
	}

	isBlock := node.Type == html.ElementNode && blockAtoms[node.DataAtom]
	if isBlock {
		buffer.WriteByte('\n')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeText(child, buffer)
	}
	if isBlock {
		buffer.WriteByte('\n')
	}
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(inlineSpace.ReplaceAllString(l, " "))
	}
	out := strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}
