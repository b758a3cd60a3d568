package richtext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Styles applied to table elements that arrive without any style.
var (
	defaultTableStyle = []declaration{{"border-collapse", "collapse"}, {"width", "100%"}}
	defaultCellStyle  = []declaration{{"border", "1px solid #cccccc"}, {"padding", "4px 8px"}, {"vertical-align", "top"}}
)

// The first column holds labels; it may wrap instead of pushing the values off screen.
var firstColumnCap = []declaration{{"width", "30%"}, {"white-space", "normal"}}

// formatTables tidies tables for the shop front end.
func formatTables(root *html.Node) {
	for _, table := range collect(root, func(n *html.Node) bool { return isElement(n, atom.Table) }) {
		removeEmptyHeaders(table)
		applyDefaultStyles(table)
		capFirstColumn(table)
		if table.Parent != nil && !isElement(table.Parent, atom.Figure) {
			wrap(table, &html.Node{Type: html.ElementNode, Data: "figure", DataAtom: atom.Figure})
		}
	}
}

// rows returns the table's own rows, not those of nested tables.
func rows(table *html.Node) []*html.Node {
	var out []*html.Node
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case isElement(c, atom.Tr):
			out = append(out, c)
		case isElement(c, atom.Thead), isElement(c, atom.Tbody), isElement(c, atom.Tfoot):
			for r := c.FirstChild; r != nil; r = r.NextSibling {
				if isElement(r, atom.Tr) {
					out = append(out, r)
				}
			}
		}
	}
	return out
}

func cells(row *html.Node) []*html.Node {
	var out []*html.Node
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, atom.Th) || isElement(c, atom.Td) {
			out = append(out, c)
		}
	}
	return out
}

// isEmptyCell: only whitespace, non-breaking spaces and line breaks.
func isEmptyCell(cell *html.Node) bool {
	for _, n := range collect(cell, func(n *html.Node) bool { return n.Type == html.ElementNode }) {
		if !isElement(n, atom.Br) {
			return false
		}
	}
	return strings.TrimSpace(textContent(cell)) == ""
}

// removeEmptyHeaders deletes header rows without content and trailing empty
// header cells, which editors leave behind after column deletes.
func removeEmptyHeaders(table *html.Node) {
	for _, row := range rows(table) {
		cs := cells(row)
		if len(cs) == 0 || (!isElement(cs[0], atom.Th) && !isElement(row.Parent, atom.Thead)) {
			continue
		}
		allEmpty := true
		for _, c := range cs {
			if !isEmptyCell(c) {
				allEmpty = false
				break
			}
		}
		if allEmpty {
			remove(row)
			continue
		}
		for i := len(cs) - 1; i > 0 && isElement(cs[i], atom.Th) && isEmptyCell(cs[i]); i-- {
			remove(cs[i])
		}
	}
	for _, section := range collect(table, func(n *html.Node) bool { return isElement(n, atom.Thead) }) {
		if section.Parent == table && len(collect(section, func(n *html.Node) bool { return isElement(n, atom.Tr) })) == 0 {
			remove(section)
		}
	}
}

func applyDefaultStyles(table *html.Node) {
	if _, ok := attr(table, "style"); !ok {
		appendStyle(table, defaultTableStyle...)
	}
	for _, row := range rows(table) {
		for _, c := range cells(row) {
			if _, ok := attr(c, "style"); !ok {
				appendStyle(c, defaultCellStyle...)
			}
		}
	}
}

func capFirstColumn(table *html.Node) {
	for _, row := range rows(table) {
		cs := cells(row)
		if len(cs) < 2 || hasStyleProperty(cs[0], "width") {
			continue
		}
		appendStyle(cs[0], firstColumnCap...)
	}
}

// wrap puts n inside w at n's position.
func wrap(n, w *html.Node) {
	n.Parent.InsertBefore(w, n)
	n.Parent.RemoveChild(n)
	w.AppendChild(n)
}

// unwrapListParagraphs turns <li><p>x</p></li> into <li>x</li>.
func unwrapListParagraphs(root *html.Node) {
	paragraphs := collect(root, func(n *html.Node) bool {
		return isElement(n, atom.P) && n.Parent != nil && isElement(n.Parent, atom.Li)
	})
	for _, p := range paragraphs {
		unwrap(p)
	}
}
