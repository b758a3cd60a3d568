package richtext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// removeLinksAndCitations drops anchors and citation pills with everything
// inside them. Chat assistants render sources as pills whose label is the
// source's name, which must not survive as text.
func removeLinksAndCitations(root *html.Node) {
	for _, n := range collect(root, isLinkOrCitation) {
		remove(n)
	}
}

func isLinkOrCitation(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom == atom.A {
		return true
	}
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		val := strings.ToLower(a.Val)
		switch {
		case key == "class" && strings.Contains(val, "citation"):
			return true
		case strings.HasPrefix(key, "data-citation"):
			return true
		case key == "data-testid" && strings.Contains(val, "citation"):
			return true
		}
	}
	return false
}
