// Package richtext cleans product descriptions pasted from word processors and
// chat assistants into a small, stable HTML subset.
//
// The pipeline runs in a fixed order:
//
//  1. anchors and citation pills are removed together with their text
//  2. the fragment is reduced to an allow-list of tags and attributes
//  3. leftover identity attributes and vendor style declarations are dropped
//  4. spans are unwrapped and whitespace is collapsed outside pre and code
//  5. tables are reformatted (optional)
//  6. paragraphs directly inside list items are unwrapped (optional)
//
// Sanitize never panics and Sanitize(Sanitize(x)) == Sanitize(x).
package richtext

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Options enables the optional stages.
type Options struct {
	FormatTables         bool
	UnwrapListParagraphs bool
}

// DefaultOptions is what the product editor saves with.
func DefaultOptions() Options {
	return Options{FormatTables: true, UnwrapListParagraphs: true}
}

// Sanitize runs the pipeline over an HTML fragment. Malformed input is cleaned
// on a best-effort basis; if a stage fails the fragment is reduced to text.
func Sanitize(fragment string, opts Options) (out string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("richtext: sanitize panicked, falling back to text")
			out = textOnly(fragment)
		}
	}()

	cleaned, err := sanitize(fragment, opts)
	if err != nil {
		log.Warn().Err(err).Msg("richtext: sanitize failed, falling back to text")
		return textOnly(fragment)
	}
	return cleaned
}

func sanitize(fragment string, opts Options) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}

	// Stage 1
	root, err := parse(fragment)
	if err != nil {
		return "", err
	}
	removeLinksAndCitations(root)
	s, err := render(root)
	if err != nil {
		return "", err
	}

	// Stage 2
	s = allowList.Sanitize(s)
	if root, err = parse(s); err != nil {
		return "", err
	}
	dropUnsafeStyles(root)

	// Stage 3
	stripResidualAttrs(root)

	// Stage 4
	unwrapSpans(root)

	// Stages 5 and 6 work on the tree, so they run before the string-level
	// whitespace pass; neither introduces whitespace.
	if opts.FormatTables {
		formatTables(root)
	}
	if opts.UnwrapListParagraphs {
		unwrapListParagraphs(root)
	}

	if s, err = render(root); err != nil {
		return "", err
	}
	return collapseWhitespace(s), nil
}

// PlainText returns the visible text of fragment with whitespace squeezed.
func PlainText(fragment string) string {
	return strings.Join(strings.Fields(html.UnescapeString(textPolicy.Sanitize(fragment))), " ")
}

// textOnly is the fallback when the tree pipeline cannot run.
func textOnly(fragment string) string {
	return collapseWhitespace(textPolicy.Sanitize(fragment))
}

// parse returns a detached container holding the fragment's nodes.
func parse(fragment string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return nil, fmt.Errorf("richtext: parse: %w", err)
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// render serializes the container's children.
func render(root *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("richtext: render: %w", err)
		}
	}
	return buf.String(), nil
}

// ── Tree helpers ─────────────────────────────────────────────────────────────

// collect returns the descendants of n matching pred in document order. The
// result is a snapshot, so callers may detach nodes while iterating.
func collect(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if pred(c) {
				out = append(out, c)
			}
			visit(c)
		}
	}
	visit(n)
	return out
}

func isElement(n *html.Node, a atom.Atom) bool {
	return n.Type == html.ElementNode && n.DataAtom == a
}

// unwrap replaces n by its children.
func unwrap(n *html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
		parent.InsertBefore(c, n)
	}
	parent.RemoveChild(n)
}

func remove(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// textContent concatenates all text below n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(p *html.Node) {
		if p.Type == html.TextNode {
			sb.WriteString(p.Data)
		}
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}
