package richtext

import (
	"strings"

	"golang.org/x/net/html"
)

var residualAttrs = map[string]bool{
	"id":              true,
	"class":           true,
	"tabindex":        true,
	"role":            true,
	"contenteditable": true,
	"draggable":       true,
	"dir":             true,
}

var vendorStylePrefixes = []string{"mso-", "-webkit-", "-moz-", "-ms-", "-o-"}

// stripResidualAttrs drops identity, accessibility and editor attributes and
// rewrites style into "prop: value; prop: value" without vendor declarations.
func stripResidualAttrs(root *html.Node) {
	for _, n := range collect(root, func(n *html.Node) bool { return n.Type == html.ElementNode }) {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			key := strings.ToLower(a.Key)
			if residualAttrs[key] || strings.HasPrefix(key, "aria-") || strings.HasPrefix(key, "data-") {
				continue
			}
			if key == "style" {
				a.Val = normalizeStyle(a.Val)
				if a.Val == "" {
					continue
				}
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}
}

type declaration struct {
	prop, value string
}

func parseStyle(style string) []declaration {
	var decls []declaration
	for _, part := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.Join(strings.Fields(value), " ")
		if prop == "" || value == "" {
			continue
		}
		decls = append(decls, declaration{prop: prop, value: value})
	}
	return decls
}

func formatStyle(decls []declaration) string {
	parts := make([]string, 0, len(decls))
	for _, d := range decls {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}

func normalizeStyle(style string) string {
	decls := parseStyle(style)
	kept := decls[:0]
	for _, d := range decls {
		if !isVendorProperty(d.prop) {
			kept = append(kept, d)
		}
	}
	return formatStyle(kept)
}

func isVendorProperty(prop string) bool {
	for _, p := range vendorStylePrefixes {
		if strings.HasPrefix(prop, p) {
			return true
		}
	}
	return false
}

func hasStyleProperty(n *html.Node, prop string) bool {
	style, _ := attr(n, "style")
	for _, d := range parseStyle(style) {
		if d.prop == prop {
			return true
		}
	}
	return false
}

// appendStyle adds declarations after the element's existing ones.
func appendStyle(n *html.Node, decls ...declaration) {
	style, _ := attr(n, "style")
	setAttr(n, "style", formatStyle(append(parseStyle(style), decls...)))
}
