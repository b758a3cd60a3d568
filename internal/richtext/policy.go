package richtext

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// allowedElements is the structural and formatting subset kept in descriptions.
var allowedElements = []string{
	"p", "br",
	"h1", "h2", "h3", "h4", "h5", "h6",
	"b", "strong", "i", "em", "u",
	"ul", "ol", "li",
	"table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption", "colgroup", "col",
	"hr", "blockquote", "code", "pre",
}

var allowedAttrs = []string{"style", "colspan", "rowspan", "align", "scope", "width", "height"}

var (
	allowList  = newAllowList()
	textPolicy = bluemonday.StrictPolicy()
)

// newAllowList removes, rather than escapes, everything outside the subset.
// Style values pass through untouched here and are checked by dropUnsafeStyles.
func newAllowList() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedElements...)
	p.AllowAttrs(allowedAttrs...).Globally()
	return p
}

var unsafeStylePatterns = []string{"expression(", "javascript:", "vbscript:", "url(javascript"}

// dropUnsafeStyles removes style attributes that could execute script in old
// rendering engines.
func dropUnsafeStyles(root *html.Node) {
	for _, n := range collect(root, func(n *html.Node) bool { return n.Type == html.ElementNode }) {
		style, ok := attr(n, "style")
		if ok && isUnsafeStyle(style) {
			removeAttr(n, "style")
		}
	}
}

func isUnsafeStyle(style string) bool {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\\':
			return -1
		}
		return r
	}, strings.ToLower(style))
	for _, p := range unsafeStylePatterns {
		if strings.Contains(compact, p) {
			return true
		}
	}
	return false
}
