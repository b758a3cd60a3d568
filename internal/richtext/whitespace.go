package richtext

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// unwrapSpans promotes span children into the span's place.
func unwrapSpans(root *html.Node) {
	for _, n := range collect(root, func(n *html.Node) bool { return isElement(n, atom.Span) }) {
		unwrap(n)
	}
}

var (
	// Serialized output only, so tags are lowercase. A pre is matched first and
	// swallows any code inside it.
	preformatted  = regexp.MustCompile(`(?s)<pre\b[^>]*>.*?</pre>|<code\b[^>]*>.*?</code>`)
	placeholder   = regexp.MustCompile(`<!--richtext:keep:(\d+)-->`)
	whitespaceRun = regexp.MustCompile(`\s{2,}`)
	betweenTags   = regexp.MustCompile(`>\s+<`)
)

// collapseWhitespace squeezes runs of whitespace and removes whitespace
// between tags, keeping a single space between two inline elements. pre and code blocks are swapped for comment placeholders
// first and restored afterwards; comments never survive the allow-list, so a
// placeholder cannot come from the input.
func collapseWhitespace(s string) string {
	var kept []string
	s = preformatted.ReplaceAllStringFunc(s, func(block string) string {
		kept = append(kept, block)
		return fmt.Sprintf("<!--richtext:keep:%d-->", len(kept)-1)
	})

	s = whitespaceRun.ReplaceAllString(s, " ")
	s = collapseBetweenTags(s)
	s = strings.TrimSpace(s)

	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		i, err := strconv.Atoi(placeholder.FindStringSubmatch(m)[1])
		if err != nil || i >= len(kept) {
			return ""
		}
		return kept[i]
	})
}

// inlineTags separate words when whitespace sits between them.
var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "cite": true, "em": true, "i": true,
	"mark": true, "q": true, "s": true, "small": true, "strong": true,
	"sub": true, "sup": true, "u": true,
}

func collapseBetweenTags(s string) string {
	gaps := betweenTags.FindAllStringIndex(s, -1)
	if len(gaps) == 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, g := range gaps {
		b.WriteString(s[last : g[0]+1])
		if inlineTags[tagBefore(s[:g[0]+1])] && inlineTags[tagAfter(s[g[1]-1:])] {
			b.WriteByte(' ')
		}
		last = g[1] - 1
	}
	b.WriteString(s[last:])
	return b.String()
}

// tagBefore names the tag that closes s, which ends with '>'.
func tagBefore(s string) string {
	i := strings.LastIndexByte(s, '<')
	if i < 0 {
		return ""
	}
	return tagAfter(s[i:])
}

// tagAfter names the tag that opens s, which starts with '<'.
func tagAfter(s string) string {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "<"), "/")
	end := strings.IndexFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	if end < 0 {
		return s
	}
	return s[:end]
}
