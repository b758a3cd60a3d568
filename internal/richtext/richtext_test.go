package richtext

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSanitize_UnwrapsSpanAndDropsAttributes(t *testing.T) {
	in := `<p>Hello <span class="x" data-foo="bar">world</span></p>`
	assert.Equal(t, "<p>Hello world</p>", Sanitize(in, Options{}))
	assert.Equal(t, "<p>Hello world</p>", Sanitize(in, DefaultOptions()))
}

func TestSanitize_RemovesAnchorsWithTheirText(t *testing.T) {
	in := `<p>Read <a href="https://example.test/a">the source</a> now.</p><a href="#">orphan</a>`
	out := Sanitize(in, DefaultOptions())

	assert.Equal(t, "<p>Read now.</p>", out)
	assert.NotContains(t, out, "<a")
	assert.NotContains(t, out, "the source")
	assert.NotContains(t, out, "orphan")
}

func TestSanitize_RemovesCitationPills(t *testing.T) {
	in := `<p>Cotton is soft<span class="citation-pill">wikipedia.org</span>.</p>` +
		`<p>Dries fast<button data-testid="webpage-citation-pill">brand.example</button>.</p>` +
		`<p>Warm<sup data-citation-index="2">[2]</sup></p>`
	assert.Equal(t, "<p>Cotton is soft.</p><p>Dries fast.</p><p>Warm</p>", Sanitize(in, Options{}))
}

func TestSanitize_NestedSpansKeepTextOrder(t *testing.T) {
	in := `<p><span><span style="color:red">a</span> <span>b<span>c</span></span></span>d</p>`
	out := Sanitize(in, Options{})

	assert.NotContains(t, out, "<span")
	assert.Equal(t, "<p>a bcd</p>", out)
}

func TestSanitize_RemovesDisallowedMarkupWithoutEscaping(t *testing.T) {
	in := `<div onclick="x()"><script>alert(1)</script><p style="color: red" onclick="y()">Hi</p><img src="x.png"></div>`
	out := Sanitize(in, Options{})

	assert.Equal(t, `<p style="color: red">Hi</p>`, out)
	assert.NotContains(t, out, "&lt;")
}

func TestSanitize_DropsScriptingStyles(t *testing.T) {
	in := `<p style="width: expression(alert(1))">a</p><p style="background: url(JavaScript:alert(1))">b</p><p style="color: green">c</p>`
	assert.Equal(t, `<p>a</p><p>b</p><p style="color: green">c</p>`, Sanitize(in, Options{}))
}

func TestSanitize_StripsResidualAttributesAndVendorStyles(t *testing.T) {
	in := `<p class="MsoNormal" id="p1" dir="ltr" role="note" aria-label="x" tabindex="0" ` +
		`style="mso-line-height-rule:exactly; COLOR : blue;-webkit-text-size-adjust:none">x</p>`
	assert.Equal(t, `<p style="color: blue">x</p>`, Sanitize(in, Options{}))

	onlyVendor := `<p style="mso-bidi-font-weight: normal">y</p>`
	assert.Equal(t, `<p>y</p>`, Sanitize(onlyVendor, Options{}))
}

func TestSanitize_KeepsAllowedTableAttributes(t *testing.T) {
	in := `<table><tr><td colspan="2" data-x="1" class="c">a</td></tr></table>`
	assert.Equal(t, `<table><tbody><tr><td colspan="2">a</td></tr></tbody></table>`, Sanitize(in, Options{}))
}

func TestSanitize_PreAndCodeSurviveWhitespaceCollapse(t *testing.T) {
	pre := "<pre>  keep   this\n\tindent  </pre>"
	code := "<code>a    b</code>"
	in := "<p>before    after</p>\n" + pre + "\n<p>x " + code + "  y</p>"

	out := Sanitize(in, DefaultOptions())

	assert.Equal(t, "<p>before after</p>"+pre+"<p>x "+code+" y</p>", out)
	assert.Contains(t, out, pre)
	assert.Contains(t, out, code)
}

func TestSanitize_CollapsesWhitespaceBetweenTags(t *testing.T) {
	in := "\n  <p>a</p>   \n\n <p>b \t  c</p>  "
	assert.Equal(t, "<p>a</p><p>b c</p>", Sanitize(in, Options{}))
}

func TestSanitize_KeepsSpaceBetweenInlineElements(t *testing.T) {
	in := "<p><strong>Material:</strong> <em>Baumwolle</em></p>\n<ul> <li><b>a</b>  <i>b</i></li> </ul>"
	want := "<p><strong>Material:</strong> <em>Baumwolle</em></p><ul><li><b>a</b> <i>b</i></li></ul>"

	out := Sanitize(in, Options{})
	assert.Equal(t, want, out)
	assert.Equal(t, out, Sanitize(out, Options{}))
}

func TestSanitize_FormatTables(t *testing.T) {
	in := `<table><thead><tr><th></th><th>&nbsp;</th></tr></thead>` +
		`<tbody><tr><td>Material</td><td>Baumwolle</td></tr></tbody></table>`

	want := `<figure><table style="border-collapse: collapse; width: 100%"><tbody><tr>` +
		`<td style="border: 1px solid #cccccc; padding: 4px 8px; vertical-align: top; width: 30%; white-space: normal">Material</td>` +
		`<td style="border: 1px solid #cccccc; padding: 4px 8px; vertical-align: top">Baumwolle</td>` +
		`</tr></tbody></table></figure>`
	assert.Equal(t, want, Sanitize(in, DefaultOptions()))

	// Without the option the table is left alone apart from the normal stages.
	assert.NotContains(t, Sanitize(in, Options{}), "<figure>")
}

func TestSanitize_FormatTablesKeepsExistingStylesAndWidths(t *testing.T) {
	in := `<table style="width: 50%"><tr><td style="width: 10%">a</td><td style="color: red">b</td></tr></table>`
	want := `<figure><table style="width: 50%"><tbody><tr><td style="width: 10%">a</td><td style="color: red">b</td></tr></tbody></table></figure>`
	assert.Equal(t, want, Sanitize(in, Options{FormatTables: true}))
}

func TestSanitize_RemovesTrailingEmptyHeaderCells(t *testing.T) {
	in := `<table><tr><th>Größe</th><th>Maß</th><th></th><th> </th></tr><tr><td>S</td><td>40</td></tr></table>`
	out := Sanitize(in, Options{FormatTables: true})

	assert.Equal(t, 2, strings.Count(out, "<th"))
	assert.Contains(t, out, "Größe")
}

func TestSanitize_UnwrapListParagraphs(t *testing.T) {
	in := `<ul><li><p>One</p></li><li><p>Two</p></li></ul>`

	assert.Equal(t, `<ul><li>One</li><li>Two</li></ul>`, Sanitize(in, Options{UnwrapListParagraphs: true}))
	assert.Equal(t, in, Sanitize(in, Options{}))
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Größe & Maß 40", PlainText("<p><b>Größe</b> &amp; Maß</p>\n<p>  40 </p>"))
	assert.Equal(t, "", PlainText("<p></p><br>"))
}

func TestSanitize_Empty(t *testing.T) {
	assert.Equal(t, "", Sanitize("", DefaultOptions()))
	assert.Equal(t, "", Sanitize(" \n\t ", DefaultOptions()))
}

var corpus = []string{
	`<p>Hello <span class="x" data-foo="bar">world</span></p>`,
	`<p>Read <a href="https://example.test">the source</a> now.</p>`,
	`<div><p class="MsoNormal" style="mso-fareast-font-family:Calibri;font-size:12pt">Text&nbsp;with&nbsp;nbsp</p></div>`,
	`<h2 id="t">Pflege</h2><ul><li><p>30° waschen</p></li><li><p><b>nicht</b> bügeln</p></li></ul>`,
	`<table><thead><tr><th></th></tr></thead><tr><th>A</th><th>B</th><th></th></tr><tr><td>1</td><td>2</td></tr></table>`,
	`<table style="width:100%"><tr><td>x</td></tr></table><table><tr><td><table><tr><td>in</td><td>ner</td></tr></table></td></tr></table>`,
	"<pre>\n  code\n    block</pre><p>a  <code>x  y</code>  b</p>",
	`<p>Quotes "double" and 'single' &amp; ampersand &lt;tag&gt;</p>`,
	`<p style="width: expression(alert(1))">a</p><p style="color:red;;  ">b</p>`,
	`<blockquote>zitat<br>zeile<br/></blockquote><hr>`,
	`<p><b>unclosed <i>tags`,
	`</p></div><<<>>>`,
	`<table><td>x`,
	"plain text\r\nwith CRLF",
	`<ol><li><p>a</p><p>b</p></li></ol>`,
	`<p><strong>Material:</strong> <em>Baumwolle</em> <br> <a href="x">y</a></p>`,
	`<figure class="table"><table><tbody><tr><td>already wrapped</td></tr></tbody></table></figure>`,
	`<p>a</p>` + strings.Repeat("<div>", 200) + "deep" + strings.Repeat("</div>", 200),
}

func TestSanitize_Idempotent(t *testing.T) {
	for _, opts := range []Options{{}, DefaultOptions(), {FormatTables: true}, {UnwrapListParagraphs: true}} {
		for _, in := range corpus {
			once := Sanitize(in, opts)
			twice := Sanitize(once, opts)
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("not idempotent for %q with %+v (-once +twice):\n%s", in, opts, diff)
			}
		}
	}
}

func TestSanitize_NeverPanics(t *testing.T) {
	inputs := append([]string{
		"\x00\x01\x02",
		"<",
		"<p",
		"<!--",
		"<![CDATA[x]]>",
		"<svg><script>alert(1)</script></svg>",
		"<math><mi>x</mi></math>",
		strings.Repeat("<span>", 5000),
	}, corpus...)
	for _, in := range inputs {
		assert.NotPanics(t, func() { Sanitize(in, DefaultOptions()) })
	}
}
