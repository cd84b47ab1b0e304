package parse

import (
	"regexp"
	"strings"
)

var (
	htmlTagRE    = regexp.MustCompile(`<[^>]*>`)
	cdataRE      = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	scriptRE     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRE      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	whitespaceRE = regexp.MustCompile(`\s+`)

	// CMS leftovers seen in real feeds: wagtail rich-text wrappers, python
	// object reprs, struct-value dumps.
	wagtailRE     = regexp.MustCompile(`(?is)<wagtail[^>]*>.*?</wagtail>|<wagtail\.rich_text\.RichText[^>]*>`)
	structValueRE = regexp.MustCompile(`<ListValue:\s*\[StructValue\([^)]*\)\]>|StructValue\([^)]*\)`)
	asideBlockRE  = regexp.MustCompile(`aside_block\s+<[^>]*>`)
	objectReprRE  = regexp.MustCompile(`<[^>]*object at 0x[a-fA-F0-9]+>`)
	numericEntRE  = regexp.MustCompile(`&#\d+;`)
)

// entityReplacer decodes the fixed table of named and numeric HTML entities
// that survive tag stripping. Applied before the leftover numeric-entity
// sweep, so the common typographic codes keep their glyphs.
var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&nbsp;", " ",
	"&#39;", "'",
	"&#x27;", "'",
	"&#x2F;", "/",
	"&#8220;", "“",
	"&#8221;", "”",
	"&#8217;", "’",
	"&#8216;", "‘",
	"&#8211;", "–",
	"&#8212;", "—",
	"&#8230;", "…",
	"&mdash;", "—",
	"&ndash;", "–",
	"&ldquo;", "“",
	"&rdquo;", "”",
	"&lsquo;", "‘",
	"&rsquo;", "’",
	"&hellip;", "…",
	"&#160;", " ",
	"&#8594;", "→",
	"&#8592;", "←",
	"&#8593;", "↑",
	"&#8595;", "↓",
)

// trailerPatterns are truncation boilerplate and junk that feeds append to
// descriptions. Order matters: anchored trailers run against the already
// whitespace-collapsed text.
var trailerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[\x{2026}\]`),
	regexp.MustCompile(`\[\.\.\.\]`),
	regexp.MustCompile(`Read More\.\.\..*$`),
	regexp.MustCompile(`Continue reading.*$`),
	regexp.MustCompile(`Click here.*$`),
	regexp.MustCompile(`More info.*$`),
	regexp.MustCompile(`\s*\.\.\.\s*$`),
	regexp.MustCompile(`^\s*-\s*`),
	regexp.MustCompile(`^\s*\*\s*`),
	regexp.MustCompile(`\{'[^']*'[^}]*\}`),
	regexp.MustCompile(`\([^)]*'[^']*'[^)]*\)`),
	regexp.MustCompile(`an\.\.\.$`),
	regexp.MustCompile(`<[^>]*Value[^>]*>`),
	regexp.MustCompile(`object at 0x[a-fA-F0-9]+`),
}

// Clean runs the full text sanitation pipeline: unwrap CDATA, drop
// script/style blocks, strip tags, decode entities, remove CMS artifacts,
// collapse whitespace, trim trailers.
func Clean(input string) string {
	if input == "" {
		return ""
	}

	text := cdataRE.ReplaceAllString(input, "$1")
	text = scriptRE.ReplaceAllString(text, "")
	text = styleRE.ReplaceAllString(text, "")
	text = htmlTagRE.ReplaceAllString(text, "")

	text = entityReplacer.Replace(text)

	text = wagtailRE.ReplaceAllString(text, "")
	text = structValueRE.ReplaceAllString(text, "")
	text = asideBlockRE.ReplaceAllString(text, "")
	text = objectReprRE.ReplaceAllString(text, "")
	text = numericEntRE.ReplaceAllString(text, "")

	text = strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))

	for _, re := range trailerPatterns {
		text = re.ReplaceAllString(text, "")
	}

	return strings.TrimSpace(text)
}
