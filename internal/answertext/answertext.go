// Package answertext turns the semi-structured answer text produced by the
// extraction backend into display blocks. It understands headings, rules,
// blockquotes, pipe tables, bullets, bold spans and page citations; it is
// not a markdown engine.
package answertext

import (
	"regexp"
	"strings"
)

// BlockKind identifies a display block.
type BlockKind string

const (
	BlockSpacer    BlockKind = "spacer"
	BlockRule      BlockKind = "rule"
	BlockHeading   BlockKind = "heading"
	BlockQuote     BlockKind = "quote"
	BlockTable     BlockKind = "table"
	BlockBullet    BlockKind = "bullet"
	BlockParagraph BlockKind = "paragraph"
)

// MaxHeadingLevel is the deepest heading the formatter recognizes.
const MaxHeadingLevel = 4

// Block is one display unit. Which fields are set depends on Kind:
// headings, bullets and paragraphs use Spans; quotes use Lines; tables use
// Header and Rows.
type Block struct {
	Kind   BlockKind  `json:"kind"`
	Level  int        `json:"level,omitempty"`
	Marker string     `json:"marker,omitempty"`
	Label  bool       `json:"label,omitempty"`
	Spans  []Span     `json:"spans,omitempty"`
	Lines  [][]Span   `json:"lines,omitempty"`
	Header [][]Span   `json:"header,omitempty"`
	Rows   [][][]Span `json:"rows,omitempty"`
}

// DisplayLevel maps the markup level onto an HTML-style heading level. The
// page title owns h1, so answer headings start at h2 and never exceed h6.
func (b Block) DisplayLevel() int {
	return min(b.Level+1, 6)
}

var (
	ruleRe      = regexp.MustCompile(`^-{3,}$`)
	headingRe   = regexp.MustCompile(`^(#{1,4})\s+(.*)$`)
	quotePrefix = regexp.MustCompile(`^>\s?`)
	separatorRe = regexp.MustCompile(`^\|[\s\-:|]+\|$`)
	bulletRe    = regexp.MustCompile(`^([-•✓⚠])\x{FE0F}?\s+(.*)$`)
	labelRe     = regexp.MustCompile(`^[A-Z][^.]*:$`)
)

// Parse converts answer text into blocks in a single forward scan. Blank
// lines become spacers, except at the very start and end of the input. An
// empty input yields no blocks.
func Parse(text string) []Block {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}

	var blocks []Block
	for i := 0; i < len(lines); {
		trimmed := strings.TrimSpace(lines[i])

		switch {
		case trimmed == "":
			blocks = append(blocks, Block{Kind: BlockSpacer})
			i++

		case ruleRe.MatchString(trimmed):
			blocks = append(blocks, Block{Kind: BlockRule})
			i++

		case headingRe.MatchString(trimmed):
			m := headingRe.FindStringSubmatch(trimmed)
			blocks = append(blocks, Block{
				Kind:  BlockHeading,
				Level: min(len(m[1]), MaxHeadingLevel),
				Spans: ParseInline(m[2]),
			})
			i++

		case strings.HasPrefix(trimmed, ">"):
			quote := Block{Kind: BlockQuote}
			for i < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i]), ">") {
				body := quotePrefix.ReplaceAllString(strings.TrimSpace(lines[i]), "")
				quote.Lines = append(quote.Lines, ParseInline(body))
				i++
			}
			blocks = append(blocks, quote)

		case isTableLine(trimmed):
			var run []string
			for i < len(lines) && isTableLine(strings.TrimSpace(lines[i])) {
				run = append(run, strings.TrimSpace(lines[i]))
				i++
			}
			if table, ok := parseTable(run); ok {
				blocks = append(blocks, table)
				continue
			}
			for _, l := range run {
				blocks = append(blocks, paragraph(l))
			}

		case bulletRe.MatchString(trimmed):
			m := bulletRe.FindStringSubmatch(trimmed)
			blocks = append(blocks, Block{
				Kind:   BlockBullet,
				Marker: m[1],
				Spans:  ParseInline(m[2]),
			})
			i++

		default:
			blocks = append(blocks, paragraph(trimmed))
			i++
		}
	}

	return blocks
}

func paragraph(line string) Block {
	return Block{
		Kind:  BlockParagraph,
		Label: labelRe.MatchString(line),
		Spans: ParseInline(line),
	}
}

func isTableLine(trimmed string) bool {
	return strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|")
}

// parseTable builds a table from a run of pipe lines. Separator rows are
// dropped; the first remaining row is the header. A run with fewer than two
// remaining rows is not a table.
func parseTable(run []string) (Block, bool) {
	var rows []string
	for _, l := range run {
		if !separatorRe.MatchString(l) {
			rows = append(rows, l)
		}
	}
	if len(rows) < 2 {
		return Block{}, false
	}

	table := Block{Kind: BlockTable, Header: parseRow(rows[0])}
	for _, r := range rows[1:] {
		table.Rows = append(table.Rows, parseRow(r))
	}
	return table, true
}

func parseRow(line string) [][]Span {
	parts := strings.Split(line, "|")
	if len(parts) < 2 {
		return nil
	}
	cells := make([][]Span, 0, len(parts)-2)
	for _, cell := range parts[1 : len(parts)-1] {
		cells = append(cells, ParseInline(strings.TrimSpace(cell)))
	}
	return cells
}

// splitLines normalizes line endings and drops leading and trailing blank
// lines.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// Citations returns the cited pages in document order, including repeats.
func Citations(blocks []Block) []int {
	var pages []int
	collect := func(spans []Span) {
		for _, s := range spans {
			if s.Kind == SpanCitation {
				pages = append(pages, s.Page)
			}
		}
	}
	for _, b := range blocks {
		collect(b.Spans)
		for _, l := range b.Lines {
			collect(l)
		}
		for _, c := range b.Header {
			collect(c)
		}
		for _, r := range b.Rows {
			for _, c := range r {
				collect(c)
			}
		}
	}
	return pages
}
