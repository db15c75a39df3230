package answertext

import (
	"regexp"
	"strconv"
)

// SpanKind identifies an inline token.
type SpanKind string

const (
	SpanText     SpanKind = "text"
	SpanBold     SpanKind = "bold"
	SpanCitation SpanKind = "citation"
)

// Span is one inline token. Citation spans carry the cited page.
type Span struct {
	Kind SpanKind `json:"kind"`
	Text string   `json:"text"`
	Page int      `json:"page,omitempty"`
}

// CitationHandler is notified with the page number when a citation is
// activated.
type CitationHandler func(page int)

// Activate invokes h with the span's page if the span is a citation. It
// reports whether the handler was called.
func (s Span) Activate(h CitationHandler) bool {
	if s.Kind != SpanCitation || h == nil {
		return false
	}
	h(s.Page)
	return true
}

var (
	boldRe     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	citationRe = regexp.MustCompile(`\[p\.(\d+)(?:-\d+)?\]`)
)

// ParseInline tokenizes one line left to right. At each step the earliest
// bold or citation marker wins; text before it is emitted literally. An
// unterminated bold marker never matches and passes through as text.
func ParseInline(text string) []Span {
	var spans []Span
	remaining := text

	for remaining != "" {
		bold := boldRe.FindStringSubmatchIndex(remaining)
		cite := citationRe.FindStringSubmatchIndex(remaining)

		switch {
		case bold != nil && (cite == nil || bold[0] < cite[0]):
			spans = appendText(spans, remaining[:bold[0]])
			spans = append(spans, Span{Kind: SpanBold, Text: remaining[bold[2]:bold[3]]})
			remaining = remaining[bold[1]:]

		case cite != nil:
			spans = appendText(spans, remaining[:cite[0]])
			marker := remaining[cite[0]:cite[1]]
			page, err := strconv.Atoi(remaining[cite[2]:cite[3]])
			if err != nil || page <= 0 {
				spans = appendText(spans, marker)
			} else {
				spans = append(spans, Span{Kind: SpanCitation, Text: "p." + strconv.Itoa(page), Page: page})
			}
			remaining = remaining[cite[1]:]

		default:
			spans = appendText(spans, remaining)
			remaining = ""
		}
	}

	return spans
}

// appendText adds literal text, merging with a preceding text span so that
// rejected markers do not fragment the output.
func appendText(spans []Span, s string) []Span {
	if s == "" {
		return spans
	}
	if n := len(spans); n > 0 && spans[n-1].Kind == SpanText {
		spans[n-1].Text += s
		return spans
	}
	return append(spans, Span{Kind: SpanText, Text: s})
}

// PlainText joins the visible text of spans.
func PlainText(spans []Span) string {
	var out string
	for _, s := range spans {
		out += s.Text
	}
	return out
}
