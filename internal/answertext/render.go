package answertext

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// TextOptions controls terminal rendering.
type TextOptions struct {
	// Color enables ANSI bold for bold spans and headings.
	Color bool
	// Width is the length of horizontal rules. Zero uses 60.
	Width int
}

const (
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
)

// RenderText writes blocks as plain terminal text. Citations keep their
// bracketed page form so they remain recognizable.
func RenderText(out io.Writer, blocks []Block, opts TextOptions) error {
	width := opts.Width
	if width <= 0 {
		width = 60
	}

	var b strings.Builder
	for _, blk := range blocks {
		switch blk.Kind {
		case BlockSpacer:
			b.WriteString("\n")
		case BlockRule:
			b.WriteString(strings.Repeat("─", width) + "\n")
		case BlockHeading:
			text := renderSpans(blk.Spans, opts)
			if opts.Color {
				text = ansiBold + PlainText(blk.Spans) + ansiReset
			}
			b.WriteString(text + "\n")
			if blk.Level <= 2 {
				underline := "="
				if blk.Level == 2 {
					underline = "-"
				}
				b.WriteString(strings.Repeat(underline, len([]rune(PlainText(blk.Spans)))) + "\n")
			}
		case BlockQuote:
			for _, l := range blk.Lines {
				b.WriteString("│ " + renderSpans(l, opts) + "\n")
			}
		case BlockTable:
			b.WriteString(renderTable(blk, opts))
		case BlockBullet:
			b.WriteString("  " + blk.Marker + " " + renderSpans(blk.Spans, opts) + "\n")
		case BlockParagraph:
			text := renderSpans(blk.Spans, opts)
			if blk.Label && opts.Color {
				text = ansiBold + PlainText(blk.Spans) + ansiReset
			}
			b.WriteString(text + "\n")
		}
	}

	_, err := io.WriteString(out, b.String())
	return err
}

func renderSpans(spans []Span, opts TextOptions) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case SpanBold:
			if opts.Color {
				b.WriteString(ansiBold + s.Text + ansiReset)
			} else {
				b.WriteString(s.Text)
			}
		case SpanCitation:
			if opts.Color {
				b.WriteString(ansiDim + "[" + s.Text + "]" + ansiReset)
			} else {
				b.WriteString("[" + s.Text + "]")
			}
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

// renderTable aligns cells with a tabwriter. Color is not applied inside
// tables because escape codes break column widths.
func renderTable(blk Block, _ TextOptions) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	plain := TextOptions{}
	writeRow := func(cells [][]Span) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = renderSpans(c, plain)
		}
		_, _ = fmt.Fprintln(w, strings.Join(parts, "\t"))
	}

	writeRow(blk.Header)
	seps := make([]string, len(blk.Header))
	for i, c := range blk.Header {
		seps[i] = strings.Repeat("-", max(len([]rune(PlainText(c))), 3))
	}
	_, _ = fmt.Fprintln(w, strings.Join(seps, "\t"))
	for _, r := range blk.Rows {
		writeRow(r)
	}
	_ = w.Flush()
	return b.String()
}

// Format parses text and renders it in one step.
func Format(out io.Writer, text string, opts TextOptions) error {
	return RenderText(out, Parse(text), opts)
}
