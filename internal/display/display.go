// Package display renders extracted answers and statuses as short strings
// for terminal and JSON consumers.
package display

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/valence-cli/internal/model"
)

// NotFound is shown for answers the backend could not extract.
const NotFound = "Not found"

var printer = message.NewPrinter(language.AmericanEnglish)

// Formatter renders a present answer value.
type Formatter func(v model.AnswerValue) string

// formatters maps each answer type to its renderer. Plain numbers share the
// currency renderer.
var formatters = map[model.AnswerType]Formatter{
	model.AnswerBoolean:     formatBoolean,
	model.AnswerCurrency:    formatNumber(Currency),
	model.AnswerPercentage:  formatNumber(Percentage),
	model.AnswerNumber:      formatNumber(Currency),
	model.AnswerMultiselect: formatConcepts,
	model.AnswerString:      formatText,
}

// Answer renders v according to its declared answer type.
func Answer(kind model.AnswerType, v model.AnswerValue) string {
	if !v.Found() {
		return NotFound
	}
	f, ok := formatters[kind.Normalize()]
	if !ok {
		f = formatText
	}
	return f(v)
}

// Boolean renders a yes/no answer.
func Boolean(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Currency renders a dollar amount compactly: billions and millions with
// one decimal, thousands with none, smaller amounts in full.
func Currency(v float64) string {
	abs := math.Abs(v)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%s$%.1fB", sign, roundTo(abs/1e9, 1))
	case abs >= 1e6:
		return fmt.Sprintf("%s$%.1fM", sign, roundTo(abs/1e6, 1))
	case abs >= 1e3:
		return fmt.Sprintf("%s$%.0fK", sign, roundTo(abs/1e3, 0))
	default:
		return CurrencyFull(v)
	}
}

// roundTo rounds half away from zero so 2.5 renders as 3, not 2.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// CurrencyFull renders a whole-dollar amount with thousands separators.
func CurrencyFull(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
	}
	return sign + "$" + printer.Sprintf("%d", int64(math.Round(math.Abs(v))))
}

// Percentage renders a percentage with no decimals. Values in (0, 1] are
// fractions and are scaled by 100.
func Percentage(v float64) string {
	if v > 0 && v <= 1 {
		v *= 100
	}
	return fmt.Sprintf("%.0f%%", math.Round(v))
}

// Chip is one concept in a multiselect answer.
type Chip struct {
	Label      string              `json:"label"`
	Status     model.Applicability `json:"status"`
	SourcePage int                 `json:"source_page,omitempty"`
}

// Chips orders concepts included first, then excluded. Concepts with any
// other status are skipped.
func Chips(concepts []model.ConceptApplicability) []Chip {
	var included, excluded []Chip
	for _, c := range concepts {
		chip := Chip{Label: c.DisplayName(), Status: c.Status, SourcePage: c.SourcePage}
		switch c.Status {
		case model.Included:
			included = append(included, chip)
		case model.Excluded:
			excluded = append(excluded, chip)
		}
	}
	return append(included, excluded...)
}

func formatBoolean(v model.AnswerValue) string {
	if b, ok := v.Bool(); ok {
		return Boolean(b)
	}
	return formatText(v)
}

func formatNumber(f func(float64) string) Formatter {
	return func(v model.AnswerValue) string {
		if n, ok := v.Number(); ok {
			return f(n)
		}
		return formatText(v)
	}
}

func formatConcepts(v model.AnswerValue) string {
	chips := Chips(v.Concepts())
	if len(chips) == 0 {
		if v.Kind() != model.AnswerMultiselect {
			return formatText(v)
		}
		return NotFound
	}

	var included, excluded []string
	for _, c := range chips {
		if c.Status == model.Included {
			included = append(included, c.Label)
		} else {
			excluded = append(excluded, c.Label)
		}
	}

	var parts []string
	if len(included) > 0 {
		parts = append(parts, "Included: "+strings.Join(included, ", "))
	}
	if len(excluded) > 0 {
		parts = append(parts, "Excluded: "+strings.Join(excluded, ", "))
	}
	return strings.Join(parts, "; ")
}

func formatText(v model.AnswerValue) string {
	if s, ok := v.Text(); ok {
		return s
	}
	if b, ok := v.Bool(); ok {
		return Boolean(b)
	}
	if n, ok := v.Number(); ok {
		return fmt.Sprintf("%g", n)
	}
	return NotFound
}
