package display

import (
	"strings"

	"github.com/sells-group/valence-cli/internal/model"
)

// StatusBadge returns the badge text for a deal status.
func StatusBadge(s model.Status) string {
	return s.Label()
}

// RiskLevel grades a detected risk pattern.
type RiskLevel string

const (
	RiskHigh     RiskLevel = "high"
	RiskModerate RiskLevel = "moderate"
	RiskLow      RiskLevel = "low"
	RiskNone     RiskLevel = "none"
)

// ParseRiskLevel maps free-form backend text onto a level. Unrecognized
// input is RiskNone.
func ParseRiskLevel(s string) RiskLevel {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(s))) {
	case RiskHigh:
		return RiskHigh
	case RiskModerate, "medium":
		return RiskModerate
	case RiskLow:
		return RiskLow
	default:
		return RiskNone
	}
}

// Label returns the upper-case badge label.
func (r RiskLevel) Label() string {
	switch r {
	case RiskHigh, RiskModerate, RiskLow:
		return strings.ToUpper(string(r))
	default:
		return "NONE"
	}
}
