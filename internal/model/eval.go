package model

// Verdict is the judge's comparison of the two answers for one question.
type Verdict string

const (
	VerdictValenceWins Verdict = "valence_wins"
	VerdictTie         Verdict = "tie"
	VerdictRawWins     Verdict = "raw_wins"
	VerdictBothWeak    Verdict = "both_weak"
)

// verdictPriority orders results so regressions surface first.
var verdictPriority = map[Verdict]int{
	VerdictRawWins:     0,
	VerdictBothWeak:    1,
	VerdictTie:         2,
	VerdictValenceWins: 3,
}

// Priority returns the sort rank of v; unknown verdicts sort last.
func (v Verdict) Priority() int {
	if p, ok := verdictPriority[v]; ok {
		return p
	}
	return 9
}

// Label returns the display label. Unknown verdicts render as a tie.
func (v Verdict) Label() string {
	switch v {
	case VerdictValenceWins:
		return "Valence wins"
	case VerdictRawWins:
		return "Raw wins"
	case VerdictBothWeak:
		return "Both weak"
	default:
		return "Tie"
	}
}

// EvalRequest is the body of POST /api/deals/{id}/eval.
type EvalRequest struct {
	NumQuestions int      `json:"num_questions"`
	Categories   []string `json:"categories"`
}

// EvalQuestionResult compares the structured answer with a raw-document
// answer for one question.
type EvalQuestionResult struct {
	Question          string   `json:"question"`
	Category          string   `json:"category,omitempty"`
	ValenceAnswer     string   `json:"valence_answer"`
	RawAnswer         string   `json:"raw_answer"`
	Verdict           Verdict  `json:"verdict"`
	ScoreValence      float64  `json:"score_valence"`
	ScoreRaw          float64  `json:"score_raw"`
	ValenceAdvantages []string `json:"valence_advantages"`
	ValenceGaps       []string `json:"valence_gaps"`
	ValenceErrors     []string `json:"valence_errors"`
	BothMissed        []string `json:"both_missed"`
}

// EvalResult aggregates one evaluation run.
type EvalResult struct {
	DealID           string               `json:"deal_id,omitempty"`
	TotalQuestions   int                  `json:"total_questions"`
	ValenceWinCount  int                  `json:"valence_win_count"`
	TieCount         int                  `json:"tie_count"`
	RawWinCount      int                  `json:"raw_win_count"`
	BothWeakCount    int                  `json:"both_weak_count"`
	AvgScoreValence  float64              `json:"avg_score_valence"`
	AvgScoreRaw      float64              `json:"avg_score_raw"`
	TotalTimeSeconds float64              `json:"total_time_seconds"`
	Results          []EvalQuestionResult `json:"results"`
}
