package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/querycache"
	"github.com/sells-group/valence-cli/pkg/valence"
)

// Evaluation run bounds.
const (
	MinEvalQuestions     = 3
	MaxEvalQuestions     = 25
	DefaultEvalQuestions = 15

	// secondsPerQuestion is the rough backend cost used for progress
	// estimates.
	secondsPerQuestion = 30
	// maxEstimatedProgress keeps the estimate from claiming completion.
	maxEstimatedProgress = 95.0
)

// ErrNoEvalCategories is returned when no category is selected.
var ErrNoEvalCategories = eris.New("review: select at least one evaluation category")

// ClampEvalQuestions bounds n to the accepted range.
func ClampEvalQuestions(n int) int {
	return min(MaxEvalQuestions, max(MinEvalQuestions, n))
}

// EvalOptions selects what an evaluation run covers.
type EvalOptions struct {
	NumQuestions int
	Categories   []string
}

// Request validates opts against the catalog and builds the API request.
// A zero question count takes the default; categories keep catalog order
// and lose duplicates.
func (c *Catalog) Request(opts EvalOptions) (model.EvalRequest, error) {
	n := opts.NumQuestions
	if n == 0 {
		n = DefaultEvalQuestions
	}

	selected := make(map[string]bool, len(opts.Categories))
	for _, id := range opts.Categories {
		if !c.hasEvalCategory(id) {
			return model.EvalRequest{}, eris.Errorf("review: unknown evaluation category %q", id)
		}
		selected[id] = true
	}
	if len(selected) == 0 {
		return model.EvalRequest{}, ErrNoEvalCategories
	}

	cats := make([]string, 0, len(selected))
	for _, cat := range c.EvalCategories {
		if selected[cat.ID] {
			cats = append(cats, cat.ID)
		}
	}
	return model.EvalRequest{NumQuestions: ClampEvalQuestions(n), Categories: cats}, nil
}

// EvalFailure is the reviewer-facing description of a failed run.
type EvalFailure struct {
	Title       string
	Description string
}

// DescribeEvalError tells a timed-out run apart from other failures.
func DescribeEvalError(err error) EvalFailure {
	if errors.Is(err, valence.ErrEvalTimeout) {
		return EvalFailure{Title: "Evaluation timed out", Description: "Try with fewer questions."}
	}
	return EvalFailure{Title: "Evaluation failed", Description: err.Error()}
}

// RunEval runs an evaluation for dealID. Only one run per deal may be in
// flight. The result is cached for the deal.
func (s *Service) RunEval(ctx context.Context, dealID string, opts EvalOptions) (*model.EvalResult, error) {
	req, err := s.catalog.Request(opts)
	if err != nil {
		return nil, err
	}

	zap.L().Info("running evaluation",
		zap.String("deal_id", dealID),
		zap.Int("questions", req.NumQuestions),
		zap.Strings("categories", req.Categories),
		zap.Duration("estimate", EstimatedDuration(req.NumQuestions)),
	)

	res, err := querycache.Mutate(ctx, s.cache, "eval/"+dealID,
		func(ctx context.Context) (*model.EvalResult, error) {
			return s.client.RunEval(ctx, dealID, req)
		},
	)
	if err != nil {
		return nil, err
	}
	s.cache.Put(querycache.Item(querycache.ResourceEval, dealID), res)
	return res, nil
}

// LastEval returns the most recent cached evaluation for dealID.
func (s *Service) LastEval(dealID string) (*model.EvalResult, bool) {
	v, ok := s.cache.Get(querycache.Item(querycache.ResourceEval, dealID))
	if !ok {
		return nil, false
	}
	res, ok := v.(*model.EvalResult)
	return res, ok
}

// EstimatedDuration is the expected wall time for a run of n questions.
func EstimatedDuration(n int) time.Duration {
	return time.Duration(n*secondsPerQuestion) * time.Second
}

// EvalProgress is the estimated progress of a running evaluation.
type EvalProgress struct {
	Percent   float64
	Elapsed   time.Duration
	Remaining time.Duration
}

// EstimateProgress derives progress from elapsed time alone; the backend
// reports nothing until the run ends. The percentage stops at 95.
func EstimateProgress(elapsed time.Duration, numQuestions int) EvalProgress {
	total := EstimatedDuration(numQuestions)
	p := EvalProgress{Elapsed: elapsed}
	if total > 0 {
		p.Percent = math.Min(float64(elapsed)/float64(total)*100, maxEstimatedProgress)
	}
	if rem := total - elapsed; rem > 0 {
		p.Remaining = rem
	}
	return p
}

// RankedResult is a question result with its position in the original
// response, so a sorted table can still link to the detail view.
type RankedResult struct {
	Index int
	model.EvalQuestionResult
}

// SortResults orders results so regressions come first: raw wins, then
// both weak, ties, and Valence wins. Ties keep response order.
func SortResults(results []model.EvalQuestionResult) []RankedResult {
	out := make([]RankedResult, len(results))
	for i, r := range results {
		out[i] = RankedResult{Index: i, EvalQuestionResult: r}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Verdict.Priority() < out[j].Verdict.Priority()
	})
	return out
}

// SummaryMetric is one verdict count with its share of the run.
type SummaryMetric struct {
	Label   string
	Count   int
	Percent string
}

// Summary is the headline view of an evaluation run.
type Summary struct {
	Metrics         []SummaryMetric
	AvgScoreValence string
	AvgScoreRaw     string
	Duration        string
}

// Summarize computes the headline counts. Percentages are omitted when the
// run has no questions.
func Summarize(res *model.EvalResult) Summary {
	total := res.TotalQuestions
	pct := func(n int) string {
		if total <= 0 {
			return ""
		}
		return fmt.Sprintf("(%.1f%%)", float64(n)/float64(total)*100)
	}

	minutes := int(res.TotalTimeSeconds / 60)
	seconds := int(math.Round(math.Mod(res.TotalTimeSeconds, 60)))

	return Summary{
		Metrics: []SummaryMetric{
			{Label: "VALENCE WINS", Count: res.ValenceWinCount, Percent: pct(res.ValenceWinCount)},
			{Label: "TIES", Count: res.TieCount, Percent: pct(res.TieCount)},
			{Label: "RAW WINS", Count: res.RawWinCount, Percent: pct(res.RawWinCount)},
			{Label: "BOTH WEAK", Count: res.BothWeakCount, Percent: pct(res.BothWeakCount)},
		},
		AvgScoreValence: fmt.Sprintf("%.1f", res.AvgScoreValence),
		AvgScoreRaw:     fmt.Sprintf("%.1f", res.AvgScoreRaw),
		Duration:        fmt.Sprintf("%dm %ds", minutes, seconds),
	}
}
