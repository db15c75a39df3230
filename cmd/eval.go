package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/review"
)

var evalCmd = &cobra.Command{
	Use:   "eval <deal-id>",
	Short: "Compare Valence answers with raw document answers",
	Long:  "Runs an automated evaluation that asks sampled questions both through Valence and against the raw document, then scores the answers. Runs take roughly 30 seconds per question.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dealID := args[0]

		svc, err := newService(newClient())
		if err != nil {
			return err
		}

		n, _ := cmd.Flags().GetInt("questions")
		if !cmd.Flags().Changed("questions") {
			n = cfg.Eval.NumQuestions
		}
		cats, _ := cmd.Flags().GetStringSlice("category")
		if len(cats) == 0 {
			cats = svc.Catalog().EvalCategoryIDs()
		}
		export, _ := cmd.Flags().GetString("export")
		asJSON, _ := cmd.Flags().GetBool("json")

		opts := review.EvalOptions{NumQuestions: n, Categories: cats}
		req, err := svc.Catalog().Request(opts)
		if err != nil {
			return err
		}

		stopProgress := startEvalProgress(ctx, os.Stderr, req.NumQuestions)
		res, err := svc.RunEval(ctx, dealID, opts)
		stopProgress()
		if err != nil {
			f := review.DescribeEvalError(err)
			return eris.Wrapf(err, "%s. %s", f.Title, f.Description)
		}

		if export != "" {
			if err := exportEval(export, res); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", export)
		}

		if asJSON {
			return writeJSON(os.Stdout, res)
		}
		formatEval(os.Stdout, res, svc.Catalog())
		return nil
	},
}

// startEvalProgress prints an elapsed/remaining estimate every few seconds
// until the returned func is called.
func startEvalProgress(ctx context.Context, out io.Writer, numQuestions int) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	start := time.Now()

	go func() {
		defer close(done)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		_, _ = fmt.Fprintf(out, "Running evaluation (%d questions, ~%s)...\n",
			numQuestions, review.EstimatedDuration(numQuestions))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p := review.EstimateProgress(time.Since(start), numQuestions)
				_, _ = fmt.Fprintf(out, "  %3.0f%%  elapsed %s  remaining ~%s\n",
					p.Percent, p.Elapsed.Round(time.Second), p.Remaining.Round(time.Second))
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func exportEval(path string, res *model.EvalResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "eval: create export file")
	}
	defer f.Close() //nolint:errcheck

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		err = review.ExportXLSX(f, res)
	case ".csv":
		err = review.ExportCSV(f, res)
	default:
		return eris.Errorf("eval: unsupported export format %q (use .xlsx or .csv)", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return eris.Wrap(f.Close(), "eval: close export file")
}

// formatEval writes the summary and the verdict-ordered results table.
func formatEval(out io.Writer, res *model.EvalResult, cat *review.Catalog) {
	s := review.Summarize(res)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, m := range s.Metrics {
		_, _ = fmt.Fprintf(w, "%s:\t%d\t%s\n", m.Label, m.Count, m.Percent)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "Avg Score: Valence %s / Raw %s | Total time: %s\n\n",
		s.AvgScoreValence, s.AvgScoreRaw, s.Duration)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tVERDICT\tCATEGORY\tVALENCE\tRAW\tQUESTION")
	_, _ = fmt.Fprintln(w, "-\t-------\t--------\t-------\t---\t--------")
	for _, r := range review.SortResults(res.Results) {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%.1f\t%.1f\t%s\n",
			r.Index+1,
			r.Verdict.Label(),
			cat.EvalCategoryLabel(r.Category),
			r.ScoreValence,
			r.ScoreRaw,
			truncate(r.Question, 70),
		)
	}
	_ = w.Flush()
}

func init() {
	evalCmd.Flags().Int("questions", review.DefaultEvalQuestions,
		fmt.Sprintf("number of questions (%d-%d)", review.MinEvalQuestions, review.MaxEvalQuestions))
	evalCmd.Flags().StringSlice("category", nil, "question categories (builder_basket, jcrew, ratio_basket, definitions, scenarios); default all")
	evalCmd.Flags().String("export", "", "write results to a .xlsx or .csv file")
	evalCmd.Flags().Bool("json", false, "print the raw result as JSON")
	rootCmd.AddCommand(evalCmd)
}
