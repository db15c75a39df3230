package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/valence-cli/internal/display"
	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/ontology"
	"github.com/sells-group/valence-cli/internal/review"
)

var answersCmd = &cobra.Command{
	Use:   "answers <deal-id>",
	Short: "Show extracted answers grouped by ontology category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dealID := args[0]

		svc, err := newService(newClient())
		if err != nil {
			return err
		}

		fromProvision, _ := cmd.Flags().GetBool("provision")
		category, _ := cmd.Flags().GetString("category")
		search, _ := cmd.Flags().GetString("search")
		asJSON, _ := cmd.Flags().GetBool("json")

		answers, apps, err := loadAnswers(ctx, svc, dealID, fromProvision)
		if err != nil {
			return eris.Wrap(err, "answers")
		}

		if search != "" {
			answers = searchAnswers(answers, search)
		}
		buckets := ontology.GroupAnswers(answers, apps)
		if category != "" {
			buckets = filterBuckets(buckets, category)
		}

		if asJSON {
			return writeJSON(os.Stdout, buckets)
		}
		if len(buckets) == 0 {
			fmt.Fprintln(os.Stderr, "No answers found.")
			return nil
		}
		formatBuckets(os.Stdout, buckets, apps)
		return nil
	},
}

// loadAnswers returns the deal's answers either from the answers endpoint or
// materialized from the RP provision through the ontology accessors.
func loadAnswers(ctx context.Context, svc *review.Service, dealID string, fromProvision bool) ([]model.ExtractedAnswer, map[string][]model.ConceptApplicability, error) {
	if !fromProvision {
		resp, err := svc.Answers(ctx, dealID)
		if err != nil {
			return nil, nil, err
		}
		return resp.Answers, resp.Applicabilities, nil
	}

	questions, err := svc.Questions(ctx)
	if err != nil {
		return nil, nil, err
	}
	questions = ontology.Normalize(questions, ontology.DetectSchema(questions))

	prov, err := svc.Provision(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	return ontology.NewAccessors(questions).Answers(prov), prov.Applicabilities, nil
}

func searchAnswers(answers []model.ExtractedAnswer, query string) []model.ExtractedAnswer {
	questions := make([]model.OntologyQuestion, len(answers))
	for i, a := range answers {
		questions[i] = model.OntologyQuestion{
			ID:              a.QuestionID,
			Text:            a.QuestionText,
			CategoryName:    a.CategoryName,
			TargetAttribute: a.TargetAttribute,
		}
	}
	keep := make(map[string]bool)
	for _, q := range ontology.Search(questions, query) {
		keep[q.ID] = true
	}

	var out []model.ExtractedAnswer
	for _, a := range answers {
		if keep[a.QuestionID] {
			out = append(out, a)
		}
	}
	return out
}

func filterBuckets(buckets []ontology.Bucket, category string) []ontology.Bucket {
	var out []ontology.Bucket
	for _, b := range buckets {
		if strings.EqualFold(b.ID, category) || strings.EqualFold(b.Name, category) {
			out = append(out, b)
		}
	}
	return out
}

// answerText renders one answer. Multiselect answers with no inline concepts
// read the deal's applicability records for their concept type.
func answerText(a model.ExtractedAnswer, apps map[string][]model.ConceptApplicability) string {
	kind := a.AnswerType.Normalize()
	v := a.Value
	if kind == model.AnswerMultiselect && len(v.Concepts()) == 0 {
		if recs := apps[a.ConceptType]; len(recs) > 0 {
			v = model.ConceptsValue(recs)
		}
	}
	return display.Answer(kind, v)
}

func formatBuckets(out io.Writer, buckets []ontology.Bucket, apps map[string][]model.ConceptApplicability) {
	questions, answered := ontology.Totals(buckets)
	_, _ = fmt.Fprintf(out, "%d of %d questions answered\n", answered, questions)

	for _, b := range buckets {
		_, _ = fmt.Fprintf(out, "\n%s (%d/%d)\n", b.Name, b.AnsweredCount, b.QuestionCount)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tQUESTION\tANSWER\tPAGE")
		_, _ = fmt.Fprintln(w, "--\t--------\t------\t----")
		for _, a := range b.Answers {
			page := ""
			if a.SourcePage > 0 {
				page = fmt.Sprintf("p.%d", a.SourcePage)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.QuestionID,
				truncate(a.QuestionText, 60),
				truncate(answerText(a, apps), 50),
				page,
			)
		}
		_ = w.Flush()
	}
}
