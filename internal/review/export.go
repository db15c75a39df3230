package review

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/valence-cli/internal/model"
)

var exportHeader = []string{
	"#", "Question", "Category", "Verdict", "Valence Score", "Raw Score",
	"Valence Answer", "Raw Answer", "Valence Advantages", "Valence Gaps", "Valence Errors", "Both Missed",
}

func exportRow(r RankedResult) []string {
	return []string{
		strconv.Itoa(r.Index + 1),
		r.Question,
		r.Category,
		r.Verdict.Label(),
		strconv.FormatFloat(r.ScoreValence, 'f', -1, 64),
		strconv.FormatFloat(r.ScoreRaw, 'f', -1, 64),
		r.ValenceAnswer,
		r.RawAnswer,
		strings.Join(r.ValenceAdvantages, "; "),
		strings.Join(r.ValenceGaps, "; "),
		strings.Join(r.ValenceErrors, "; "),
		strings.Join(r.BothMissed, "; "),
	}
}

// ExportCSV writes one row per question in verdict order.
func ExportCSV(w io.Writer, res *model.EvalResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return eris.Wrap(err, "review: write csv header")
	}
	for _, r := range SortResults(res.Results) {
		if err := cw.Write(exportRow(r)); err != nil {
			return eris.Wrap(err, "review: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "review: flush csv")
}

// ExportXLSX writes a workbook with a Summary sheet and a Results sheet.
func ExportXLSX(w io.Writer, res *model.EvalResult) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "review: add summary sheet")
	}
	s := Summarize(res)
	addRow(summary, "Metric", "Count", "Share")
	for _, m := range s.Metrics {
		row := summary.AddRow()
		row.AddCell().SetString(m.Label)
		row.AddCell().SetInt(m.Count)
		row.AddCell().SetString(m.Percent)
	}
	addRow(summary, "Total questions", strconv.Itoa(res.TotalQuestions))
	addRow(summary, "Avg score (Valence)", s.AvgScoreValence)
	addRow(summary, "Avg score (Raw)", s.AvgScoreRaw)
	addRow(summary, "Total time", s.Duration)

	results, err := f.AddSheet("Results")
	if err != nil {
		return eris.Wrap(err, "review: add results sheet")
	}
	addRow(results, exportHeader...)
	for _, r := range SortResults(res.Results) {
		row := results.AddRow()
		for i, v := range exportRow(r) {
			cell := row.AddCell()
			switch i {
			case 0:
				cell.SetInt(r.Index + 1)
			case 4:
				cell.SetFloat(r.ScoreValence)
			case 5:
				cell.SetFloat(r.ScoreRaw)
			default:
				cell.SetString(v)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "review: write xlsx")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
