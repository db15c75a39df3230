package ontology

import (
	"sort"

	"github.com/sells-group/valence-cli/internal/model"
)

// Bucket is one category of answers with completion counts.
type Bucket struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Code          string                  `json:"code"`
	Answers       []model.ExtractedAnswer `json:"answers"`
	QuestionCount int                     `json:"question_count"`
	AnsweredCount int                     `json:"answered_count"`
}

// GroupAnswers buckets answers by category, keeping answer order within a
// bucket. Answers without a category_id fall back to legacy inference.
// Buckets sort by identifier. applicabilities maps concept type to its
// records and decides whether multiselect answers count as answered; it may
// be nil.
func GroupAnswers(answers []model.ExtractedAnswer, applicabilities map[string][]model.ConceptApplicability) []Bucket {
	index := make(map[string]int)
	var buckets []Bucket

	for _, a := range answers {
		id, name := answerCategory(a)
		i, ok := index[id]
		if !ok {
			i = len(buckets)
			index[id] = i
			buckets = append(buckets, Bucket{ID: id, Name: name, Code: id})
		}
		b := &buckets[i]
		b.Answers = append(b.Answers, a)
		b.QuestionCount++
		if IsAnswered(a, applicabilities) {
			b.AnsweredCount++
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return lessCategory(buckets[i].Code, buckets[j].Code)
	})
	return buckets
}

func answerCategory(a model.ExtractedAnswer) (string, string) {
	q := model.OntologyQuestion{
		ID:           a.QuestionID,
		CategoryID:   a.CategoryID,
		CategoryName: a.CategoryName,
		Category:     a.Category,
	}
	schema := SchemaCategoryID
	if a.CategoryID == "" {
		schema = SchemaLegacy
	}
	return CategoryOf(q, schema)
}

// IsAnswered reports whether an answer counts toward completion. Scalar
// answers need a present value. Multiselect answers need at least one
// applicability record for their concept type, taken from applicabilities
// or from the answer's own value.
func IsAnswered(a model.ExtractedAnswer, applicabilities map[string][]model.ConceptApplicability) bool {
	if a.AnswerType.Normalize() != model.AnswerMultiselect {
		return a.HasValue()
	}
	if a.ConceptType != "" && len(applicabilities[a.ConceptType]) > 0 {
		return true
	}
	for _, c := range a.Value.Concepts() {
		if a.ConceptType == "" || c.ConceptType == "" || c.ConceptType == a.ConceptType {
			return true
		}
	}
	return false
}

// Totals sums question and answered counts across buckets.
func Totals(buckets []Bucket) (questions, answered int) {
	for _, b := range buckets {
		questions += b.QuestionCount
		answered += b.AnsweredCount
	}
	return questions, answered
}
