package ontology

import (
	"strings"

	"github.com/sells-group/valence-cli/internal/model"
)

// Search filters questions by a case-insensitive substring over question
// text, category name, and target attribute (or question id when there is
// none). A blank query returns questions unchanged.
func Search(questions []model.OntologyQuestion, query string) []model.OntologyQuestion {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return questions
	}

	var out []model.OntologyQuestion
	for _, q := range questions {
		if strings.Contains(strings.ToLower(q.Text), query) ||
			strings.Contains(strings.ToLower(q.CategoryName), query) ||
			strings.Contains(strings.ToLower(q.Attribute()), query) {
			out = append(out, q)
		}
	}
	return out
}

// InCategory returns the normalized questions belonging to categoryID.
func InCategory(questions []model.OntologyQuestion, categoryID string) []model.OntologyQuestion {
	var out []model.OntologyQuestion
	for _, q := range questions {
		if q.CategoryID == categoryID {
			out = append(out, q)
		}
	}
	return out
}
