package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// OntologyQuestion is immutable reference data describing one question the
// backend answers for every deal. Older schema versions carry a flat
// category ("mfn", "rp", "pattern") and id/text keys instead of
// question_id/question_text; both decode into the same struct.
type OntologyQuestion struct {
	ID              string     `json:"question_id"`
	Number          int        `json:"question_number,omitempty"`
	Text            string     `json:"question_text"`
	CategoryID      string     `json:"category_id,omitempty"`
	CategoryName    string     `json:"category_name,omitempty"`
	Category        string     `json:"category,omitempty"`
	AnswerType      AnswerType `json:"answer_type"`
	TargetAttribute string     `json:"target_attribute,omitempty"`
	ConceptType     string     `json:"concept_type,omitempty"`
	DisplayOrder    int        `json:"display_order,omitempty"`
}

// UnmarshalJSON accepts both current and legacy key names.
func (q *OntologyQuestion) UnmarshalJSON(data []byte) error {
	type alias OntologyQuestion
	var aux struct {
		alias
		LegacyID   string `json:"id"`
		LegacyText string `json:"text"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return eris.Wrap(err, "model: decode ontology question")
	}
	*q = OntologyQuestion(aux.alias)
	if q.ID == "" {
		q.ID = aux.LegacyID
	}
	if q.Text == "" {
		q.Text = aux.LegacyText
	}
	return nil
}

// Attribute returns the provenance attribute key for the question.
func (q OntologyQuestion) Attribute() string {
	if q.TargetAttribute != "" {
		return q.TargetAttribute
	}
	return q.ID
}

// OntologyQuestionsResponse is the payload of the RP questions endpoint.
type OntologyQuestionsResponse struct {
	CovenantType string             `json:"covenant_type,omitempty"`
	Questions    []OntologyQuestion `json:"questions"`
	Total        int                `json:"total,omitempty"`
}

// OntologyCategory is a named group of ontology questions.
type OntologyCategory struct {
	ID           string             `json:"category_id"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	DisplayOrder int                `json:"display_order"`
	Questions    []OntologyQuestion `json:"questions,omitempty"`
}

// OntologyCategoriesResponse is the payload of the categories endpoint.
type OntologyCategoriesResponse struct {
	Categories []OntologyCategory `json:"categories"`
}
