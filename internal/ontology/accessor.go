package ontology

import (
	"github.com/sells-group/valence-cli/internal/model"
)

// Accessor reads one question's answer from a provision.
type Accessor struct {
	Question model.OntologyQuestion
	get      func(p *model.Provision) model.AnswerValue
}

// Get returns the answer for the accessor's question. A nil provision yields
// an absent value.
func (a *Accessor) Get(p *model.Provision) model.AnswerValue {
	if p == nil {
		return model.AnswerValue{}
	}
	return a.get(p)
}

// Accessors is an indexed table of typed accessors built once from the
// ontology.
type Accessors struct {
	byQuestion  map[string]*Accessor
	byAttribute map[string]*Accessor
	ordered     []*Accessor
}

// NewAccessors builds accessors for every question. Multiselect questions
// read the provision's applicability records for their concept type; all
// others read the scalar answer keyed by question id.
func NewAccessors(questions []model.OntologyQuestion) *Accessors {
	t := &Accessors{
		byQuestion:  make(map[string]*Accessor, len(questions)),
		byAttribute: make(map[string]*Accessor, len(questions)),
	}
	for _, q := range questions {
		a := &Accessor{Question: q, get: scalarAccessor(q)}
		if q.AnswerType.Normalize() == model.AnswerMultiselect {
			a.get = conceptAccessor(q.ConceptType)
		}
		t.byQuestion[q.ID] = a
		if q.TargetAttribute != "" {
			t.byAttribute[q.TargetAttribute] = a
		}
		t.ordered = append(t.ordered, a)
	}
	return t
}

func scalarAccessor(q model.OntologyQuestion) func(*model.Provision) model.AnswerValue {
	id, kind := q.ID, q.AnswerType
	return func(p *model.Provision) model.AnswerValue {
		ans, ok := p.Answers[id]
		if !ok {
			return model.AnswerValue{}
		}
		return ans.Value(kind)
	}
}

func conceptAccessor(conceptType string) func(*model.Provision) model.AnswerValue {
	return func(p *model.Provision) model.AnswerValue {
		records := p.Applicabilities[conceptType]
		if len(records) == 0 {
			return model.AnswerValue{}
		}
		return model.ConceptsValue(records)
	}
}

// ByQuestion returns the accessor for a question id, or nil.
func (t *Accessors) ByQuestion(id string) *Accessor {
	return t.byQuestion[id]
}

// ByAttribute returns the accessor for a target attribute, falling back to
// the question id, or nil.
func (t *Accessors) ByAttribute(attr string) *Accessor {
	if a, ok := t.byAttribute[attr]; ok {
		return a
	}
	return t.byQuestion[attr]
}

// Answers materializes every question's answer from a provision in ontology
// order, ready for GroupAnswers.
func (t *Accessors) Answers(p *model.Provision) []model.ExtractedAnswer {
	out := make([]model.ExtractedAnswer, 0, len(t.ordered))
	for _, a := range t.ordered {
		q := a.Question
		ea := model.ExtractedAnswer{
			QuestionID:      q.ID,
			QuestionText:    q.Text,
			CategoryID:      q.CategoryID,
			CategoryName:    q.CategoryName,
			Category:        q.Category,
			AnswerType:      q.AnswerType,
			TargetAttribute: q.TargetAttribute,
			ConceptType:     q.ConceptType,
			Value:           a.Get(p),
		}
		if p != nil {
			if src, ok := p.Answers[q.ID]; ok {
				ea.SourceText = src.SourceText
				ea.SourcePage = src.SourcePage
				ea.Confidence = src.Confidence
			}
		}
		out = append(out, ea)
	}
	return out
}
