package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// AnswerType tags the shape of an extracted answer value.
type AnswerType string

const (
	AnswerBoolean     AnswerType = "boolean"
	AnswerCurrency    AnswerType = "currency"
	AnswerPercentage  AnswerType = "percentage"
	AnswerNumber      AnswerType = "number"
	AnswerMultiselect AnswerType = "multiselect"
	AnswerString      AnswerType = "string"
)

// Normalize folds schema aliases onto the six rendered answer types.
func (t AnswerType) Normalize() AnswerType {
	switch strings.ToLower(string(t)) {
	case "boolean", "bool":
		return AnswerBoolean
	case "currency":
		return AnswerCurrency
	case "percentage", "percent":
		return AnswerPercentage
	case "number", "integer", "double":
		return AnswerNumber
	case "multiselect":
		return AnswerMultiselect
	default:
		return AnswerString
	}
}

// Confidence is the backend's confidence tier for an extraction.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Applicability is the inclusion state of a concept in a multiselect answer.
type Applicability string

const (
	Included Applicability = "INCLUDED"
	Excluded Applicability = "EXCLUDED"
)

// ConceptApplicability records whether one concept applies to a provision.
type ConceptApplicability struct {
	ConceptID     string        `json:"concept_id"`
	ConceptName   string        `json:"concept_name,omitempty"`
	Name          string        `json:"name,omitempty"`
	ConceptType   string        `json:"concept_type,omitempty"`
	Status        Applicability `json:"applicability_status"`
	SourceText    string        `json:"source_text,omitempty"`
	SourcePage    int           `json:"source_page,omitempty"`
	SourceSection string        `json:"source_section,omitempty"`
	Confidence    Confidence    `json:"confidence,omitempty"`
}

// DisplayName returns the best available label for the concept.
func (c ConceptApplicability) DisplayName() string {
	switch {
	case c.ConceptName != "":
		return c.ConceptName
	case c.Name != "":
		return c.Name
	default:
		return c.ConceptID
	}
}

// AnswerValue is a tagged union over the answer types. The zero value is an
// absent answer: "not found" is never represented as false or 0.
type AnswerValue struct {
	kind     AnswerType
	found    bool
	boolean  bool
	number   float64
	text     string
	concepts []ConceptApplicability
	raw      json.RawMessage
}

// BoolValue builds a present boolean answer.
func BoolValue(b bool) AnswerValue {
	return AnswerValue{kind: AnswerBoolean, found: true, boolean: b}
}

// NumberValue builds a present numeric answer of the given kind
// (currency, percentage or number).
func NumberValue(kind AnswerType, n float64) AnswerValue {
	return AnswerValue{kind: kind.Normalize(), found: true, number: n}
}

// TextValue builds a present string answer.
func TextValue(s string) AnswerValue {
	return AnswerValue{kind: AnswerString, found: true, text: s}
}

// ConceptsValue builds a multiselect answer. An empty list is still a
// present value; whether it counts as answered depends on the concept type.
func ConceptsValue(concepts []ConceptApplicability) AnswerValue {
	return AnswerValue{kind: AnswerMultiselect, found: true, concepts: concepts}
}

// RawValue builds a present answer from a payload whose shape does not match
// its declared type. It reads as text and encodes back unchanged.
func RawValue(raw json.RawMessage) AnswerValue {
	return AnswerValue{kind: AnswerString, found: true, text: string(raw), raw: raw}
}

// Kind returns the tag of the value.
func (v AnswerValue) Kind() AnswerType { return v.kind }

// Found reports whether the backend produced a value.
func (v AnswerValue) Found() bool { return v.found }

// Bool returns the boolean payload.
func (v AnswerValue) Bool() (bool, bool) {
	return v.boolean, v.found && v.kind == AnswerBoolean
}

// Number returns the numeric payload.
func (v AnswerValue) Number() (float64, bool) {
	switch v.kind {
	case AnswerCurrency, AnswerPercentage, AnswerNumber:
		return v.number, v.found
	}
	return 0, false
}

// Text returns the string payload.
func (v AnswerValue) Text() (string, bool) {
	return v.text, v.found && v.kind == AnswerString
}

// Concepts returns the multiselect payload.
func (v AnswerValue) Concepts() []ConceptApplicability {
	if v.kind != AnswerMultiselect {
		return nil
	}
	return v.concepts
}

// MarshalJSON encodes the payload, or null when absent.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if !v.found {
		return []byte("null"), nil
	}
	if v.raw != nil {
		return v.raw, nil
	}
	switch v.kind {
	case AnswerBoolean:
		return json.Marshal(v.boolean)
	case AnswerCurrency, AnswerPercentage, AnswerNumber:
		return json.Marshal(v.number)
	case AnswerMultiselect:
		if v.concepts == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.concepts)
	default:
		return json.Marshal(v.text)
	}
}

// DecodeAnswerValue interprets raw JSON according to the declared answer
// type. Null or missing input yields an absent value. Any other payload is
// present: one that does not match the declared type is kept as text, or as
// an opaque RawValue for objects and arrays, so a single odd row never fails
// the whole answer list.
func DecodeAnswerValue(kind AnswerType, raw json.RawMessage) (AnswerValue, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return AnswerValue{kind: kind.Normalize()}, nil
	}

	switch kind.Normalize() {
	case AnswerBoolean:
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return BoolValue(b), nil
		}
		if s, ok := rawString(raw); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
				return BoolValue(b), nil
			}
		}
	case AnswerCurrency, AnswerPercentage, AnswerNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return NumberValue(kind, n), nil
		}
		if s, ok := rawString(raw); ok {
			cleaned := strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(s))
			if n, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return NumberValue(kind, n), nil
			}
		}
	case AnswerMultiselect:
		var concepts []ConceptApplicability
		if err := json.Unmarshal(raw, &concepts); err == nil {
			return ConceptsValue(concepts), nil
		}
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil {
			concepts = make([]ConceptApplicability, len(names))
			for i, n := range names {
				concepts[i] = ConceptApplicability{ConceptID: n, Status: Included}
			}
			return ConceptsValue(concepts), nil
		}
	}

	if s, ok := rawString(raw); ok {
		return TextValue(s), nil
	}
	if raw[0] == '{' || raw[0] == '[' {
		return RawValue(append(json.RawMessage(nil), raw...)), nil
	}
	return TextValue(string(raw)), nil
}

func rawString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ExtractedAnswer is one per-deal, per-question answer row.
type ExtractedAnswer struct {
	QuestionID      string      `json:"question_id"`
	QuestionText    string      `json:"question_text"`
	CategoryID      string      `json:"category_id,omitempty"`
	CategoryName    string      `json:"category_name,omitempty"`
	Category        string      `json:"category,omitempty"`
	AnswerType      AnswerType  `json:"answer_type"`
	TargetAttribute string      `json:"target_attribute,omitempty"`
	ConceptType     string      `json:"concept_type,omitempty"`
	Value           AnswerValue `json:"value"`
	SourceText      string      `json:"source_text,omitempty"`
	SourcePage      int         `json:"source_page,omitempty"`
	Confidence      Confidence  `json:"confidence,omitempty"`
}

// UnmarshalJSON decodes the value according to answer_type.
func (a *ExtractedAnswer) UnmarshalJSON(data []byte) error {
	type alias ExtractedAnswer
	var aux struct {
		alias
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return eris.Wrap(err, "model: decode answer")
	}
	v, err := DecodeAnswerValue(aux.AnswerType, aux.Value)
	if err != nil {
		return eris.Wrapf(err, "model: answer %s", aux.QuestionID)
	}
	*a = ExtractedAnswer(aux.alias)
	a.Value = v
	return nil
}

// HasValue reports whether the backend produced a value for the question.
func (a ExtractedAnswer) HasValue() bool { return a.Value.Found() }

// AnswersResponse is the payload of GET /api/deals/{id}/answers.
type AnswersResponse struct {
	DealID            string                            `json:"deal_id,omitempty"`
	Answers           []ExtractedAnswer                 `json:"answers"`
	TotalQuestions    int                               `json:"total_questions,omitempty"`
	AnsweredQuestions int                               `json:"answered_questions,omitempty"`
	Applicabilities   map[string][]ConceptApplicability `json:"applicabilities,omitempty"`
}

// AnswerLookup is the result of looking up one question's answer.
type AnswerLookup struct {
	Value      AnswerValue
	HasAnswer  bool
	SourceText string
	SourcePage int
}

// FindAnswer returns the answer for questionID. Absent and null answers both
// report HasAnswer false.
func FindAnswer(answers []ExtractedAnswer, questionID string) AnswerLookup {
	for _, a := range answers {
		if a.QuestionID != questionID {
			continue
		}
		if !a.Value.Found() {
			return AnswerLookup{}
		}
		return AnswerLookup{
			Value:      a.Value,
			HasAnswer:  true,
			SourceText: a.SourceText,
			SourcePage: a.SourcePage,
		}
	}
	return AnswerLookup{}
}
