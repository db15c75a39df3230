package model

// ProvisionAnswer is one scalar answer attached to a provision. Exactly one
// of the typed fields is normally set; which one depends on the question's
// answer type.
type ProvisionAnswer struct {
	AnswerID      string     `json:"answer_id,omitempty"`
	QuestionID    string     `json:"question_id"`
	Boolean       *bool      `json:"answer_boolean,omitempty"`
	Integer       *int64     `json:"answer_integer,omitempty"`
	Double        *float64   `json:"answer_double,omitempty"`
	String        *string    `json:"answer_string,omitempty"`
	Date          *string    `json:"answer_date,omitempty"`
	SourceText    string     `json:"source_text,omitempty"`
	SourcePage    int        `json:"source_page,omitempty"`
	SourceSection string     `json:"source_section,omitempty"`
	Confidence    Confidence `json:"confidence,omitempty"`
}

// Value reads the typed field that matches kind. A missing field yields an
// absent value.
func (a ProvisionAnswer) Value(kind AnswerType) AnswerValue {
	switch kind.Normalize() {
	case AnswerBoolean:
		if a.Boolean != nil {
			return BoolValue(*a.Boolean)
		}
	case AnswerCurrency, AnswerPercentage, AnswerNumber:
		if a.Double != nil {
			return NumberValue(kind, *a.Double)
		}
		if a.Integer != nil {
			return NumberValue(kind, float64(*a.Integer))
		}
	default:
		if a.String != nil {
			return TextValue(*a.String)
		}
		if a.Date != nil {
			return TextValue(*a.Date)
		}
	}
	return AnswerValue{kind: kind.Normalize()}
}

// Provision is the extracted covenant for a deal. It carries no values of
// its own: scalar answers live in Answers keyed by question id, and
// multiselect answers in Applicabilities keyed by concept type.
type Provision struct {
	ProvisionID      string                            `json:"provision_id"`
	SectionReference string                            `json:"section_reference,omitempty"`
	SourcePage       int                               `json:"source_page,omitempty"`
	ExtractedAt      string                            `json:"extracted_at,omitempty"`
	Answers          map[string]ProvisionAnswer        `json:"answers,omitempty"`
	Applicabilities  map[string][]ConceptApplicability `json:"applicabilities,omitempty"`

	JCrewPattern             *bool `json:"jcrew_pattern_detected,omitempty"`
	SertaPattern             *bool `json:"serta_pattern_detected,omitempty"`
	CollateralLeakagePattern *bool `json:"collateral_leakage_pattern_detected,omitempty"`
	YieldExclusionPattern    *bool `json:"yield_exclusion_pattern_detected,omitempty"`
}
