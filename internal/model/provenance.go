package model

// Provenance locates the source evidence for one extracted attribute.
type Provenance struct {
	Attribute     string     `json:"attribute,omitempty"`
	SourceText    string     `json:"source_text,omitempty"`
	PageNumber    int        `json:"page_number,omitempty"`
	SourcePage    int        `json:"source_page,omitempty"`
	Section       string     `json:"section,omitempty"`
	SourceSection string     `json:"source_section,omitempty"`
	Confidence    Confidence `json:"confidence,omitempty"`
}

// Page returns the cited page, preferring page_number over source_page.
func (p Provenance) Page() int {
	if p.PageNumber > 0 {
		return p.PageNumber
	}
	return p.SourcePage
}

// SectionRef returns the cited section, if any.
func (p Provenance) SectionRef() string {
	if p.Section != "" {
		return p.Section
	}
	return p.SourceSection
}

// Citation is one source reference attached to a Q&A answer.
type Citation struct {
	Page       int        `json:"page"`
	Section    string     `json:"section,omitempty"`
	Text       string     `json:"text,omitempty"`
	Confidence Confidence `json:"confidence,omitempty"`
}
