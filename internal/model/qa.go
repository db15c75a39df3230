package model

// AskRequest is the body of POST /api/deals/{id}/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the backend's answer to a free-text question. Answer is
// semi-structured text for the answer-text formatter.
type AskResponse struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	DataSource string     `json:"data_source,omitempty"`
}

// Evidence is one primitive backing a legacy Q&A answer.
type Evidence struct {
	Primitive string `json:"primitive"`
	Value     any    `json:"value"`
	Source    string `json:"source,omitempty"`
}

// QAResponse is the legacy Q&A payload.
type QAResponse struct {
	Answer   string     `json:"answer"`
	Evidence []Evidence `json:"evidence"`
}
