package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractedAnswer_NullIsNotFalse(t *testing.T) {
	t.Parallel()

	var answers []ExtractedAnswer
	data := `[
		{"question_id":"rp_q1","answer_type":"boolean","value":null},
		{"question_id":"rp_q2","answer_type":"boolean","value":false},
		{"question_id":"rp_q3","answer_type":"currency"},
		{"question_id":"rp_q4","answer_type":"currency","value":0}
	]`
	require.NoError(t, json.Unmarshal([]byte(data), &answers))
	require.Len(t, answers, 4)

	assert.False(t, answers[0].HasValue())
	assert.True(t, answers[1].HasValue())
	b, ok := answers[1].Value.Bool()
	assert.True(t, ok)
	assert.False(t, b)

	assert.False(t, answers[2].HasValue())
	n, ok := answers[3].Value.Number()
	assert.True(t, ok)
	assert.Zero(t, n)
}

func TestDecodeAnswerValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		kind  AnswerType
		raw   string
		check func(t *testing.T, v AnswerValue)
	}{
		{
			name: "string bool",
			kind: AnswerBoolean,
			raw:  `"true"`,
			check: func(t *testing.T, v AnswerValue) {
				b, ok := v.Bool()
				assert.True(t, ok)
				assert.True(t, b)
			},
		},
		{
			name: "formatted currency",
			kind: AnswerCurrency,
			raw:  `"$50,000,000"`,
			check: func(t *testing.T, v AnswerValue) {
				n, ok := v.Number()
				assert.True(t, ok)
				assert.InDelta(t, 50_000_000, n, 0.01)
				assert.Equal(t, AnswerCurrency, v.Kind())
			},
		},
		{
			name: "integer alias",
			kind: "integer",
			raw:  `7`,
			check: func(t *testing.T, v AnswerValue) {
				assert.Equal(t, AnswerNumber, v.Kind())
			},
		},
		{
			name: "mismatched text falls back",
			kind: AnswerPercentage,
			raw:  `"greater of 50% and $10M"`,
			check: func(t *testing.T, v AnswerValue) {
				s, ok := v.Text()
				assert.True(t, ok)
				assert.Equal(t, "greater of 50% and $10M", s)
			},
		},
		{
			name: "multiselect",
			kind: AnswerMultiselect,
			raw:  `[{"concept_id":"c1","concept_name":"Holdco","applicability_status":"INCLUDED"}]`,
			check: func(t *testing.T, v AnswerValue) {
				require.Len(t, v.Concepts(), 1)
				assert.Equal(t, "Holdco", v.Concepts()[0].DisplayName())
				assert.Equal(t, Included, v.Concepts()[0].Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, err := DecodeAnswerValue(tt.kind, json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.True(t, v.Found())
			tt.check(t, v)
		})
	}
}

func TestExtractedAnswer_MixedShapesDecode(t *testing.T) {
	t.Parallel()

	var resp AnswersResponse
	data := `{"answers":[
		{"question_id":"q1","answer_type":"boolean","value":true},
		{"question_id":"q2","answer_type":"string","value":{"basket":"general","amount":5}},
		{"question_id":"q3","answer_type":"multiselect","value":["builder","ratio"]},
		{"question_id":"q4","answer_type":"boolean","value":{"x":1}}
	]}`
	require.NoError(t, json.Unmarshal([]byte(data), &resp))
	require.Len(t, resp.Answers, 4)

	b, ok := resp.Answers[0].Value.Bool()
	assert.True(t, ok)
	assert.True(t, b)

	assert.True(t, resp.Answers[1].HasValue())
	s, ok := resp.Answers[1].Value.Text()
	assert.True(t, ok)
	assert.JSONEq(t, `{"basket":"general","amount":5}`, s)

	concepts := resp.Answers[2].Value.Concepts()
	require.Len(t, concepts, 2)
	assert.Equal(t, "builder", concepts[0].DisplayName())
	assert.Equal(t, Included, concepts[1].Status)

	assert.True(t, resp.Answers[3].HasValue())
	out, err := json.Marshal(resp.Answers[3].Value)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(out))
}

func TestAnswerValue_MarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(struct {
		A AnswerValue `json:"a"`
		B AnswerValue `json:"b"`
		C AnswerValue `json:"c"`
	}{
		B: BoolValue(false),
		C: NumberValue(AnswerCurrency, 2.5e6),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":false,"c":2500000}`, string(data))
}

func TestFindAnswer(t *testing.T) {
	t.Parallel()

	answers := []ExtractedAnswer{
		{QuestionID: "rp_q1", Value: BoolValue(true), SourcePage: 12, SourceText: "Holdings may"},
		{QuestionID: "rp_q2"},
	}

	got := FindAnswer(answers, "rp_q1")
	assert.True(t, got.HasAnswer)
	assert.Equal(t, 12, got.SourcePage)

	assert.False(t, FindAnswer(answers, "rp_q2").HasAnswer)
	assert.False(t, FindAnswer(answers, "missing").HasAnswer)
}

func TestOntologyQuestion_LegacyFields(t *testing.T) {
	t.Parallel()

	var q OntologyQuestion
	require.NoError(t, json.Unmarshal([]byte(`{"id":"A1","text":"Is there an MFN?","answer_type":"boolean"}`), &q))
	assert.Equal(t, "A1", q.ID)
	assert.Equal(t, "Is there an MFN?", q.Text)
	assert.Equal(t, "A1", q.Attribute())
}
