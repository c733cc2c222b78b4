package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pavelanni/learnlab/internal/model"
)

func TestEvaluateMultipleChoice(t *testing.T) {
	e := NewEvaluator(DefaultTokens)
	q := model.Question{ID: 1, Type: model.QuestionMultipleChoice, Answer: "B", Score: 2}

	tests := []struct {
		name    string
		answer  string
		awarded int
	}{
		{"exact", "B", 2},
		{"lower case", "b", 2},
		{"padded", "  b \n", 2},
		{"other letter", "C", 0},
		{"empty", "", 0},
		{"garbage", "BB", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Evaluate(q, tt.answer)
			assert.Equal(t, tt.awarded, out.Awarded)
			assert.Equal(t, tt.awarded == 2, out.Correct)
		})
	}
}

func TestEvaluateTrueFalse(t *testing.T) {
	e := NewEvaluator(DefaultTokens)
	yes := model.Question{ID: 1, Type: model.QuestionTrueFalse, Answer: "True", Score: 2}
	no := model.Question{ID: 2, Type: model.QuestionTrueFalse, Answer: "False", Score: 2}

	for _, a := range []string{"TRUE", "T", "1", "true", " t ", "是", "对"} {
		assert.Equal(t, 2, e.Evaluate(yes, a).Awarded, "answer %q", a)
		assert.Equal(t, 0, e.Evaluate(no, a).Awarded, "answer %q", a)
	}
	for _, a := range []string{"FALSE", "F", "0", "否", "错"} {
		assert.Equal(t, 2, e.Evaluate(no, a).Awarded, "answer %q", a)
		assert.Equal(t, 0, e.Evaluate(yes, a).Awarded, "answer %q", a)
	}
	for _, a := range []string{"", "maybe", "yes"} {
		assert.Equal(t, 0, e.Evaluate(yes, a).Awarded, "answer %q", a)
		assert.Equal(t, 0, e.Evaluate(no, a).Awarded, "answer %q", a)
	}
}

func TestEvaluateTrueFalseExtraTokens(t *testing.T) {
	e := NewEvaluator(DefaultTokens.Merge(Tokens{True: []string{"Yes"}, False: []string{"No"}}))
	yes := model.Question{Type: model.QuestionTrueFalse, Answer: "True", Score: 1}
	no := model.Question{Type: model.QuestionTrueFalse, Answer: "False", Score: 1}

	assert.Equal(t, 1, e.Evaluate(yes, "YES").Awarded)
	assert.Equal(t, 1, e.Evaluate(no, "no").Awarded)
	assert.Equal(t, 1, e.Evaluate(yes, "1").Awarded)
}

func TestEvaluateFillIn(t *testing.T) {
	e := NewEvaluator(DefaultTokens)
	q := model.Question{Type: model.QuestionFillIn, Answer: "Reduce", Score: 2}

	assert.Equal(t, 2, e.Evaluate(q, "  reduce  ").Awarded)
	assert.Equal(t, 2, e.Evaluate(q, "REDUCE").Awarded)
	assert.Equal(t, 0, e.Evaluate(q, "reducer").Awarded)
	assert.Equal(t, 0, e.Evaluate(q, "").Awarded)
}

func TestEvaluateShortAnswerThreshold(t *testing.T) {
	e := NewEvaluator(DefaultTokens)
	q := model.Question{Type: model.QuestionShortAnswer, Answer: `{"keywords":["a","b","c"]}`, Score: 4}

	tests := []struct {
		name    string
		answer  string
		awarded int
		correct bool
	}{
		{"none", "xyz", 0, false},
		{"one of three", "only A here", 1, false}, // floor(4 * 1/3)
		{"two of three", "A and B", 4, true},
		{"all three", "a b c", 4, true},
		{"missing", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Evaluate(q, tt.answer)
			assert.Equal(t, tt.awarded, out.Awarded)
			assert.Equal(t, tt.correct, out.Correct)
		})
	}
}

func TestEvaluateShortAnswerPartialFloor(t *testing.T) {
	e := NewEvaluator(DefaultTokens)
	q := model.Question{Type: model.QuestionShortAnswer, Answer: `["分而治之","并行处理","容错性","可扩展性","Map映射"]`, Score: 10}

	// 3/5 = 0.6 is not above the threshold, so credit is floor(10*0.6).
	out := e.Evaluate(q, "分而治之，并行处理，具备容错性")
	assert.False(t, out.Correct)
	assert.Equal(t, 6, out.Awarded)
	assert.True(t, out.Wrong(q.Score))
}

func TestEvaluateShortAnswerEmptyKeywords(t *testing.T) {
	e := NewEvaluator(DefaultTokens)
	for _, key := range []string{`{"keywords":[]}`, `{}`, `not json`, ``} {
		q := model.Question{Type: model.QuestionShortAnswer, Answer: key, Score: 4}
		out := e.Evaluate(q, "anything at all")
		assert.Equal(t, 0, out.Awarded, "key %q", key)
		assert.False(t, out.Correct, "key %q", key)
	}
}

func TestEvaluateUnknownType(t *testing.T) {
	e := NewEvaluator(DefaultTokens)
	q := model.Question{Type: "essay", Answer: "x", Score: 5}
	out := e.Evaluate(q, "x")
	assert.Equal(t, 0, out.Awarded)
	assert.True(t, out.Wrong(q.Score))
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, ParseKeywords(`{"keywords":["x","y"]}`))
	assert.Equal(t, []string{"x"}, ParseKeywords(`["x"]`))
	assert.Nil(t, ParseKeywords(`"x"`))
	assert.Nil(t, ParseKeywords(""))
}
