package grading

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/learnlab/internal/model"
)

var errNoExam = errors.New("exam not found")

type fakeQuestions map[int64][]model.Question

func (f fakeQuestions) QuestionSet(_ context.Context, examID int64) ([]model.Question, error) {
	qs, ok := f[examID]
	if !ok {
		return nil, errNoExam
	}
	return qs, nil
}

type fakeTitles struct {
	modules map[int64]string
	topics  map[KnowledgeRef]string
	fail    map[int64]bool
	calls   int
}

func (f *fakeTitles) TopicTitles(_ context.Context, moduleID int64, ord int) (string, string, bool, error) {
	f.calls++
	if f.fail[moduleID] {
		return "", "", false, errors.New("db closed")
	}
	m, ok := f.modules[moduleID]
	if !ok {
		return "", "", false, nil
	}
	t, ok := f.topics[KnowledgeRef{moduleID, ord}]
	if !ok {
		return "", "", false, nil
	}
	return m, t, true, nil
}

func newTitles() *fakeTitles {
	return &fakeTitles{
		modules: map[int64]string{1: "Linux", 2: "Docker"},
		topics: map[KnowledgeRef]string{
			{1, 1}: "Files",
			{1, 2}: "Permissions",
			{2, 1}: "Images",
		},
		fail: map[int64]bool{},
	}
}

func sampleExam() []model.Question {
	return []model.Question{
		{ID: 14, Type: model.QuestionShortAnswer, Answer: `{"keywords":["image","layer","registry"]}`, Score: 4, Ord: 4, KnowledgeRef: "2:1"},
		{ID: 11, Type: model.QuestionMultipleChoice, Answer: "B", Score: 2, Ord: 1, KnowledgeRef: "1:1"},
		{ID: 12, Type: model.QuestionTrueFalse, Answer: "False", Score: 2, Ord: 2, KnowledgeRef: "1:1"},
		{ID: 13, Type: model.QuestionFillIn, Answer: "chmod", Score: 2, Ord: 3, KnowledgeRef: "1:2"},
	}
}

func TestGradeEmptyExam(t *testing.T) {
	e := New(fakeQuestions{1: nil}, newTitles())
	sub, err := e.Grade(context.Background(), 1, Answers{})
	require.NoError(t, err)

	assert.Equal(t, 0, sub.Score)
	assert.Equal(t, 0, sub.Total)
	assert.Equal(t, 0.0, sub.Rate)
	assert.NotNil(t, sub.Detail)
	assert.Empty(t, sub.Detail)
	assert.NotNil(t, sub.WrongQIDs)
	assert.Empty(t, sub.WrongQIDs)
	assert.NotNil(t, sub.Suggestions)
	assert.Empty(t, sub.Suggestions)
}

func TestGradeUnknownExam(t *testing.T) {
	e := New(fakeQuestions{}, newTitles())
	_, err := e.Grade(context.Background(), 99, Answers{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoExam)
}

func TestGradeAllCorrect(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles())
	sub, err := e.Grade(context.Background(), 1, AnswersFromInts(map[int64]string{
		11: "b", 12: "F", 13: " CHMOD ", 14: "an image is built from layer upon layer",
	}))
	require.NoError(t, err)

	assert.Equal(t, 10, sub.Score)
	assert.Equal(t, 10, sub.Total)
	assert.Equal(t, 100.0, sub.Rate)
	assert.Empty(t, sub.WrongQIDs)
	assert.Empty(t, sub.Suggestions)
}

func TestGradeDetailFollowsOrd(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles())
	sub, err := e.Grade(context.Background(), 1, Answers{})
	require.NoError(t, err)

	var ids []int64
	for _, d := range sub.Detail {
		ids = append(ids, d.QuestionID)
	}
	assert.Equal(t, []int64{11, 12, 13, 14}, ids)
}

func TestGradeMissingAnswersAreWrong(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles())
	sub, err := e.Grade(context.Background(), 1, Answers{"11": "B"})
	require.NoError(t, err)

	assert.Equal(t, 2, sub.Score)
	assert.Equal(t, 10, sub.Total)
	assert.Equal(t, 20.0, sub.Rate)
	assert.Equal(t, []int64{12, 13, 14}, sub.WrongQIDs)
}

func TestGradeInvariants(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles())
	answerSets := []Answers{
		{},
		{"11": "A", "12": "T", "13": "chown", "14": "image"},
		{"11": "B", "12": "0", "13": "chmod", "14": "image registry"},
		{"14": "layer"},
	}
	for _, answers := range answerSets {
		sub, err := e.Grade(context.Background(), 1, answers)
		require.NoError(t, err)

		assert.LessOrEqual(t, sub.Score, sub.Total)
		assert.Equal(t, 10, sub.Total)

		wrong := map[int64]bool{}
		for _, id := range sub.WrongQIDs {
			wrong[id] = true
		}
		sum := 0
		for _, d := range sub.Detail {
			assert.GreaterOrEqual(t, d.Score, 0)
			assert.LessOrEqual(t, d.Score, d.Max)
			assert.Equal(t, d.Score < d.Max, wrong[d.QuestionID], "question %d", d.QuestionID)
			sum += d.Score
		}
		assert.Equal(t, sum, sub.Score)
	}
}

func TestGradeIdempotent(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles())
	answers := Answers{"11": "C", "12": "t", "14": "layer"}

	first, err := e.Grade(context.Background(), 1, answers)
	require.NoError(t, err)
	second, err := e.Grade(context.Background(), 1, answers)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGradeRate(t *testing.T) {
	assert.Equal(t, 0.0, Rate(0, 0))
	assert.Equal(t, 66.67, Rate(2, 3))
	assert.Equal(t, 33.33, Rate(1, 3))
	assert.Equal(t, 100.0, Rate(7, 7))
}

func TestSuggestionsRankedByWrongCount(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles())
	// 11 and 12 (Linux - Files) wrong, 14 (Docker - Images) wrong, 13 right.
	sub, err := e.Grade(context.Background(), 1, Answers{"11": "A", "12": "true", "13": "chmod"})
	require.NoError(t, err)

	require.Len(t, sub.Suggestions, 2)
	assert.Contains(t, sub.Suggestions[0], "Linux - Files (2 wrong)")
	assert.Contains(t, sub.Suggestions[1], "Docker - Images (1 wrong)")
}

func TestSuggestionsTieKeepsFirstSeen(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles())
	// 12 (Linux - Files), 13 (Linux - Permissions), 14 (Docker - Images) wrong once each.
	sub, err := e.Grade(context.Background(), 1, Answers{"11": "B"})
	require.NoError(t, err)

	require.Len(t, sub.Suggestions, 3)
	assert.Contains(t, sub.Suggestions[0], "Linux - Files")
	assert.Contains(t, sub.Suggestions[1], "Linux - Permissions")
	assert.Contains(t, sub.Suggestions[2], "Docker - Images")
}

func TestSuggestionsPartialCreditCountsAsWrong(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles())
	sub, err := e.Grade(context.Background(), 1, Answers{"11": "B", "12": "F", "13": "chmod", "14": "layer"})
	require.NoError(t, err)

	assert.Equal(t, 7, sub.Score) // 6 + floor(4/3)
	assert.Equal(t, []int64{14}, sub.WrongQIDs)
	require.Len(t, sub.Suggestions, 1)
	assert.Contains(t, sub.Suggestions[0], "Docker - Images (1 wrong)")
}

func TestSuggestionsUnmappedAndUnresolvable(t *testing.T) {
	titles := newTitles()
	titles.fail[7] = true
	questions := []model.Question{
		{ID: 1, Type: model.QuestionFillIn, Answer: "x", Score: 1, Ord: 1, KnowledgeRef: ""},
		{ID: 2, Type: model.QuestionFillIn, Answer: "x", Score: 1, Ord: 2, KnowledgeRef: "garbage"},
		{ID: 3, Type: model.QuestionFillIn, Answer: "x", Score: 1, Ord: 3, KnowledgeRef: "7:1"},
		{ID: 4, Type: model.QuestionFillIn, Answer: "x", Score: 1, Ord: 4, KnowledgeRef: "9:1"},
		{ID: 5, Type: model.QuestionFillIn, Answer: "x", Score: 1, Ord: 5, KnowledgeRef: "1:42"},
	}
	e := New(fakeQuestions{1: questions}, titles)
	sub, err := e.Grade(context.Background(), 1, Answers{})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, sub.WrongQIDs)
	require.Len(t, sub.Suggestions, 1)
	assert.Contains(t, sub.Suggestions[0], "unmapped knowledge area (2 wrong)")
}

func TestSuggestionsResolveOncePerReference(t *testing.T) {
	titles := newTitles()
	e := New(fakeQuestions{1: sampleExam()}, titles)
	_, err := e.Grade(context.Background(), 1, Answers{})
	require.NoError(t, err)
	// 1:1 twice, 1:2 and 2:1 once.
	assert.Equal(t, 3, titles.calls)
}

type shoutPhrases struct{}

func (shoutPhrases) Suggestion(area string, wrong int) string { return "REVIEW " + area }
func (shoutPhrases) UnmappedArea() string                     { return "???" }

func TestWithPhrasebook(t *testing.T) {
	e := New(fakeQuestions{1: sampleExam()}, newTitles(), WithPhrasebook(shoutPhrases{}))
	sub, err := e.Grade(context.Background(), 1, Answers{"11": "B", "12": "F", "13": "chmod"})
	require.NoError(t, err)
	assert.Equal(t, []string{"REVIEW Docker - Images"}, sub.Suggestions)
}

func TestParseKnowledgeRef(t *testing.T) {
	tests := []struct {
		in   string
		want KnowledgeRef
		ok   bool
	}{
		{"3:2", KnowledgeRef{3, 2}, true},
		{" 3 : 2 ", KnowledgeRef{3, 2}, true},
		{"", KnowledgeRef{}, false},
		{"3", KnowledgeRef{}, false},
		{"a:2", KnowledgeRef{}, false},
		{"3:b", KnowledgeRef{}, false},
		{"3:2:1", KnowledgeRef{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseKnowledgeRef(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "3:2", KnowledgeRef{3, 2}.String())
}
