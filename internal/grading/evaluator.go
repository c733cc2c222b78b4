package grading

import (
	"encoding/json"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/cases"

	"github.com/pavelanni/learnlab/internal/model"
)

// shortAnswerPassRatio is the keyword-hit ratio above which a short answer earns full credit.
const shortAnswerPassRatio = 0.6

// Outcome is the evaluation of a single answer.
type Outcome struct {
	Fraction float64 // keyword-hit ratio for short answers, 1 or 0 otherwise
	Correct  bool
	Awarded  int
}

// Wrong reports whether the question counts toward remediation.
// Partial credit is still wrong.
func (o Outcome) Wrong(maxScore int) bool {
	return o.Awarded < maxScore
}

// Tokens holds the accepted spellings for true/false answers, lowercased.
type Tokens struct {
	True  []string
	False []string
}

// DefaultTokens are always accepted regardless of UI language.
var DefaultTokens = Tokens{
	True:  []string{"true", "t", "1", "是", "对"},
	False: []string{"false", "f", "0", "否", "错"},
}

// Merge returns a copy of t extended with the tokens of other.
func (t Tokens) Merge(other Tokens) Tokens {
	out := Tokens{
		True:  append([]string(nil), t.True...),
		False: append([]string(nil), t.False...),
	}
	for _, s := range other.True {
		if s = fold(strings.TrimSpace(s)); s != "" {
			out.True = append(out.True, s)
		}
	}
	for _, s := range other.False {
		if s = fold(strings.TrimSpace(s)); s != "" {
			out.False = append(out.False, s)
		}
	}
	return out
}

func (t Tokens) classify(answer string) (value, ok bool) {
	for _, s := range t.True {
		if answer == s {
			return true, true
		}
	}
	for _, s := range t.False {
		if answer == s {
			return false, true
		}
	}
	return false, false
}

// Evaluator scores one answer against one question. It never fails: missing or
// malformed answers score zero.
type Evaluator struct {
	tokens Tokens
}

// NewEvaluator creates an evaluator accepting the given true/false tokens.
func NewEvaluator(tokens Tokens) *Evaluator {
	return &Evaluator{tokens: tokens}
}

// Evaluate scores answer against q. An empty answer is treated as unanswered.
func (e *Evaluator) Evaluate(q model.Question, answer string) Outcome {
	answer = strings.TrimSpace(answer)

	var out Outcome
	switch q.Type {
	case model.QuestionMultipleChoice:
		out.Correct = answer != "" && fold(answer) == fold(strings.TrimSpace(q.Answer))
	case model.QuestionTrueFalse:
		out.Correct = e.evaluateTrueFalse(q.Answer, answer)
	case model.QuestionFillIn:
		out.Correct = answer != "" && fold(answer) == fold(strings.TrimSpace(q.Answer))
	case model.QuestionShortAnswer:
		out.Fraction = keywordRatio(ParseKeywords(q.Answer), answer)
		out.Correct = out.Fraction > shortAnswerPassRatio
	default:
		slog.Warn("unknown question type, scoring as incorrect", "question_id", q.ID, "type", q.Type)
		return out
	}

	if out.Correct && q.Type != model.QuestionShortAnswer {
		out.Fraction = 1
	}
	out.Awarded = award(q.Score, out)
	return out
}

func (e *Evaluator) evaluateTrueFalse(canonical, answer string) bool {
	if answer == "" {
		return false
	}
	value, ok := e.tokens.classify(fold(answer))
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(canonical)) {
	case "true":
		return value
	case "false":
		return !value
	}
	return false
}

// award applies the credit rule: full marks when correct, otherwise the
// floor of the partial fraction.
func award(maxScore int, out Outcome) int {
	if maxScore <= 0 {
		return 0
	}
	if out.Correct {
		return maxScore
	}
	if out.Fraction <= 0 {
		return 0
	}
	pts := int(math.Floor(float64(maxScore) * out.Fraction))
	return min(maxScore, max(0, pts))
}

// ParseKeywords decodes a short-answer key. Both {"keywords": [...]} and a bare
// JSON array are accepted; anything else yields no keywords.
func ParseKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var obj struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		return obj.Keywords
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	return nil
}

func keywordRatio(keywords []string, answer string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	text := fold(answer)
	hits := 0
	for _, k := range keywords {
		if strings.Contains(text, fold(k)) {
			hits++
		}
	}
	return math.Min(1, float64(hits)/float64(len(keywords)))
}

// fold case-folds s. A Caser is stateful, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
