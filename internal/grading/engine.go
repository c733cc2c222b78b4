// Package grading scores exam submissions and derives remediation suggestions
// from the knowledge areas of missed questions.
package grading

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pavelanni/learnlab/internal/model"
)

// QuestionSource loads the question set of an exam.
type QuestionSource interface {
	QuestionSet(ctx context.Context, examID int64) ([]model.Question, error)
}

// Engine grades submissions. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	questions QuestionSource
	titles    TitleResolver
	phrases   Phrasebook
	eval      *Evaluator
}

// Option configures an Engine.
type Option func(*Engine)

// WithPhrasebook sets the remediation phrasing.
func WithPhrasebook(p Phrasebook) Option {
	return func(e *Engine) {
		if p != nil {
			e.phrases = p
		}
	}
}

// WithTokens accepts extra true/false spellings on top of DefaultTokens.
func WithTokens(t Tokens) Option {
	return func(e *Engine) { e.eval = NewEvaluator(DefaultTokens.Merge(t)) }
}

// New creates an Engine reading questions and topic titles from the given sources.
func New(questions QuestionSource, titles TitleResolver, opts ...Option) *Engine {
	e := &Engine{
		questions: questions,
		titles:    titles,
		phrases:   EnglishPhrasebook{},
		eval:      NewEvaluator(DefaultTokens),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Grade loads the exam's questions and scores answers against them.
// Only failure to load the question set is reported as an error.
func (e *Engine) Grade(ctx context.Context, examID int64, answers Answers) (*model.Submission, error) {
	questions, err := e.questions.QuestionSet(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("load questions for exam %d: %w", examID, err)
	}
	return e.Score(ctx, questions, answers), nil
}

// Score grades answers against an already loaded question set. Missing answers
// score zero. Detail follows the questions' Ord ascending.
func (e *Engine) Score(ctx context.Context, questions []model.Question, answers Answers) *model.Submission {
	ordered := make([]model.Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Ord < ordered[j].Ord
	})

	sub := &model.Submission{
		Detail:      make([]model.QuestionOutcome, 0, len(ordered)),
		WrongQIDs:   []int64{},
		Suggestions: []string{},
	}

	for _, q := range ordered {
		answer, _ := answers.Lookup(q.ID)
		out := e.eval.Evaluate(q, answer)

		sub.Detail = append(sub.Detail, model.QuestionOutcome{
			QuestionID:   q.ID,
			Type:         q.Type,
			Score:        out.Awarded,
			Max:          q.Score,
			KnowledgeRef: q.KnowledgeRef,
		})
		if out.Wrong(q.Score) {
			sub.WrongQIDs = append(sub.WrongQIDs, q.ID)
		}
		sub.Score += out.Awarded
		sub.Total += q.Score
	}

	sub.Rate = Rate(sub.Score, sub.Total)
	sub.Suggestions = suggest(ctx, sub.Detail, e.titles, e.phrases)
	return sub
}

// Rate returns score/total as a percentage rounded to two decimals, or 0 when total is 0.
func Rate(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*100*100) / 100
}
