package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pavelanni/learnlab/internal/grading"
	"github.com/pavelanni/learnlab/internal/model"
)

// AppendSubmission persists a graded submission. Submissions are never updated.
func (s *Store) AppendSubmission(userID, examID int64, sub *model.Submission) (int64, error) {
	detail, err := json.Marshal(sub.Detail)
	if err != nil {
		return 0, fmt.Errorf("marshal detail: %w", err)
	}
	wrong, err := json.Marshal(sub.WrongQIDs)
	if err != nil {
		return 0, fmt.Errorf("marshal wrong ids: %w", err)
	}
	suggestions, err := json.Marshal(sub.Suggestions)
	if err != nil {
		return 0, fmt.Errorf("marshal suggestions: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO submissions (user_id, exam_id, score, total, rate, detail, wrong_qids, suggestions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, examID, sub.Score, sub.Total, sub.Rate,
		string(detail), string(wrong), string(suggestions), time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return res.LastInsertId()
}

// ListSubmissions returns a user's submissions, newest first.
func (s *Store) ListSubmissions(userID int64) ([]model.SubmissionSummary, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.exam_id, COALESCE(e.name, ''), s.score, s.total, s.rate, s.created_at
		 FROM submissions s LEFT JOIN exams e ON e.id = s.exam_id
		 WHERE s.user_id = ? ORDER BY s.id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SubmissionSummary{}
	for rows.Next() {
		var sum model.SubmissionSummary
		if err := rows.Scan(&sum.ID, &sum.ExamID, &sum.ExamName, &sum.Score, &sum.Total,
			&sum.Rate, &sum.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

const submissionColumns = `s.id, s.user_id, s.exam_id, COALESCE(e.name, ''), s.score, s.total, s.rate,
	s.detail, s.wrong_qids, s.suggestions, s.created_at`

func scanSubmission(r rowScanner) (*model.SubmissionRecord, error) {
	var rec model.SubmissionRecord
	var detail, wrong, suggestions string
	err := r.Scan(&rec.ID, &rec.UserID, &rec.ExamID, &rec.ExamName, &rec.Score, &rec.Total,
		&rec.Rate, &detail, &wrong, &suggestions, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(detail), &rec.Detail); err != nil {
		return nil, fmt.Errorf("decode detail of submission %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(wrong), &rec.WrongQIDs); err != nil {
		return nil, fmt.Errorf("decode wrong ids of submission %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(suggestions), &rec.Suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions of submission %d: %w", rec.ID, err)
	}
	if rec.Detail == nil {
		rec.Detail = []model.QuestionOutcome{}
	}
	if rec.WrongQIDs == nil {
		rec.WrongQIDs = []int64{}
	}
	if rec.Suggestions == nil {
		rec.Suggestions = []string{}
	}
	return &rec, nil
}

// GetSubmission returns a submission owned by userID, or nil if there is none.
func (s *Store) GetSubmission(userID, id int64) (*model.SubmissionRecord, error) {
	rec, err := scanSubmission(s.db.QueryRow(
		`SELECT `+submissionColumns+`
		 FROM submissions s LEFT JOIN exams e ON e.id = s.exam_id
		 WHERE s.id = ? AND s.user_id = ?`, id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// ListAllSubmissions returns every submission in insertion order.
func (s *Store) ListAllSubmissions() ([]model.SubmissionRecord, error) {
	rows, err := s.db.Query(
		`SELECT ` + submissionColumns + `
		 FROM submissions s LEFT JOIN exams e ON e.id = s.exam_id
		 ORDER BY s.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SubmissionRecord
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetSubmissionView returns a user's submission with its missed questions and
// their module and topic titles. Titles are nil when the reference does not resolve.
func (s *Store) GetSubmissionView(ctx context.Context, userID, id int64) (*model.SubmissionView, error) {
	rec, err := s.GetSubmission(userID, id)
	if err != nil || rec == nil {
		return nil, err
	}
	questions, err := s.GetQuestions(rec.WrongQIDs)
	if err != nil {
		return nil, fmt.Errorf("load wrong questions: %w", err)
	}

	view := &model.SubmissionView{SubmissionRecord: *rec, Wrongs: []model.WrongQuestion{}}
	for _, qid := range rec.WrongQIDs {
		q, ok := questions[qid]
		if !ok {
			continue
		}
		w := model.WrongQuestion{ID: q.ID, Prompt: q.Prompt}
		if ref, ok := grading.ParseKnowledgeRef(q.KnowledgeRef); ok {
			module, topic, found, err := s.TopicTitles(ctx, ref.ModuleID, ref.TopicOrd)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", ref, err)
			}
			if found {
				w.Module, w.Topic = &module, &topic
			}
		}
		view.Wrongs = append(view.Wrongs, w)
	}
	return view, nil
}
