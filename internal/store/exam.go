package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pavelanni/learnlab/internal/model"
)

// CreateExam inserts an exam, or returns the ID of the existing exam with that name.
func (s *Store) CreateExam(name string) (int64, error) {
	_, err := s.db.Exec(`INSERT INTO exams (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name)
	if err != nil {
		return 0, fmt.Errorf("create exam %q: %w", name, err)
	}
	var id int64
	err = s.db.QueryRow(`SELECT id FROM exams WHERE name = ?`, name).Scan(&id)
	return id, err
}

// ListExams returns all exams ordered by ID.
func (s *Store) ListExams() ([]model.Exam, error) {
	rows, err := s.db.Query(`SELECT id, name FROM exams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Name); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// GetExam returns an exam by ID, or nil if not found.
func (s *Store) GetExam(id int64) (*model.Exam, error) {
	var e model.Exam
	err := s.db.QueryRow(`SELECT id, name FROM exams WHERE id = ?`, id).Scan(&e.ID, &e.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertQuestion adds a question to an exam.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	var options any
	if q.Options != nil {
		b, err := json.Marshal(q.Options)
		if err != nil {
			return 0, fmt.Errorf("marshal options: %w", err)
		}
		options = string(b)
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (exam_id, qtype, prompt, options, answer, score, ord, knowledge_ref)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ExamID, q.Type, q.Prompt, options, q.Answer, q.Score, q.Ord, q.KnowledgeRef,
	)
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return res.LastInsertId()
}

// QuestionCount returns the number of questions in an exam.
func (s *Store) QuestionCount(examID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE exam_id = ?`, examID).Scan(&n)
	return n, err
}

// QuestionSet returns the questions of an exam ordered by ord, then ID.
// It returns ErrExamNotFound when the exam does not exist.
func (s *Store) QuestionSet(ctx context.Context, examID int64) ([]model.Question, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM exams WHERE id = ?`, examID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, exam_id, qtype, prompt, options, answer, score, ord, knowledge_ref
		 FROM questions WHERE exam_id = ? ORDER BY ord, id`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// GetQuestions returns questions by ID. Unknown IDs are skipped.
func (s *Store) GetQuestions(ids []int64) (map[int64]model.Question, error) {
	out := make(map[int64]model.Question, len(ids))
	for _, id := range ids {
		rows, err := s.db.Query(
			`SELECT id, exam_id, qtype, prompt, options, answer, score, ord, knowledge_ref
			 FROM questions WHERE id = ?`, id,
		)
		if err != nil {
			return nil, err
		}
		qs, err := scanQuestions(rows)
		rows.Close()
		if err != nil {
			return nil, err
		}
		for _, q := range qs {
			out[q.ID] = q
		}
	}
	return out, nil
}

func scanQuestions(rows *sql.Rows) ([]model.Question, error) {
	questions := []model.Question{}
	for rows.Next() {
		var q model.Question
		var options sql.NullString
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Type, &q.Prompt, &options,
			&q.Answer, &q.Score, &q.Ord, &q.KnowledgeRef); err != nil {
			return nil, err
		}
		if options.Valid && options.String != "" {
			if err := json.Unmarshal([]byte(options.String), &q.Options); err != nil {
				slog.Warn("ignoring malformed question options", "question_id", q.ID, "error", err)
				q.Options = nil
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
