package model

import "time"

// SubmissionExport is the top-level JSON structure for submission export.
type SubmissionExport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Count       int             `json:"count"`
	Results     []StudentResult `json:"results"`
}

// StudentResult holds one persisted submission with its owner for export.
type StudentResult struct {
	StudentID     string            `json:"student_id"`
	Username      string            `json:"username,omitempty"`
	DisplayName   string            `json:"display_name"`
	ClassName     string            `json:"class_name,omitempty"`
	ExamID        int64             `json:"exam_id"`
	ExamName      string            `json:"exam_name"`
	AttemptNumber int               `json:"attempt_number"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	Score         int               `json:"score"`
	Total         int               `json:"total"`
	Rate          float64           `json:"rate"`
	Detail        []QuestionOutcome `json:"detail"`
	Suggestions   []string          `json:"suggestions"`
}
