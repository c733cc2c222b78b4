package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleStudent is a student user role.
	UserRoleStudent UserRole = "student"
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// UserStatus marks whether a roster entry is still in use.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusDeleted UserStatus = "deleted"
)

// User represents a system user. Students are keyed by StudentID, staff by Username;
// either may be empty.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username,omitempty"`
	StudentID    string     `json:"student_id,omitempty"`
	DisplayName  string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         UserRole   `json:"role"`
	ClassName    string     `json:"class_name,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Active reports whether the user may sign in.
func (u *User) Active() bool {
	return u.Status != UserStatusDeleted
}

// AuthSession represents a bearer token issued at login.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Module is a course unit made of ordered topics.
type Module struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Ord         int    `json:"ord"`
	TopicsCount int    `json:"topics_count"`
}

// Topic is a single knowledge point inside a module. Ord is 1-based within the module.
type Topic struct {
	ID       int64  `json:"id"`
	ModuleID int64  `json:"module_id"`
	Title    string `json:"title"`
	Ord      int    `json:"ord"`
}

// TopicContent is the lesson stored for a topic.
type TopicContent struct {
	Title     string   `json:"title"`
	Theory    string   `json:"theory"`
	Code      string   `json:"code,omitempty"`
	Case      string   `json:"case,omitempty"`
	Exercises []string `json:"exercises,omitempty"`
	Summary   []string `json:"summary,omitempty"`
	Images    []string `json:"images,omitempty"`
}

// Exam is a named, ordered set of questions.
type Exam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// QuestionType is the declared answer format of a question.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "mcq"
	QuestionTrueFalse      QuestionType = "tf"
	QuestionFillIn         QuestionType = "fill"
	QuestionShortAnswer    QuestionType = "short"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionFillIn, QuestionShortAnswer:
		return true
	}
	return false
}

// Question is an exam question including its canonical answer.
//
// Answer encoding depends on Type: a letter for mcq, "True"/"False" for tf, the expected
// text for fill, and a JSON keyword list ({"keywords": [...]}) for short.
// KnowledgeRef is "<module_id>:<topic_ordinal>" or empty.
type Question struct {
	ID           int64        `json:"id"`
	ExamID       int64        `json:"exam_id"`
	Type         QuestionType `json:"type"`
	Prompt       string       `json:"prompt"`
	Options      []string     `json:"options,omitempty"`
	Answer       string       `json:"answer"`
	Score        int          `json:"score"`
	Ord          int          `json:"ord"`
	KnowledgeRef string       `json:"knowledge_ref,omitempty"`
}

// QuestionView is the public form of a question shown to examinees.
type QuestionView struct {
	ID      int64        `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options"`
	Score   int          `json:"score"`
	Ord     int          `json:"ord"`
}

// View strips the answer and knowledge reference.
func (q Question) View() QuestionView {
	return QuestionView{
		ID:      q.ID,
		Type:    q.Type,
		Prompt:  q.Prompt,
		Options: q.Options,
		Score:   q.Score,
		Ord:     q.Ord,
	}
}

// QuestionOutcome is the graded result of one question.
type QuestionOutcome struct {
	QuestionID   int64        `json:"qid"`
	Type         QuestionType `json:"type"`
	Score        int          `json:"score"`
	Max          int          `json:"max"`
	KnowledgeRef string       `json:"kref"`
}

// Submission is the result of grading one answer set against one exam.
type Submission struct {
	Score       int               `json:"score"`
	Total       int               `json:"total"`
	Rate        float64           `json:"rate"`
	Detail      []QuestionOutcome `json:"detail"`
	WrongQIDs   []int64           `json:"wrong_qids"`
	Suggestions []string          `json:"suggestions"`
}

// SubmissionRecord is a persisted submission.
type SubmissionRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ExamID    int64     `json:"exam_id"`
	ExamName  string    `json:"exam_name"`
	CreatedAt time.Time `json:"created_at"`
	Submission
}

// SubmissionSummary is a row of a user's score history.
type SubmissionSummary struct {
	ID        int64     `json:"id"`
	ExamID    int64     `json:"exam_id"`
	ExamName  string    `json:"exam_name"`
	Score     int       `json:"score"`
	Total     int       `json:"total"`
	Rate      float64   `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
}

// WrongQuestion describes a missed question with its knowledge area, if known.
type WrongQuestion struct {
	ID     int64   `json:"id"`
	Prompt string  `json:"prompt"`
	Module *string `json:"module"`
	Topic  *string `json:"topic"`
}

// SubmissionView combines a persisted submission with its missed questions.
type SubmissionView struct {
	SubmissionRecord
	Wrongs []WrongQuestion `json:"wrongs"`
}

// StudentImport is one roster row read from a spreadsheet.
type StudentImport struct {
	Name      string
	StudentID string
	ClassName string
	Phone     string
	Email     string
}

// ImportResult summarizes a roster import.
type ImportResult struct {
	Imported       int      `json:"imported"`
	Updated        int      `json:"updated"`
	Errors         []string `json:"errors"`
	TotalProcessed int      `json:"total_processed"`
}

// StudentPage is one page of the roster listing.
type StudentPage struct {
	Students []User `json:"students"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PerPage  int    `json:"per_page"`
	Pages    int    `json:"pages"`
}

// ClassCount is the number of active students in a class.
type ClassCount struct {
	ClassName string `json:"class_name"`
	Count     int    `json:"count"`
}

// StudentStats summarizes the roster.
type StudentStats struct {
	TotalStudents  int          `json:"total_students"`
	ClassStats     []ClassCount `json:"class_stats"`
	RecentStudents []User       `json:"recent_students"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Lang                   string
	DefaultStudentPassword string
	PromptVariant          string
}
