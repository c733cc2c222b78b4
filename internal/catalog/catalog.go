// Package catalog seeds modules, topics, lessons, exams and questions from a
// JSON catalog document.
package catalog

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pavelanni/learnlab/internal/grading"
	"github.com/pavelanni/learnlab/internal/model"
	"github.com/pavelanni/learnlab/internal/validate"
)

//go:embed default.json
var defaultCatalog []byte

// DefaultPath is the import key recorded for the embedded catalog.
const DefaultPath = "embedded:default.json"

// Document is a catalog file.
type Document struct {
	Modules []ModuleDoc `json:"modules" validate:"dive"`
	Exams   []ExamDoc   `json:"exams" validate:"dive"`
}

// ModuleDoc describes a module and its topics. Ord is the module's 1-based position.
type ModuleDoc struct {
	Ord         int        `json:"ord" validate:"gte=1"`
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Topics      []TopicDoc `json:"topics" validate:"dive"`
}

// TopicDoc describes a topic. Content is optional.
type TopicDoc struct {
	Ord     int                 `json:"ord" validate:"gte=1"`
	Title   string              `json:"title" validate:"required"`
	Content *model.TopicContent `json:"content,omitempty"`
}

// ExamDoc describes an exam and its questions.
type ExamDoc struct {
	Name      string        `json:"name" validate:"required"`
	Questions []QuestionDoc `json:"questions" validate:"min=1,dive"`
}

// QuestionDoc describes a question. Module and Topic are the module ordinal and
// topic ordinal the question tests; zero means unmapped. Short-answer questions
// list Keywords instead of an Answer.
type QuestionDoc struct {
	Type     model.QuestionType `json:"type" validate:"required,oneof=mcq tf fill short"`
	Prompt   string             `json:"prompt" validate:"required"`
	Options  []string           `json:"options,omitempty" validate:"required_if=Type mcq"`
	Answer   string             `json:"answer" validate:"required_unless=Type short"`
	Keywords []string           `json:"keywords,omitempty" validate:"required_if=Type short,dive,required"`
	Score    int                `json:"score" validate:"gte=0"`
	Module   int                `json:"module" validate:"gte=0"`
	Topic    int                `json:"topic" validate:"gte=0"`
}

// Store is the persistence the loader writes to.
type Store interface {
	GetImportedFileHash(path string) (string, error)
	SetImportedFileHash(path, hash string) error
	UpsertModule(m model.Module) (int64, error)
	UpsertTopic(t model.Topic) (int64, error)
	GetContent(topicID int64) (*model.TopicContent, error)
	SetContent(topicID int64, c model.TopicContent) error
	CreateExam(name string) (int64, error)
	QuestionCount(examID int64) (int, error)
	InsertQuestion(q model.Question) (int64, error)
}

// LessonFunc produces a lesson for a topic that the catalog ships without content.
type LessonFunc func(module string, topicOrd int, topicTitle string) model.TopicContent

// Stats counts what an Apply call wrote.
type Stats struct {
	Modules   int
	Topics    int
	Lessons   int
	Exams     int
	Questions int
}

// Loader applies catalog documents to a store.
type Loader struct {
	db     Store
	lesson LessonFunc
}

// NewLoader creates a Loader. lesson may be nil, in which case topics without
// content are left empty.
func NewLoader(db Store, lesson LessonFunc) *Loader {
	return &Loader{db: db, lesson: lesson}
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validate.Struct(doc); err != nil {
		var msgs []string
		for field, msg := range validate.TranslateErrors(err) {
			msgs = append(msgs, field+": "+msg)
		}
		return nil, fmt.Errorf("invalid catalog: %s", strings.Join(msgs, "; "))
	}
	return &doc, nil
}

// LoadDefault applies the embedded catalog once.
func (l *Loader) LoadDefault() error {
	return l.load(DefaultPath, defaultCatalog)
}

// LoadFiles applies catalog files. A file is imported once; a file whose
// content changed since its import is skipped with a warning.
func (l *Loader) LoadFiles(paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := l.load(path, data); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) load(path string, data []byte) error {
	hash := sha256sum(data)
	storedHash, err := l.db.GetImportedFileHash(path)
	if err != nil {
		return fmt.Errorf("check import status for %s: %w", path, err)
	}
	if storedHash == hash {
		slog.Info("catalog unchanged, skipping", "path", path)
		return nil
	}
	if storedHash != "" {
		slog.Warn("catalog changed since last import, skipping to keep existing submissions consistent",
			"path", path)
		return nil
	}

	doc, err := Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	stats, err := l.Apply(doc)
	if err != nil {
		return fmt.Errorf("apply %s: %w", path, err)
	}
	if err := l.db.SetImportedFileHash(path, hash); err != nil {
		return fmt.Errorf("record import for %s: %w", path, err)
	}
	slog.Info("imported catalog", "path", path,
		"modules", stats.Modules, "topics", stats.Topics, "lessons", stats.Lessons,
		"exams", stats.Exams, "questions", stats.Questions)
	return nil
}

// Apply writes a document. Modules and topics are upserted by ordinal, lessons
// are only written for topics that have none, and an exam that already has
// questions is left alone.
func (l *Loader) Apply(doc *Document) (Stats, error) {
	var stats Stats
	moduleIDs := make(map[int]int64)

	for _, md := range doc.Modules {
		mid, err := l.db.UpsertModule(model.Module{Title: md.Title, Description: md.Description, Ord: md.Ord})
		if err != nil {
			return stats, err
		}
		moduleIDs[md.Ord] = mid
		stats.Modules++

		for _, td := range md.Topics {
			tid, err := l.db.UpsertTopic(model.Topic{ModuleID: mid, Title: td.Title, Ord: td.Ord})
			if err != nil {
				return stats, err
			}
			stats.Topics++

			existing, err := l.db.GetContent(tid)
			if err != nil {
				return stats, err
			}
			if existing != nil {
				continue
			}
			var content model.TopicContent
			switch {
			case td.Content != nil:
				content = *td.Content
			case l.lesson != nil:
				content = l.lesson(md.Title, td.Ord, td.Title)
			default:
				continue
			}
			if content.Title == "" {
				content.Title = td.Title
			}
			if err := l.db.SetContent(tid, content); err != nil {
				return stats, err
			}
			stats.Lessons++
		}
	}

	for _, ed := range doc.Exams {
		examID, err := l.db.CreateExam(ed.Name)
		if err != nil {
			return stats, err
		}
		n, err := l.db.QuestionCount(examID)
		if err != nil {
			return stats, err
		}
		if n > 0 {
			slog.Debug("exam already populated, skipping", "exam", ed.Name)
			continue
		}
		stats.Exams++

		for i, qd := range ed.Questions {
			q, err := qd.question(examID, i+1, moduleIDs)
			if err != nil {
				return stats, fmt.Errorf("exam %q question %d: %w", ed.Name, i+1, err)
			}
			if _, err := l.db.InsertQuestion(q); err != nil {
				return stats, err
			}
			stats.Questions++
		}
	}
	return stats, nil
}

func (qd QuestionDoc) question(examID int64, ord int, moduleIDs map[int]int64) (model.Question, error) {
	q := model.Question{
		ExamID:  examID,
		Type:    qd.Type,
		Prompt:  qd.Prompt,
		Options: qd.Options,
		Answer:  qd.Answer,
		Score:   qd.Score,
		Ord:     ord,
	}
	if qd.Type == model.QuestionShortAnswer {
		b, err := json.Marshal(struct {
			Keywords []string `json:"keywords"`
		}{qd.Keywords})
		if err != nil {
			return q, err
		}
		q.Answer = string(b)
	}
	if qd.Module > 0 && qd.Topic > 0 {
		mid, ok := moduleIDs[qd.Module]
		if !ok {
			slog.Warn("question references a module outside the catalog, leaving it unmapped",
				"module_ord", qd.Module, "prompt", qd.Prompt)
		} else {
			q.KnowledgeRef = grading.KnowledgeRef{ModuleID: mid, TopicOrd: qd.Topic}.String()
		}
	}
	return q, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
