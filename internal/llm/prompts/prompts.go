package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var FS embed.FS

var markupRegex = regexp.MustCompile(`(?i)</?\s*(system-instructions|instructions|prompt)\b[^>]*>`)

const maxFieldRunes = 200

// PromptVariant selects how much material a generated lesson covers.
type PromptVariant string

const (
	// PromptConcise asks for a few bullet points and one example.
	PromptConcise PromptVariant = "concise"
	// PromptStandard is the default lesson layout.
	PromptStandard PromptVariant = "standard"
	// PromptDetailed asks for a full lesson with graded exercises.
	PromptDetailed PromptVariant = "detailed"
)

var validVariants = map[PromptVariant]bool{
	PromptConcise:  true,
	PromptStandard: true,
	PromptDetailed: true,
}

var (
	loadOnce        sync.Once
	loadErr         error
	lessonTemplates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// LessonData holds template data for lesson prompts.
type LessonData struct {
	Module     string
	TopicTitle string
	TopicOrd   int
	Lang       string
}

// Load loads prompt templates from fsys, which must hold templates/lesson_<variant>.txt.
// It uses sync.Once to ensure templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		lessonTemplates = make(map[PromptVariant]*template.Template)

		for _, v := range []PromptVariant{PromptConcise, PromptStandard, PromptDetailed} {
			file := "templates/lesson_" + string(v) + ".txt"

			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}

			tmpl, err := template.New("lesson").Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			lessonTemplates[v] = tmpl
		}
	})
	return loadErr
}

// BuildLessonPrompt renders the lesson prompt for a topic.
func BuildLessonPrompt(variant PromptVariant, data LessonData) (string, error) {
	if lessonTemplates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := lessonTemplates[variant]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data.Module = sanitizeField(data.Module)
	data.TopicTitle = sanitizeField(data.TopicTitle)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeField strips prompt markup and quotes from catalog text and caps its length.
func sanitizeField(s string) string {
	s = markupRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, `"`, "'")
	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) > maxFieldRunes {
		s = string([]rune(s)[:maxFieldRunes])
	}
	return s
}
