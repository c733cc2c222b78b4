package grading

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/pavelanni/learnlab/internal/model"
)

// KnowledgeRef addresses a topic by module id and 1-based topic ordinal.
type KnowledgeRef struct {
	ModuleID int64
	TopicOrd int
}

// String returns the "<module_id>:<topic_ordinal>" form.
func (r KnowledgeRef) String() string {
	return fmt.Sprintf("%d:%d", r.ModuleID, r.TopicOrd)
}

// ParseKnowledgeRef decodes "<module_id>:<topic_ordinal>". Anything else,
// including an empty string, is reported as unmapped.
func ParseKnowledgeRef(s string) (KnowledgeRef, bool) {
	mod, topic, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return KnowledgeRef{}, false
	}
	mid, err := strconv.ParseInt(strings.TrimSpace(mod), 10, 64)
	if err != nil {
		return KnowledgeRef{}, false
	}
	ord, err := strconv.Atoi(strings.TrimSpace(topic))
	if err != nil {
		return KnowledgeRef{}, false
	}
	return KnowledgeRef{ModuleID: mid, TopicOrd: ord}, true
}

// TitleResolver looks up display titles for a knowledge reference.
// found is false when either the module or the topic does not exist.
type TitleResolver interface {
	TopicTitles(ctx context.Context, moduleID int64, topicOrd int) (module, topic string, found bool, err error)
}

// Phrasebook renders remediation text.
type Phrasebook interface {
	Suggestion(area string, wrong int) string
	UnmappedArea() string
}

// EnglishPhrasebook is the built-in phrasing used when no localized one is configured.
type EnglishPhrasebook struct{}

func (EnglishPhrasebook) Suggestion(area string, wrong int) string {
	return fmt.Sprintf("Review first: %s (%d wrong). Go back to the module's theory and case study, then complete its exercises.", area, wrong)
}

func (EnglishPhrasebook) UnmappedArea() string {
	return "unmapped knowledge area"
}

type areaCount struct {
	key   string
	count int
}

// suggest ranks knowledge areas by the number of wrong questions mapped to them.
// Titles are resolved at most once per reference.
func suggest(ctx context.Context, detail []model.QuestionOutcome, titles TitleResolver, phrases Phrasebook) []string {
	if titles == nil {
		return []string{}
	}

	resolved := make(map[KnowledgeRef]string)
	failed := make(map[KnowledgeRef]bool)
	index := make(map[string]int)
	var areas []areaCount

	for _, d := range detail {
		if d.Score >= d.Max {
			continue
		}
		ref, ok := ParseKnowledgeRef(d.KnowledgeRef)
		if !ok || failed[ref] {
			continue
		}
		key, ok := resolved[ref]
		if !ok {
			module, topic, found, err := titles.TopicTitles(ctx, ref.ModuleID, ref.TopicOrd)
			if err != nil {
				slog.Debug("knowledge reference lookup failed", "kref", d.KnowledgeRef, "error", err)
				failed[ref] = true
				continue
			}
			key = phrases.UnmappedArea()
			if found {
				key = module + " - " + topic
			}
			resolved[ref] = key
		}

		if i, seen := index[key]; seen {
			areas[i].count++
			continue
		}
		index[key] = len(areas)
		areas = append(areas, areaCount{key: key, count: 1})
	}

	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].count > areas[j].count
	})

	out := make([]string, 0, len(areas))
	for _, a := range areas {
		out = append(out, phrases.Suggestion(a.key, a.count))
	}
	return out
}
