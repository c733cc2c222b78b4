package grading

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Answers maps a canonical question-id string to the submitted answer text.
type Answers map[string]string

// Lookup returns the answer for question id.
func (a Answers) Lookup(id int64) (string, bool) {
	v, ok := a[strconv.FormatInt(id, 10)]
	return v, ok
}

// canonicalKey normalizes a question-id key. Numeric keys lose surrounding
// whitespace and leading zeros so "7", " 7" and "007" all address question 7.
func canonicalKey(k string) string {
	k = strings.TrimSpace(k)
	if n, err := strconv.ParseInt(k, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return k
}

// AnswersFromInts builds Answers from integer-keyed input.
func AnswersFromInts(m map[int64]string) Answers {
	out := make(Answers, len(m))
	for k, v := range m {
		out[strconv.FormatInt(k, 10)] = v
	}
	return out
}

// ParseAnswers normalizes a decoded JSON answer map. Values that are not
// strings, numbers or booleans are dropped and therefore score as unanswered.
// When several keys address the same question, the already-canonical key wins,
// otherwise the lexically first one.
func ParseAnswers(raw map[string]any) Answers {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Answers, len(raw))
	exact := make(map[string]bool, len(raw))
	for _, k := range keys {
		s, ok := answerText(raw[k])
		if !ok {
			continue
		}
		ck := canonicalKey(k)
		if _, seen := out[ck]; seen && (exact[ck] || ck != k) {
			continue
		}
		out[ck] = s
		exact[ck] = ck == k
	}
	return out
}

// DecodeAnswers parses a JSON object of answers. A null or empty payload
// yields an empty set.
func DecodeAnswers(data []byte) (Answers, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Answers{}, nil
	}
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return ParseAnswers(raw), nil
}

func answerText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
