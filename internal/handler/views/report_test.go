package views

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appI18n "github.com/pavelanni/learnlab/internal/i18n"
	"github.com/pavelanni/learnlab/internal/model"
)

func renderReport(t *testing.T, v *model.SubmissionView) string {
	t.Helper()
	require.NoError(t, appI18n.Init("en"))
	student := &model.User{DisplayName: "Li Lei", StudentID: "S001"}
	var buf bytes.Buffer
	require.NoError(t, SubmissionReport(student, v).Render(context.Background(), &buf))
	return buf.String()
}

func TestSubmissionReport(t *testing.T) {
	module := "Operating systems"
	v := &model.SubmissionView{
		SubmissionRecord: model.SubmissionRecord{
			ExamName:  "Midterm",
			CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			Submission: model.Submission{
				Score:       2,
				Total:       3,
				Rate:        66.67,
				Suggestions: []string{"Review first: Operating systems"},
			},
		},
		Wrongs: []model.WrongQuestion{
			{ID: 3, Prompt: "What does <b>fork</b> return?", Module: &module},
		},
	}

	html := renderReport(t, v)

	assert.Contains(t, html, "<td>Li Lei (S001)</td>")
	assert.Contains(t, html, "<td>Midterm</td>")
	assert.Contains(t, html, "<td>2026-03-01 09:30</td>")
	assert.Contains(t, html, "<td>2 / 3</td>")
	assert.Contains(t, html, "<td>66.67%</td>")
	assert.NotContains(t, html, "6667")
	assert.Contains(t, html, "<td>Operating systems</td>")
	assert.Contains(t, html, `<td class="muted">not mapped</td>`)
	assert.Contains(t, html, "&lt;b&gt;fork&lt;/b&gt;")
	assert.NotContains(t, html, "<b>fork</b>")
	assert.Contains(t, html, "<li>Review first: Operating systems</li>")
}

func TestSubmissionReportAllCorrect(t *testing.T) {
	v := &model.SubmissionView{
		SubmissionRecord: model.SubmissionRecord{
			ExamName:   "Midterm",
			Submission: model.Submission{Score: 3, Total: 3, Rate: 100},
		},
	}

	html := renderReport(t, v)

	assert.Contains(t, html, "<td>100.00%</td>")
	assert.Contains(t, html, "<p>No wrong answers. Well done!</p>")
	assert.NotContains(t, html, "<ol>")
}

func TestRateLabel(t *testing.T) {
	assert.Equal(t, "9.09%", rateLabel(9.09))
	assert.Equal(t, "0.00%", rateLabel(0))
	assert.Equal(t, "100.00%", rateLabel(100))
}
