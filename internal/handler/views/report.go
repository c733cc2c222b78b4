// Package views renders HTML pages.
package views

//go:generate templ generate

import (
	"fmt"

	"github.com/pavelanni/learnlab/internal/model"
)

func studentLabel(u *model.User) string {
	if u.StudentID == "" {
		return u.DisplayName
	}
	return u.DisplayName + " (" + u.StudentID + ")"
}

func scoreLabel(score, total int) string {
	return fmt.Sprintf("%d / %d", score, total)
}

// rateLabel formats a rate that is already a percentage.
func rateLabel(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate)
}
