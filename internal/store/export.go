package store

import (
	"fmt"

	"github.com/pavelanni/learnlab/internal/model"
)

// ExportSubmissions builds export-ready results from all submissions.
func (s *Store) ExportSubmissions() ([]model.StudentResult, error) {
	subs, err := s.ListAllSubmissions()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}

	// Attempt number per (student, exam).
	type attemptKey struct{ user, exam int64 }
	attempts := make(map[attemptKey]int)
	users := make(map[int64]*model.User)

	results := []model.StudentResult{}
	for _, sub := range subs {
		key := attemptKey{sub.UserID, sub.ExamID}
		attempts[key]++

		user, ok := users[sub.UserID]
		if !ok {
			user, err = s.GetUserByID(sub.UserID)
			if err != nil {
				return nil, fmt.Errorf("get user %d: %w", sub.UserID, err)
			}
			users[sub.UserID] = user
		}

		r := model.StudentResult{
			ExamID:        sub.ExamID,
			ExamName:      sub.ExamName,
			AttemptNumber: attempts[key],
			SubmittedAt:   sub.CreatedAt,
			Score:         sub.Score,
			Total:         sub.Total,
			Rate:          sub.Rate,
			Detail:        sub.Detail,
			Suggestions:   sub.Suggestions,
		}
		if user != nil {
			r.StudentID = user.StudentID
			r.Username = user.Username
			r.DisplayName = user.DisplayName
			r.ClassName = user.ClassName
		}
		results = append(results, r)
	}
	return results, nil
}
