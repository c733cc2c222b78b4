package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/learnlab/internal/model"
)

// UpsertStudent creates a roster entry or refreshes the contact fields of an
// existing one with the same student ID. created reports which happened.
// passwordHash is only used for new entries.
func (s *Store) UpsertStudent(st model.StudentImport, passwordHash string) (created bool, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var id int64
	err = tx.QueryRow(`SELECT id FROM users WHERE student_id = ?`, st.StudentID).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.Exec(
			`INSERT INTO users (student_id, display_name, role, password_hash, class_name, phone, email, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			st.StudentID, st.Name, model.UserRoleStudent, passwordHash,
			st.ClassName, st.Phone, st.Email, model.UserStatusActive, time.Now(),
		)
		created = true
	case err != nil:
		return false, err
	default:
		_, err = tx.Exec(
			`UPDATE users SET display_name = ?, class_name = ?, phone = ?, email = ? WHERE id = ?`,
			st.Name, st.ClassName, st.Phone, st.Email, id,
		)
	}
	if err != nil {
		return false, fmt.Errorf("upsert student %s: %w", st.StudentID, err)
	}
	return created, tx.Commit()
}

// ListStudents returns one page of students ordered by student ID. search
// matches name, student ID or class as a substring.
func (s *Store) ListStudents(page, perPage int, search string) (*model.StudentPage, error) {
	where := `WHERE role = 'student'`
	var args []any
	if search != "" {
		like := "%" + search + "%"
		where += ` AND (display_name LIKE ? OR student_id LIKE ? OR class_name LIKE ?)`
		args = append(args, like, like, like)
	}

	result := &model.StudentPage{Students: []model.User{}, Page: page, PerPage: perPage}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users `+where, args...).Scan(&result.Total); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	result.Pages = (result.Total + perPage - 1) / perPage

	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users `+where+` ORDER BY student_id LIMIT ? OFFSET ?`,
		append(args, perPage, (page-1)*perPage)...,
	)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result.Students = append(result.Students, *u)
	}
	return result, rows.Err()
}

// ActiveStudents returns every non-deleted student ordered by student ID.
func (s *Store) ActiveStudents() ([]model.User, error) {
	rows, err := s.db.Query(
		`SELECT `+userColumns+` FROM users
		 WHERE role = 'student' AND status != ? ORDER BY student_id`, model.UserStatusDeleted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	students := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *u)
	}
	return students, rows.Err()
}

// DeleteStudent marks a student as deleted. The row and its submissions are kept.
func (s *Store) DeleteStudent(studentID string) error {
	res, err := s.db.Exec(
		`UPDATE users SET status = ? WHERE student_id = ? AND role = 'student'`,
		model.UserStatusDeleted, studentID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// StudentStats counts active students overall and per class, and lists the five
// most recently created.
func (s *Store) StudentStats() (*model.StudentStats, error) {
	stats := &model.StudentStats{ClassStats: []model.ClassCount{}, RecentStudents: []model.User{}}

	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM users WHERE role = 'student' AND status != ?`, model.UserStatusDeleted,
	).Scan(&stats.TotalStudents)
	if err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT class_name, COUNT(*) AS n FROM users
		 WHERE role = 'student' AND status != ? AND class_name != ''
		 GROUP BY class_name ORDER BY n DESC, class_name`, model.UserStatusDeleted,
	)
	if err != nil {
		return nil, fmt.Errorf("class stats: %w", err)
	}
	for rows.Next() {
		var c model.ClassCount
		if err := rows.Scan(&c.ClassName, &c.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ClassStats = append(stats.ClassStats, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(
		`SELECT `+userColumns+` FROM users
		 WHERE role = 'student' AND status != ?
		 ORDER BY created_at DESC, id DESC LIMIT 5`, model.UserStatusDeleted,
	)
	if err != nil {
		return nil, fmt.Errorf("recent students: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		stats.RecentStudents = append(stats.RecentStudents, *u)
	}
	return stats, rows.Err()
}
