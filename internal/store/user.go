package store

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/learnlab/internal/model"
)

const userColumns = `id, username, student_id, display_name, password_hash, role,
	class_name, phone, email, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (*model.User, error) {
	var u model.User
	var username, studentID sql.NullString
	err := r.Scan(&u.ID, &username, &studentID, &u.DisplayName, &u.PasswordHash, &u.Role,
		&u.ClassName, &u.Phone, &u.Email, &u.Status, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Username = username.String
	u.StudentID = studentID.String
	return &u, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(u model.User) (int64, error) {
	if u.Status == "" {
		u.Status = model.UserStatusActive
	}
	res, err := s.db.Exec(
		`INSERT INTO users (username, student_id, display_name, password_hash, role,
		 class_name, phone, email, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullString(u.Username), nullString(u.StudentID), u.DisplayName, u.PasswordHash, u.Role,
		u.ClassName, u.Phone, u.Email, u.Status, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) && u.StudentID != "" {
			return 0, ErrDuplicateStudent
		}
		slog.Error("failed to create user", "username", u.Username, "student_id", u.StudentID, "error", err)
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username, "student_id", u.StudentID, "role", u.Role)
	return id, nil
}

// GetUserByUsername returns a user by username.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByStudentID returns a user by student ID.
func (s *Store) GetUserByStudentID(studentID string) (*model.User, error) {
	u, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE student_id = ?`, studentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByID returns a user by ID.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	u, err := scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// ListUsers returns all users.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetUserPassword replaces a user's password hash.
func (s *Store) SetUserPassword(id int64, passwordHash string) error {
	_, err := s.db.Exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return err
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
