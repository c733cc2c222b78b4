package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/pavelanni/learnlab/internal/model"
)

// AuthTokenTTL is how long a bearer token issued at login stays valid.
const AuthTokenTTL = 7 * 24 * time.Hour

// CreateAuthToken issues a new bearer token for a user.
func (s *Store) CreateAuthToken(userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO auth_tokens (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(AuthTokenTTL),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthToken returns the session for the given token, or nil if not found/expired.
func (s *Store) GetAuthToken(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at FROM auth_tokens WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.DeleteAuthToken(token)
		return nil, nil
	}
	return &sess, nil
}

// DeleteAuthToken revokes a token.
func (s *Store) DeleteAuthToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_tokens WHERE id = ?`, token)
	return err
}

// DeleteUserTokens revokes every token of a user.
func (s *Store) DeleteUserTokens(userID int64) error {
	_, err := s.db.Exec(`DELETE FROM auth_tokens WHERE user_id = ?`, userID)
	return err
}

// CleanupExpiredTokens removes all expired tokens.
func (s *Store) CleanupExpiredTokens() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM auth_tokens WHERE expires_at < ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
