package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/learnlab/internal/model"
)

// UpsertModule inserts a module or updates the one with the same ordinal.
func (s *Store) UpsertModule(m model.Module) (int64, error) {
	_, err := s.db.Exec(
		`INSERT INTO modules (title, description, ord) VALUES (?, ?, ?)
		 ON CONFLICT(ord) DO UPDATE SET title = excluded.title, description = excluded.description`,
		m.Title, m.Description, m.Ord,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert module %d: %w", m.Ord, err)
	}
	var id int64
	err = s.db.QueryRow(`SELECT id FROM modules WHERE ord = ?`, m.Ord).Scan(&id)
	return id, err
}

// ListModules returns all modules ordered by ordinal, with their topic counts.
func (s *Store) ListModules() ([]model.Module, error) {
	rows, err := s.db.Query(
		`SELECT m.id, m.title, m.description, m.ord, COUNT(t.id)
		 FROM modules m LEFT JOIN topics t ON t.module_id = m.id
		 GROUP BY m.id ORDER BY m.ord`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	modules := []model.Module{}
	for rows.Next() {
		var m model.Module
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Ord, &m.TopicsCount); err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// GetModule returns a module by ID, or nil if not found.
func (s *Store) GetModule(id int64) (*model.Module, error) {
	var m model.Module
	err := s.db.QueryRow(
		`SELECT id, title, description, ord FROM modules WHERE id = ?`, id,
	).Scan(&m.ID, &m.Title, &m.Description, &m.Ord)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertTopic inserts a topic or renames the one at the same (module, ordinal).
func (s *Store) UpsertTopic(t model.Topic) (int64, error) {
	_, err := s.db.Exec(
		`INSERT INTO topics (module_id, title, ord) VALUES (?, ?, ?)
		 ON CONFLICT(module_id, ord) DO UPDATE SET title = excluded.title`,
		t.ModuleID, t.Title, t.Ord,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert topic %d:%d: %w", t.ModuleID, t.Ord, err)
	}
	var id int64
	err = s.db.QueryRow(
		`SELECT id FROM topics WHERE module_id = ? AND ord = ?`, t.ModuleID, t.Ord,
	).Scan(&id)
	return id, err
}

// ListTopics returns the topics of a module ordered by ordinal.
func (s *Store) ListTopics(moduleID int64) ([]model.Topic, error) {
	rows, err := s.db.Query(
		`SELECT id, module_id, title, ord FROM topics WHERE module_id = ? ORDER BY ord`, moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := []model.Topic{}
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.ModuleID, &t.Title, &t.Ord); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// GetTopic returns a topic by ID, or nil if not found.
func (s *Store) GetTopic(id int64) (*model.Topic, error) {
	var t model.Topic
	err := s.db.QueryRow(
		`SELECT id, module_id, title, ord FROM topics WHERE id = ?`, id,
	).Scan(&t.ID, &t.ModuleID, &t.Title, &t.Ord)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// SetContent stores the lesson for a topic, replacing any previous one.
func (s *Store) SetContent(topicID int64, c model.TopicContent) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO contents (topic_id, data)
		 SELECT id, ? FROM topics WHERE id = ?
		 ON CONFLICT(topic_id) DO UPDATE SET data = excluded.data`,
		string(data), topicID,
	)
	if err != nil {
		return fmt.Errorf("set content for topic %d: %w", topicID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTopicNotFound
	}
	return nil
}

// GetContent returns the stored lesson for a topic, or nil if there is none.
func (s *Store) GetContent(topicID int64) (*model.TopicContent, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM contents WHERE topic_id = ?`, topicID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c model.TopicContent
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return nil, fmt.Errorf("decode content for topic %d: %w", topicID, err)
	}
	return &c, nil
}

// TopicTitles resolves a knowledge reference to its module and topic titles.
// found is false when either the module or the topic at that ordinal is missing.
func (s *Store) TopicTitles(ctx context.Context, moduleID int64, topicOrd int) (string, string, bool, error) {
	var module, topic string
	err := s.db.QueryRowContext(ctx,
		`SELECT m.title, t.title FROM modules m
		 JOIN topics t ON t.module_id = m.id
		 WHERE m.id = ? AND t.ord = ?`,
		moduleID, topicOrd,
	).Scan(&module, &topic)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return module, topic, true, nil
}
