package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/haasonsaas/tome/pkg/models"
)

// SQLiteStore persists sessions as JSON records in a SQLite database.
// Records written by earlier releases as bare message arrays are
// migrated to the wrapped shape on first read.
type SQLiteStore struct {
	db          *sql.DB
	maxMessages int

	// mu serializes read-modify-write cycles so concurrent appends to
	// the same session never lose messages.
	mu sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" keeps everything in
	// process.
	Path string `yaml:"path"`

	// MaxMessages caps stored history per session. <= 0 selects the
	// default.
	MaxMessages int `yaml:"max_messages"`
}

// NewSQLite opens the database and ensures the schema exists.
func NewSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("sessions database path is required")
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sessions database: %w", err)
	}
	// modernc/sqlite allows one writer; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sessions (
			key TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sessions schema: %w", err)
	}

	return &SQLiteStore{db: db, maxMessages: cfg.MaxMessages}, nil
}

// Get returns the session for key, migrating legacy records in place.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx, key)
}

// AppendMessage appends msg to the session's history and returns the
// updated session. History beyond the cap evicts oldest first.
func (s *SQLiteStore) AppendMessage(ctx context.Context, key string, msg models.Message) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, key)
	if err != nil {
		return nil, err
	}

	session.Messages = append(session.Messages, msg)
	if over := len(session.Messages) - s.maxMessages; over > 0 {
		session.Messages = session.Messages[over:]
	}
	if err := s.saveLocked(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SetModel records the session's model choice.
func (s *SQLiteStore) SetModel(ctx context.Context, key, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.loadLocked(ctx, key)
	if err != nil {
		return err
	}
	session.ModelID = modelID
	return s.saveLocked(ctx, session)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) loadLocked(ctx context.Context, key string) (*models.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		now := time.Now().UTC()
		return &models.Session{Key: key, CreatedAt: now, UpdatedAt: now}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	trimmed := strings.TrimSpace(data)
	if strings.HasPrefix(trimmed, "[") {
		return s.migrateLocked(ctx, key, trimmed)
	}

	session := &models.Session{}
	if err := json.Unmarshal([]byte(data), session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	session.Key = key
	return session, nil
}

// migrateLocked rewrites a legacy bare-array record as a wrapped session
// record with fresh timestamps.
func (s *SQLiteStore) migrateLocked(ctx context.Context, key, data string) (*models.Session, error) {
	var messages []models.Message
	if err := json.Unmarshal([]byte(data), &messages); err != nil {
		return nil, fmt.Errorf("decode legacy session %s: %w", key, err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		Key:       key,
		Messages:  messages,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.saveLocked(ctx, session); err != nil {
		return nil, fmt.Errorf("migrate legacy session %s: %w", key, err)
	}
	return session, nil
}

func (s *SQLiteStore) saveLocked(ctx context.Context, session *models.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.Key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		session.Key, string(data), now)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.Key, err)
	}
	return nil
}
