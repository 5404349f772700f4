// Package store persists intake sessions to SQLite so a conversation can be
// resumed by ID. Structured state rides in JSON columns; only the fields
// needed for listing are promoted to real columns.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"scopenerd/internal/handoff"
	"scopenerd/internal/logging"
	"scopenerd/internal/pipeline"
	"scopenerd/internal/timebox"
	"scopenerd/internal/types"
)

// ChatMessage is one rendered message in the conversation transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionRecord is the full persisted state of one session.
type SessionRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	State       string              `json:"state"`
	Packet      *types.IntakePacket `json:"packet"`
	Assumptions []types.Assumption  `json:"assumptions,omitempty"`
	Timebox     *timebox.State      `json:"timebox"`
	Handoff     *handoff.Handoff    `json:"handoff"`
	Messages    []ChatMessage       `json:"messages,omitempty"`
	Results     *pipeline.Results   `json:"results,omitempty"`
}

// SessionSummary is the listing row: enough to pick a session to resume.
type SessionSummary struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Industry  string    `json:"industry,omitempty"`
	UseCase   string    `json:"use_case,omitempty"`
	Turns     int       `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store manages the session database.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewStore creates or opens the session store under dataDir.
func NewStore(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "sessions.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("session store opened: %s", dbPath)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		state TEXT NOT NULL,
		industry TEXT,
		use_case TEXT,
		turns INTEGER NOT NULL DEFAULT 0,
		packet_json TEXT NOT NULL,
		assumptions_json TEXT,
		timebox_json TEXT NOT NULL,
		handoff_json TEXT,
		messages_json TEXT,
		results_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save upserts the full session record.
func (s *Store) Save(rec *SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		return fmt.Errorf("session record has no id")
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	packetJSON, err := json.Marshal(rec.Packet)
	if err != nil {
		return fmt.Errorf("marshal packet: %w", err)
	}
	timeboxJSON, err := json.Marshal(rec.Timebox)
	if err != nil {
		return fmt.Errorf("marshal timebox: %w", err)
	}
	assumptionsJSON, _ := json.Marshal(rec.Assumptions)
	handoffJSON, _ := json.Marshal(rec.Handoff)
	messagesJSON, _ := json.Marshal(rec.Messages)
	resultsJSON, _ := json.Marshal(rec.Results)

	var industry, useCase string
	var turns int
	if rec.Packet != nil {
		industry = rec.Packet.Industry.Value
		useCase = rec.Packet.UseCaseIntent.Value
	}
	if rec.Timebox != nil {
		turns = rec.Timebox.Turns
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, created_at, updated_at, state, industry, use_case,
			turns, packet_json, assumptions_json, timebox_json, handoff_json,
			messages_json, results_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			state = excluded.state,
			industry = excluded.industry,
			use_case = excluded.use_case,
			turns = excluded.turns,
			packet_json = excluded.packet_json,
			assumptions_json = excluded.assumptions_json,
			timebox_json = excluded.timebox_json,
			handoff_json = excluded.handoff_json,
			messages_json = excluded.messages_json,
			results_json = excluded.results_json
	`, rec.ID, rec.CreatedAt, rec.UpdatedAt, rec.State, industry, useCase,
		turns, string(packetJSON), string(assumptionsJSON), string(timeboxJSON),
		string(handoffJSON), string(messagesJSON), string(resultsJSON))
	if err != nil {
		logging.StoreError("save session %s: %v", rec.ID, err)
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load retrieves a session by ID. A missing session returns sql.ErrNoRows
// wrapped so callers can distinguish it.
func (s *Store) Load(id string) (*SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec SessionRecord
	var packetJSON, timeboxJSON string
	var assumptionsJSON, handoffJSON, messagesJSON, resultsJSON sql.NullString

	err := s.db.QueryRow(`
		SELECT id, created_at, updated_at, state, packet_json, assumptions_json,
			timebox_json, handoff_json, messages_json, results_json
		FROM sessions WHERE id = ?
	`, id).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt, &rec.State,
		&packetJSON, &assumptionsJSON, &timeboxJSON, &handoffJSON,
		&messagesJSON, &resultsJSON)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	rec.Packet = &types.IntakePacket{}
	if err := json.Unmarshal([]byte(packetJSON), rec.Packet); err != nil {
		return nil, fmt.Errorf("decode packet for %s: %w", id, err)
	}
	rec.Timebox = &timebox.State{}
	if err := json.Unmarshal([]byte(timeboxJSON), rec.Timebox); err != nil {
		return nil, fmt.Errorf("decode timebox for %s: %w", id, err)
	}
	if assumptionsJSON.Valid && assumptionsJSON.String != "" {
		_ = json.Unmarshal([]byte(assumptionsJSON.String), &rec.Assumptions)
	}
	if handoffJSON.Valid && handoffJSON.String != "" && handoffJSON.String != "null" {
		rec.Handoff = &handoff.Handoff{}
		_ = json.Unmarshal([]byte(handoffJSON.String), rec.Handoff)
	}
	if messagesJSON.Valid && messagesJSON.String != "" {
		_ = json.Unmarshal([]byte(messagesJSON.String), &rec.Messages)
	}
	if resultsJSON.Valid && resultsJSON.String != "" && resultsJSON.String != "null" {
		rec.Results = &pipeline.Results{}
		_ = json.Unmarshal([]byte(resultsJSON.String), rec.Results)
	}

	return &rec, nil
}

// List returns session summaries, most recently updated first.
func (s *Store) List() ([]SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, state, industry, use_case, turns, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var industry, useCase sql.NullString
		if err := rows.Scan(&sum.ID, &sum.State, &industry, &useCase,
			&sum.Turns, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sum.Industry = industry.String
		sum.UseCase = useCase.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete session %s: not found", id)
	}
	logging.Store("session deleted: %s", id)
	return nil
}
