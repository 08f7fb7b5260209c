// Package hub implements the collaboration hub: a SQLite-backed record of AI
// contributions, discussion threads, and system evolution history.
//
// Unlike protocol and evolution state, hub records are relational and
// query-heavy (recent-N listings), so they live in SQLite rather than the
// document store.
package hub

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Contribution is a single recorded contribution from an AI system.
type Contribution struct {
	ID               int64                  `json:"id"`
	AIIdentifier     string                 `json:"ai_identifier"`
	ContributionType string                 `json:"contribution_type"`
	Content          string                 `json:"content"`
	Metadata         map[string]interface{} `json:"metadata"`
	CreatedAt        time.Time              `json:"created_at"`
}

// Discussion is a discussion thread between AI systems.
type Discussion struct {
	ID             int64     `json:"id"`
	Initiator      string    `json:"initiator"`
	Topic          string    `json:"topic"`
	InitialMessage string    `json:"initial_message"`
	Tags           []string  `json:"tags"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EvolutionRecord is one recorded system evolution.
type EvolutionRecord struct {
	ID           int64                    `json:"id"`
	Version      string                   `json:"version"`
	Summary      string                   `json:"summary"`
	Changes      []map[string]interface{} `json:"changes"`
	Contributors []string                 `json:"contributors"`
	CreatedAt    time.Time                `json:"created_at"`
}

// ValidationError reports required fields that were absent.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

// Store is the SQLite-backed collaboration hub.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the hub database at path, applies the SQLite
// pragmas, and runs migrations. Use ":memory:" for an in-memory database.
func New(path string) (*Store, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("hub: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("hub: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("hub: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS contributions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			ai_identifier     TEXT NOT NULL,
			contribution_type TEXT NOT NULL,
			content           TEXT NOT NULL,
			metadata          TEXT NOT NULL DEFAULT '{}',
			created_at        TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS discussions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			initiator       TEXT NOT NULL,
			topic           TEXT NOT NULL,
			initial_message TEXT NOT NULL,
			tags            TEXT NOT NULL DEFAULT '[]',
			status          TEXT NOT NULL DEFAULT 'active',
			created_at      TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS evolution_records (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			version      TEXT NOT NULL,
			summary      TEXT NOT NULL,
			changes      TEXT NOT NULL DEFAULT '[]',
			contributors TEXT NOT NULL DEFAULT '[]',
			created_at   TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordContribution stores a contribution and returns its id.
func (s *Store) RecordContribution(aiIdentifier, contributionType, content string, metadata map[string]interface{}) (int64, error) {
	var missing []string
	if aiIdentifier == "" {
		missing = append(missing, "ai_identifier")
	}
	if contributionType == "" {
		missing = append(missing, "contribution_type")
	}
	if content == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return 0, &ValidationError{Missing: missing}
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return 0, fmt.Errorf("hub: marshal metadata: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(
		`INSERT INTO contributions (ai_identifier, contribution_type, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		aiIdentifier, contributionType, content, string(metadataJSON), now,
	)
	if err != nil {
		return 0, fmt.Errorf("hub: record contribution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("hub: record contribution: %w", err)
	}

	log.Printf("[Hub] Recorded contribution from %s of type %s", aiIdentifier, contributionType)
	return id, nil
}

// StartDiscussion opens a new discussion thread and returns its id.
func (s *Store) StartDiscussion(aiIdentifier, topic, initialMessage string, tags []string) (int64, error) {
	var missing []string
	if aiIdentifier == "" {
		missing = append(missing, "ai_identifier")
	}
	if topic == "" {
		missing = append(missing, "topic")
	}
	if initialMessage == "" {
		missing = append(missing, "initial_message")
	}
	if len(missing) > 0 {
		return 0, &ValidationError{Missing: missing}
	}

	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return 0, fmt.Errorf("hub: marshal tags: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(
		`INSERT INTO discussions (initiator, topic, initial_message, tags, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'active', ?, ?)`,
		aiIdentifier, topic, initialMessage, string(tagsJSON), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("hub: start discussion: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("hub: start discussion: %w", err)
	}

	log.Printf("[Hub] Started discussion '%s' by %s", topic, aiIdentifier)
	return id, nil
}

// RecordEvolution stores a system evolution record and returns its id.
func (s *Store) RecordEvolution(version string, changes []map[string]interface{}, contributors []string, summary string) (int64, error) {
	var missing []string
	if version == "" {
		missing = append(missing, "version")
	}
	if summary == "" {
		missing = append(missing, "summary")
	}
	if len(contributors) == 0 {
		missing = append(missing, "ai_contributors")
	}
	if len(missing) > 0 {
		return 0, &ValidationError{Missing: missing}
	}

	if changes == nil {
		changes = []map[string]interface{}{}
	}
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return 0, fmt.Errorf("hub: marshal changes: %w", err)
	}
	contributorsJSON, err := json.Marshal(contributors)
	if err != nil {
		return 0, fmt.Errorf("hub: marshal contributors: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := s.db.Exec(
		`INSERT INTO evolution_records (version, summary, changes, contributors, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		version, summary, string(changesJSON), string(contributorsJSON), now,
	)
	if err != nil {
		return 0, fmt.Errorf("hub: record evolution: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("hub: record evolution: %w", err)
	}

	log.Printf("[Hub] Recorded evolution to version %s with %d contributors", version, len(contributors))
	return id, nil
}

// RecentDiscussions returns the most recently updated discussions,
// newest first. A non-positive limit defaults to 10.
func (s *Store) RecentDiscussions(limit int) ([]Discussion, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, initiator, topic, initial_message, tags, status, created_at, updated_at
		 FROM discussions ORDER BY updated_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("hub: recent discussions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []Discussion{}
	for rows.Next() {
		var d Discussion
		var tagsJSON, createdAt, updatedAt string
		if err := rows.Scan(&d.ID, &d.Initiator, &d.Topic, &d.InitialMessage, &tagsJSON, &d.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("hub: recent discussions: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &d.Tags); err != nil {
			return nil, fmt.Errorf("hub: parse tags: %w", err)
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		results = append(results, d)
	}
	return results, rows.Err()
}

// EvolutionHistory returns the most recent evolution records, newest first.
// A non-positive limit defaults to 10.
func (s *Store) EvolutionHistory(limit int) ([]EvolutionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, version, summary, changes, contributors, created_at
		 FROM evolution_records ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("hub: evolution history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []EvolutionRecord{}
	for rows.Next() {
		var r EvolutionRecord
		var changesJSON, contributorsJSON, createdAt string
		if err := rows.Scan(&r.ID, &r.Version, &r.Summary, &changesJSON, &contributorsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("hub: evolution history: %w", err)
		}
		if err := json.Unmarshal([]byte(changesJSON), &r.Changes); err != nil {
			return nil, fmt.Errorf("hub: parse changes: %w", err)
		}
		if err := json.Unmarshal([]byte(contributorsJSON), &r.Contributors); err != nil {
			return nil, fmt.Errorf("hub: parse contributors: %w", err)
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		results = append(results, r)
	}
	return results, rows.Err()
}
