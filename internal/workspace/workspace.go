// Package workspace persists the tab collection and draft arena between CLI
// invocations. The editing surfaces of the composer are workspace tab
// records; each command hydrates them, operates, and saves them back.
package workspace

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"lmc/internal/draft"
	"lmc/internal/tabs"
)

const schemaVersion = 1

// Workspace is an open workspace database.
type Workspace struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// Open opens or creates the workspace database at dbPath.
func Open(dbPath string, logger *slog.Logger) (*Workspace, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	ws := &Workspace{conn: conn, logger: logger, dbPath: dbPath}
	if err := ws.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize workspace schema: %w", err)
	}
	return ws, nil
}

// Close closes the underlying database.
func (w *Workspace) Close() error {
	return w.conn.Close()
}

func (w *Workspace) initializeSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tabs (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			record TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			identity_key TEXT PRIMARY KEY,
			record TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := w.conn.Exec(stmt); err != nil {
			return err
		}
	}
	_, err := w.conn.Exec(
		`INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO NOTHING`, fmt.Sprintf("%d", schemaVersion))
	return err
}

// LoadTabs hydrates a tab collection from the workspace.
func (w *Workspace) LoadTabs() (*tabs.Collection, error) {
	rows, err := w.conn.Query(`SELECT record FROM tabs ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tabs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	collection := tabs.NewCollection()
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan tab: %w", err)
		}
		var tab tabs.Tab
		if err := json.Unmarshal([]byte(record), &tab); err != nil {
			return nil, fmt.Errorf("failed to parse tab record: %w", err)
		}
		collection.Add(&tab)
	}
	return collection, rows.Err()
}

// SaveTabs replaces the persisted tab set with the collection's state, as
// one transaction.
func (w *Workspace) SaveTabs(collection *tabs.Collection) error {
	tx, err := w.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM tabs`); err != nil {
		return fmt.Errorf("failed to clear tabs: %w", err)
	}
	for i, tab := range collection.List() {
		record, err := json.Marshal(tab)
		if err != nil {
			return fmt.Errorf("failed to encode tab %s: %w", tab.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO tabs (id, position, record) VALUES (?, ?, ?)`,
			tab.ID, i, string(record)); err != nil {
			return fmt.Errorf("failed to insert tab %s: %w", tab.ID, err)
		}
	}
	return tx.Commit()
}

// LoadDrafts returns the persisted draft arena entries.
func (w *Workspace) LoadDrafts() ([]draft.PersistedDraft, error) {
	rows, err := w.conn.Query(`SELECT record FROM drafts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load drafts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []draft.PersistedDraft
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan draft: %w", err)
		}
		var entry draft.PersistedDraft
		if err := json.Unmarshal([]byte(record), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse draft record: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SaveDrafts replaces the persisted draft arena, as one transaction.
func (w *Workspace) SaveDrafts(entries []draft.PersistedDraft) error {
	tx, err := w.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM drafts`); err != nil {
		return fmt.Errorf("failed to clear drafts: %w", err)
	}
	for _, entry := range entries {
		if entry.Draft == nil {
			continue
		}
		record, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode draft: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO drafts (identity_key, record) VALUES (?, ?)`,
			entry.Draft.Identity().Key(), string(record)); err != nil {
			return fmt.Errorf("failed to insert draft: %w", err)
		}
	}
	return tx.Commit()
}
