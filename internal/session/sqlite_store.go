package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/TheMichaelB/schoolctl/internal/events"
	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/staging"
)

// SQLiteStore implements SQLite-based session storage. File bytes live
// in a separate blobs table so the memento row stays small.
type SQLiteStore struct {
	db     *sql.DB
	logger *events.Logger
}

// NewSQLiteStore creates a SQLite session store.
func NewSQLiteStore(dbPath string, logger *events.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		logger: logger.WithField("component", "sqlite_session_store"),
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
    CREATE TABLE IF NOT EXISTS sessions (
        record_id TEXT PRIMARY KEY,
        memento TEXT NOT NULL,
        updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS session_blobs (
        record_id TEXT NOT NULL,
        blob_key TEXT NOT NULL,
        name TEXT NOT NULL,
        data BLOB NOT NULL,
        PRIMARY KEY (record_id, blob_key),
        FOREIGN KEY (record_id) REFERENCES sessions(record_id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS schema_info (
        version INTEGER PRIMARY KEY
    );

    INSERT OR IGNORE INTO schema_info (version) VALUES (?);
    `

	if _, err := s.db.Exec(schema, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}

	return nil
}

// Load retrieves a session, rehydrating file bytes from the blobs
// table.
func (s *SQLiteStore) Load(recordID string) (*staging.Memento, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT memento FROM sessions WHERE record_id = ?`, recordID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	var m staging.Memento
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, ErrSessionCorrupt
	}

	blobs, err := s.loadBlobs(recordID)
	if err != nil {
		return nil, err
	}

	for i := range m.Slots {
		if f := m.Slots[i].Pending; f != nil {
			f.Data = blobs[slotBlobKey(m.Slots[i].Name)]
		}
	}
	for i := range m.Items {
		if f := m.Items[i].File; f != nil {
			f.Data = blobs[itemBlobKey(m.Items[i].ID)]
		}
	}

	return &m, nil
}

type blobRow struct {
	key  string
	name string
	data []byte
}

// Save persists a session in one transaction. The caller's memento is
// left untouched; a stripped copy is stored with file bytes moved to
// the blobs table.
func (s *SQLiteStore) Save(recordID string, m *staging.Memento) error {
	stripped := staging.Memento{
		RecordID: m.RecordID,
		Baseline: m.Baseline,
		Slots:    append([]staging.SlotMemento(nil), m.Slots...),
		Items:    append([]staging.ItemMemento(nil), m.Items...),
	}

	var blobs []blobRow
	for i := range stripped.Slots {
		if f := stripped.Slots[i].Pending; f != nil {
			blobs = append(blobs, blobRow{slotBlobKey(stripped.Slots[i].Name), f.Name, f.Data})
			stripped.Slots[i].Pending = &models.FileBlob{Name: f.Name}
		}
	}
	for i := range stripped.Items {
		if f := stripped.Items[i].File; f != nil {
			blobs = append(blobs, blobRow{itemBlobKey(stripped.Items[i].ID), f.Name, f.Data})
			stripped.Items[i].File = &models.FileBlob{Name: f.Name}
		}
	}

	raw, err := json.Marshal(&stripped)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
        INSERT INTO sessions (record_id, memento, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT(record_id) DO UPDATE SET memento = excluded.memento, updated_at = excluded.updated_at
    `, recordID, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM session_blobs WHERE record_id = ?`, recordID); err != nil {
		return fmt.Errorf("clear blobs: %w", err)
	}

	for _, b := range blobs {
		if _, err := tx.Exec(`
            INSERT INTO session_blobs (record_id, blob_key, name, data)
            VALUES (?, ?, ?, ?)
        `, recordID, b.key, b.name, b.data); err != nil {
			return fmt.Errorf("insert blob %s: %w", b.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"record_id": recordID,
		"blobs":     len(blobs),
	}).Debug("Saved staged session")

	return nil
}

// Delete removes a session and its blobs.
func (s *SQLiteStore) Delete(recordID string) error {
	if _, err := s.db.Exec(`DELETE FROM session_blobs WHERE record_id = ?`, recordID); err != nil {
		return fmt.Errorf("delete blobs: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE record_id = ?`, recordID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns record IDs with a stored session.
func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT record_id FROM sessions ORDER BY record_id`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var recordIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		recordIDs = append(recordIDs, id)
	}
	return recordIDs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) loadBlobs(recordID string) (map[string][]byte, error) {
	rows, err := s.db.Query(
		`SELECT blob_key, data FROM session_blobs WHERE record_id = ?`, recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("query blobs: %w", err)
	}
	defer rows.Close()

	blobs := make(map[string][]byte)
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("scan blob: %w", err)
		}
		blobs[key] = data
	}
	return blobs, rows.Err()
}

func slotBlobKey(slotName string) string { return "slot:" + slotName }
func itemBlobKey(itemID string) string   { return "item:" + itemID }
