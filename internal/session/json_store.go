package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheMichaelB/schoolctl/internal/events"
	"github.com/TheMichaelB/schoolctl/internal/staging"
)

// envelope wraps a memento with store metadata. The checksum covers
// the envelope without the checksum field itself.
type envelope struct {
	SchemaVersion int              `json:"schema_version"`
	SavedAt       time.Time        `json:"saved_at"`
	Memento       *staging.Memento `json:"memento"`
	Checksum      string           `json:"checksum,omitempty"`
}

// JSONStore implements file-based session storage, one file per
// record, written atomically.
type JSONStore struct {
	baseDir string
	logger  *events.Logger
}

// NewJSONStore creates a JSON-based session store.
func NewJSONStore(baseDir string, logger *events.Logger) (*JSONStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	return &JSONStore{
		baseDir: baseDir,
		logger:  logger.WithField("component", "json_session_store"),
	}, nil
}

// Load reads a session from its JSON file.
func (s *JSONStore) Load(recordID string) (*staging.Memento, error) {
	path := s.sessionPath(recordID)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrSessionCorrupt
	}

	if env.Checksum != "" {
		if calculateChecksum(&env) != env.Checksum {
			s.logger.WithField("record_id", recordID).Error("Session checksum mismatch")
			return nil, ErrSessionCorrupt
		}
	}

	if env.Memento == nil {
		return nil, ErrSessionCorrupt
	}
	return env.Memento, nil
}

// Save writes a session atomically: temp file, fsync, rename.
func (s *JSONStore) Save(recordID string, m *staging.Memento) error {
	path := s.sessionPath(recordID)

	env := envelope{
		SchemaVersion: CurrentSchemaVersion,
		SavedAt:       time.Now(),
		Memento:       m,
	}
	env.Checksum = calculateChecksum(&env)

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if file, err := os.Open(tmpPath); err == nil {
		_ = file.Sync()
		file.Close()
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename session file: %w", err)
	}

	s.logger.WithField("record_id", recordID).Debug("Saved staged session")
	return nil
}

// Delete removes a session file.
func (s *JSONStore) Delete(recordID string) error {
	err := os.Remove(s.sessionPath(recordID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// List returns record IDs with a stored session.
func (s *JSONStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read session directory: %w", err)
	}

	var recordIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == ".json" {
			recordIDs = append(recordIDs, strings.TrimSuffix(name, ".json"))
		}
	}
	return recordIDs, nil
}

// Close releases resources.
func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) sessionPath(recordID string) string {
	return filepath.Join(s.baseDir, recordID+".json")
}

func calculateChecksum(env *envelope) string {
	bare := envelope{
		SchemaVersion: env.SchemaVersion,
		SavedAt:       env.SavedAt,
		Memento:       env.Memento,
	}
	data, _ := json.Marshal(bare)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
