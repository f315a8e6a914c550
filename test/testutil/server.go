// Package testutil provides fixtures and a fake persistence API for
// integration tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/TheMichaelB/schoolctl/internal/models"
)

// TestServer is a fake persistence API. It holds one canonical
// snapshot per record and applies submitted multipart diffs to it, so
// tests can assert on the server-side outcome of a commit.
type TestServer struct {
	*httptest.Server

	mu        sync.RWMutex
	records   map[string]*models.RecordSnapshot
	authToken string
	failNext  *models.APIError

	// SubmitCount tallies accepted submissions per record.
	SubmitCount map[string]int
}

// NewTestServer starts a fake persistence API.
func NewTestServer() *TestServer {
	ts := &TestServer{
		records:     make(map[string]*models.RecordSnapshot),
		SubmitCount: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/records/", ts.handleRecord)
	ts.Server = httptest.NewServer(mux)
	return ts
}

// SetRecord seeds the canonical snapshot for a record.
func (ts *TestServer) SetRecord(snap *models.RecordSnapshot) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.records[snap.RecordID] = snap.Clone()
}

// Record returns the current canonical snapshot for a record.
func (ts *TestServer) Record(recordID string) *models.RecordSnapshot {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.records[recordID].Clone()
}

// RequireToken makes the server reject requests without the token.
func (ts *TestServer) RequireToken(token string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.authToken = token
}

// FailNextSubmit makes the next submission fail with the given error
// without touching the canonical snapshot.
func (ts *TestServer) FailNextSubmit(apiErr *models.APIError) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.failNext = apiErr
}

func (ts *TestServer) handleRecord(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/records/")
	recordID := strings.TrimSuffix(rest, "/attachments")
	if recordID == rest || recordID == "" {
		http.NotFound(w, r)
		return
	}

	if !ts.authorized(r) {
		writeAPIError(w, &models.APIError{
			Code: "unauthorized", Message: "missing or invalid token", StatusCode: http.StatusUnauthorized,
		})
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	snap, ok := ts.records[recordID]
	if !ok {
		writeAPIError(w, &models.APIError{
			Code: "record_not_found", Message: "no such record", StatusCode: http.StatusNotFound,
		})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, snap)

	case http.MethodPost:
		if ts.failNext != nil {
			apiErr := ts.failNext
			ts.failNext = nil
			writeAPIError(w, apiErr)
			return
		}
		if err := ts.applyDiff(snap, r); err != nil {
			writeAPIError(w, &models.APIError{
				Code: "bad_payload", Message: err.Error(), StatusCode: http.StatusBadRequest,
			})
			return
		}
		ts.SubmitCount[recordID]++
		writeJSON(w, snap)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// applyDiff mutates the canonical snapshot per the multipart protocol:
// remove_X deletes slot X, cancel_X plus field X replaces it, bare
// field X fills an empty slot; collection fields are honored only when
// update_collection is present.
func (ts *TestServer) applyDiff(snap *models.RecordSnapshot, r *http.Request) error {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		return fmt.Errorf("parse multipart form: %w", err)
	}
	form := r.MultipartForm

	for _, name := range models.SlotNames {
		if form.Value["remove_"+name] != nil {
			delete(snap.Slots, name)
			continue
		}
		files := form.File[name]
		if len(files) == 0 {
			continue
		}
		if snap.Slots[name] != nil && form.Value["cancel_"+name] == nil {
			return fmt.Errorf("slot %s: upload without cancel for occupied slot", name)
		}
		snap.Slots[name] = &models.AttachmentRef{
			IdentityKey: "uploads/" + snap.RecordID + "/" + files[0].Filename,
			DisplayName: files[0].Filename,
			Size:        files[0].Size,
		}
	}

	if form.Value["update_collection"] == nil {
		return nil
	}

	if raw := form.Value["removed_items"]; len(raw) > 0 {
		var removed []struct {
			IdentityKey string `json:"identity_key"`
		}
		if err := json.Unmarshal([]byte(raw[0]), &removed); err != nil {
			return fmt.Errorf("parse removed_items: %w", err)
		}
		for _, rm := range removed {
			snap.Collection = deleteEntry(snap.Collection, rm.IdentityKey)
		}
	}

	for i := 0; ; i++ {
		files := form.File[fmt.Sprintf("item_file_%d", i)]
		if len(files) == 0 {
			break
		}
		if repl := form.Value[fmt.Sprintf("replaces_identity_%d", i)]; len(repl) > 0 {
			snap.Collection = deleteEntry(snap.Collection, repl[0])
		}
		snap.Collection = append(snap.Collection, models.CollectionEntry{
			Ref: models.AttachmentRef{
				IdentityKey: "uploads/" + snap.RecordID + "/" + files[0].Filename,
				DisplayName: files[0].Filename,
				Size:        files[0].Size,
			},
			Year:        formValue(form.Value, fmt.Sprintf("item_year_%d", i)),
			Description: formValue(form.Value, fmt.Sprintf("item_desc_%d", i)),
		})
	}

	if raw := form.Value["metadata_updates"]; len(raw) > 0 {
		var updates []struct {
			IdentityKey string `json:"identity_key"`
			Year        string `json:"year"`
			Description string `json:"description"`
		}
		if err := json.Unmarshal([]byte(raw[0]), &updates); err != nil {
			return fmt.Errorf("parse metadata_updates: %w", err)
		}
		for _, u := range updates {
			for i := range snap.Collection {
				if snap.Collection[i].Ref.IdentityKey == u.IdentityKey {
					snap.Collection[i].Year = u.Year
					snap.Collection[i].Description = u.Description
				}
			}
		}
	}
	return nil
}

func (ts *TestServer) authorized(r *http.Request) bool {
	ts.mu.RLock()
	token := ts.authToken
	ts.mu.RUnlock()
	if token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+token
}

func deleteEntry(entries []models.CollectionEntry, identityKey string) []models.CollectionEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Ref.IdentityKey != identityKey {
			out = append(out, e)
		}
	}
	return out
}

func formValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, apiErr *models.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	_ = json.NewEncoder(w).Encode(apiErr)
}
