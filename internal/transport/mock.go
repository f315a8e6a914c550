package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/payload"
)

// MockTransport provides a scriptable implementation for tests.
type MockTransport struct {
	mu sync.Mutex

	// Response configuration
	Snapshots       map[string]*models.RecordSnapshot // FetchRecord responses
	SubmitSnapshots map[string]*models.RecordSnapshot // SubmitAttachments responses

	// Error injection
	FetchError  error
	SubmitError error

	// Blocks each submit until released, for in-flight commit tests.
	SubmitGate chan struct{}

	// Request tracking
	FetchRequests []string
	Submissions   []Submission

	token  string
	closed bool
}

// Submission records one SubmitAttachments call.
type Submission struct {
	RecordID    string
	ContentType string
	Body        []byte
	Fields      []string
}

// NewMockTransport creates a mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		Snapshots:       make(map[string]*models.RecordSnapshot),
		SubmitSnapshots: make(map[string]*models.RecordSnapshot),
	}
}

// AddSnapshot configures the FetchRecord response for a record.
func (m *MockTransport) AddSnapshot(snap *models.RecordSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Snapshots[snap.RecordID] = snap
}

// AddSubmitSnapshot configures the SubmitAttachments response.
func (m *MockTransport) AddSubmitSnapshot(snap *models.RecordSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmitSnapshots[snap.RecordID] = snap
}

// FetchRecord returns the configured snapshot.
func (m *MockTransport) FetchRecord(ctx context.Context, recordID string) (*models.RecordSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FetchRequests = append(m.FetchRequests, recordID)

	if m.FetchError != nil {
		return nil, m.FetchError
	}
	if snap, ok := m.Snapshots[recordID]; ok {
		return snap.Clone(), nil
	}
	return nil, fmt.Errorf("no mock snapshot for %s", recordID)
}

// SubmitAttachments records the submission and returns the configured
// snapshot or error.
func (m *MockTransport) SubmitAttachments(ctx context.Context, recordID string, p *payload.Payload) (*models.RecordSnapshot, error) {
	m.mu.Lock()
	m.Submissions = append(m.Submissions, Submission{
		RecordID:    recordID,
		ContentType: p.ContentType,
		Body:        p.Body,
		Fields:      append([]string(nil), p.Fields...),
	})
	gate := m.SubmitGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SubmitError != nil {
		return nil, m.SubmitError
	}
	if snap, ok := m.SubmitSnapshots[recordID]; ok {
		return snap.Clone(), nil
	}
	return nil, fmt.Errorf("no mock submit snapshot for %s", recordID)
}

// LastSubmission returns the most recent submission, or nil.
func (m *MockTransport) LastSubmission() *Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Submissions) == 0 {
		return nil
	}
	s := m.Submissions[len(m.Submissions)-1]
	return &s
}

// SetToken stores the token.
func (m *MockTransport) SetToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// GetToken returns the stored token.
func (m *MockTransport) GetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
