package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"gridlink.unit/gridlink/internal/grid"
	"gridlink.unit/gridlink/internal/journal"
	"gridlink.unit/gridlink/internal/types"
)

// MockDirectory implements Directory for testing
type MockDirectory struct {
	enrolled   bool
	units      *types.UnitsPage
	err        error
	sent       map[string]string
	enrollData any
}

func (m *MockDirectory) Name() string         { return "unit" }
func (m *MockDirectory) Identity() string     { return "unit@abcd" }
func (m *MockDirectory) Fingerprint() string  { return "abcd" }
func (m *MockDirectory) PublicKeyPEM() string { return "-----BEGIN PUBLIC KEY-----\n" }
func (m *MockDirectory) Authenticated() bool  { return m.enrolled }

func (m *MockDirectory) Enroll(ctx context.Context, data any) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.enrollData = data
	m.enrolled = true
	return "token", nil
}

func (m *MockDirectory) Units(ctx context.Context, page int) (*types.UnitsPage, error) {
	return m.units, m.err
}

func (m *MockDirectory) UnitsByCountry(ctx context.Context) ([]types.CountryCount, error) {
	return []types.CountryCount{{Country: "IT", Units: 2}}, m.err
}

func (m *MockDirectory) Unit(ctx context.Context, fingerprint string) (*types.Unit, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &types.Unit{Fingerprint: fingerprint, Name: "bob"}, nil
}

func (m *MockDirectory) Inbox(ctx context.Context, page int) (*types.MessagesPage, error) {
	if !m.enrolled {
		return nil, grid.ErrSessionRequired
	}
	return &types.MessagesPage{Pages: 1, Records: 1, Messages: []types.Message{{ID: 1, SenderName: "bob"}}}, nil
}

func (m *MockDirectory) Message(ctx context.Context, id int) (*types.Message, error) {
	if !m.enrolled {
		return nil, grid.ErrSessionRequired
	}
	return &types.Message{ID: id, SenderName: "bob"}, nil
}

func (m *MockDirectory) Mark(ctx context.Context, id int, mark types.Mark) (json.RawMessage, error) {
	if !m.enrolled {
		return nil, grid.ErrSessionRequired
	}
	if !mark.Valid() {
		return nil, grid.ErrInvalidMark
	}
	return nil, nil
}

func (m *MockDirectory) Send(ctx context.Context, fingerprint string, plaintext []byte) (json.RawMessage, error) {
	if !m.enrolled {
		return nil, grid.ErrSessionRequired
	}
	if m.sent == nil {
		m.sent = make(map[string]string)
	}
	m.sent[fingerprint] = string(plaintext)
	return json.RawMessage(`{"success":true}`), nil
}

// MockFlusher implements Flusher for testing
type MockFlusher struct {
	n   int
	err error
}

func (m *MockFlusher) Flush(ctx context.Context) (int, error) {
	return m.n, m.err
}

// setupTest creates a temporary journal and a mux serving the API
func setupTest(t *testing.T) (*http.ServeMux, *MockDirectory, *journal.Journal, *MockFlusher) {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	l := logrus.New()
	l.SetOutput(io.Discard)

	dir := &MockDirectory{}
	flusher := &MockFlusher{}
	mux := http.NewServeMux()
	NewService(dir, j, flusher, logrus.NewEntry(l), nil).Register(mux)
	return mux, dir, j, flusher
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode error body: %v", err)
	}
	return body["error"]
}
