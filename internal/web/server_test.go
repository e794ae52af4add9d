package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gridlink.unit/gridlink/internal/api"
	"gridlink.unit/gridlink/internal/docs"
	"gridlink.unit/gridlink/internal/grid"
	"gridlink.unit/gridlink/internal/identity"
	"gridlink.unit/gridlink/internal/journal"
	"gridlink.unit/gridlink/internal/logger"
	"gridlink.unit/gridlink/internal/metrics"
	"gridlink.unit/gridlink/internal/reporter"
	"gridlink.unit/gridlink/internal/testutil"
)

// setupTest builds a server around a real client pointed at a directory
// that is never reached.
func setupTest(t *testing.T) (*httptest.Server, *logger.Ring) {
	t.Helper()
	ring := logger.NewRing(100)
	l, err := logger.NewWithOutput("debug", ring, io.Discard)
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}
	log := logrus.NewEntry(l)

	keys, err := identity.FromPEM(testutil.UnitKeyPEM)
	if err != nil {
		t.Fatalf("Failed to parse test key: %v", err)
	}
	m := metrics.New()
	client := grid.New(keys, grid.WithEndpoint("http://127.0.0.1:1/api/v1"), grid.WithLogger(log))

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"), m)
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })

	rep := reporter.New(time.Hour, 10, client, j, log, m)
	svc := api.NewService(client, j, rep, log, m)
	s, err := NewServer("127.0.0.1:0", svc, docs.NewService(nil), m, ring, log)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, ring
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRoutes(t *testing.T) {
	ts, _ := setupTest(t)

	if code, _ := get(t, ts.URL+"/api/v1/health"); code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", code)
	}
	if code, body := get(t, ts.URL+"/api/v1/identity"); code != http.StatusOK || !strings.Contains(body, testutil.UnitFingerprint) {
		t.Errorf("identity: got %d %s", code, body)
	}
	if code, _ := get(t, ts.URL+"/api/v1/inbox"); code != http.StatusUnauthorized {
		t.Errorf("inbox before enroll: expected 401, got %d", code)
	}

	resp, err := http.Post(ts.URL+"/api/v1/report/flush", "application/json", nil)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("flush before enroll: expected 401, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := setupTest(t)

	code, body := get(t, ts.URL+"/metrics")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if !strings.Contains(body, "gridlink_enrolled") {
		t.Error("Metrics output missing gridlink_enrolled")
	}
}

func TestDocsPage(t *testing.T) {
	ts, _ := setupTest(t)

	code, body := get(t, ts.URL+"/docs")
	if code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", code)
	}
	if !strings.Contains(body, "List Units") {
		t.Error("Docs page missing rendered reference")
	}
	if code, _ := get(t, ts.URL+"/docs/missing.adoc"); code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing doc, got %d", code)
	}
}

func TestEventsWebsocket(t *testing.T) {
	ts, ring := setupTest(t)
	for i := 0; i < 60; i++ {
		ring.Add(logger.Message{Timestamp: time.Now(), Text: fmt.Sprintf("old-%d", i), Level: "info"})
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first logger.Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if first.Text != "old-10" {
		t.Errorf("Expected replay to start at old-10, got %q", first.Text)
	}
	for i := 1; i < replayEvents; i++ {
		var msg logger.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON failed at %d: %v", i, err)
		}
	}

	ring.Add(logger.Message{Timestamp: time.Now(), Text: "live", Level: "info"})
	var live logger.Message
	if err := conn.ReadJSON(&live); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if live.Text != "live" {
		t.Errorf("Expected live event, got %q", live.Text)
	}
}

func TestRejectsForeignOrigin(t *testing.T) {
	ts, _ := setupTest(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Error("Expected dial from foreign origin to fail")
	}
}

func TestStartAndShutdown(t *testing.T) {
	ring := logger.NewRing(10)
	l, _ := logger.NewWithOutput("info", ring, io.Discard)
	log := logrus.NewEntry(l)
	keys, err := identity.FromPEM(testutil.UnitKeyPEM)
	if err != nil {
		t.Fatalf("Failed to parse test key: %v", err)
	}
	client := grid.New(keys, grid.WithLogger(log))
	svc := api.NewService(client, nil, nil, log, nil)

	s, err := NewServer("127.0.0.1:0", svc, docs.NewService(nil), nil, ring, log)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	errCh, err := s.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err, ok := <-errCh; ok {
		t.Errorf("Expected clean close, got %v", err)
	}
}
