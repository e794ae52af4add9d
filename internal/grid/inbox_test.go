package grid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"gridlink.unit/gridlink/internal/types"
)

func enrolledClient(t *testing.T, opts ...Option) (*Client, *fakeDirectory) {
	t.Helper()
	c, fd, _ := setupClient(t, opts...)
	fd.handle(http.MethodPost, "/api/v1/unit/enroll", respondJSON(http.StatusOK, `{"token":"tok"}`))
	if _, err := c.Enroll(context.Background(), nil); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	return c, fd
}

type recordingSealer struct {
	plaintext string
	recipient string
}

func (s *recordingSealer) Seal(plaintext []byte, recipientPublicKey string) (string, error) {
	s.plaintext = string(plaintext)
	s.recipient = recipientPublicKey
	return "sealed:" + string(plaintext), nil
}

func TestInboxAndMessage(t *testing.T) {
	c, fd := enrolledClient(t)
	fd.handle(http.MethodGet, "/api/v1/unit/inbox", respondJSON(http.StatusOK,
		`{"pages":1,"records":1,"messages":[{"id":7,"sender":"ff","sender_name":"bob","created_at":"2024-01-02T03:04:05Z"}]}`))
	fd.handle(http.MethodGet, "/api/v1/unit/inbox/7", respondJSON(http.StatusOK,
		`{"id":7,"sender":"ff","sender_name":"bob","data":"xyz","signature":"sig","created_at":"2024-01-02T03:04:05Z"}`))

	page, err := c.Inbox(context.Background(), 2)
	if err != nil {
		t.Fatalf("Inbox failed: %v", err)
	}
	if fd.lastRequest().Query != "p=2" {
		t.Errorf("Expected p=2, got %q", fd.lastRequest().Query)
	}
	if len(page.Messages) != 1 || page.Messages[0].SenderName != "bob" {
		t.Errorf("Unexpected inbox page: %+v", page)
	}

	msg, err := c.Message(context.Background(), 7)
	if err != nil {
		t.Fatalf("Message failed: %v", err)
	}
	if msg.ID != 7 || msg.Data != "xyz" || msg.SeenAt != nil {
		t.Errorf("Unexpected message: %+v", msg)
	}
}

func TestMark(t *testing.T) {
	c, fd := enrolledClient(t)
	fd.handle(http.MethodGet, "/api/v1/unit/inbox/3/seen", respondJSON(http.StatusOK, `{"success":true}`))

	out, err := c.Mark(context.Background(), 3, types.MarkSeen)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if string(out) != `{"success":true}` {
		t.Errorf("Unexpected mark response: %s", out)
	}

	before := fd.calls.Load()
	if _, err := c.Mark(context.Background(), 3, types.Mark("archived")); !errors.Is(err, ErrInvalidMark) {
		t.Errorf("Expected ErrInvalidMark, got %v", err)
	}
	if fd.calls.Load() != before {
		t.Error("Invalid mark should not reach the directory")
	}
}

func TestSendPlaceholder(t *testing.T) {
	c, fd := enrolledClient(t)
	fd.handle(http.MethodPost, "/api/v1/unit/abcd/inbox", respondJSON(http.StatusOK, `{"success":true}`))

	before := fd.calls.Load()
	if _, err := c.Send(context.Background(), "abcd", []byte("Hi from unit-test")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if fd.calls.Load()-before != 1 {
		t.Errorf("Send without sealer should make exactly one call, made %d", fd.calls.Load()-before)
	}

	var body types.OutboundMessage
	if err := json.Unmarshal(fd.lastRequest().Body, &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Data != PlaceholderPayload {
		t.Errorf("Expected placeholder data, got %q", body.Data)
	}
	if err := c.keys.Verify([]byte("Hi from unit-test"), body.Signature); err != nil {
		t.Errorf("Signature does not verify over the plaintext: %v", err)
	}
}

func TestSendWithSealer(t *testing.T) {
	sealer := &recordingSealer{}
	c, fd := enrolledClient(t, WithSealer(sealer))
	fd.handle(http.MethodGet, "/api/v1/unit/abcd", respondJSON(http.StatusOK, `{"fingerprint":"abcd","name":"bob","public_key":"UEVN"}`))
	fd.handle(http.MethodPost, "/api/v1/unit/abcd/inbox", respondJSON(http.StatusOK, `{}`))

	if _, err := c.Send(context.Background(), "abcd", []byte("hello")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sealer.recipient != "UEVN" || sealer.plaintext != "hello" {
		t.Errorf("Sealer got plaintext=%q recipient=%q", sealer.plaintext, sealer.recipient)
	}

	var body types.OutboundMessage
	if err := json.Unmarshal(fd.lastRequest().Body, &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Data != "sealed:hello" {
		t.Errorf("Expected sealed data, got %q", body.Data)
	}
	if err := c.keys.Verify([]byte("hello"), body.Signature); err != nil {
		t.Errorf("Signature does not verify over the plaintext: %v", err)
	}
}

func TestSendUnknownRecipient(t *testing.T) {
	c, _ := enrolledClient(t, WithSealer(&recordingSealer{}))

	_, err := c.Send(context.Background(), "missing", []byte("hello"))
	var rce *RemoteCallError
	if !errors.As(err, &rce) || rce.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 RemoteCallError from lookup, got %v", err)
	}
}

func TestReportAPs(t *testing.T) {
	c, fd := enrolledClient(t)
	fd.handle(http.MethodPost, "/api/v1/unit/report/ap", respondJSON(http.StatusOK, `{}`))
	fd.handle(http.MethodPost, "/api/v1/unit/report/aps", respondJSON(http.StatusOK, `{}`))

	ap := types.AccessPoint{ESSID: "cafe", BSSID: "aa:bb:cc:dd:ee:ff"}
	if _, err := c.ReportAP(context.Background(), ap); err != nil {
		t.Fatalf("ReportAP failed: %v", err)
	}
	if got := string(fd.lastRequest().Body); got != `{"essid":"cafe","bssid":"aa:bb:cc:dd:ee:ff"}` {
		t.Errorf("Unexpected ReportAP body: %s", got)
	}

	if _, err := c.ReportAPs(context.Background(), nil); err != nil {
		t.Fatalf("ReportAPs failed: %v", err)
	}
	if got := string(fd.lastRequest().Body); got != `[]` {
		t.Errorf("Empty batch should be sent as [], got %s", got)
	}

	if _, err := c.ReportAPs(context.Background(), []types.AccessPoint{ap, ap}); err != nil {
		t.Fatalf("ReportAPs failed: %v", err)
	}
	var batch []types.AccessPoint
	if err := json.Unmarshal(fd.lastRequest().Body, &batch); err != nil || len(batch) != 2 {
		t.Errorf("Unexpected batch body %s: %v", fd.lastRequest().Body, err)
	}
}
