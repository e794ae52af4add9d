package logger

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestRingKeepsMostRecent(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 5; i++ {
		r.Add(Message{Text: fmt.Sprintf("m%d", i)})
	}

	got := r.Recent(10)
	if len(got) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(got))
	}
	if got[0].Text != "m2" || got[2].Text != "m4" {
		t.Errorf("Unexpected order: %v", got)
	}
	if got := r.Recent(1); len(got) != 1 || got[0].Text != "m4" {
		t.Errorf("Recent(1) = %v", got)
	}
}

func TestLogrusHookFeedsRing(t *testing.T) {
	r := NewRing(10)
	l, err := NewWithOutput("debug", r, io.Discard)
	if err != nil {
		t.Fatalf("NewWithOutput failed: %v", err)
	}

	l.WithField("component", "grid").WithError(errors.New("boom")).Warn("call failed")

	got := r.Recent(1)
	if len(got) != 1 {
		t.Fatalf("Expected one message, got %d", len(got))
	}
	if got[0].Level != "warning" || got[0].Text != "call failed" {
		t.Errorf("Unexpected message: %+v", got[0])
	}
	if got[0].Fields["component"] != "grid" || got[0].Fields["error"] != "boom" {
		t.Errorf("Unexpected fields: %v", got[0].Fields)
	}
}

func TestLevelFiltering(t *testing.T) {
	r := NewRing(10)
	l, err := NewWithOutput("info", r, io.Discard)
	if err != nil {
		t.Fatalf("NewWithOutput failed: %v", err)
	}
	l.Debug("hidden")
	l.Info("shown")

	if got := r.Recent(10); len(got) != 1 || got[0].Text != "shown" {
		t.Errorf("Expected only the info message, got %v", got)
	}

	if _, err := New("loud", nil); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestSubscribe(t *testing.T) {
	r := NewRing(10)
	ch, cancel := r.Subscribe(4)

	r.Add(Message{Text: "live"})
	select {
	case msg := <-ch:
		if msg.Text != "live" {
			t.Errorf("Unexpected message %q", msg.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber did not receive message")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after cancel")
	}
	r.Add(Message{Text: "after"})
}
