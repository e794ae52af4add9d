// Package logger builds the process logger and keeps a thread-safe ring of
// recent entries that the websocket feed replays to new subscribers.
package logger

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Message represents a single log entry kept in the ring.
type Message struct {
	Timestamp time.Time      `json:"timestamp"`
	Text      string         `json:"text"`
	Level     string         `json:"level"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Ring keeps the last maxSize messages and fans new ones out to subscribers.
// It is installed as a logrus hook.
type Ring struct {
	mu       sync.RWMutex
	messages []Message
	maxSize  int
	subs     map[chan Message]struct{}
}

// NewRing creates a ring holding at most maxSize messages.
func NewRing(maxSize int) *Ring {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Ring{
		messages: make([]Message, 0, maxSize),
		maxSize:  maxSize,
		subs:     make(map[chan Message]struct{}),
	}
}

// Add appends a message, trimming the oldest, and notifies subscribers.
// Slow subscribers miss messages rather than block the logger.
func (r *Ring) Add(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, msg)
	if len(r.messages) > r.maxSize {
		r.messages = r.messages[len(r.messages)-r.maxSize:]
	}
	for ch := range r.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Recent returns the most recent n messages, oldest first.
func (r *Ring) Recent(n int) []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n > len(r.messages) || n < 0 {
		n = len(r.messages)
	}
	result := make([]Message, n)
	copy(result, r.messages[len(r.messages)-n:])
	return result
}

// Subscribe returns a channel receiving every message added after the call
// and a function that unsubscribes and closes it.
func (r *Ring) Subscribe(buffer int) (<-chan Message, func()) {
	ch := make(chan Message, buffer)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ch)
			r.mu.Unlock()
			close(ch)
		})
	}
}

// Levels implements logrus.Hook.
func (r *Ring) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (r *Ring) Fire(entry *logrus.Entry) error {
	msg := Message{
		Timestamp: entry.Time,
		Text:      entry.Message,
		Level:     entry.Level.String(),
	}
	if len(entry.Data) > 0 {
		msg.Fields = make(map[string]any, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			msg.Fields[k] = v
		}
	}
	r.Add(msg)
	return nil
}

// New builds a logrus logger at the given level writing text to stderr.
// When ring is not nil it receives every entry.
func New(level string, ring *Ring) (*logrus.Logger, error) {
	return NewWithOutput(level, ring, os.Stderr)
}

// NewWithOutput is New with a caller supplied writer.
func NewWithOutput(level string, ring *Ring, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if ring != nil {
		l.AddHook(ring)
	}
	return l, nil
}
