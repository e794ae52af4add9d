package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSessionRequired is returned, before any network I/O, by operations
	// that need a token when Enroll has not succeeded yet.
	ErrSessionRequired = errors.New("this requires a call to Enroll()")
	ErrNoToken         = errors.New("enrollment response carried no token")
	ErrInvalidMark     = errors.New("mark must be one of seen, unseen or deleted")
)

// RemoteCallError is returned when the directory answers with a status
// other than 200.
type RemoteCallError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string // the body's "error" field, if any
}

func (e *RemoteCallError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += " " + e.Message
	}
	return msg
}

// EnrollmentError is a RemoteCallError raised by Enroll.
type EnrollmentError struct {
	RemoteCallError
}

func (e *EnrollmentError) Error() string {
	return "enrollment failed: " + e.RemoteCallError.Error()
}

func (e *EnrollmentError) Unwrap() error {
	return &e.RemoteCallError
}

func newRemoteCallError(method, path string, status int, body []byte) *RemoteCallError {
	var payload struct {
		Error string `json:"error"`
	}
	rce := &RemoteCallError{Method: method, Path: path, StatusCode: status}
	if err := json.Unmarshal(body, &payload); err == nil {
		rce.Message = strings.TrimSpace(payload.Error)
	}
	return rce
}
