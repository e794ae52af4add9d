// Package api implements the daemon's loopback HTTP API. Local tools use it
// to read mail, query the directory and record access point sightings
// without holding the unit's private key.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"gridlink.unit/gridlink/internal/grid"
	"gridlink.unit/gridlink/internal/metrics"
	"gridlink.unit/gridlink/internal/types"
)

// Prefix is the path every route is mounted under.
const Prefix = "/api/v1"

// Directory is the grid client surface the API proxies.
type Directory interface {
	Name() string
	Identity() string
	Fingerprint() string
	PublicKeyPEM() string
	Authenticated() bool
	Enroll(ctx context.Context, data any) (string, error)
	Units(ctx context.Context, page int) (*types.UnitsPage, error)
	UnitsByCountry(ctx context.Context) ([]types.CountryCount, error)
	Unit(ctx context.Context, fingerprint string) (*types.Unit, error)
	Inbox(ctx context.Context, page int) (*types.MessagesPage, error)
	Message(ctx context.Context, id int) (*types.Message, error)
	Mark(ctx context.Context, id int, mark types.Mark) (json.RawMessage, error)
	Send(ctx context.Context, fingerprint string, plaintext []byte) (json.RawMessage, error)
}

// Journal records sightings for later reporting.
type Journal interface {
	Record(ap types.AccessPoint) (types.Sighting, error)
	Pending(limit int) ([]types.Sighting, error)
}

// Flusher triggers an immediate report.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// Service handles API requests
type Service struct {
	dir      Directory
	journal  Journal
	flusher  Flusher
	validate *validator.Validate
	log      *logrus.Entry
	metrics  *metrics.Metrics
}

// NewService creates a new API service. m may be nil.
func NewService(dir Directory, journal Journal, flusher Flusher, log *logrus.Entry, m *metrics.Metrics) *Service {
	return &Service{
		dir:      dir,
		journal:  journal,
		flusher:  flusher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.WithField("component", "api"),
		metrics:  m,
	}
}

// Register mounts every route on mux.
func (s *Service) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+Prefix+"/health", s.HandleHealth)
	mux.HandleFunc("GET "+Prefix+"/identity", s.HandleIdentity)
	mux.HandleFunc("POST "+Prefix+"/enroll", s.HandleEnroll)
	mux.HandleFunc("GET "+Prefix+"/units", s.HandleUnits)
	mux.HandleFunc("GET "+Prefix+"/units/by_country", s.HandleUnitsByCountry)
	mux.HandleFunc("GET "+Prefix+"/unit/{fingerprint}", s.HandleUnit)
	mux.HandleFunc("GET "+Prefix+"/inbox", s.HandleInbox)
	mux.HandleFunc("GET "+Prefix+"/inbox/{id}", s.HandleMessage)
	mux.HandleFunc("POST "+Prefix+"/inbox/{id}/{mark}", s.HandleMark)
	mux.HandleFunc("POST "+Prefix+"/unit/{fingerprint}/inbox", s.HandleSend)
	mux.HandleFunc("POST "+Prefix+"/report/ap", s.HandleReportAP)
	mux.HandleFunc("GET "+Prefix+"/report/pending", s.HandlePending)
	mux.HandleFunc("POST "+Prefix+"/report/flush", s.HandleFlush)
}

// writeJSON writes a JSON response
func (s *Service) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeCallError maps an error from the directory client onto a status.
func (s *Service) writeCallError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := s.log.WithError(err).WithFields(logrus.Fields{"path": r.URL.Path, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Warn("request failed")
	} else {
		entry.Debug("request rejected")
	}
	s.writeError(w, status, err.Error())
}

func statusFor(err error) int {
	var rce *grid.RemoteCallError
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, grid.ErrSessionRequired):
		return http.StatusUnauthorized
	case errors.Is(err, grid.ErrInvalidMark), errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.As(err, &rce):
		if rce.StatusCode < http.StatusBadRequest {
			return http.StatusBadGateway
		}
		return rce.StatusCode
	default:
		return http.StatusInternalServerError
	}
}
