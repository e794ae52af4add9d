package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"runtime"

	"gridlink.unit/gridlink/internal/types"
)

// @Title: Get Health
// @Route: GET /api/v1/health
// @Description: Returns daemon health status
// @Response: {"status": "ok"}
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Title: Get Identity
// @Route: GET /api/v1/identity
// @Description: Returns the unit name, identity, fingerprint, public key and whether it is enrolled
// @Response: {"name": "...", "identity": "...", "fingerprint": "...", "public_key": "...", "enrolled": false, "version": "..."}
func (s *Service) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":        s.dir.Name(),
		"identity":    s.dir.Identity(),
		"fingerprint": s.dir.Fingerprint(),
		"public_key":  s.dir.PublicKeyPEM(),
		"enrolled":    s.dir.Authenticated(),
		"version":     types.Version,
		"go_ver":      runtime.Version(),
	})
}

// @Title: Enroll
// @Route: POST /api/v1/enroll
// @Description: Enrolls the unit with the directory. An optional JSON body is forwarded as enrollment data. The token is kept by the daemon.
// @Response: {"enrolled": true, "identity": "..."}
func (s *Service) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	var data any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := s.dir.Enroll(r.Context(), data); err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.metrics.SetEnrolled(true)
	s.writeJSON(w, http.StatusOK, map[string]any{"enrolled": true, "identity": s.dir.Identity()})
}
