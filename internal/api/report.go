package api

import (
	"encoding/json"
	"net/http"

	"gridlink.unit/gridlink/internal/types"
)

// @Title: Record Access Point
// @Route: POST /api/v1/report/ap
// @Description: Records a sighting in the local journal. The reporter delivers it on its next flush.
// @Response: 202 Accepted with the stored sighting
func (s *Service) HandleReportAP(w http.ResponseWriter, r *http.Request) {
	var ap types.AccessPoint
	if err := json.NewDecoder(r.Body).Decode(&ap); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(ap); err != nil {
		s.writeCallError(w, r, err)
		return
	}

	sighting, err := s.journal.Record(ap)
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, sighting)
}

// @Title: Pending Sightings
// @Route: GET /api/v1/report/pending
// @Description: Lists sightings not yet reported to the directory
// @Response: Array of Sighting objects
func (s *Service) HandlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.journal.Pending(0)
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pending)
}

// @Title: Flush Reports
// @Route: POST /api/v1/report/flush
// @Description: Reports pending sightings now. Requires enrollment.
// @Response: {"reported": 3}
func (s *Service) HandleFlush(w http.ResponseWriter, r *http.Request) {
	n, err := s.flusher.Flush(r.Context())
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"reported": n})
}
