package api

import (
	"net/http"
	"strconv"
)

// pageParam reads ?p=, defaulting to 1.
func pageParam(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("p")
	if raw == "" {
		return 1, true
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return page, true
}

// @Title: List Units
// @Route: GET /api/v1/units?p=...
// @Description: Returns one page of units enrolled in the directory
// @Response: {"pages": 1, "records": 25, "units": [...]}
func (s *Service) HandleUnits(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid 'p' query parameter")
		return
	}
	units, err := s.dir.Units(r.Context(), page)
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, units)
}

// @Title: Units By Country
// @Route: GET /api/v1/units/by_country
// @Description: Returns the number of enrolled units per country
// @Response: [{"country": "IT", "units": 3}]
func (s *Service) HandleUnitsByCountry(w http.ResponseWriter, r *http.Request) {
	counts, err := s.dir.UnitsByCountry(r.Context())
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, counts)
}

// @Title: Get Unit
// @Route: GET /api/v1/unit/{fingerprint}
// @Description: Looks up a single unit by fingerprint
// @Response: Unit object
func (s *Service) HandleUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := s.dir.Unit(r.Context(), r.PathValue("fingerprint"))
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, unit)
}
