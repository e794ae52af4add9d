package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gridlink.unit/gridlink/internal/types"
)

// @Title: List Inbox
// @Route: GET /api/v1/inbox?p=...
// @Description: Returns one page of the unit's mailbox. Requires enrollment.
// @Response: {"pages": 1, "records": 1, "messages": [...]}
func (s *Service) HandleInbox(w http.ResponseWriter, r *http.Request) {
	page, ok := pageParam(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid 'p' query parameter")
		return
	}
	inbox, err := s.dir.Inbox(r.Context(), page)
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, inbox)
}

// @Title: Read Message
// @Route: GET /api/v1/inbox/{id}
// @Description: Returns a single message. Requires enrollment.
// @Response: Message object
func (s *Service) HandleMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}
	msg, err := s.dir.Message(r.Context(), id)
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, msg)
}

// @Title: Mark Message
// @Route: POST /api/v1/inbox/{id}/{mark}
// @Description: Marks a message as seen, unseen or deleted. Requires enrollment.
// @Response: Directory response, passed through
func (s *Service) HandleMark(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}
	out, err := s.dir.Mark(r.Context(), id, types.Mark(r.PathValue("mark")))
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.writeRaw(w, out)
}

type sendRequest struct {
	Message string `json:"message" validate:"required"`
}

// @Title: Send Message
// @Route: POST /api/v1/unit/{fingerprint}/inbox
// @Description: Signs and sends a message to another unit. Requires enrollment.
// @Response: Directory response, passed through
func (s *Service) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeCallError(w, r, err)
		return
	}

	fingerprint := r.PathValue("fingerprint")
	out, err := s.dir.Send(r.Context(), fingerprint, []byte(req.Message))
	if err != nil {
		s.writeCallError(w, r, err)
		return
	}
	s.log.WithField("recipient", fingerprint).Info("message sent")
	s.writeRaw(w, out)
}

// writeRaw passes a directory response body through, substituting an empty
// object for an empty body.
func (s *Service) writeRaw(w http.ResponseWriter, body json.RawMessage) {
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
