// Package web implements the daemon's HTTP server. It mounts the local API,
// the prometheus endpoint, the rendered reference docs and a websocket feed
// of recent log events.
package web

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"gridlink.unit/gridlink/internal/api"
	"gridlink.unit/gridlink/internal/docs"
	"gridlink.unit/gridlink/internal/logger"
	"gridlink.unit/gridlink/internal/metrics"
	"gridlink.unit/gridlink/internal/types"
)

// replayEvents is how many recent events a new websocket subscriber gets.
const replayEvents = 50

// Server is the daemon HTTP server.
type Server struct {
	addr       string
	templates  *template.Template
	ring       *logger.Ring
	docService *docs.Service
	metrics    *metrics.Metrics
	log        *logrus.Entry
	handler    http.Handler
	srv        *http.Server
}

// NewServer wires the API service and supporting endpoints onto one mux.
func NewServer(addr string, apiService *api.Service, docService *docs.Service, m *metrics.Metrics, ring *logger.Ring, log *logrus.Entry) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		addr:       addr,
		templates:  templates,
		ring:       ring,
		docService: docService,
		metrics:    m,
		log:        log.WithField("component", "web"),
	}

	mux := http.NewServeMux()
	apiService.Register(mux)
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}
	mux.HandleFunc("GET /docs", s.handleDocs)
	mux.HandleFunc("GET /docs/{name}", s.handleDocs)
	mux.HandleFunc("GET /ws/events", s.handleEventsWS)
	s.handler = mux
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background. The
// returned channel receives the serve error, if any, and is then closed.
func (s *Server) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, err
	}
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.WithField("addr", ln.Addr().String()).Info("local API listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh, nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	docList, err := s.docService.ListDocs()
	if err != nil {
		http.Error(w, "Failed to list docs", http.StatusInternalServerError)
		return
	}

	docName := r.PathValue("name")
	if docName == "" && len(docList) > 0 {
		docName = docList[0]
	}

	var docContent string
	if docName != "" {
		content, err := s.docService.GetDoc(r.Context(), docName)
		if err != nil {
			s.log.WithError(err).WithField("doc", docName).Warn("failed to load doc")
			http.Error(w, "Doc not found", http.StatusNotFound)
			return
		}
		docContent = content
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "docs.html", TemplateData{
		CurrentVersion: types.Version,
		BuildTime:      types.BuildTime,
		DocList:        docList,
		DocContent:     template.HTML(docContent),
		CurrentDoc:     docName,
	}); err != nil {
		s.log.WithError(err).Error("failed to render docs page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleEventsWS replays recent log events and then streams new ones until
// the client goes away.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Subscribe before replaying. An event logged in between may arrive twice.
	live, cancel := s.ring.Subscribe(64)
	defer cancel()

	for _, msg := range s.ring.Recent(replayEvents) {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case msg, ok := <-live:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}
