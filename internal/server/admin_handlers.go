package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/carmatch/flowadmin/internal/flows"
	"github.com/carmatch/flowadmin/internal/flowview"
)

func writeHTML(w http.ResponseWriter, status int, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// handleAdminPage loads the flows on every visit, like a fresh page would.
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	_ = s.view.Load(r.Context())

	var buf bytes.Buffer
	err := s.renderer.RenderPage(&buf, flowview.Page{
		Title:     s.title,
		CSRFToken: csrfToken(r),
		Snapshot:  s.view.Snapshot(),
	})
	if err != nil {
		s.log.Error("render admin page failed", "err", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &buf)
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.renderer.RenderStatus(&buf, s.view.Status(), false); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &buf)
}

func (s *Server) handleAdminReload(w http.ResponseWriter, r *http.Request) {
	_ = s.view.Load(r.Context())

	snap := s.view.Snapshot()
	var buf bytes.Buffer
	if err := s.renderer.RenderRows(&buf, snap); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	if err := s.renderer.RenderStatus(&buf, snap.Status, true); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &buf)
}

func (s *Server) handleAdminToggle(w http.ResponseWriter, r *http.Request) {
	s.adminAction(w, r, s.view.Toggle)
}

func (s *Server) handleAdminRunNow(w http.ResponseWriter, r *http.Request) {
	s.adminAction(w, r, s.view.RunNow)
}

// adminAction runs a row action and answers with the re-rendered row plus
// the banner as an out-of-band swap. Backend failures are shown in the
// banner, so they still answer 200.
func (s *Server) adminAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id flows.ID) error) {
	id := flowID(r)
	if err := action(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, flowview.ErrUnknownFlow):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, flowview.ErrInFlight):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		case errors.Is(err, flowview.ErrNoWebhook):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	row, ok := s.view.Row(id)
	if !ok {
		http.Error(w, flowview.ErrUnknownFlow.Error(), http.StatusNotFound)
		return
	}
	snap := s.view.Snapshot()
	var buf bytes.Buffer
	if err := s.renderer.RenderRow(&buf, row, snap.Location); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	if err := s.renderer.RenderStatus(&buf, snap.Status, true); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, &buf)
}
