package server

import (
	"errors"
	"net/http"

	"github.com/carmatch/flowadmin/internal/backend"
	"github.com/carmatch/flowadmin/internal/flows"
)

func (s *Server) handleListFlows(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListFlows(r.Context())
	if err != nil {
		s.log.Error("list flows failed", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if list == nil {
		list = []flows.Flow{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleToggleFlow(w http.ResponseWriter, r *http.Request) {
	id := flowID(r)
	f, err := s.service.ToggleFlow(r.Context(), id)
	if err != nil {
		if errors.Is(err, backend.ErrUnknownFlow) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.log.Warn("toggle flow failed", "flow", id, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "flow": f})
}

// handleRunNow answers with the run result itself; a failed run keeps the
// webhook's status when it is an error status.
func (s *Server) handleRunNow(w http.ResponseWriter, r *http.Request) {
	id := flowID(r)
	res, err := s.service.RunNow(r.Context(), id)
	if err != nil {
		s.log.Warn("run now failed", "flow", id, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	status := http.StatusOK
	if !res.OK {
		status = http.StatusBadGateway
		if res.Status >= 400 && res.Status < 600 {
			status = res.Status
		}
	}
	writeJSON(w, status, res)
}

func (s *Server) handleLastExecution(w http.ResponseWriter, r *http.Request) {
	id := flowID(r)
	st, err := s.service.LastExecutionStatus(r.Context(), id)
	if err != nil {
		s.log.Warn("last execution lookup failed", "flow", id, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}
