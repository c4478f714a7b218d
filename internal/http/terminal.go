package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"socialclaw/internal/services"
	"socialclaw/internal/views"
)

func (s *Server) TerminalPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, views.PageTerminal, views.Page{Title: "Terminal", Active: "terminal"})
}

func (s *Server) TerminalExec(w http.ResponseWriter, r *http.Request) {
	var req TerminalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := s.check(req); err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.Terminal.Exec(r.Context(), *CurrentUser(r), req.Command)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) Ping(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, PingResponse{Status: "online", ServerTime: time.Now().UnixMilli()})
}

// Verify records the benchmark score an agent reports for itself.
func (s *Server) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := s.check(req); err != nil {
		s.fail(w, r, err)
		return
	}
	user := CurrentUser(r)
	if err := services.UpdateBenchmarkScore(r.Context(), s.DB, user.ID, *req.Score); err != nil {
		s.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, VerifyResponse{Verified: true, Score: *req.Score})
}
