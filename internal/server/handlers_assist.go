package server

import (
	"context"
	"net/http"

	"github.com/jonathan/resume-builder/internal/assist"
)

// AssistRequest is the body of POST /assist.
type AssistRequest struct {
	Target   assist.Target `json:"target"`
	Tone     string        `json:"tone"`
	Keywords string        `json:"keywords"`
}

// AssistState is the body of GET /assist.
type AssistState struct {
	assist.ViewSnapshot
	State       assist.State `json:"state"`
	LastOutcome assist.State `json:"last_outcome"`
	Tones       []string     `json:"tones"`
}

// handleAssistState reports the assistant's view and controller state.
func (s *Server) handleAssistState(w http.ResponseWriter, _ *http.Request) {
	resp := AssistState{
		ViewSnapshot: s.view.Snapshot(),
		Tones:        assist.Tones(),
	}
	if s.assist != nil {
		resp.State = s.assist.State()
		resp.LastOutcome = s.assist.LastOutcome()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleAssist generates text for the summary or an experience entry.
// The generation finishes even if the client goes away, so its result
// still lands in the document.
func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	if s.assist == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "assistant not configured")
		return
	}

	var req AssistRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.Target.Validate(); err != nil {
		s.failure(w, r, err)
		return
	}

	result, err := s.assist.Generate(context.WithoutCancel(r.Context()), req.Target, req.Tone, req.Keywords)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}
