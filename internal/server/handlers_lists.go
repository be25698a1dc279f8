package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/jonathan/resume-builder/internal/editor"
	"github.com/sirupsen/logrus"
)

// AddEntryResponse is the body of POST /document/{kind}.
type AddEntryResponse struct {
	Index    int             `json:"index"`
	ID       string          `json:"id"`
	Snapshot editor.Snapshot `json:"snapshot"`
}

// ReorderRequest is the list as displayed after a drag.
type ReorderRequest struct {
	Rows []editor.Row `json:"rows"`
}

// SkillRequest adds one skill.
type SkillRequest struct {
	Text string `json:"text"`
}

// AddSkillResponse reports whether the skill was added.
type AddSkillResponse struct {
	Added    bool            `json:"added"`
	Snapshot editor.Snapshot `json:"snapshot"`
}

// handleListEntries regenerates the editing controls of one list.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	controls, err := s.session.Controls(kind)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"kind":    kind,
		"fields":  kind.Fields(),
		"entries": controls,
	})
}

// handleAddEntry appends a blank entry.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	index, id, snap, err := s.session.AddEntry(kind)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	s.logger.WithFields(logrus.Fields{
		"kind":  kind,
		"index": index,
	}).Debug("Entry added")
	s.jsonResponse(w, http.StatusCreated, AddEntryResponse{Index: index, ID: id, Snapshot: snap})
}

// handleUpdateEntry writes one field of one entry.
func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var req FieldUpdate
	if !s.decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		s.failure(w, r, err)
		return
	}

	snap, err := s.session.UpdateEntryByID(kind, r.PathValue("id"), req.Field, req.Value)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

// handleRemoveEntry deletes one entry by id.
func (s *Server) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	snap, err := s.session.RemoveEntryByID(kind, r.PathValue("id"))
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

// handleReorder rebuilds a list from its displayed order.
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		s.failure(w, r, err)
		return
	}

	var req ReorderRequest
	if !s.decode(w, r, &req) {
		return
	}

	snap, err := s.session.Reorder(kind, req.Rows)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

// handleAddSkill appends a skill. Blank text is ignored.
func (s *Server) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	var req SkillRequest
	if !s.decode(w, r, &req) {
		return
	}

	added, snap, err := s.session.AddSkill(req.Text)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, AddSkillResponse{Added: added, Snapshot: snap})
}

// handleRemoveSkill deletes the skill at {index}.
func (s *Server) handleRemoveSkill(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.failure(w, r, &ErrValidation{Field: "index", Message: "must be an integer"})
		return
	}

	snap, err := s.session.RemoveSkill(index)
	if err != nil {
		s.failure(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

// decodeJSON decodes a single JSON value, rejecting trailing data.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(body, maxImportBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return &ErrValidation{Field: "body", Message: "unexpected trailing data"}
	}
	return nil
}
