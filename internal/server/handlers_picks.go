package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/warepick/warepick/internal/apperr"
	"github.com/warepick/warepick/internal/coordinator"
	"github.com/warepick/warepick/internal/types"
)

func (s *Server) handleValidateName(w http.ResponseWriter, r *http.Request) {
	check, err := s.coord.ValidateName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (s *Server) handleCreatePick(w http.ResponseWriter, r *http.Request) {
	var params coordinator.CreateParams
	if err := decodeJSON(r, &params); err != nil {
		s.writeError(w, err)
		return
	}
	req, err := s.coord.Create(r.Context(), currentUser(r), params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"request": req,
	})
}

func (s *Server) handleListPicks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter types.RequestFilter

	if raw := q.Get("status"); raw != "" {
		status := types.Status(raw)
		if !status.IsValid() {
			s.writeError(w, apperr.Validation("Invalid status filter: "+raw))
			return
		}
		filter.Status = &status
	}
	if raw := q.Get("priority"); raw != "" {
		priority := types.Priority(raw)
		if !priority.IsValid() {
			s.writeError(w, apperr.Validation("Invalid priority filter: "+raw))
			return
		}
		filter.Priority = &priority
	}
	if q.Get("mine") == "true" {
		id := currentUser(r).ID
		filter.CreatorID = &id
	}

	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	rows, total, err := s.coord.List(r.Context(), filter, offset, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rows == nil {
		rows = []*types.Request{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"requests": rows,
		"total":    total,
	})
}

func (s *Server) handleGetPick(w http.ResponseWriter, r *http.Request) {
	req, err := s.coord.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"request": req})
}

func (s *Server) handleDeletePick(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.coord.Delete(r.Context(), currentUser(r), name); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Pick request '" + name + "' deleted",
	})
}

// lifecycle dispatches one state transition and writes the uniform
// success payload.
func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, message string,
	op func() (*types.Request, error)) {
	req, err := op()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
		"request": req,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, "Pick request started", func() (*types.Request, error) {
		return s.coord.Start(r.Context(), currentUser(r), chi.URLParam(r, "name"))
	})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, "Pick request paused", func() (*types.Request, error) {
		return s.coord.Pause(r.Context(), currentUser(r), chi.URLParam(r, "name"))
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, "Pick request resumed", func() (*types.Request, error) {
		return s.coord.Resume(r.Context(), currentUser(r), chi.URLParam(r, "name"))
	})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, "Pick request released", func() (*types.Request, error) {
		return s.coord.Release(r.Context(), currentUser(r), chi.URLParam(r, "name"))
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, "Pick request cancelled", func() (*types.Request, error) {
		return s.coord.Cancel(r.Context(), currentUser(r), chi.URLParam(r, "name"))
	})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	notes := r.URL.Query().Get("notes")
	s.lifecycle(w, r, "Pick request approved and completed", func() (*types.Request, error) {
		return s.coord.Approve(r.Context(), currentUser(r), chi.URLParam(r, "name"), notes)
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	skip := r.URL.Query().Get("skip_shortage_validation") == "true"
	res, err := s.coord.Submit(r.Context(), currentUser(r), chi.URLParam(r, "name"), skip)
	if err != nil {
		s.writeError(w, err)
		return
	}
	message := "Pick request completed"
	if res.Request.Status == types.StatusPartiallyCompleted {
		message = "Pick request partially completed"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"message":       message,
		"request":       res.Request,
		"log_file":      res.LogPath,
		"has_shortages": len(res.Request.ShortItems()) > 0,
	})
}

func (s *Server) handleShortages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	summary, err := s.coord.ShortageSummary(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if summary == nil {
		summary = []coordinator.ShortageGroup{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"request_name": name,
		"summary":      summary,
	})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var upd coordinator.ItemUpdate
	if err := decodeJSON(r, &upd); err != nil {
		s.writeError(w, err)
		return
	}
	name, upc := chi.URLParam(r, "name"), chi.URLParam(r, "upc")
	req, err := s.coord.UpdateItem(r.Context(), currentUser(r), name, upc, upd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"item":    req.ItemByUPC(upc),
		"request": req,
	})
}

type shortageRequest struct {
	Reason types.ShortageReason `json:"reason"`
	Notes  string               `json:"notes"`
}

func (s *Server) handleSetShortage(w http.ResponseWriter, r *http.Request) {
	var body shortageRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	name, upc := chi.URLParam(r, "name"), chi.URLParam(r, "upc")
	req, err := s.coord.SetItemShortage(r.Context(), currentUser(r), name, upc, body.Reason, body.Notes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"item":    req.ItemByUPC(upc),
		"request": req,
	})
}
