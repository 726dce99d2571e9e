package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/rover/internal/httputil"
	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/store"
)

// maxControlBody bounds command payloads.
const maxControlBody = 4 << 10

type controlResponse struct {
	ID        string          `json:"id"`
	Command   json.RawMessage `json:"command,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// handleControl writes operator commands. Payloads must be JSON objects but
// are otherwise stored as sent; the control loop decodes them.
//
//	GET    /api/control[?id=]  current command
//	PUT    /api/control[?id=]  update (creates the record if it was deleted)
//	POST   /api/control        insert a new record, returns its id
//	DELETE /api/control[?id=]  delete
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		id = ControlID
	}
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		payload, updated, err := s.store.Control(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			httputil.NotFound(w, "no control record "+id)
			return
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, controlResponse{ID: id, Command: payload, UpdatedAt: &updated})

	case http.MethodPut:
		payload, ok := s.readCommand(w, r)
		if !ok {
			return
		}
		err := s.store.UpdateControl(ctx, id, payload)
		if errors.Is(err, store.ErrNotFound) {
			monitoring.Logf("[API] control %s missing, recreating", id)
			err = s.store.InsertControl(ctx, id, payload)
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, controlResponse{ID: id, Command: payload})

	case http.MethodPost:
		payload, ok := s.readCommand(w, r)
		if !ok {
			return
		}
		newID := uuid.NewString()
		if err := s.store.InsertControl(ctx, newID, payload); err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, controlResponse{ID: newID, Command: payload})

	case http.MethodDelete:
		err := s.store.DeleteControl(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			httputil.NotFound(w, "no control record "+id)
			return
		}
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) readCommand(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxControlBody))
	if err != nil {
		httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, "command too large")
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		httputil.BadRequest(w, "command must be a JSON object")
		return nil, false
	}
	return body, true
}
