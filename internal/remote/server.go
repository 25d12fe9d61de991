package remote

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskmate/taskmate/internal/engagement"
	"github.com/taskmate/taskmate/internal/model"
)

// Server exposes a Store over the JSON wire protocol. It is the
// reference server for the CLI demo and for client tests; any backend
// implementing the same routes interoperates with Client.
type Server struct {
	store  Store
	router chi.Router
}

// NewServer builds the HTTP surface around a store.
func NewServer(store Store) *Server {
	s := &Server{store: store}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/subjects", func(r chi.Router) {
		r.Get("/", s.listSubjects)
		r.Get("/{id}", s.getSubject)
	})

	r.Route("/engagements", func(r chi.Router) {
		r.Get("/", s.listEngagements)
		r.Post("/", s.createEngagement)
		r.Post("/{id}/approve", s.transition(Store.ApproveEngagement))
		r.Post("/{id}/reject", s.transition(Store.RejectEngagement))
		r.Post("/{id}/complete", s.transition(Store.CompleteEngagement))
		r.Post("/{id}/revert", s.transition(Store.RevertEngagement))
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", s.listNotifications)
		r.Post("/{id}/read", s.markNotificationRead)
		r.Post("/{id}/clear", s.clearNotification)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) listSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.store.ListSubjects(r.Context())
	if err != nil {
		writeWireError(w, err)
		return
	}
	if subjects == nil {
		subjects = []*model.Subject{}
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (s *Server) getSubject(w http.ResponseWriter, r *http.Request) {
	subj, err := s.store.GetSubject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeWireError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subj)
}

func (s *Server) listEngagements(w http.ResponseWriter, r *http.Request) {
	engagements, err := s.store.GetEngagements(r.Context(), r.URL.Query().Get("subject_id"))
	if err != nil {
		writeWireError(w, err)
		return
	}
	if engagements == nil {
		engagements = []*model.Engagement{}
	}
	writeJSON(w, http.StatusOK, engagements)
}

func (s *Server) createEngagement(w http.ResponseWriter, r *http.Request) {
	var req createEngagementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeWireError(w, model.NewValidationError("invalid request body: %v", err))
		return
	}

	eng, err := s.store.CreateEngagement(r.Context(), r.Header.Get(idempotencyHeader), toCreateRequest(req))
	if err != nil {
		writeWireError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, eng)
}

// transition adapts one of the four engagement transition methods into a
// handler. The four endpoints share shape: subject id in the body,
// engagement id in the path, idempotency key in the header.
func (s *Server) transition(fn func(Store, context.Context, string, string, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transitionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeWireError(w, model.NewValidationError("invalid request body: %v", err))
			return
		}
		err := fn(s.store, r.Context(),
			r.Header.Get(idempotencyHeader), req.SubjectID, chi.URLParam(r, "id"))
		if err != nil {
			writeWireError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// toCreateRequest converts the wire body into the domain request.
func toCreateRequest(req createEngagementRequest) engagement.CreateRequest {
	return engagement.CreateRequest{
		SubjectID: req.SubjectID,
		Actor:     req.Actor,
		Slot:      req.Slot,
		Note:      req.Note,
	}
}

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.store.GetNotifications(r.Context(), r.URL.Query().Get("recipient"))
	if err != nil {
		writeWireError(w, err)
		return
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeWireError(w, model.NewValidationError("invalid request body: %v", err))
		return
	}
	err := s.store.MarkNotificationRead(r.Context(),
		r.Header.Get(idempotencyHeader), req.Recipient, chi.URLParam(r, "id"))
	if err != nil {
		writeWireError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) clearNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeWireError(w, model.NewValidationError("invalid request body: %v", err))
		return
	}
	err := s.store.ClearNotification(r.Context(),
		r.Header.Get(idempotencyHeader), req.Recipient, chi.URLParam(r, "id"))
	if err != nil {
		writeWireError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeWireError(w http.ResponseWriter, err error) {
	we, status := toWireError(err)
	writeJSON(w, status, we)
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
