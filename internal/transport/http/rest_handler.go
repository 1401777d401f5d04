package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quickrev/internal/app"
	"quickrev/internal/auth"
	"quickrev/internal/domain"
)

// RESTHandler exposes the library and read-only session endpoints next to
// the websocket view.
type RESTHandler struct {
	service  *app.StudyService
	library  *app.Library
	identity auth.Provider
}

func NewRESTHandler(service *app.StudyService, library *app.Library, identity auth.Provider) *RESTHandler {
	return &RESTHandler{service: service, library: library, identity: identity}
}

// Register mounts the handlers on mux.
func (h *RESTHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/files", h.ServeFiles)
	mux.HandleFunc("/cards", h.ServeCards)
	mux.HandleFunc("/sessions", h.ServeSession)
}

// ServeFiles lists the caller's flashcard sets (GET) or deletes ?fileId= (DELETE).
func (h *RESTHandler) ServeFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ident, err := h.identity.Identify(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	if r.Method == http.MethodDelete {
		if err := h.library.Delete(r.Context(), ident.UserID, r.URL.Query().Get("fileId")); err != nil {
			respondWithError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	files, err := h.library.Flashcards(r.Context(), ident.UserID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// ServeCards returns the validated records of ?fileId=.
func (h *RESTHandler) ServeCards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.identity.Identify(r); err != nil {
		respondWithError(w, err)
		return
	}

	records, err := h.service.LoadRecords(r.Context(), r.URL.Query().Get("fileId"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ServeSession returns the snapshot of a live session owned by the caller.
func (h *RESTHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ident, err := h.identity.Identify(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	session, err := h.service.Get(r.URL.Query().Get("id"))
	if err != nil || session.UserID() != ident.UserID {
		respondWithError(w, domain.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, session.Snapshot())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrListingUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{
		Message:   err.Error(),
		Kind:      domain.ErrorKind(err),
		Retryable: domain.Retryable(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
