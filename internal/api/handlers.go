package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkthread/backend/internal/auth"
	"github.com/sparkthread/backend/internal/domain"
	"github.com/sparkthread/backend/internal/feed"
	"github.com/sparkthread/backend/internal/repository"
)

// retryDelay is the pause before the single blind retry of a failed
// generation call. Variable so tests can shorten it.
var retryDelay = 2 * time.Second

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	repo repository.Repository
	svc  *feed.Service
	log  *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(repo repository.Repository, svc *feed.Service, log *zap.Logger) *Handler {
	return &Handler{repo: repo, svc: svc, log: log}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Topics
	mux.HandleFunc("POST /topics", h.CreateTopic)
	mux.HandleFunc("GET /topics", h.ListTopics)
	mux.HandleFunc("GET /topics/{topicId}", h.GetTopic)

	// Threads
	mux.HandleFunc("GET /threads/{threadId}", h.GetThread)
	mux.HandleFunc("POST /threads/{threadId}/expand", h.ExpandThread)
	mux.HandleFunc("POST /threads/{threadId}/followups", h.CreateFollowUp)

	// Interests
	mux.HandleFunc("GET /interests", h.GetInterests)
	mux.HandleFunc("PUT /interests", h.UpdateInterests)

	// Home
	mux.HandleFunc("GET /home", h.GetHome)
	mux.HandleFunc("POST /home/refresh", h.RefreshHome)
}

// Error response helpers

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err, message string) {
	writeJSON(w, status, errorResponse{Error: err, Message: message})
}

// writeDomainError maps domain sentinels onto HTTP statuses. Upstream and
// empty-generation failures both surface as 502 so clients treat them as
// retryable.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "You do not own this resource")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrEmptyGeneration):
		writeError(w, http.StatusBadGateway, "generation_failed", "AI generation failed, please retry")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// retryUpstream runs fn and, when it fails at the transport level, waits a
// beat and tries exactly once more. Every other failure returns immediately.
func retryUpstream[T any](h *Handler, r *http.Request, fn func() (T, error)) (T, error) {
	out, err := fn()
	if err == nil || !errors.Is(err, domain.ErrUpstream) {
		return out, err
	}
	h.log.Warn("generation failed, retrying once",
		zap.String("path", r.URL.Path), zap.Error(err))
	select {
	case <-time.After(retryDelay):
	case <-r.Context().Done():
		return out, err
	}
	return fn()
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	ident, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return auth.Identity{}, false
	}
	return ident, true
}

// Topics

type createTopicRequest struct {
	Query string `json:"query"`
}

type topicResponse struct {
	Topic   *domain.Topic    `json:"topic"`
	Threads []*domain.Thread `json:"threads"`
}

func (h *Handler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	var req createTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "query is required")
		return
	}

	result, err := retryUpstream(h, r, func() (*topicResponse, error) {
		topic, threads, err := h.svc.GenerateFeed(r.Context(), ident, req.Query)
		if err != nil {
			return nil, err
		}
		return &topicResponse{Topic: topic, Threads: threads}, nil
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type listTopicsResponse struct {
	Topics []*domain.Topic `json:"topics"`
}

func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	topics, err := h.repo.ListTopics(r.Context(), ident.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if topics == nil {
		topics = []*domain.Topic{}
	}
	writeJSON(w, http.StatusOK, listTopicsResponse{Topics: topics})
}

func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("topicId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_uuid", "Invalid topic ID format")
		return
	}

	topic, err := h.repo.GetTopic(r.Context(), ident.UserID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	threads, err := h.repo.ListThreadsByTopic(r.Context(), ident.UserID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if threads == nil {
		threads = []*domain.Thread{}
	}
	writeJSON(w, http.StatusOK, topicResponse{Topic: topic, Threads: threads})
}

// Threads

type threadResponse struct {
	Thread *domain.Thread `json:"thread"`
}

func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("threadId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_uuid", "Invalid thread ID format")
		return
	}

	thread, err := h.repo.GetThread(r.Context(), ident.UserID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threadResponse{Thread: thread})
}

func (h *Handler) ExpandThread(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("threadId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_uuid", "Invalid thread ID format")
		return
	}

	thread, err := retryUpstream(h, r, func() (*domain.Thread, error) {
		return h.svc.ExpandThread(r.Context(), ident, id)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threadResponse{Thread: thread})
}

type followUpRequest struct {
	Question string `json:"question"`
	// ReplyIndex is the reply the question is about. Out of range (including
	// the default -1) appends the exchange at the end of the thread.
	ReplyIndex *int `json:"reply_index"`
}

func (h *Handler) CreateFollowUp(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(r.PathValue("threadId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_uuid", "Invalid thread ID format")
		return
	}

	var req followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "question is required")
		return
	}
	replyIndex := -1
	if req.ReplyIndex != nil {
		replyIndex = *req.ReplyIndex
	}

	thread, err := retryUpstream(h, r, func() (*domain.Thread, error) {
		return h.svc.AnswerFollowUp(r.Context(), ident, id, req.Question, replyIndex)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threadResponse{Thread: thread})
}

// Interests

type interestsRequest struct {
	Tags []string `json:"tags"`
}

type interestsResponse struct {
	Tags []string `json:"tags"`
}

func (h *Handler) GetInterests(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	interest, err := h.svc.Interests(r.Context(), ident)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interestsResponse{Tags: interest.Tags})
}

func (h *Handler) UpdateInterests(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	var req interestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}
	if req.Tags == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "tags is required")
		return
	}

	interest, err := h.svc.UpdateInterests(r.Context(), ident, req.Tags)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interestsResponse{Tags: interest.Tags})
}

// Home

type homeResponse struct {
	Suggestions []string `json:"suggestions"`
}

func (h *Handler) GetHome(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	stored, err := h.svc.HomeSuggestions(r.Context(), ident)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, homeResponse{Suggestions: stored.Suggestions})
}

func (h *Handler) RefreshHome(w http.ResponseWriter, r *http.Request) {
	ident, ok := identity(w, r)
	if !ok {
		return
	}

	stored, err := retryUpstream(h, r, func() (*domain.HomeSuggestion, error) {
		return h.svc.RefreshHomeSuggestions(r.Context(), ident)
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, homeResponse{Suggestions: stored.Suggestions})
}
