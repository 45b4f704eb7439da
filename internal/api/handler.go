package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"linkbox-backend/internal/logging"
	"linkbox-backend/internal/repository"
	"linkbox-backend/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// maxFormBytes bounds request bodies; every field is a short string.
const maxFormBytes = 1 << 20

var errValidation = errors.New("invalid request")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler wires HTTP requests to the user and message services.
type Handler struct {
	users    *service.UserService
	messages *service.MessageService
	health   Pinger
	log      *slog.Logger
	validate *validator.Validate
	metrics  *Metrics
}

// NewHandler creates a Handler. health may be nil, in which case /healthz
// always reports ok.
func NewHandler(users *service.UserService, messages *service.MessageService, health Pinger, log *slog.Logger) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})

	return &Handler{
		users:    users,
		messages: messages,
		health:   health,
		log:      log,
		validate: v,
		metrics:  NewMetrics(),
	}
}

// === Response helpers ===

type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, r *http.Request, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logging.FromContext(r.Context(), h.log).ErrorContext(r.Context(), "failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"internal error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := statusFor(err)
	if code >= http.StatusInternalServerError {
		logging.FromContext(r.Context(), h.log).ErrorContext(r.Context(), "request failed", "error", err)
	}
	h.respondWithJSON(w, r, code, errorBody{Message: message})
}

func (h *Handler) respondOK(w http.ResponseWriter, r *http.Request, status string, data any) {
	h.respondWithJSON(w, r, http.StatusOK, envelope{Status: status, Data: data})
}

// statusFor maps an error to its HTTP status and client-facing message.
// Infrastructure failures never leak their cause.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case repository.IsDomainError(err):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

// === Request binding ===

type (
	sendMessageRequest struct {
		To   string `form:"to" validate:"required"`
		Link string `form:"link" validate:"required"`
	}

	archiveRequest struct {
		ID string `form:"id" validate:"required,number"`
	}

	addUserRequest struct {
		Username string `form:"username" validate:"required"`
		Name     string `form:"name" validate:"required"`
		Passhash string `form:"passhash" validate:"required"`
	}

	verifyUserRequest struct {
		Username string `form:"username" validate:"required"`
		Passhash string `form:"passhash" validate:"required"`
	}
)

// bind fills the string fields of dst from the request form by their form
// tag and validates the result. An empty value counts as missing.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return fmt.Errorf("%w: malformed form body", errValidation)
	}

	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("form")
		if name == "" || t.Field(i).Type.Kind() != reflect.String {
			continue
		}
		v.Field(i).SetString(r.PostForm.Get(name))
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return fmt.Errorf("%w: %v", errValidation, err)
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	if fe.Tag() == "required" {
		return fmt.Errorf("%w: missing field '%s'", errValidation, fe.Field())
	}
	return fmt.Errorf("%w: malformed field '%s'", errValidation, fe.Field())
}

// parseID accepts positive decimal integers only.
func parseID(field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 || strings.HasPrefix(raw, "+") {
		return 0, fmt.Errorf("%w: malformed field '%s'", errValidation, field)
	}
	return id, nil
}

// === Message handlers ===

// handleInbox (GET /{username}/messages)
func (h *Handler) handleInbox(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	msgs, err := h.messages.Inbox(r.Context(), username)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, fmt.Sprintf("Retrieved messages of %s", username), msgs)
}

// handleArchivedMessages (GET /{username}/archive)
func (h *Handler) handleArchivedMessages(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	msgs, err := h.messages.Archived(r.Context(), username)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, fmt.Sprintf("Retrieved archived messages of %s", username), msgs)
}

// handleArchiveMessage (POST /{username}/archive)
func (h *Handler) handleArchiveMessage(w http.ResponseWriter, r *http.Request) {
	var req archiveRequest
	if err := h.bind(w, r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	id, err := parseID("id", req.ID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.messages.Archive(r.Context(), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, fmt.Sprintf("Archived message %d", id), nil)
}

// handleSendMessage (POST /{username}/messages)
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := h.bind(w, r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	from := chi.URLParam(r, "username")
	if _, err := h.messages.Send(r.Context(), from, req.To, req.Link); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, "Message sent", nil)
}

// handleGetMessage (GET /{username}/messages/{id})
func (h *Handler) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID("id", chi.URLParam(r, "id"))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	msg, err := h.messages.Get(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, fmt.Sprintf("Retrieved message %d", id), msg)
}

// handleConversation (GET /{username}/conversation/{other})
func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	other := chi.URLParam(r, "other")

	msgs, err := h.messages.Conversation(r.Context(), username, other)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, fmt.Sprintf("Retrieved conversation of %s with %s", username, other), msgs)
}

// === User handlers ===

// handleAddUser (POST /add_user)
func (h *Handler) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	if err := h.bind(w, r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if _, err := h.users.Register(r.Context(), req.Username, req.Name, req.Passhash); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, fmt.Sprintf("Added user %s", req.Username), nil)
}

// handleVerifyUser (POST /verify_user)
func (h *Handler) handleVerifyUser(w http.ResponseWriter, r *http.Request) {
	var req verifyUserRequest
	if err := h.bind(w, r, &req); err != nil {
		h.respondWithError(w, r, err)
		return
	}

	if err := h.users.Verify(r.Context(), req.Username, req.Passhash); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, fmt.Sprintf("User %s verified", req.Username), nil)
}

// handleListUsers (GET /users?exclude=)
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), r.URL.Query().Get("exclude"))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	h.respondOK(w, r, "Retrieved users", users)
}

// handleHealth (GET /healthz)
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context(), h.log).WarnContext(r.Context(), "health check failed", "error", err)
			h.respondWithJSON(w, r, http.StatusServiceUnavailable, errorBody{Message: repository.ErrStoreUnavailable.Error()})
			return
		}
	}
	h.respondWithJSON(w, r, http.StatusOK, envelope{Status: "ok"})
}
