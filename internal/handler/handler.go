package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/chatlab/internal/conversation"
	appI18n "github.com/pavelanni/chatlab/internal/i18n"
	"github.com/pavelanni/chatlab/internal/llm"
	"github.com/pavelanni/chatlab/internal/model"
	"github.com/pavelanni/chatlab/internal/store"
	"github.com/pavelanni/chatlab/internal/transcript"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store      *store.Store
	lifecycle  *conversation.Lifecycle
	sharing    *conversation.Sharing
	completion *conversation.Completion
	exporter   *transcript.Exporter
	renderer   transcript.Renderer
	config     model.AppConfig
}

// New creates a new Handler.
func New(s *store.Store, p llm.Provider, cfg model.AppConfig) *Handler {
	return &Handler{
		store:      s,
		lifecycle:  conversation.NewLifecycle(s, p),
		sharing:    conversation.NewSharing(s),
		completion: conversation.NewCompletion(s),
		exporter:   transcript.NewExporter(s),
		renderer:   transcript.PDFRenderer{},
		config:     cfg,
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(h.csrfMiddleware)

		r.Post("/logout", h.handleLogout)

		r.Get("/api/activities", h.handleListActivities)
		r.Get("/api/activity/{activityID}", h.handleActivityState)
		r.Post("/api/activity/{activityID}", h.handleAction)
		r.Get("/api/activity/{activityID}/conversations", h.handleListConversations)
		r.Get("/api/activity/{activityID}/completion", h.handleCompletion)
		r.Get("/api/conversation/{conversationID}", h.handleConversationView)

		r.Get("/transcript/{conversationID}", h.handleTranscript)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Get("/admin/users", h.handleAdminListUsers)
			r.Post("/admin/users", h.handleAdminCreateUser)
			r.Post("/admin/users/{userID}/toggle", h.handleAdminToggleUser)
		})
		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleInstructor, model.UserRoleAdmin))
			r.Post("/admin/activities", h.handleAdminCreateActivity)
			r.Post("/admin/activities/{activityID}", h.handleAdminUpdateActivity)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorPayload struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msgID string) {
	writeJSON(w, status, errorPayload{Code: code, Error: appI18n.T(r.Context(), msgID)})
}

// activityFromRequest loads the activity named in the URL, or writes a
// not-found error and returns false.
func (h *Handler) activityFromRequest(w http.ResponseWriter, r *http.Request) (model.Activity, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "activityID"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "notfound", "ErrNotFound")
		return model.Activity{}, false
	}
	activity, err := h.store.GetActivity(id)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "notfound", "ErrNotFound")
		return model.Activity{}, false
	}
	return activity, true
}

func (h *Handler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.store.ListActivities()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "activities": activities})
}

func (h *Handler) handleActivityState(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.activityFromRequest(w, r)
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())

	state, err := h.lifecycle.State(activity, user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "state": state})
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.activityFromRequest(w, r)
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())

	conversations, err := h.store.ListVisibleConversations(activity.ID, user.ID, user.Role.IsInstructor())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "conversations": conversations})
}

func (h *Handler) handleCompletion(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.activityFromRequest(w, r)
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())

	state, err := h.completion.Evaluate(activity, user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "completion": state})
}

// handleConversationView returns a conversation with its full exchange
// history, subject to the same visibility rules as the transcript.
func (h *Handler) handleConversationView(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "notfound", "ErrNotFound")
		return
	}
	user := model.UserFromContext(r.Context())

	view, err := h.store.GetConversationView(conversationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if view == nil {
		writeError(w, r, http.StatusNotFound, "notfound", "ErrNotFound")
		return
	}
	if !transcript.CanView(view.Conversation, user) {
		writeError(w, r, http.StatusForbidden, "forbidden", "ErrForbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "conversation": view})
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	conversationID, err := strconv.ParseInt(chi.URLParam(r, "conversationID"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "notfound", "ErrNotFound")
		return
	}
	user := model.UserFromContext(r.Context())

	conv, err := h.store.GetConversation(conversationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if conv == nil {
		writeError(w, r, http.StatusNotFound, "notfound", "ErrNotFound")
		return
	}
	if !transcript.CanView(*conv, user) {
		writeError(w, r, http.StatusForbidden, "forbidden", "ErrForbidden")
		return
	}

	t, err := h.exporter.Build(conversationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	doc, err := h.renderer.Render(*t)
	if err != nil {
		slog.Error("render transcript", "conversation_id", conversationID, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	// Same bytes either way; only the disposition differs.
	disposition := "inline"
	if r.URL.Query().Get("download") == "1" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.Header().Set("Content-Disposition",
		disposition+`; filename="conversation-`+strconv.FormatInt(conversationID, 10)+`.pdf"`)
	_, _ = w.Write(doc)
}
