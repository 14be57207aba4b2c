package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pavelanni/chatlab/internal/conversation"
	appI18n "github.com/pavelanni/chatlab/internal/i18n"
	"github.com/pavelanni/chatlab/internal/model"
)

// handleAction dispatches the activity action endpoint. One action per
// call; unknown actions are rejected. Routing already restricts this to
// POST, so every state-changing action arrives on the right method.
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.activityFromRequest(w, r)
	if !ok {
		return
	}
	user := model.UserFromContext(r.Context())

	switch r.FormValue("action") {
	case "sendrequest":
		h.actionSendRequest(w, r, activity, user)
	case "confirmfinish":
		h.actionConfirmFinish(w, r, activity, user)
	case "shareconversation":
		h.actionShare(w, r, activity, user)
	case "togglepublic":
		h.actionTogglePublic(w, r, user)
	case "revokeshare":
		h.actionRevokeShare(w, r, user)
	case "getcomment":
		h.actionGetComment(w, r, user)
	case "savecomment":
		h.actionSaveComment(w, r, user)
	default:
		writeError(w, r, http.StatusBadRequest, "invalidaction", "ErrInvalidAction")
	}
}

func conversationIDFromForm(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.FormValue("conversationid"), 10, 64)
	return id, err == nil
}

func (h *Handler) actionSendRequest(w http.ResponseWriter, r *http.Request, activity model.Activity, user *model.User) {
	message := r.FormValue("message")
	if strings.TrimSpace(message) == "" {
		writeError(w, r, http.StatusBadRequest, "emptymessage", "ErrEmptyMessage")
		return
	}

	reply, err := h.lifecycle.SendRequest(r.Context(), activity, user.ID, message)
	var provErr *conversation.ProviderError
	switch {
	case errors.Is(err, conversation.ErrNoAttemptsLeft):
		writeError(w, r, http.StatusForbidden, "quotaexhausted", "ErrNoAttemptsLeft")
		return
	case errors.As(err, &provErr):
		writeJSON(w, http.StatusBadGateway, errorPayload{
			Code:  "providerfailure",
			Error: appI18n.Td(r.Context(), "ErrProviderFailure", map[string]any{"Message": provErr.Err.Error()}),
		})
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reply": reply})
}

func (h *Handler) actionConfirmFinish(w http.ResponseWriter, r *http.Request, activity model.Activity, user *model.User) {
	id, finished, err := h.lifecycle.ConfirmFinish(activity, user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	state, err := h.lifecycle.State(activity, user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"finished":        finished,
		"conversation_id": id,
		"state":           state,
	})
}

func (h *Handler) actionShare(w http.ResponseWriter, r *http.Request, activity model.Activity, user *model.User) {
	conversationID, ok := conversationIDFromForm(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "notfound", "ErrNotFound")
		return
	}
	shared, err := h.sharing.Share(conversationID, user.ID, activity.ID)
	if errors.Is(err, conversation.ErrAlreadyShared) {
		writeError(w, r, http.StatusConflict, "alreadyshared", "ErrAlreadyShared")
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload := map[string]any{"success": true, "shared": shared}
	if shared {
		payload["message"] = appI18n.T(r.Context(), "ConversationShared")
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) actionTogglePublic(w http.ResponseWriter, r *http.Request, user *model.User) {
	conversationID, ok := conversationIDFromForm(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "notfound", "ErrNotFound")
		return
	}
	public, changed, err := h.sharing.TogglePublic(conversationID, user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "changed": changed, "public": public})
}

func (h *Handler) actionRevokeShare(w http.ResponseWriter, r *http.Request, user *model.User) {
	if !user.Role.IsInstructor() {
		writeError(w, r, http.StatusForbidden, "forbidden", "ErrForbidden")
		return
	}
	conversationID, ok := conversationIDFromForm(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "notfound", "ErrNotFound")
		return
	}
	if err := h.sharing.RevokeShare(conversationID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": appI18n.T(r.Context(), "ShareRevoked"),
	})
}

func (h *Handler) actionGetComment(w http.ResponseWriter, r *http.Request, user *model.User) {
	if !user.Role.IsInstructor() {
		writeError(w, r, http.StatusForbidden, "forbidden", "ErrForbidden")
		return
	}
	conversationID, ok := conversationIDFromForm(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "notfound", "ErrNotFound")
		return
	}
	comment, err := h.sharing.Comment(conversationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "comment": comment})
}

func (h *Handler) actionSaveComment(w http.ResponseWriter, r *http.Request, user *model.User) {
	if !user.Role.IsInstructor() {
		writeError(w, r, http.StatusForbidden, "forbidden", "ErrForbidden")
		return
	}
	conversationID, ok := conversationIDFromForm(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "notfound", "ErrNotFound")
		return
	}
	if err := h.sharing.SaveComment(conversationID, r.FormValue("comment")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
