package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/go-chi/chi/v5"
	"github.com/pavelanni/chatlab/internal/model"
)

func (h *Handler) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		slog.Error("failed to list users", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Strip password hashes from the listing.
	type userEntry struct {
		ID          int64          `json:"id"`
		Username    string         `json:"username"`
		DisplayName string         `json:"display_name"`
		Role        model.UserRole `json:"role"`
		Active      bool           `json:"active"`
	}
	var entries []userEntry
	for _, u := range users {
		entries = append(entries, userEntry{
			ID: u.ID, Username: u.Username, DisplayName: u.DisplayName,
			Role: u.Role, Active: u.Active,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "users": entries})
}

func (h *Handler) handleAdminCreateUser(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	displayName := r.FormValue("display_name")
	password := r.FormValue("password")
	role := r.FormValue("role")

	if username == "" || password == "" {
		http.Error(w, "username and password required", http.StatusBadRequest)
		return
	}
	switch model.UserRole(role) {
	case model.UserRoleStudent, model.UserRoleInstructor, model.UserRoleAdmin:
	default:
		http.Error(w, "invalid role", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if displayName == "" {
		displayName = username
	}

	id, err := h.store.CreateUser(model.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Role:         model.UserRole(role),
		Active:       true,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": id})
}

func (h *Handler) handleAdminToggleUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}
	if err := h.store.ToggleUserActive(userID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func activityFromForm(r *http.Request) model.Activity {
	maxAttempts, _ := strconv.Atoi(r.FormValue("max_attempts"))
	maxInteractions, _ := strconv.Atoi(r.FormValue("max_interactions"))
	completionAttempts, _ := strconv.Atoi(r.FormValue("completion_attempts"))
	return model.Activity{
		CourseID:                  1,
		Name:                      r.FormValue("name"),
		SystemPrompt:              r.FormValue("system_prompt"),
		Channel:                   r.FormValue("channel"),
		MaxAttempts:               maxAttempts,
		MaxInteractions:           maxInteractions,
		CompletionAttemptsEnabled: r.FormValue("completion_attempts_enabled") == "1",
		CompletionAttempts:        completionAttempts,
		CompletionShareEnabled:    r.FormValue("completion_share_enabled") == "1",
	}
}

func (h *Handler) handleAdminCreateActivity(w http.ResponseWriter, r *http.Request) {
	a := activityFromForm(r)
	if a.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if a.MaxAttempts < 1 || a.MaxInteractions < 1 {
		http.Error(w, "max_attempts and max_interactions must be positive", http.StatusBadRequest)
		return
	}

	id, err := h.store.InsertActivity(a)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "activity_id": id})
}

func (h *Handler) handleAdminUpdateActivity(w http.ResponseWriter, r *http.Request) {
	activity, ok := h.activityFromRequest(w, r)
	if !ok {
		return
	}

	a := activityFromForm(r)
	a.ID = activity.ID
	a.CourseID = activity.CourseID
	if a.Name == "" || a.MaxAttempts < 1 || a.MaxInteractions < 1 {
		http.Error(w, "invalid activity configuration", http.StatusBadRequest)
		return
	}

	if err := h.store.UpdateActivity(a); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
