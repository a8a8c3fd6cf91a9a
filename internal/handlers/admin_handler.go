package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"terratiles/internal/service"
)

// AdminHandler serves the reporting endpoints
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// DashboardMetrics handles GET /api/admin/dashboard/metrics
func (h *AdminHandler) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.admin.DashboardMetrics())
}

// ListUsers handles GET /api/admin/users with page, limit, sortBy and
// sortOrder query parameters. Unknown sort keys fall back to total score.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)
	sortBy := r.URL.Query().Get("sortBy")
	sortOrder := r.URL.Query().Get("sortOrder")

	listing, err := h.admin.ListUsers(page, limit, sortBy, sortOrder)
	if err != nil {
		log.Printf("list users failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

// UserDetail handles GET /api/admin/users/{userID}
func (h *AdminHandler) UserDetail(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	detail, err := h.admin.UserDetail(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("user detail for %s failed: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to get user detail")
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// ClassificationAnalytics handles GET /api/admin/classifications
func (h *AdminHandler) ClassificationAnalytics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.admin.ClassificationAnalytics())
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
