package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"terratiles/internal/service"
)

// UserHandler serves player identity endpoints
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateChildRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.CreateChild(req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameRequired) || errors.Is(err, service.ErrUsernameInvalid) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("create user failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/users/{userID}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.users.GetUser(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Printf("get user %s failed: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// Activity handles POST /api/users/{userID}/activity, the client's
// periodic keep-alive ping.
func (h *UserHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if err := h.users.Ping(userID); err != nil {
		log.Printf("activity ping for %s failed: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to record activity")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RecordStats handles POST /api/users/{userID}/stats
func (h *UserHandler) RecordStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req service.SessionStatsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := h.users.RecordSession(userID, req)
	if err != nil {
		if errors.Is(err, service.ErrStatsInvalid) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("record stats for %s failed: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "failed to record session")
		return
	}
	respondJSON(w, http.StatusCreated, session)
}
