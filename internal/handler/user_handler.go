package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/service"
)

const tokenTTL = 24 * time.Hour

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register создаёт пользователя и сразу выдаёт токен.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.Create(r.Context(), req.Username, req.Email)
	if err != nil {
		log.Printf("[Register] Failed to create user %q: %v", req.Email, err)
		writeError(w, err)
		return
	}

	token, err := auth.GenerateToken(user.ID, tokenTTL)
	if err != nil {
		log.Printf("[Register] Failed to generate token: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Token    string `json:"token"`
	}{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	}

	writeJSON(w, http.StatusCreated, response)
}

// Me возвращает профиль аутентифицированного пользователя.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
