package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

type PermissionHandler struct {
	permissionService *service.PermissionService
}

func NewPermissionHandler(permissionService *service.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

type permissionRequest struct {
	TargetType     string `json:"target_type"`
	TargetID       int64  `json:"target_id"`
	Email          string `json:"email"`
	PermissionType string `json:"permission_type,omitempty"`
}

func parseTarget(req permissionRequest) (domain.Target, bool) {
	t := domain.TargetType(req.TargetType)
	if t != domain.TargetBucket && t != domain.TargetItem {
		return domain.Target{}, false
	}
	if req.TargetID <= 0 {
		return domain.Target{}, false
	}
	return domain.Target{Type: t, ID: req.TargetID}, true
}

func (h *PermissionHandler) Assign(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	target, ok := parseTarget(req)
	if !ok {
		http.Error(w, "Invalid target", http.StatusBadRequest)
		return
	}

	permission, err := h.permissionService.AssignPermission(
		r.Context(),
		userID,
		target,
		req.Email,
		domain.PermissionType(req.PermissionType),
	)
	if err != nil {
		log.Printf("[Assign] Failed to grant %s on %s %d: %v", req.PermissionType, req.TargetType, req.TargetID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, permission)
}

func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req permissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	target, ok := parseTarget(req)
	if !ok {
		http.Error(w, "Invalid target", http.StatusBadRequest)
		return
	}

	if err := h.permissionService.RevokePermission(r.Context(), userID, target, req.Email); err != nil {
		log.Printf("[Revoke] Failed to revoke from %s on %s %d: %v", req.Email, req.TargetType, req.TargetID, err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
