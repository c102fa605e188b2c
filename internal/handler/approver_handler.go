package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

type ApproverHandler struct {
	approverService *service.ApproverService
}

func NewApproverHandler(approverService *service.ApproverService) *ApproverHandler {
	return &ApproverHandler{approverService: approverService}
}

type createGroupRequest struct {
	Name         string  `json:"name"`
	TargetType   string  `json:"target_type"`
	TargetID     int64   `json:"target_id"`
	ApprovalType string  `json:"approval_type"`
	MinApprovals int     `json:"min_approvals"`
	MemberIDs    []int64 `json:"member_ids"`
}

func (h *ApproverHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	targetType := domain.TargetType(req.TargetType)
	if targetType != domain.TargetBucket && targetType != domain.TargetItem {
		http.Error(w, "Invalid target", http.StatusBadRequest)
		return
	}

	group, err := h.approverService.CreateGroup(
		r.Context(),
		userID,
		domain.Target{Type: targetType, ID: req.TargetID},
		req.Name,
		domain.ApprovalType(req.ApprovalType),
		req.MinApprovals,
		req.MemberIDs,
	)
	if err != nil {
		log.Printf("[CreateGroup] Failed to create group %q: %v", req.Name, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

// MyGroups возвращает группы, в которых состоит запрашивающий.
func (h *ApproverHandler) MyGroups(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	groups, err := h.approverService.GroupsForUser(r.Context(), userID)
	if err != nil {
		log.Printf("[MyGroups] Failed to list groups: %v", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, groups)
}
