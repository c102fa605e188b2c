package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/service"
)

type VersionHandler struct {
	versionService *service.VersionService
	contentService *service.ContentService
}

func NewVersionHandler(versionService *service.VersionService, contentService *service.ContentService) *VersionHandler {
	return &VersionHandler{
		versionService: versionService,
		contentService: contentService,
	}
}

type decisionRequest struct {
	Comments string `json:"comments"`
}

func (h *VersionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	versionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	var req decisionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	version, err := h.versionService.Approve(r.Context(), userID, versionID, req.Comments)
	if err != nil {
		log.Printf("[Approve] Failed to approve version %s: %v", versionID, err)
		writeError(w, err)
		return
	}

	response := struct {
		VersionID string `json:"version_id"`
		Status    string `json:"status"`
		IsLatest  bool   `json:"is_latest"`
	}{
		VersionID: version.ID.String(),
		Status:    string(version.Status),
		IsLatest:  version.IsLatest,
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *VersionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	versionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid version ID", http.StatusBadRequest)
		return
	}

	var req decisionRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	version, err := h.versionService.Reject(r.Context(), userID, versionID, req.Comments)
	if err != nil {
		log.Printf("[Reject] Failed to reject version %s: %v", versionID, err)
		writeError(w, err)
		return
	}

	response := struct {
		VersionID string `json:"version_id"`
		Status    string `json:"status"`
	}{
		VersionID: version.ID.String(),
		Status:    string(version.Status),
	}

	writeJSON(w, http.StatusOK, response)
}

// ListVersions отдаёт видимые запрашивающему версии item.
func (h *VersionHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid item ID", http.StatusBadRequest)
		return
	}

	versions, err := h.contentService.ListItemVersions(r.Context(), userID, itemID)
	if err != nil {
		log.Printf("[ListVersions] Failed to list versions of item %d: %v", itemID, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, versions)
}
