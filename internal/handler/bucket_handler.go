package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/domain"
	"vaultdrive/internal/service"
)

type BucketHandler struct {
	bucketService  *service.BucketService
	contentService *service.ContentService
}

func NewBucketHandler(bucketService *service.BucketService, contentService *service.ContentService) *BucketHandler {
	return &BucketHandler{
		bucketService:  bucketService,
		contentService: contentService,
	}
}

type createBucketRequest struct {
	Name              string `json:"name"`
	ParentID          *int64 `json:"parent_id,omitempty"`
	RequiresApproval  bool   `json:"requires_approval"`
	OwnerAutoApproves bool   `json:"owner_auto_approves"`
	DefaultApproverID *int64 `json:"default_approver_id,omitempty"`
}

func (h *BucketHandler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createBucketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bucket, err := h.bucketService.CreateBucket(
		r.Context(),
		userID,
		req.Name,
		req.ParentID,
		req.RequiresApproval,
		req.OwnerAutoApproves,
		req.DefaultApproverID,
	)
	if err != nil {
		log.Printf("[CreateBucket] Failed to create bucket %q: %v", req.Name, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bucket)
}

// ListContents отдаёт корневой вид без id и содержимое бакета с id.
func (h *BucketHandler) ListContents(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var bucketID *int64
	if idStr := chi.URLParam(r, "id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid bucket ID", http.StatusBadRequest)
			return
		}
		bucketID = &id
	}

	content, err := h.contentService.ListContents(r.Context(), userID, bucketID)
	if err != nil {
		log.Printf("[ListContents] Error listing contents: %v", err)
		writeError(w, err)
		return
	}

	response := struct {
		CurrentLocation domain.Location      `json:"current_location"`
		Folders         []domain.FolderEntry `json:"folders"`
		Files           []domain.FileEntry   `json:"files"`
	}{
		CurrentLocation: content.CurrentLocation,
		Folders:         content.Folders,
		Files:           content.Files,
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *BucketHandler) GetBucket(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bucketID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid bucket ID", http.StatusBadRequest)
		return
	}

	bucket, err := h.bucketService.GetBucket(r.Context(), userID, bucketID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bucket)
}
