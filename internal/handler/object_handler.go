package handler

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vaultdrive/internal/auth"
	"vaultdrive/internal/service"
)

// Предел тела загрузки. Большие файлы идут отдельным multipart-каналом,
// которого у этого сервиса пока нет.
const maxUploadSize = 512 << 20

type ObjectHandler struct {
	versionService *service.VersionService
}

func NewObjectHandler(versionService *service.VersionService) *ObjectHandler {
	return &ObjectHandler{versionService: versionService}
}

// Upload принимает содержимое объекта в теле запроса и создаёт новую версию.
func (h *ObjectHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	key := chi.URLParam(r, "key")
	if key == "" {
		http.Error(w, "Object key is required", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	version, err := h.versionService.Upload(r.Context(), userID, bucketID, key, data)
	if err != nil {
		log.Printf("[Upload] Failed to upload %q to bucket %d: %v", key, bucketID, err)
		writeError(w, err)
		return
	}

	response := struct {
		VersionID string `json:"version_id"`
		Status    string `json:"status"`
		IsLatest  bool   `json:"is_latest"`
		SizeBytes int64  `json:"size_bytes"`
		Etag      string `json:"etag"`
	}{
		VersionID: version.ID.String(),
		Status:    string(version.Status),
		IsLatest:  version.IsLatest,
		SizeBytes: version.SizeBytes,
		Etag:      version.ContentFingerprint,
	}

	writeJSON(w, http.StatusCreated, response)
}

// Download отдаёт содержимое утверждённой версии. Без параметра version
// выдаётся текущая latest-версия.
func (h *ObjectHandler) Download(w http.ResponseWriter, r *http.Request) {
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

	var versionID *uuid.UUID
	if versionStr := r.URL.Query().Get("version"); versionStr != "" {
		parsed, err := uuid.Parse(versionStr)
		if err != nil {
			http.Error(w, "Invalid version ID", http.StatusBadRequest)
			return
		}
		versionID = &parsed
	}

	version, obj, err := h.versionService.GetContent(r.Context(), userID, itemID, versionID)
	if err != nil {
		log.Printf("[Download] Failed to get content of item %d: %v", itemID, err)
		writeError(w, err)
		return
	}
	defer obj.Close()

	if ct := obj.ContentType(); ct != "" {
		w.Header().Set("Content-Type", ct)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength(), 10))
	w.Header().Set("ETag", version.ContentFingerprint)

	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("[Download] Error streaming content: %v", err)
	}
}
