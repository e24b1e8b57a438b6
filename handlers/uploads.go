// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
	"github.com/lucianvotes/server/storage"
)

// MaxUploadSize bounds a single image upload
const MaxUploadSize = 10 << 20

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type UploadHandler struct {
	cfg   cliparse.Config
	store storage.ObjectStore
}

func NewUploadHandler(cfg cliparse.Config, store storage.ObjectStore) *UploadHandler {
	return &UploadHandler{cfg: cfg, store: store}
}

// Upload handles POST /uploads (admin)
// Expects a multipart form with a single image in the "file" field
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxUploadSize {
		middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge,
			"file exceeds "+humanize.Bytes(MaxUploadSize))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		slog.Error("failed to read upload", "error", err)
		middleware.ErrorResponse(w, http.StatusBadRequest, "Failed to read file")
		return
	}
	if len(data) > MaxUploadSize {
		middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge,
			"file exceeds "+humanize.Bytes(MaxUploadSize))
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnsupportedMediaType, "Only PNG, JPEG, GIF and WebP images are accepted")
		return
	}

	key := storage.NewKey("images", ext)
	url, err := h.store.Put(r.Context(), key, contentType, data)
	if err != nil {
		slog.Error("failed to store upload", "error", err, "filename", header.Filename)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.UploadResponse{Key: key, URL: url})
}

// DeleteUpload handles DELETE /uploads/{key...} (admin)
func (h *UploadHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	err := h.store.Delete(r.Context(), key)
	if errors.Is(err, storage.ErrInvalidKey) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid key")
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Upload not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete upload", "error", err, "key", key)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
