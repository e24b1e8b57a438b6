// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
	"github.com/lucianvotes/server/storage"
)

const (
	defaultNewsLimit = 20
	maxNewsLimit     = 100
)

type NewsHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	store storage.ObjectStore
}

func NewNewsHandler(db *sql.DB, cfg cliparse.Config, store storage.ObjectStore) *NewsHandler {
	return &NewsHandler{db: db, cfg: cfg, store: store}
}

// ListNews handles GET /news?limit=&offset=
// Newest first
func (h *NewsHandler) ListNews(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultNewsLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	if limit < 1 || limit > maxNewsLimit {
		middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	rows, err := h.db.Query(`
		SELECT id, title, body, author, image_url, published_at
		FROM news_post
		ORDER BY published_at DESC, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		slog.Error("failed to query news", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	posts := []models.NewsPost{}
	for rows.Next() {
		var p models.NewsPost
		if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.Author, &p.ImageURL, &p.PublishedAt); err != nil {
			slog.Error("failed to scan news post", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate news", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, posts)
}

// GetNews handles GET /news/{id}
func (h *NewsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var p models.NewsPost
	err := h.db.QueryRow(`
		SELECT id, title, body, author, image_url, published_at
		FROM news_post
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Title, &p.Body, &p.Author, &p.ImageURL, &p.PublishedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "News post not found")
		return
	}
	if err != nil {
		slog.Error("failed to query news post", "error", err, "news_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, p)
}

// CreateNews handles POST /news (admin)
func (h *NewsHandler) CreateNews(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNewsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Body) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title and body are required")
		return
	}

	post := models.NewsPost{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Body:        req.Body,
		Author:      req.Author,
		ImageURL:    req.ImageURL,
		PublishedAt: time.Now().UTC(),
	}

	_, err := h.db.Exec(`
		INSERT INTO news_post (id, title, body, author, image_url, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, post.ID, post.Title, post.Body, post.Author, post.ImageURL, post.PublishedAt)

	if err != nil {
		slog.Error("failed to insert news post", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create news post")
		return
	}

	slog.Info("news post published", "news_id", post.ID, "title", post.Title)

	middleware.JSONResponse(w, http.StatusCreated, post)
}

// DeleteNews handles DELETE /news/{id} (admin)
// Also removes the post's image when it lives in our object store
func (h *NewsHandler) DeleteNews(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var imageURL string
	err := h.db.QueryRow(`SELECT image_url FROM news_post WHERE id = $1`, id).Scan(&imageURL)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "News post not found")
		return
	}
	if err != nil {
		slog.Error("failed to query news post", "error", err, "news_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if _, err := h.db.Exec(`DELETE FROM news_post WHERE id = $1`, id); err != nil {
		slog.Error("failed to delete news post", "error", err, "news_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete news post")
		return
	}

	if key, ok := h.store.KeyFromURL(imageURL); ok {
		if err := h.store.Delete(r.Context(), key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("failed to delete news image", "error", err, "key", key)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// queryInt reads a non-negative integer query parameter, writing a 400
// and reporting ok=false when it is malformed
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
