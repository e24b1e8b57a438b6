// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/db"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type PartyHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewPartyHandler(db *sql.DB, cfg cliparse.Config) *PartyHandler {
	return &PartyHandler{db: db, cfg: cfg}
}

// ListParties handles GET /parties
func (h *PartyHandler) ListParties(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, name, color, leader, logo_url, created_at
		FROM party
		ORDER BY name
	`)
	if err != nil {
		slog.Error("failed to query parties", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	parties := []models.Party{}
	for rows.Next() {
		var p models.Party
		if err := rows.Scan(&p.ID, &p.Name, &p.Color, &p.Leader, &p.LogoURL, &p.CreatedAt); err != nil {
			slog.Error("failed to scan party", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate parties", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, parties)
}

// GetParty handles GET /parties/{id}
func (h *PartyHandler) GetParty(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var p models.Party
	err := h.db.QueryRow(`
		SELECT id, name, color, leader, logo_url, created_at
		FROM party
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Color, &p.Leader, &p.LogoURL, &p.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Party not found")
		return
	}
	if err != nil {
		slog.Error("failed to query party", "error", err, "party_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, p)
}

// CreateParty handles POST /parties (admin)
func (h *PartyHandler) CreateParty(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePartyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !slugID.MatchString(req.ID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id must be a lowercase slug")
		return
	}
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Color != "" && !hexColor.MatchString(req.Color) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "color must look like #rrggbb")
		return
	}

	now := time.Now().UTC()
	_, err := h.db.Exec(`
		INSERT INTO party (id, name, color, leader, logo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, req.Name, req.Color, req.Leader, req.LogoURL, now)

	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Party already exists")
		return
	}
	if err != nil {
		slog.Error("failed to insert party", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create party")
		return
	}

	slog.Info("party created", "party_id", req.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.Party{
		ID:        req.ID,
		Name:      req.Name,
		Color:     req.Color,
		Leader:    req.Leader,
		LogoURL:   req.LogoURL,
		CreatedAt: now,
	})
}

// DeleteParty handles DELETE /parties/{id} (admin)
// Candidates of the party become independents
func (h *PartyHandler) DeleteParty(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.db.Exec(`DELETE FROM party WHERE id = $1`, id)
	if err != nil {
		slog.Error("failed to delete party", "error", err, "party_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete party")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Party not found")
		return
	}

	slog.Info("party deleted", "party_id", id)
	w.WriteHeader(http.StatusNoContent)
}
