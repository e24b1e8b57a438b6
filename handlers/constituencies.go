// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"time"

	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/db"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
	"github.com/lucianvotes/server/prediction"
)

// Reference IDs (constituencies, parties, elections) are short slugs
var slugID = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

type ConstituencyHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewConstituencyHandler(db *sql.DB, cfg cliparse.Config) *ConstituencyHandler {
	return &ConstituencyHandler{db: db, cfg: cfg}
}

// ListConstituencies handles GET /constituencies
// Ordered byte-wise by ID, the same positions the map codec uses
func (h *ConstituencyHandler) ListConstituencies(w http.ResponseWriter, r *http.Request) {
	constituencies, err := listConstituencies(h.db)
	if err != nil {
		slog.Error("failed to list constituencies", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, constituencies)
}

// GetConstituency handles GET /constituencies/{id}
func (h *ConstituencyHandler) GetConstituency(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var c models.Constituency
	var leaning string
	err := h.db.QueryRow(`
		SELECT id, name, district, political_leaning, created_at
		FROM constituency
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.District, &leaning, &c.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Constituency not found")
		return
	}
	if err != nil {
		slog.Error("failed to query constituency", "error", err, "constituency_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	c.PoliticalLeaning = prediction.ParseLeaning(leaning)

	middleware.JSONResponse(w, http.StatusOK, c)
}

// CreateConstituency handles POST /constituencies (admin)
func (h *ConstituencyHandler) CreateConstituency(w http.ResponseWriter, r *http.Request) {
	var req models.CreateConstituencyRequest
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

	now := time.Now().UTC()
	_, err := h.db.Exec(`
		INSERT INTO constituency (id, name, district, political_leaning, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, req.ID, req.Name, req.District, prediction.Unselected, now)

	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Constituency already exists")
		return
	}
	if err != nil {
		slog.Error("failed to insert constituency", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create constituency")
		return
	}

	// Shared map links made before this point no longer decode
	slog.Warn("constituency added; existing shared maps invalidated", "constituency_id", req.ID)

	middleware.JSONResponse(w, http.StatusCreated, models.Constituency{
		ID:               req.ID,
		Name:             req.Name,
		District:         req.District,
		PoliticalLeaning: prediction.Unselected,
		CreatedAt:        now,
	})
}

// UpdateConstituency handles PUT /constituencies/{id} (admin)
func (h *ConstituencyHandler) UpdateConstituency(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req models.UpdateConstituencyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != nil && *req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if req.PoliticalLeaning != nil && !prediction.Leaning(*req.PoliticalLeaning).Valid() {
		middleware.ErrorResponse(w, http.StatusBadRequest, "political_leaning must be one of slp, uwp, ind, tossup, unselected")
		return
	}

	result, err := h.db.Exec(`
		UPDATE constituency SET
			name = COALESCE($1, name),
			district = COALESCE($2, district),
			political_leaning = COALESCE($3, political_leaning)
		WHERE id = $4
	`, req.Name, req.District, req.PoliticalLeaning, id)
	if err != nil {
		slog.Error("failed to update constituency", "error", err, "constituency_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update constituency")
		return
	}

	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Constituency not found")
		return
	}

	slog.Info("constituency updated", "constituency_id", id)
	h.GetConstituency(w, r)
}

// DeleteConstituency handles DELETE /constituencies/{id} (admin)
func (h *ConstituencyHandler) DeleteConstituency(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.db.Exec(`DELETE FROM constituency WHERE id = $1`, id)
	if err != nil {
		slog.Error("failed to delete constituency", "error", err, "constituency_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete constituency")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Constituency not found")
		return
	}

	slog.Warn("constituency removed; existing shared maps invalidated", "constituency_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// listConstituencies returns every constituency in canonical order.
// Sorting happens here since a postgres locale collation may not order
// hyphenated slugs byte-wise.
func listConstituencies(conn *sql.DB) ([]models.Constituency, error) {
	rows, err := conn.Query(`
		SELECT id, name, district, political_leaning, created_at
		FROM constituency
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	constituencies := []models.Constituency{}
	for rows.Next() {
		var c models.Constituency
		var leaning string
		if err := rows.Scan(&c.ID, &c.Name, &c.District, &leaning, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.PoliticalLeaning = prediction.ParseLeaning(leaning)
		constituencies = append(constituencies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(constituencies, func(i, j int) bool {
		return constituencies[i].ID < constituencies[j].ID
	})
	return constituencies, nil
}

// constituencyIDs returns the current constituency set for the map codec
func constituencyIDs(conn *sql.DB) ([]string, error) {
	rows, err := conn.Query(`SELECT id FROM constituency`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return prediction.CanonicalOrder(ids), nil
}
