// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/db"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
)

type CandidateHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewCandidateHandler(db *sql.DB, cfg cliparse.Config) *CandidateHandler {
	return &CandidateHandler{db: db, cfg: cfg}
}

// ListCandidates handles GET /candidates?constituency=&party=
func (h *CandidateHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	query := `
		SELECT id, name, party_id, constituency_id, bio, photo_url, created_at
		FROM candidate
		WHERE 1 = 1`
	var args []interface{}

	if c := r.URL.Query().Get("constituency"); c != "" {
		args = append(args, c)
		query += fmt.Sprintf(` AND constituency_id = $%d`, len(args))
	}
	if p := r.URL.Query().Get("party"); p != "" {
		args = append(args, p)
		query += fmt.Sprintf(` AND party_id = $%d`, len(args))
	}
	query += ` ORDER BY constituency_id, name`

	rows, err := h.db.Query(query, args...)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.PartyID, &c.ConstituencyID, &c.Bio, &c.PhotoURL, &c.CreatedAt); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// CreateCandidate handles POST /candidates (admin)
func (h *CandidateHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ConstituencyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "constituency_id is required")
		return
	}

	var partyID *string
	if req.PartyID != "" {
		partyID = &req.PartyID
	}

	candidate := models.Candidate{
		ID:             uuid.NewString(),
		Name:           req.Name,
		PartyID:        partyID,
		ConstituencyID: req.ConstituencyID,
		Bio:            req.Bio,
		PhotoURL:       req.PhotoURL,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := h.db.Exec(`
		INSERT INTO candidate (id, name, party_id, constituency_id, bio, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, candidate.ID, candidate.Name, candidate.PartyID, candidate.ConstituencyID,
		candidate.Bio, candidate.PhotoURL, candidate.CreatedAt)

	if db.IsForeignKeyViolation(err) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown party or constituency")
		return
	}
	if err != nil {
		slog.Error("failed to insert candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create candidate")
		return
	}

	slog.Info("candidate created", "candidate_id", candidate.ID, "constituency_id", candidate.ConstituencyID)

	middleware.JSONResponse(w, http.StatusCreated, candidate)
}

// DeleteCandidate handles DELETE /candidates/{id} (admin)
func (h *CandidateHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.db.Exec(`DELETE FROM candidate WHERE id = $1`, id)
	if err != nil {
		slog.Error("failed to delete candidate", "error", err, "candidate_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete candidate")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
