// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
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
	"github.com/lucianvotes/server/tally"
)

type ElectionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg}
}

// ListElections handles GET /elections
// Most recent first
func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, label, held_on, created_at
		FROM election
		ORDER BY held_on DESC
	`)
	if err != nil {
		slog.Error("failed to query elections", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	elections := []models.Election{}
	for rows.Next() {
		var e models.Election
		if err := rows.Scan(&e.ID, &e.Label, &e.HeldOn, &e.CreatedAt); err != nil {
			slog.Error("failed to scan election", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate elections", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, elections)
}

// CreateElection handles POST /elections (admin)
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Label == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "label is required")
		return
	}
	heldOn, err := time.Parse(models.DateLayout, req.HeldOn)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "held_on must be YYYY-MM-DD")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if !slugID.MatchString(req.ID) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id must be a lowercase slug")
		return
	}

	election := models.Election{
		ID:        req.ID,
		Label:     req.Label,
		HeldOn:    heldOn,
		CreatedAt: time.Now().UTC(),
	}

	_, err = h.db.Exec(`
		INSERT INTO election (id, label, held_on, created_at)
		VALUES ($1, $2, $3, $4)
	`, election.ID, election.Label, election.HeldOn, election.CreatedAt)

	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Election already exists")
		return
	}
	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", election.ID, "held_on", req.HeldOn)

	middleware.JSONResponse(w, http.StatusCreated, election)
}

// PutResults handles PUT /elections/{id}/results (admin)
// Replaces every result line for one constituency atomically
func (h *ElectionHandler) PutResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")

	var req models.PutResultsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ConstituencyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "constituency_id is required")
		return
	}
	if req.RegisteredVoters < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "registered_voters cannot be negative")
		return
	}

	seen := make(map[string]bool)
	total := 0
	for i := range req.Results {
		line := &req.Results[i]
		line.CandidateName = strings.TrimSpace(line.CandidateName)
		if line.CandidateName == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "candidate_name is required")
			return
		}
		if seen[line.CandidateName] {
			middleware.ErrorResponse(w, http.StatusBadRequest, "duplicate candidate "+line.CandidateName)
			return
		}
		seen[line.CandidateName] = true
		if line.Votes < 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "votes cannot be negative")
			return
		}
		total += line.Votes
	}
	if req.RegisteredVoters > 0 && total > req.RegisteredVoters {
		middleware.ErrorResponse(w, http.StatusBadRequest, "votes exceed registered voters")
		return
	}

	err := replaceResults(h.db, electionID, req)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}
	if db.IsForeignKeyViolation(err) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown constituency")
		return
	}
	if err != nil {
		slog.Error("failed to store results", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store results")
		return
	}

	slog.Info("results stored", "election_id", electionID,
		"constituency_id", req.ConstituencyID, "candidates", len(req.Results), "votes", total)

	w.WriteHeader(http.StatusNoContent)
}

func replaceResults(conn *sql.DB, electionID string, req models.PutResultsRequest) error {
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM election WHERE id = $1)`, electionID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return sql.ErrNoRows
	}

	if _, err := tx.Exec(`
		DELETE FROM election_result WHERE election_id = $1 AND constituency_id = $2
	`, electionID, req.ConstituencyID); err != nil {
		return err
	}

	for _, line := range req.Results {
		var partyID *string
		if line.PartyID != "" {
			p := line.PartyID
			partyID = &p
		}
		if _, err := tx.Exec(`
			INSERT INTO election_result (election_id, constituency_id, candidate_name, party_id, votes)
			VALUES ($1, $2, $3, $4, $5)
		`, electionID, req.ConstituencyID, line.CandidateName, partyID, line.Votes); err != nil {
			return err
		}
	}

	if req.RegisteredVoters > 0 {
		_, err = tx.Exec(`
			INSERT INTO electorate (election_id, constituency_id, registered_voters)
			VALUES ($1, $2, $3)
			ON CONFLICT (election_id, constituency_id) DO UPDATE SET
				registered_voters = excluded.registered_voters
		`, electionID, req.ConstituencyID, req.RegisteredVoters)
	} else {
		_, err = tx.Exec(`
			DELETE FROM electorate WHERE election_id = $1 AND constituency_id = $2
		`, electionID, req.ConstituencyID)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

// GetResults handles GET /elections/{id}/results
func (h *ElectionHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	election, summary, ok := h.loadElectionSummary(w, r.PathValue("id"))
	if !ok {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionResults{
		Election: election,
		Summary:  summary,
	})
}

// GetSwing handles GET /elections/{id}/swing?against={id}
func (h *ElectionHandler) GetSwing(w http.ResponseWriter, r *http.Request) {
	againstID := r.URL.Query().Get("against")
	if againstID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "against query parameter is required")
		return
	}

	election, current, ok := h.loadElectionSummary(w, r.PathValue("id"))
	if !ok {
		return
	}
	against, previous, ok := h.loadElectionSummary(w, againstID)
	if !ok {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SwingResponse{
		Election: election,
		Against:  against,
		Swing:    tally.Swing(current, previous),
	})
}

// loadElectionSummary writes the error response itself and reports ok=false
// when the election cannot be loaded
func (h *ElectionHandler) loadElectionSummary(w http.ResponseWriter, id string) (models.Election, tally.Summary, bool) {
	var e models.Election
	err := h.db.QueryRow(`
		SELECT id, label, held_on, created_at FROM election WHERE id = $1
	`, id).Scan(&e.ID, &e.Label, &e.HeldOn, &e.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return e, tally.Summary{}, false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err, "election_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return e, tally.Summary{}, false
	}

	summary, err := loadSummary(h.db, id)
	if err != nil {
		slog.Error("failed to load results", "error", err, "election_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return e, tally.Summary{}, false
	}

	return e, summary, true
}

// loadSummary reads result rows and electorate sizes and aggregates them
func loadSummary(conn *sql.DB, electionID string) (tally.Summary, error) {
	rows, err := conn.Query(`
		SELECT constituency_id, candidate_name, party_id, votes
		FROM election_result
		WHERE election_id = $1
	`, electionID)
	if err != nil {
		return tally.Summary{}, err
	}

	var results []tally.ResultRow
	for rows.Next() {
		var row tally.ResultRow
		var partyID sql.NullString
		if err := rows.Scan(&row.ConstituencyID, &row.CandidateName, &partyID, &row.Votes); err != nil {
			rows.Close()
			return tally.Summary{}, err
		}
		row.PartyID = partyID.String
		results = append(results, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return tally.Summary{}, err
	}

	erows, err := conn.Query(`
		SELECT constituency_id, registered_voters
		FROM electorate
		WHERE election_id = $1
	`, electionID)
	if err != nil {
		return tally.Summary{}, err
	}
	defer erows.Close()

	electorate := make(map[string]int)
	for erows.Next() {
		var id string
		var n int
		if err := erows.Scan(&id, &n); err != nil {
			return tally.Summary{}, err
		}
		electorate[id] = n
	}
	if err := erows.Err(); err != nil {
		return tally.Summary{}, err
	}

	return tally.Summarize(results, electorate), nil
}
