// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
)

type AdHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAdHandler(db *sql.DB, cfg cliparse.Config) *AdHandler {
	return &AdHandler{db: db, cfg: cfg}
}

// ListAds handles GET /ads?placement=
// Returns active ads inside their run window and counts one impression each
func (h *AdHandler) ListAds(w http.ResponseWriter, r *http.Request) {
	placement := r.URL.Query().Get("placement")
	if placement != "" && !models.ValidPlacement(placement) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown placement")
		return
	}

	ads, err := activeAds(h.db, placement, time.Now().UTC())
	if err != nil {
		slog.Error("failed to query ads", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := countImpressions(h.db, ads); err != nil {
		// The ads are still served; only the counters are behind
		slog.Warn("failed to count ad impressions", "error", err, "ads", len(ads))
	} else {
		for i := range ads {
			ads[i].Impressions++
		}
	}

	middleware.JSONResponse(w, http.StatusOK, ads)
}

// activeAds filters the run window in Go so the comparison does not depend
// on how the driver stores timestamps
func activeAds(conn *sql.DB, placement string, now time.Time) ([]models.Ad, error) {
	query := `
		SELECT id, title, image_url, link_url, placement, active, starts_at, ends_at,
		       impressions, clicks, created_at
		FROM ad
		WHERE active = $1`
	args := []interface{}{true}
	if placement != "" {
		args = append(args, placement)
		query += fmt.Sprintf(` AND placement = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ads := []models.Ad{}
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		if ad.StartsAt != nil && now.Before(*ad.StartsAt) {
			continue
		}
		if ad.EndsAt != nil && !now.Before(*ad.EndsAt) {
			continue
		}
		ads = append(ads, ad)
	}
	return ads, rows.Err()
}

func countImpressions(conn *sql.DB, ads []models.Ad) error {
	if len(ads) == 0 {
		return nil
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ad := range ads {
		if _, err := tx.Exec(`UPDATE ad SET impressions = impressions + 1 WHERE id = $1`, ad.ID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAd(row rowScanner) (models.Ad, error) {
	var ad models.Ad
	var startsAt, endsAt sql.NullTime
	err := row.Scan(&ad.ID, &ad.Title, &ad.ImageURL, &ad.LinkURL, &ad.Placement, &ad.Active,
		&startsAt, &endsAt, &ad.Impressions, &ad.Clicks, &ad.CreatedAt)
	if err != nil {
		return ad, err
	}
	if startsAt.Valid {
		t := startsAt.Time.UTC()
		ad.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time.UTC()
		ad.EndsAt = &t
	}
	return ad, nil
}

// ClickAd handles POST /ads/{id}/click
func (h *AdHandler) ClickAd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.db.Exec(`
		UPDATE ad SET clicks = clicks + 1 WHERE id = $1 AND active = $2
	`, id, true)
	if err != nil {
		slog.Error("failed to count ad click", "error", err, "ad_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ad not found")
		return
	}

	var link string
	if err := h.db.QueryRow(`SELECT link_url FROM ad WHERE id = $1`, id).Scan(&link); err != nil {
		slog.Error("failed to query ad link", "error", err, "ad_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.AdClickResponse{LinkURL: link})
}

// CreateAd handles POST /ads (admin)
func (h *AdHandler) CreateAd(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAdRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.ImageURL == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title and image_url are required")
		return
	}
	if u, err := url.Parse(req.LinkURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "link_url must be an http(s) URL")
		return
	}
	if !models.ValidPlacement(req.Placement) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "placement must be banner, sidebar or map")
		return
	}
	if req.StartsAt != nil && req.EndsAt != nil && !req.EndsAt.After(*req.StartsAt) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "ends_at must be after starts_at")
		return
	}

	ad := models.Ad{
		ID:        uuid.NewString(),
		Title:     req.Title,
		ImageURL:  req.ImageURL,
		LinkURL:   req.LinkURL,
		Placement: req.Placement,
		Active:    true,
		StartsAt:  utcPtr(req.StartsAt),
		EndsAt:    utcPtr(req.EndsAt),
		CreatedAt: time.Now().UTC(),
	}

	_, err := h.db.Exec(`
		INSERT INTO ad (id, title, image_url, link_url, placement, active, starts_at, ends_at,
		                impressions, clicks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9)
	`, ad.ID, ad.Title, ad.ImageURL, ad.LinkURL, ad.Placement, ad.Active,
		nullTime(ad.StartsAt), nullTime(ad.EndsAt), ad.CreatedAt)

	if err != nil {
		slog.Error("failed to insert ad", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create ad")
		return
	}

	slog.Info("ad created", "ad_id", ad.ID, "placement", ad.Placement)

	middleware.JSONResponse(w, http.StatusCreated, ad)
}

// DeleteAd handles DELETE /ads/{id} (admin)
func (h *AdHandler) DeleteAd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.db.Exec(`DELETE FROM ad WHERE id = $1`, id)
	if err != nil {
		slog.Error("failed to delete ad", "error", err, "ad_id", id)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete ad")
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Ad not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
