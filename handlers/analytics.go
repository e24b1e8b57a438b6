// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/lucianvotes/server/auth"
	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
)

const (
	// VisitorCookie identifies a browser across visits
	VisitorCookie = "lv_visitor"

	visitorCookieMaxAge = 365 * 24 * 60 * 60
	maxPathLen          = 512
	maxUserAgentLen     = 512
	defaultSummaryDays  = 30
	maxSummaryDays      = 365
	topPathCount        = 10
)

type AnalyticsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAnalyticsHandler(db *sql.DB, cfg cliparse.Config) *AnalyticsHandler {
	return &AnalyticsHandler{db: db, cfg: cfg}
}

// RecordVisit handles POST /visits
// Only salted hashes of the visitor token and IP are stored
func (h *AnalyticsHandler) RecordVisit(w http.ResponseWriter, r *http.Request) {
	var req models.RecordVisitRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if !strings.HasPrefix(req.Path, "/") || len(req.Path) > maxPathLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "path must start with /")
		return
	}

	token := ""
	if c, err := r.Cookie(VisitorCookie); err == nil && auth.ValidateVisitorToken(c.Value) == nil {
		token = c.Value
	}
	if token == "" {
		var err error
		token, err = auth.GenerateVisitorToken()
		if err != nil {
			slog.Error("failed to generate visitor token", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record visit")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     VisitorCookie,
			Value:    token,
			Path:     "/",
			MaxAge:   visitorCookieMaxAge,
			HttpOnly: true,
			Secure:   strings.HasPrefix(h.cfg.PublicBaseURL, "https://"),
			SameSite: http.SameSiteLaxMode,
		})
	}

	userAgent := r.UserAgent()
	if len(userAgent) > maxUserAgentLen {
		userAgent = userAgent[:maxUserAgentLen]
	}
	referrer := req.Referrer
	if len(referrer) > maxPathLen {
		referrer = referrer[:maxPathLen]
	}

	_, err := h.db.Exec(`
		INSERT INTO page_visit (id, path, referrer, visitor_hash, ip_hash, user_agent, visited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.NewString(), req.Path, referrer,
		auth.HashIP(token, h.cfg.VisitorSalt),
		auth.HashIP(middleware.GetClientIP(r), h.cfg.VisitorSalt),
		userAgent, time.Now().UTC())

	if err != nil {
		slog.Error("failed to insert page visit", "error", err, "path", req.Path)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record visit")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSummary handles GET /analytics/summary?days= (admin)
// Days are UTC calendar days ending today
func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", defaultSummaryDays)
	if !ok {
		return
	}
	if days < 1 || days > maxSummaryDays {
		middleware.ErrorResponse(w, http.StatusBadRequest, "days must be between 1 and 365")
		return
	}

	now := time.Now().UTC()
	summary, err := summarizeVisits(h.db, now, days)
	if err != nil {
		slog.Error("failed to summarize visits", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, summary)
}

func summarizeVisits(conn *sql.DB, now time.Time, days int) (models.AnalyticsSummary, error) {
	today := now.Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	rows, err := conn.Query(`
		SELECT path, visitor_hash, visited_at
		FROM page_visit
		WHERE visited_at >= $1
	`, since)
	if err != nil {
		return models.AnalyticsSummary{}, err
	}
	defer rows.Close()

	summary := models.AnalyticsSummary{Days: days}
	visitors := make(map[string]bool)
	paths := make(map[string]int)
	daily := make(map[string]int)
	var last time.Time

	for rows.Next() {
		var path, visitor string
		var at time.Time
		if err := rows.Scan(&path, &visitor, &at); err != nil {
			return models.AnalyticsSummary{}, err
		}
		at = at.UTC()

		summary.TotalVisits++
		visitors[visitor] = true
		paths[path]++
		daily[at.Format(models.DateLayout)]++
		if at.After(last) {
			last = at
		}
	}
	if err := rows.Err(); err != nil {
		return models.AnalyticsSummary{}, err
	}

	summary.UniqueVisitors = len(visitors)

	summary.TopPaths = make([]models.PathCount, 0, len(paths))
	for p, n := range paths {
		summary.TopPaths = append(summary.TopPaths, models.PathCount{Path: p, Visits: n})
	}
	sort.Slice(summary.TopPaths, func(i, j int) bool {
		a, b := summary.TopPaths[i], summary.TopPaths[j]
		if a.Visits != b.Visits {
			return a.Visits > b.Visits
		}
		return a.Path < b.Path
	})
	if len(summary.TopPaths) > topPathCount {
		summary.TopPaths = summary.TopPaths[:topPathCount]
	}

	summary.Daily = make([]models.DailyCount, 0, days)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		day := d.Format(models.DateLayout)
		summary.Daily = append(summary.Daily, models.DailyCount{Day: day, Visits: daily[day]})
	}

	if !last.IsZero() {
		summary.LastVisitAt = &last
		summary.LastVisitAgo = humanize.RelTime(last, now, "ago", "from now")
	}

	return summary, nil
}
