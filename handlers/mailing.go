// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/db"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
)

type MailingListHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewMailingListHandler(db *sql.DB, cfg cliparse.Config) *MailingListHandler {
	return &MailingListHandler{db: db, cfg: cfg}
}

// Subscribe handles POST /mailing-list
func (h *MailingListHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req models.SubscribeRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil || addr.Name != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "A valid email address is required")
		return
	}

	sub := models.Subscriber{
		Email:        strings.ToLower(addr.Address),
		Name:         strings.TrimSpace(req.Name),
		SubscribedAt: time.Now().UTC(),
	}

	_, err = h.db.Exec(`
		INSERT INTO mailing_list (email, name, subscribed_at)
		VALUES ($1, $2, $3)
	`, sub.Email, sub.Name, sub.SubscribedAt)

	if db.IsUniqueViolation(err) {
		middleware.ErrorResponse(w, http.StatusConflict, "Already subscribed")
		return
	}
	if err != nil {
		slog.Error("failed to insert subscriber", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}

	slog.Info("mailing list subscription")

	middleware.JSONResponse(w, http.StatusCreated, sub)
}

// ListSubscribers handles GET /mailing-list (admin)
func (h *MailingListHandler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT email, name, subscribed_at
		FROM mailing_list
		ORDER BY subscribed_at, email
	`)
	if err != nil {
		slog.Error("failed to query subscribers", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	subs := []models.Subscriber{}
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.Email, &s.Name, &s.SubscribedAt); err != nil {
			slog.Error("failed to scan subscriber", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate subscribers", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, subs)
}
