// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucianvotes/server/auth"
	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/models"
	"github.com/lucianvotes/server/prediction"
	"github.com/lucianvotes/server/storage"
	"github.com/lucianvotes/server/tally"
)

// SharePath is the frontend page that reads the map query parameter
const SharePath = "/make-your-own-map"

var errBadSnapshot = errors.New("snapshot_png must be a base64 PNG image")

type MapHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	store storage.ObjectStore
}

func NewMapHandler(db *sql.DB, cfg cliparse.Config, store storage.ObjectStore) *MapHandler {
	return &MapHandler{db: db, cfg: cfg, store: store}
}

// shareURL builds the link that restores an encoded map
func (h *MapHandler) shareURL(encoded string) string {
	return h.cfg.PublicBaseURL + SharePath + "?map=" + url.QueryEscape(encoded)
}

// DecodeMap handles GET /maps/decode?map=
// Never fails on bad input: the page starts from a blank map instead
func (h *MapHandler) DecodeMap(w http.ResponseWriter, r *http.Request) {
	constituencies, err := listConstituencies(h.db)
	if err != nil {
		slog.Error("failed to list constituencies", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	ids := make([]string, len(constituencies))
	for i, c := range constituencies {
		ids[i] = c.ID
	}

	restored := false
	assignments := prediction.Blank(ids)
	if encoded := r.URL.Query().Get("map"); encoded != "" {
		decoded, err := prediction.Decode(encoded, ids)
		if err != nil {
			slog.Warn("shared map not restored", "error", err, "constituencies", len(ids))
		} else {
			restored = true
		}
		assignments = decoded
	}

	leanings := make(map[string]prediction.Leaning, len(assignments))
	for _, a := range assignments {
		leanings[a.ConstituencyID] = a.Leaning
	}
	for i := range constituencies {
		constituencies[i].PoliticalLeaning = leanings[constituencies[i].ID]
	}

	middleware.JSONResponse(w, http.StatusOK, models.DecodeMapResponse{
		Restored:       restored,
		Constituencies: constituencies,
		Seats:          prediction.Seats(assignments),
	})
}

// EncodeMap handles POST /maps/encode
// Constituencies missing from the request are unselected; unknown ones are ignored
func (h *MapHandler) EncodeMap(w http.ResponseWriter, r *http.Request) {
	var req models.EncodeMapRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	assignments, err := h.fill(req.Leanings)
	if err != nil {
		slog.Error("failed to load constituencies", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	encoded := prediction.Encode(assignments)
	middleware.JSONResponse(w, http.StatusOK, models.EncodeMapResponse{
		Map:      encoded,
		ShareURL: h.shareURL(encoded),
		Seats:    prediction.Seats(assignments),
	})
}

// GetCurrentMap handles GET /maps/current
// Encodes the site's own forecast stored on each constituency
func (h *MapHandler) GetCurrentMap(w http.ResponseWriter, r *http.Request) {
	constituencies, err := listConstituencies(h.db)
	if err != nil {
		slog.Error("failed to list constituencies", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	assignments := make([]prediction.Assignment, len(constituencies))
	for i, c := range constituencies {
		assignments[i] = prediction.Assignment{ConstituencyID: c.ID, Leaning: c.PoliticalLeaning}
	}

	encoded := prediction.Encode(assignments)
	middleware.JSONResponse(w, http.StatusOK, models.EncodeMapResponse{
		Map:      encoded,
		ShareURL: h.shareURL(encoded),
		Seats:    prediction.Seats(assignments),
	})
}

// SaveMap handles POST /maps ("Save & Share")
// Uploads the rendered snapshot, then records the prediction
func (h *MapHandler) SaveMap(w http.ResponseWriter, r *http.Request) {
	var req models.SaveMapRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var snapshot []byte
	if req.SnapshotPNG != "" {
		var err error
		snapshot, err = decodeSnapshot(req.SnapshotPNG)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	assignments, err := h.fill(req.Leanings)
	if err != nil {
		slog.Error("failed to load constituencies", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save map")
		return
	}

	mapID := uuid.NewString()
	shareSlug := auth.GenerateShareSlug(mapID, h.cfg.MapSlugSalt)
	encoded := prediction.Encode(assignments)

	leaningsJSON, err := json.Marshal(assignments)
	if err != nil {
		slog.Error("failed to marshal leanings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save map")
		return
	}

	var snapshotKey, snapshotURL string
	if snapshot != nil {
		snapshotKey = "maps/" + mapID + ".png"
		snapshotURL, err = h.store.Put(r.Context(), snapshotKey, "image/png", snapshot)
		if err != nil {
			slog.Error("failed to upload map snapshot", "error", err, "map_id", mapID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save map")
			return
		}
	}

	_, err = h.db.Exec(`
		INSERT INTO user_map (id, share_slug, leanings, encoded, snapshot_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, mapID, shareSlug, string(leaningsJSON), encoded, snapshotURL, time.Now().UTC())

	if err != nil {
		slog.Error("failed to insert user map", "error", err, "map_id", mapID)
		if snapshotKey != "" {
			if derr := h.store.Delete(r.Context(), snapshotKey); derr != nil {
				slog.Warn("failed to remove orphaned snapshot", "error", derr, "key", snapshotKey)
			}
		}
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save map")
		return
	}

	slog.Info("map saved", "map_id", mapID, "share_slug", shareSlug)

	middleware.JSONResponse(w, http.StatusCreated, models.SaveMapResponse{
		ID:          mapID,
		ShareSlug:   shareSlug,
		Map:         encoded,
		ShareURL:    h.shareURL(encoded),
		SnapshotURL: snapshotURL,
	})
}

// GetMap handles GET /maps/{slug}
func (h *MapHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")

	var m models.UserMap
	var leaningsJSON string
	err := h.db.QueryRow(`
		SELECT id, share_slug, leanings, encoded, snapshot_url, created_at
		FROM user_map
		WHERE share_slug = $1
	`, slug).Scan(&m.ID, &m.ShareSlug, &leaningsJSON, &m.Encoded, &m.SnapshotURL, &m.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Map not found")
		return
	}
	if err != nil {
		slog.Error("failed to query user map", "error", err, "share_slug", slug)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := json.Unmarshal([]byte(leaningsJSON), &m.Leanings); err != nil {
		slog.Error("failed to parse stored leanings", "error", err, "map_id", m.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to load map")
		return
	}
	m.Seats = prediction.Seats(m.Leanings)

	middleware.JSONResponse(w, http.StatusOK, m)
}

// GetConsensus handles GET /maps/consensus
// Combines every saved map, restricted to the current constituencies
func (h *MapHandler) GetConsensus(w http.ResponseWriter, r *http.Request) {
	ids, err := constituencyIDs(h.db)
	if err != nil {
		slog.Error("failed to load constituencies", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.Query(`SELECT id, leanings FROM user_map`)
	if err != nil {
		slog.Error("failed to query user maps", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	var maps [][]prediction.Assignment
	for rows.Next() {
		var id, leaningsJSON string
		if err := rows.Scan(&id, &leaningsJSON); err != nil {
			slog.Error("failed to scan user map", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		var stored []prediction.Assignment
		if err := json.Unmarshal([]byte(leaningsJSON), &stored); err != nil {
			slog.Warn("skipping unreadable user map", "error", err, "map_id", id)
			continue
		}
		maps = append(maps, prediction.Fill(ids, byConstituency(stored)))
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to iterate user maps", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"maps":           len(maps),
		"constituencies": tally.Consensus(ids, maps),
	})
}

// fill expands submitted leanings to the full current constituency set
func (h *MapHandler) fill(submitted []prediction.Assignment) ([]prediction.Assignment, error) {
	ids, err := constituencyIDs(h.db)
	if err != nil {
		return nil, err
	}
	return prediction.Fill(ids, byConstituency(submitted)), nil
}

func byConstituency(assignments []prediction.Assignment) map[string]prediction.Leaning {
	m := make(map[string]prediction.Leaning, len(assignments))
	for _, a := range assignments {
		m[a.ConstituencyID] = a.Leaning
	}
	return m
}

// decodeSnapshot accepts raw base64 or a data URL and checks for a PNG
func decodeSnapshot(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); strings.HasPrefix(s, "data:") && i >= 0 {
		if !strings.HasPrefix(s, "data:image/png;") {
			return nil, errBadSnapshot
		}
		s = s[i+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errBadSnapshot
	}
	if _, err := png.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, errBadSnapshot
	}
	return data, nil
}
