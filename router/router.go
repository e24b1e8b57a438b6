// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/handlers"
	"github.com/lucianvotes/server/middleware"
	"github.com/lucianvotes/server/storage"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, store *storage.LocalStore) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	constituencyHandler := handlers.NewConstituencyHandler(db, cfg)
	partyHandler := handlers.NewPartyHandler(db, cfg)
	candidateHandler := handlers.NewCandidateHandler(db, cfg)
	electionHandler := handlers.NewElectionHandler(db, cfg)
	mapHandler := handlers.NewMapHandler(db, cfg, store)
	newsHandler := handlers.NewNewsHandler(db, cfg, store)
	adHandler := handlers.NewAdHandler(db, cfg)
	analyticsHandler := handlers.NewAnalyticsHandler(db, cfg)
	mailingHandler := handlers.NewMailingListHandler(db, cfg)
	uploadHandler := handlers.NewUploadHandler(cfg, store)

	public := middleware.WithLogging
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminKeySalt, next))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Constituencies
	mux.HandleFunc("GET /constituencies", public(constituencyHandler.ListConstituencies))
	mux.HandleFunc("GET /constituencies/{id}", public(constituencyHandler.GetConstituency))
	mux.HandleFunc("POST /constituencies", admin(constituencyHandler.CreateConstituency))
	mux.HandleFunc("PUT /constituencies/{id}", admin(constituencyHandler.UpdateConstituency))
	mux.HandleFunc("DELETE /constituencies/{id}", admin(constituencyHandler.DeleteConstituency))

	// Parties and candidates
	mux.HandleFunc("GET /parties", public(partyHandler.ListParties))
	mux.HandleFunc("GET /parties/{id}", public(partyHandler.GetParty))
	mux.HandleFunc("POST /parties", admin(partyHandler.CreateParty))
	mux.HandleFunc("DELETE /parties/{id}", admin(partyHandler.DeleteParty))

	mux.HandleFunc("GET /candidates", public(candidateHandler.ListCandidates))
	mux.HandleFunc("POST /candidates", admin(candidateHandler.CreateCandidate))
	mux.HandleFunc("DELETE /candidates/{id}", admin(candidateHandler.DeleteCandidate))

	// Elections and results
	mux.HandleFunc("GET /elections", public(electionHandler.ListElections))
	mux.HandleFunc("POST /elections", admin(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}/results", public(electionHandler.GetResults))
	mux.HandleFunc("PUT /elections/{id}/results", admin(electionHandler.PutResults))
	mux.HandleFunc("GET /elections/{id}/swing", public(electionHandler.GetSwing))

	// Prediction maps
	mux.HandleFunc("GET /maps/decode", public(mapHandler.DecodeMap))
	mux.HandleFunc("POST /maps/encode", public(mapHandler.EncodeMap))
	mux.HandleFunc("GET /maps/current", public(mapHandler.GetCurrentMap))
	mux.HandleFunc("GET /maps/consensus", public(mapHandler.GetConsensus))
	mux.HandleFunc("POST /maps", public(mapHandler.SaveMap))
	mux.HandleFunc("GET /maps/{slug}", public(mapHandler.GetMap))

	// News
	mux.HandleFunc("GET /news", public(newsHandler.ListNews))
	mux.HandleFunc("GET /news/{id}", public(newsHandler.GetNews))
	mux.HandleFunc("POST /news", admin(newsHandler.CreateNews))
	mux.HandleFunc("DELETE /news/{id}", admin(newsHandler.DeleteNews))

	// Ads
	mux.HandleFunc("GET /ads", public(adHandler.ListAds))
	mux.HandleFunc("POST /ads/{id}/click", public(adHandler.ClickAd))
	mux.HandleFunc("POST /ads", admin(adHandler.CreateAd))
	mux.HandleFunc("DELETE /ads/{id}", admin(adHandler.DeleteAd))

	// Visitors and mailing list
	mux.HandleFunc("POST /visits", public(analyticsHandler.RecordVisit))
	mux.HandleFunc("GET /analytics/summary", admin(analyticsHandler.GetSummary))
	mux.HandleFunc("POST /mailing-list", public(mailingHandler.Subscribe))
	mux.HandleFunc("GET /mailing-list", admin(mailingHandler.ListSubscribers))

	// Uploaded images and map snapshots
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", store.Handler()))
	mux.HandleFunc("POST /uploads", admin(uploadHandler.Upload))
	mux.HandleFunc("DELETE /uploads/{key...}", admin(uploadHandler.DeleteUpload))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("LucianVotes API v1"))
	})

	return mux
}
