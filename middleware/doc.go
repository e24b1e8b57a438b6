// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

	mux.HandleFunc("GET /news", middleware.WithLogging(handler))

Logs method, path, status, remote address and duration_ms.

# Admin Guard

	mux.HandleFunc("POST /news", middleware.RequireAdmin(cfg.AdminKeySalt, handler))

Rejects requests without a valid X-Admin-Key header with 401.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

ParseJSONBody caps request bodies at MaxJSONBody.

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Honours X-Forwarded-For and X-Real-IP. Used for visitor IP hashing.
*/
package middleware
