// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the LucianVotes API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, store)

# Endpoints

Health:

	GET /health

Reference data (public reads, admin writes):

	GET    /constituencies, /constituencies/{id}
	POST   /constituencies
	PUT    /constituencies/{id}
	DELETE /constituencies/{id}
	GET    /parties, /parties/{id}
	POST   /parties
	DELETE /parties/{id}
	GET    /candidates?constituency=&party=
	POST   /candidates
	DELETE /candidates/{id}

Elections:

	GET /elections
	POST /elections                  - admin
	PUT  /elections/{id}/results     - admin, one constituency at a time
	GET  /elections/{id}/results
	GET  /elections/{id}/swing?against={id}

Prediction maps (public):

	GET  /maps/decode?map=
	POST /maps/encode
	GET  /maps/current
	GET  /maps/consensus
	POST /maps
	GET  /maps/{slug}

Content and audience:

	GET  /news, /news/{id}
	POST /news, DELETE /news/{id}     - admin
	GET  /ads?placement=
	POST /ads/{id}/click
	POST /ads, DELETE /ads/{id}       - admin
	POST /visits
	GET  /analytics/summary?days=     - admin
	POST /mailing-list
	GET  /mailing-list                - admin

Files:

	GET    /uploads/...
	POST   /uploads                   - admin, multipart "file"
	DELETE /uploads/{key...}          - admin

Admin routes are wrapped with middleware.RequireAdmin and every route
except /health and the file server is wrapped with middleware.WithLogging.
*/
package router
