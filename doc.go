// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the LucianVotes API server.

LucianVotes covers St. Lucian general elections: constituency and party
reference data, official results with swing between elections, news, and
a "make your own map" page whose predictions are shared as a compact
string in the page URL.

# Starting the Server

The server reads CLI flags, the environment and an optional .env file:

	DATABASE_URL=lucianvotes.db ADMIN_KEY_SALT=... MAP_SLUG_SALT=... go run .

With PostgreSQL and the bundled seed data:

	go run . -t postgres -d "postgres://..." -seed seed/stlucia.yaml

Print the admin key for the configured salt:

	go run . -print-admin-key

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_KEY_SALT (-admin-salt): Secret for the admin key HMAC
  - MAP_SLUG_SALT (-slug-salt): Secret for saved map share slugs

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - STORAGE_DIR (-storage): Upload directory (default: uploads)
  - PUBLIC_BASE_URL (-base-url): Used in share links and upload URLs
  - SEED_FILE (-seed): YAML parties and constituencies

# Architecture

  - prediction: the prediction map codec shared with the frontend
  - tally: result aggregation, swing and consensus
  - handlers: HTTP request handlers, one per resource
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, admin guard, JSON helpers
  - models: Request/response types
  - auth: Keys, slugs, visitor tokens and IP hashing
  - db: Drivers, schema, seed loading
  - storage: Uploaded images and map snapshots
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
