// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the LucianVotes API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - ConstituencyHandler: Constituencies and their stored forecast leaning
  - PartyHandler, CandidateHandler: Parties and the people standing
  - ElectionHandler: Elections, result entry, summaries and swing
  - MapHandler: Prediction map encode/decode, Save & Share, consensus
  - NewsHandler, AdHandler: Editorial content and ad slots
  - AnalyticsHandler: Page visits and the admin summary
  - MailingListHandler: Newsletter sign-ups
  - UploadHandler: Image uploads to the object store

Handlers are created via constructor functions that accept *sql.DB and Config,
plus an object store where they write files:

	mapHandler := handlers.NewMapHandler(db, cfg, store)

# Prediction Maps

Visitors build a map in the browser and share it as a single query
parameter. The server agrees with the page on the encoding:

	POST /maps/encode          → EncodeMap (returns map and share_url)
	GET  /maps/decode?map=...  → DecodeMap (always 200; restored=false on bad input)
	POST /maps                 → SaveMap (stores the PNG snapshot, returns share_slug)
	GET  /maps/{slug}          → GetMap
	GET  /maps/consensus       → GetConsensus

# Admin Operations

Writes to constituencies, parties, candidates, elections, news, ads and
uploads require the X-Admin-Key header. The router applies the check;
handlers assume it has passed.

# Visitor Tracking

POST /visits sets an lv_visitor cookie on first contact. Only salted
hashes of the cookie value and client IP reach the database.
*/
package handlers
