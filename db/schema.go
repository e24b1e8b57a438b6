// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL is shared by PostgreSQL and SQLite.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Parties
CREATE TABLE IF NOT EXISTS party (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    leader TEXT NOT NULL DEFAULT '',
    logo_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

-- Constituencies
CREATE TABLE IF NOT EXISTS constituency (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    district TEXT NOT NULL DEFAULT '',
    political_leaning TEXT NOT NULL DEFAULT 'unselected'
        CHECK (political_leaning IN ('slp', 'uwp', 'ind', 'tossup', 'unselected')),
    created_at TIMESTAMP NOT NULL
);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    party_id TEXT REFERENCES party(id) ON DELETE SET NULL,
    constituency_id TEXT NOT NULL REFERENCES constituency(id) ON DELETE CASCADE,
    bio TEXT NOT NULL DEFAULT '',
    photo_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidate_constituency ON candidate(constituency_id);
CREATE INDEX IF NOT EXISTS idx_candidate_party ON candidate(party_id);

-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    label TEXT NOT NULL,
    held_on TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS election_result (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    constituency_id TEXT NOT NULL REFERENCES constituency(id) ON DELETE CASCADE,
    candidate_name TEXT NOT NULL,
    party_id TEXT,
    votes INTEGER NOT NULL CHECK (votes >= 0),
    PRIMARY KEY (election_id, constituency_id, candidate_name)
);

CREATE INDEX IF NOT EXISTS idx_election_result_election ON election_result(election_id);

CREATE TABLE IF NOT EXISTS electorate (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    constituency_id TEXT NOT NULL REFERENCES constituency(id) ON DELETE CASCADE,
    registered_voters INTEGER NOT NULL CHECK (registered_voters >= 0),
    PRIMARY KEY (election_id, constituency_id)
);

-- Saved prediction maps
CREATE TABLE IF NOT EXISTS user_map (
    id TEXT PRIMARY KEY,
    share_slug TEXT NOT NULL UNIQUE,
    leanings TEXT NOT NULL,
    encoded TEXT NOT NULL,
    snapshot_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_user_map_created ON user_map(created_at);

-- News
CREATE TABLE IF NOT EXISTS news_post (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_news_post_published ON news_post(published_at);

-- Ads
CREATE TABLE IF NOT EXISTS ad (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    image_url TEXT NOT NULL,
    link_url TEXT NOT NULL,
    placement TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    starts_at TIMESTAMP,
    ends_at TIMESTAMP,
    impressions INTEGER NOT NULL DEFAULT 0,
    clicks INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ad_placement ON ad(placement);

-- Visitor analytics
CREATE TABLE IF NOT EXISTS page_visit (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL,
    referrer TEXT NOT NULL DEFAULT '',
    visitor_hash TEXT NOT NULL,
    ip_hash TEXT NOT NULL,
    user_agent TEXT NOT NULL DEFAULT '',
    visited_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_page_visit_visited ON page_visit(visited_at);

-- Mailing list
CREATE TABLE IF NOT EXISTS mailing_list (
    email TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    subscribed_at TIMESTAMP NOT NULL
);
`
