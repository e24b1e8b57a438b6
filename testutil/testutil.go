// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lucianvotes/server/auth"
	"github.com/lucianvotes/server/cliparse"
	"github.com/lucianvotes/server/db"
	"github.com/lucianvotes/server/storage"
)

// SetupTestDB creates a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(cliparse.DatabaseSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   ":memory:",
		DatabaseType:  cliparse.DatabaseSQLite,
		AdminKeySalt:  "test-admin-salt",
		MapSlugSalt:   "test-slug-salt",
		VisitorSalt:   "test-visitor-salt",
		PublicBaseURL: "https://lucianvotes.test",
	}
}

// AdminHeaders returns headers carrying a valid admin key for cfg
func AdminHeaders(cfg cliparse.Config) map[string]string {
	return map[string]string{
		"X-Admin-Key": auth.GenerateAdminKey(auth.AdminSubject, cfg.AdminKeySalt),
	}
}

// NewTestStore returns an object store rooted in a temp directory
func NewTestStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	return NewTestStoreAt(t, t.TempDir())
}

// NewTestStoreAt returns an object store rooted in dir, for tests that
// inspect the files directly
func NewTestStoreAt(t *testing.T, dir string) *storage.LocalStore {
	t.Helper()

	s, err := storage.NewLocalStore(dir, "https://lucianvotes.test/uploads")
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	return s
}

// CreateTestParty inserts a party
func CreateTestParty(t *testing.T, conn *sql.DB, id, name string) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO party (id, name, color, leader, logo_url, created_at)
		VALUES ($1, $2, '', '', '', $3)
	`, id, name, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test party: %v", err)
	}
}

// CreateTestConstituencies inserts constituencies named after their IDs
func CreateTestConstituencies(t *testing.T, conn *sql.DB, ids ...string) {
	t.Helper()

	for _, id := range ids {
		_, err := conn.Exec(`
			INSERT INTO constituency (id, name, district, political_leaning, created_at)
			VALUES ($1, $2, '', 'unselected', $3)
		`, id, id, time.Now().UTC())
		if err != nil {
			t.Fatalf("Failed to create test constituency %s: %v", id, err)
		}
	}
}

// SetTestLeaning sets a constituency's stored political leaning
func SetTestLeaning(t *testing.T, conn *sql.DB, id, leaning string) {
	t.Helper()

	_, err := conn.Exec(`UPDATE constituency SET political_leaning = $1 WHERE id = $2`, leaning, id)
	if err != nil {
		t.Fatalf("Failed to set leaning for %s: %v", id, err)
	}
}

// CreateTestElection inserts an election held on the given day
func CreateTestElection(t *testing.T, conn *sql.DB, id, label string, heldOn time.Time) {
	t.Helper()

	_, err := conn.Exec(`
		INSERT INTO election (id, label, held_on, created_at)
		VALUES ($1, $2, $3, $4)
	`, id, label, heldOn.UTC(), time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}
}

// AddTestResult inserts one candidate's votes. An empty partyID stores NULL.
func AddTestResult(t *testing.T, conn *sql.DB, electionID, constituencyID, candidate, partyID string, votes int) {
	t.Helper()

	var party *string
	if partyID != "" {
		party = &partyID
	}
	_, err := conn.Exec(`
		INSERT INTO election_result (election_id, constituency_id, candidate_name, party_id, votes)
		VALUES ($1, $2, $3, $4, $5)
	`, electionID, constituencyID, candidate, party, votes)
	if err != nil {
		t.Fatalf("Failed to create test result: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
