// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucianvotes/server/auth"
	"github.com/lucianvotes/server/models"
	"github.com/lucianvotes/server/prediction"
	"github.com/lucianvotes/server/testutil"
)

// testPNG returns a base64 encoded 2x2 PNG
func testPNG(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func assignment(id string, l prediction.Leaning) prediction.Assignment {
	return prediction.Assignment{ConstituencyID: id, Leaning: l}
}

func TestEncodeMap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewMapHandler(db, cfg, testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "castries-north", "babonneau", "gros-islet")

	req := testutil.MakeRequest("POST", "/maps/encode", models.EncodeMapRequest{
		Leanings: []prediction.Assignment{
			assignment("gros-islet", prediction.UWP),
			assignment("babonneau", prediction.SLP),
			assignment("not-a-seat", prediction.IND),
		},
	}, nil)
	w := httptest.NewRecorder()

	handler.EncodeMap(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.EncodeMapResponse
	testutil.AssertJSON(t, w, &resp)

	// babonneau, castries-north, gros-islet
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("sxu")), resp.Map)
	assert.Equal(t, "https://lucianvotes.test"+SharePath+"?map="+url.QueryEscape(resp.Map), resp.ShareURL)
	assert.Equal(t, 1, resp.Seats[prediction.SLP])
	assert.Equal(t, 1, resp.Seats[prediction.UWP])
	assert.Equal(t, 1, resp.Seats[prediction.Unselected])
	assert.Equal(t, 0, resp.Seats[prediction.IND])
}

func TestEncodeMapInvalidJSON(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	req := httptest.NewRequest("POST", "/maps/encode", strings.NewReader("{nope"))
	w := httptest.NewRecorder()

	handler.EncodeMap(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestDecodeMap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a", "b", "c")

	encoded := base64.StdEncoding.EncodeToString([]byte("sux"))
	req := testutil.MakeRequest("GET", "/maps/decode?map="+url.QueryEscape(encoded), nil, nil)
	w := httptest.NewRecorder()

	handler.DecodeMap(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.DecodeMapResponse
	testutil.AssertJSON(t, w, &resp)

	assert.True(t, resp.Restored)
	require.Len(t, resp.Constituencies, 3)
	assert.Equal(t, prediction.SLP, resp.Constituencies[0].PoliticalLeaning)
	assert.Equal(t, prediction.UWP, resp.Constituencies[1].PoliticalLeaning)
	assert.Equal(t, prediction.Unselected, resp.Constituencies[2].PoliticalLeaning)
	assert.Equal(t, 1, resp.Seats[prediction.SLP])
}

func TestDecodeMapFallsBackToBlank(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a", "b", "c")
	testutil.SetTestLeaning(t, db, "a", "slp")

	tests := []struct {
		name  string
		query string
	}{
		{"missing", ""},
		{"not base64", "?map=%25%25%25"},
		{"too short", "?map=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte("su")))},
		{"too long", "?map=" + url.QueryEscape(base64.StdEncoding.EncodeToString([]byte("suti")))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("GET", "/maps/decode"+tt.query, nil, nil)
			w := httptest.NewRecorder()

			handler.DecodeMap(w, req)

			testutil.AssertStatus(t, w, http.StatusOK)

			var resp models.DecodeMapResponse
			testutil.AssertJSON(t, w, &resp)

			assert.False(t, resp.Restored)
			require.Len(t, resp.Constituencies, 3)
			for _, c := range resp.Constituencies {
				// The stored forecast must not leak into a blank map
				assert.Equal(t, prediction.Unselected, c.PoliticalLeaning, c.ID)
			}
			assert.Equal(t, 3, resp.Seats[prediction.Unselected])
		})
	}
}

func TestDecodeMapAcceptsMangledLinks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a", "b", "c", "d", "e")

	// Unpadded and unescaped: what a link looks like after a chat app
	raw := base64.RawStdEncoding.EncodeToString([]byte("sutix"))
	req := testutil.MakeRequest("GET", "/maps/decode?map="+raw, nil, nil)
	w := httptest.NewRecorder()

	handler.DecodeMap(w, req)

	var resp models.DecodeMapResponse
	testutil.AssertJSON(t, w, &resp)

	assert.True(t, resp.Restored)
	assert.Equal(t, prediction.Tossup, resp.Constituencies[2].PoliticalLeaning)
	assert.Equal(t, prediction.IND, resp.Constituencies[3].PoliticalLeaning)
}

// An unescaped '+' in the query string reaches the handler as a space
func TestDecodeMapRestoresPlusSentAsSpace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a", "b", "c")

	encoded := base64.StdEncoding.EncodeToString([]byte("su~"))
	require.Contains(t, encoded, "+")

	req := testutil.MakeRequest("GET", "/maps/decode?map="+encoded, nil, nil)
	require.Equal(t, "c3V ", req.URL.Query().Get("map"))
	w := httptest.NewRecorder()

	handler.DecodeMap(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.DecodeMapResponse
	testutil.AssertJSON(t, w, &resp)

	assert.True(t, resp.Restored)
	require.Len(t, resp.Constituencies, 3)
	assert.Equal(t, prediction.SLP, resp.Constituencies[0].PoliticalLeaning)
	assert.Equal(t, prediction.UWP, resp.Constituencies[1].PoliticalLeaning)
	assert.Equal(t, prediction.Unselected, resp.Constituencies[2].PoliticalLeaning)

	// Same link with the URL-safe alphabet is not a valid share code
	w = httptest.NewRecorder()
	handler.DecodeMap(w, testutil.MakeRequest("GET", "/maps/decode?map=c3V-", nil, nil))
	testutil.AssertJSON(t, w, &resp)
	assert.False(t, resp.Restored)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	ids := []string{"vieux-fort-south", "anse-la-raye", "micoud-north", "soufriere", "dennery-north"}
	testutil.CreateTestConstituencies(t, db, ids...)

	submitted := []prediction.Assignment{
		assignment("vieux-fort-south", prediction.SLP),
		assignment("anse-la-raye", prediction.Tossup),
		assignment("micoud-north", prediction.UWP),
		assignment("soufriere", prediction.IND),
	}

	w := httptest.NewRecorder()
	handler.EncodeMap(w, testutil.MakeRequest("POST", "/maps/encode",
		models.EncodeMapRequest{Leanings: submitted}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var encoded models.EncodeMapResponse
	testutil.AssertJSON(t, w, &encoded)

	w = httptest.NewRecorder()
	handler.DecodeMap(w, testutil.MakeRequest("GET", "/maps/decode?map="+url.QueryEscape(encoded.Map), nil, nil))

	var decoded models.DecodeMapResponse
	testutil.AssertJSON(t, w, &decoded)
	require.True(t, decoded.Restored)

	got := make(map[string]prediction.Leaning)
	for _, c := range decoded.Constituencies {
		got[c.ID] = c.PoliticalLeaning
	}
	assert.Equal(t, map[string]prediction.Leaning{
		"anse-la-raye":     prediction.Tossup,
		"dennery-north":    prediction.Unselected,
		"micoud-north":     prediction.UWP,
		"soufriere":        prediction.IND,
		"vieux-fort-south": prediction.SLP,
	}, got)
}

func TestGetCurrentMap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a", "b")
	testutil.SetTestLeaning(t, db, "b", "tossup")

	w := httptest.NewRecorder()
	handler.GetCurrentMap(w, testutil.MakeRequest("GET", "/maps/current", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.EncodeMapResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("xt")), resp.Map)
}

func TestSaveMap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	store := testutil.NewTestStore(t)
	handler := NewMapHandler(db, cfg, store)

	testutil.CreateTestConstituencies(t, db, "a", "b", "c")

	req := testutil.MakeRequest("POST", "/maps", models.SaveMapRequest{
		Leanings:    []prediction.Assignment{assignment("a", prediction.SLP), assignment("c", prediction.UWP)},
		SnapshotPNG: testPNG(t),
	}, nil)
	w := httptest.NewRecorder()

	handler.SaveMap(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.SaveMapResponse
	testutil.AssertJSON(t, w, &resp)

	assert.Equal(t, auth.GenerateShareSlug(resp.ID, cfg.MapSlugSalt), resp.ShareSlug)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("sxu")), resp.Map)
	assert.Equal(t, "https://lucianvotes.test/uploads/maps/"+resp.ID+".png", resp.SnapshotURL)

	key, ok := store.KeyFromURL(resp.SnapshotURL)
	require.True(t, ok)
	assert.Equal(t, "maps/"+resp.ID+".png", key)

	// The saved map is readable by slug with its leanings decoded
	getReq := testutil.MakeRequest("GET", "/maps/"+resp.ShareSlug, nil, nil)
	getReq.SetPathValue("slug", resp.ShareSlug)
	w = httptest.NewRecorder()

	handler.GetMap(w, getReq)

	testutil.AssertStatus(t, w, http.StatusOK)

	var saved models.UserMap
	testutil.AssertJSON(t, w, &saved)
	assert.Equal(t, resp.ID, saved.ID)
	assert.Equal(t, resp.Map, saved.Encoded)
	assert.Equal(t, []prediction.Assignment{
		assignment("a", prediction.SLP),
		assignment("b", prediction.Unselected),
		assignment("c", prediction.UWP),
	}, saved.Leanings)
	assert.Equal(t, 1, saved.Seats[prediction.SLP])
}

func TestSaveMapWithoutSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a")

	w := httptest.NewRecorder()
	handler.SaveMap(w, testutil.MakeRequest("POST", "/maps", models.SaveMapRequest{
		Leanings: []prediction.Assignment{assignment("a", prediction.IND)},
	}, nil))

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.SaveMapResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Empty(t, resp.SnapshotURL)
}

func TestSaveMapRejectsBadSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a")

	tests := []struct {
		name     string
		snapshot string
	}{
		{"not base64", "!!!"},
		{"not a png", base64.StdEncoding.EncodeToString([]byte("GIF89a"))},
		{"wrong data url type", "data:image/jpeg;base64," + testPNG(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.SaveMap(w, testutil.MakeRequest("POST", "/maps", models.SaveMapRequest{
				SnapshotPNG: tt.snapshot,
			}, nil))

			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_map`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSaveMapAcceptsDataURL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a")

	w := httptest.NewRecorder()
	handler.SaveMap(w, testutil.MakeRequest("POST", "/maps", models.SaveMapRequest{
		SnapshotPNG: "data:image/png;base64," + testPNG(t),
	}, nil))

	testutil.AssertStatus(t, w, http.StatusCreated)
}

func TestSaveMapRemovesSnapshotWhenInsertFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	dir := t.TempDir()
	store := testutil.NewTestStoreAt(t, dir)
	handler := NewMapHandler(db, testutil.GetTestConfig(), store)

	testutil.CreateTestConstituencies(t, db, "a")
	_, err := db.Exec(`DROP TABLE user_map`)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.SaveMap(w, testutil.MakeRequest("POST", "/maps", models.SaveMapRequest{
		SnapshotPNG: testPNG(t),
	}, nil))

	testutil.AssertStatus(t, w, http.StatusInternalServerError)

	matches, err := filepath.Glob(filepath.Join(dir, "maps", "*.png"))
	require.NoError(t, err)
	assert.Empty(t, matches, "orphaned snapshot left behind")

	_, err = os.Stat(filepath.Join(dir, "maps"))
	assert.NoError(t, err, "snapshot directory should have been created by the upload")
}

func TestGetMapNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	req := testutil.MakeRequest("GET", "/maps/nope", nil, nil)
	req.SetPathValue("slug", "nope")
	w := httptest.NewRecorder()

	handler.GetMap(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestGetConsensus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "a", "b")

	save := func(leanings ...prediction.Assignment) {
		w := httptest.NewRecorder()
		handler.SaveMap(w, testutil.MakeRequest("POST", "/maps", models.SaveMapRequest{Leanings: leanings}, nil))
		testutil.AssertStatus(t, w, http.StatusCreated)
	}
	save(assignment("a", prediction.SLP), assignment("b", prediction.UWP))
	save(assignment("a", prediction.SLP), assignment("b", prediction.SLP))
	save(assignment("a", prediction.UWP))

	w := httptest.NewRecorder()
	handler.GetConsensus(w, testutil.MakeRequest("GET", "/maps/consensus", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp struct {
		Maps           int `json:"maps"`
		Constituencies []struct {
			ConstituencyID string             `json:"constituency_id"`
			Leaning        prediction.Leaning `json:"political_leaning"`
		} `json:"constituencies"`
	}
	testutil.AssertJSON(t, w, &resp)

	assert.Equal(t, 3, resp.Maps)
	require.Len(t, resp.Constituencies, 2)
	assert.Equal(t, "a", resp.Constituencies[0].ConstituencyID)
	assert.Equal(t, prediction.SLP, resp.Constituencies[0].Leaning)
	// b: one slp, one uwp, one unselected
	assert.Equal(t, prediction.Tossup, resp.Constituencies[1].Leaning)
}

func TestGetConsensusWithoutMaps(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMapHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	testutil.CreateTestConstituencies(t, db, "b", "a")

	w := httptest.NewRecorder()
	handler.GetConsensus(w, testutil.MakeRequest("GET", "/maps/consensus", nil, nil))

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp struct {
		Maps           int `json:"maps"`
		Constituencies []struct {
			ConstituencyID string                     `json:"constituency_id"`
			Counts         map[prediction.Leaning]int `json:"counts"`
			Leaning        prediction.Leaning         `json:"political_leaning"`
		} `json:"constituencies"`
	}
	testutil.AssertJSON(t, w, &resp)

	assert.Zero(t, resp.Maps)
	require.Len(t, resp.Constituencies, 2)
	assert.Equal(t, "a", resp.Constituencies[0].ConstituencyID)
	assert.Equal(t, "b", resp.Constituencies[1].ConstituencyID)
	for _, c := range resp.Constituencies {
		assert.Equal(t, prediction.Unselected, c.Leaning)
		assert.Zero(t, c.Counts[prediction.SLP])
	}
}
