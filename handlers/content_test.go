// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucianvotes/server/auth"
	"github.com/lucianvotes/server/models"
	"github.com/lucianvotes/server/testutil"
)

func TestNewsLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	dir := t.TempDir()
	store := testutil.NewTestStoreAt(t, dir)
	handler := NewNewsHandler(db, testutil.GetTestConfig(), store)

	imageURL, err := store.Put(t.Context(), "images/cover.png", "image/png", []byte("png"))
	require.NoError(t, err)

	var ids []string
	for i, title := range []string{"Nomination day", "Polls open", "Results night"} {
		image := ""
		if i == 2 {
			image = imageURL
		}
		w := httptest.NewRecorder()
		handler.CreateNews(w, testutil.MakeRequest("POST", "/news", models.CreateNewsRequest{
			Title: title, Body: "Body of " + title, ImageURL: image,
		}, nil))
		testutil.AssertStatus(t, w, http.StatusCreated)

		var post models.NewsPost
		testutil.AssertJSON(t, w, &post)
		ids = append(ids, post.ID)

		// Distinct publish times keep the ordering deterministic
		time.Sleep(5 * time.Millisecond)
	}

	w := httptest.NewRecorder()
	handler.ListNews(w, testutil.MakeRequest("GET", "/news?limit=2", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var page []models.NewsPost
	testutil.AssertJSON(t, w, &page)
	require.Len(t, page, 2)
	assert.Equal(t, "Results night", page[0].Title)
	assert.Equal(t, "Polls open", page[1].Title)

	w = httptest.NewRecorder()
	handler.ListNews(w, testutil.MakeRequest("GET", "/news?limit=2&offset=2", nil, nil))
	testutil.AssertJSON(t, w, &page)
	require.Len(t, page, 1)
	assert.Equal(t, "Nomination day", page[0].Title)

	req := testutil.MakeRequest("DELETE", "/news/"+ids[2], nil, nil)
	req.SetPathValue("id", ids[2])
	w = httptest.NewRecorder()
	handler.DeleteNews(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	_, err = os.Stat(filepath.Join(dir, "images", "cover.png"))
	assert.True(t, os.IsNotExist(err), "stored cover image should be removed with the post")

	req = testutil.MakeRequest("GET", "/news/"+ids[2], nil, nil)
	req.SetPathValue("id", ids[2])
	w = httptest.NewRecorder()
	handler.GetNews(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestListNewsRejectsBadPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewNewsHandler(db, testutil.GetTestConfig(), testutil.NewTestStore(t))

	for _, q := range []string{"?limit=0", "?limit=101", "?limit=abc", "?offset=-1"} {
		w := httptest.NewRecorder()
		handler.ListNews(w, testutil.MakeRequest("GET", "/news"+q, nil, nil))
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	}
}

func createAd(t *testing.T, handler *AdHandler, req models.CreateAdRequest) models.Ad {
	t.Helper()

	w := httptest.NewRecorder()
	handler.CreateAd(w, testutil.MakeRequest("POST", "/ads", req, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var ad models.Ad
	testutil.AssertJSON(t, w, &ad)
	return ad
}

func TestListAdsWindowAndImpressions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewAdHandler(db, testutil.GetTestConfig())

	now := time.Now().UTC()
	past := now.Add(-48 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	running := createAd(t, handler, models.CreateAdRequest{
		Title: "Running", ImageURL: "https://cdn.example/a.png", LinkURL: "https://example.com/a",
		Placement: models.PlacementBanner, StartsAt: &yesterday, EndsAt: &tomorrow,
	})
	createAd(t, handler, models.CreateAdRequest{
		Title: "Future", ImageURL: "https://cdn.example/b.png", LinkURL: "https://example.com/b",
		Placement: models.PlacementBanner, StartsAt: &tomorrow,
	})
	createAd(t, handler, models.CreateAdRequest{
		Title: "Expired", ImageURL: "https://cdn.example/c.png", LinkURL: "https://example.com/c",
		Placement: models.PlacementBanner, StartsAt: &past, EndsAt: &yesterday,
	})
	createAd(t, handler, models.CreateAdRequest{
		Title: "Sidebar", ImageURL: "https://cdn.example/d.png", LinkURL: "https://example.com/d",
		Placement: models.PlacementSidebar,
	})

	w := httptest.NewRecorder()
	handler.ListAds(w, testutil.MakeRequest("GET", "/ads?placement=banner", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var ads []models.Ad
	testutil.AssertJSON(t, w, &ads)
	require.Len(t, ads, 1)
	assert.Equal(t, running.ID, ads[0].ID)
	assert.Equal(t, 1, ads[0].Impressions)

	var impressions int
	require.NoError(t, db.QueryRow(`SELECT impressions FROM ad WHERE id = $1`, running.ID).Scan(&impressions))
	assert.Equal(t, 1, impressions)

	w = httptest.NewRecorder()
	handler.ListAds(w, testutil.MakeRequest("GET", "/ads", nil, nil))
	testutil.AssertJSON(t, w, &ads)
	assert.Len(t, ads, 2, "banner and sidebar without a placement filter")

	w = httptest.NewRecorder()
	handler.ListAds(w, testutil.MakeRequest("GET", "/ads?placement=popup", nil, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestClickAd(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewAdHandler(db, testutil.GetTestConfig())

	ad := createAd(t, handler, models.CreateAdRequest{
		Title: "Vote", ImageURL: "https://cdn.example/v.png", LinkURL: "https://example.com/vote",
		Placement: models.PlacementMap,
	})

	req := testutil.MakeRequest("POST", "/ads/"+ad.ID+"/click", nil, nil)
	req.SetPathValue("id", ad.ID)
	w := httptest.NewRecorder()
	handler.ClickAd(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.AdClickResponse
	testutil.AssertJSON(t, w, &resp)
	assert.Equal(t, "https://example.com/vote", resp.LinkURL)

	req = testutil.MakeRequest("POST", "/ads/missing/click", nil, nil)
	req.SetPathValue("id", "missing")
	w = httptest.NewRecorder()
	handler.ClickAd(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestCreateAdValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewAdHandler(db, testutil.GetTestConfig())

	now := time.Now().UTC()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name string
		req  models.CreateAdRequest
	}{
		{"missing title", models.CreateAdRequest{ImageURL: "i", LinkURL: "https://x.lc", Placement: "banner"}},
		{"javascript link", models.CreateAdRequest{Title: "t", ImageURL: "i", LinkURL: "javascript:alert(1)", Placement: "banner"}},
		{"bad placement", models.CreateAdRequest{Title: "t", ImageURL: "i", LinkURL: "https://x.lc", Placement: "footer"}},
		{"ends before start", models.CreateAdRequest{Title: "t", ImageURL: "i", LinkURL: "https://x.lc", Placement: "banner", StartsAt: &now, EndsAt: &earlier}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.CreateAd(w, testutil.MakeRequest("POST", "/ads", tt.req, nil))
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestMailingList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewMailingListHandler(db, testutil.GetTestConfig())

	w := httptest.NewRecorder()
	handler.Subscribe(w, testutil.MakeRequest("POST", "/mailing-list", models.SubscribeRequest{
		Email: "Voter@Example.lc", Name: "A Voter",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	handler.Subscribe(w, testutil.MakeRequest("POST", "/mailing-list", models.SubscribeRequest{
		Email: "voter@example.lc",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusConflict)

	for _, bad := range []string{"", "not-an-email", "Name <voter@example.lc>"} {
		w = httptest.NewRecorder()
		handler.Subscribe(w, testutil.MakeRequest("POST", "/mailing-list", models.SubscribeRequest{Email: bad}, nil))
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	}

	w = httptest.NewRecorder()
	handler.ListSubscribers(w, testutil.MakeRequest("GET", "/mailing-list", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var subs []models.Subscriber
	testutil.AssertJSON(t, w, &subs)
	require.Len(t, subs, 1)
	assert.Equal(t, "voter@example.lc", subs[0].Email)
}

func TestRecordVisitSetsCookie(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewAnalyticsHandler(db, cfg)

	w := httptest.NewRecorder()
	handler.RecordVisit(w, testutil.MakeRequest("POST", "/visits", models.RecordVisitRequest{Path: "/"}, nil))
	testutil.AssertStatus(t, w, http.StatusNoContent)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, VisitorCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	token := cookies[0].Value

	// A returning visitor keeps their cookie
	req := testutil.MakeRequest("POST", "/visits", models.RecordVisitRequest{Path: "/news"}, nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: token})
	w = httptest.NewRecorder()
	handler.RecordVisit(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)
	assert.Empty(t, w.Result().Cookies())

	var hashes int
	require.NoError(t, db.QueryRow(`SELECT COUNT(DISTINCT visitor_hash) FROM page_visit`).Scan(&hashes))
	assert.Equal(t, 1, hashes)

	var stored string
	require.NoError(t, db.QueryRow(`SELECT visitor_hash FROM page_visit LIMIT 1`).Scan(&stored))
	assert.Equal(t, auth.HashIP(token, cfg.VisitorSalt), stored)
	assert.NotContains(t, stored, token)
}

func TestRecordVisitValidation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewAnalyticsHandler(db, testutil.GetTestConfig())

	for _, path := range []string{"", "news", "/" + strings.Repeat("a", 600)} {
		w := httptest.NewRecorder()
		handler.RecordVisit(w, testutil.MakeRequest("POST", "/visits", models.RecordVisitRequest{Path: path}, nil))
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	}
}

func TestAnalyticsSummary(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := NewAnalyticsHandler(db, testutil.GetTestConfig())

	now := time.Now().UTC()
	insert := func(path, visitor string, at time.Time) {
		_, err := db.Exec(`
			INSERT INTO page_visit (id, path, referrer, visitor_hash, ip_hash, user_agent, visited_at)
			VALUES ($1, $2, '', $3, 'ip', '', $4)
		`, fmt.Sprintf("%s-%s-%d", path, visitor, at.UnixNano()), path, visitor, at)
		require.NoError(t, err)
	}
	insert("/", "v1", now)
	insert("/", "v2", now)
	insert("/make-your-own-map", "v1", now.AddDate(0, 0, -1))
	insert("/", "v3", now.AddDate(0, 0, -40))

	w := httptest.NewRecorder()
	handler.GetSummary(w, testutil.MakeRequest("GET", "/analytics/summary?days=7", nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var summary models.AnalyticsSummary
	testutil.AssertJSON(t, w, &summary)

	assert.Equal(t, 7, summary.Days)
	assert.Equal(t, 3, summary.TotalVisits)
	assert.Equal(t, 2, summary.UniqueVisitors)
	require.Len(t, summary.TopPaths, 2)
	assert.Equal(t, models.PathCount{Path: "/", Visits: 2}, summary.TopPaths[0])

	require.Len(t, summary.Daily, 7)
	assert.Equal(t, now.Format(models.DateLayout), summary.Daily[6].Day)
	assert.Equal(t, 2, summary.Daily[6].Visits)
	assert.Equal(t, 1, summary.Daily[5].Visits)

	require.NotNil(t, summary.LastVisitAt)
	assert.NotEmpty(t, summary.LastVisitAgo)

	w = httptest.NewRecorder()
	handler.GetSummary(w, testutil.MakeRequest("GET", "/analytics/summary?days=0", nil, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func multipartUpload(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	store := testutil.NewTestStoreAt(t, dir)
	handler := NewUploadHandler(testutil.GetTestConfig(), store)

	png, err := base64.StdEncoding.DecodeString(testPNG(t))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.Upload(w, multipartUpload(t, "file", "candidate.png", png))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.UploadResponse
	testutil.AssertJSON(t, w, &resp)
	assert.True(t, strings.HasPrefix(resp.Key, "images/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".png"))
	assert.Equal(t, "https://lucianvotes.test/uploads/"+resp.Key, resp.URL)

	stored, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(resp.Key)))
	require.NoError(t, err)
	assert.Equal(t, png, stored)

	req := testutil.MakeRequest("DELETE", "/uploads/"+resp.Key, nil, nil)
	req.SetPathValue("key", resp.Key)
	w = httptest.NewRecorder()
	handler.DeleteUpload(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	w = httptest.NewRecorder()
	handler.DeleteUpload(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestUploadRejects(t *testing.T) {
	handler := NewUploadHandler(testutil.GetTestConfig(), testutil.NewTestStore(t))

	w := httptest.NewRecorder()
	handler.Upload(w, multipartUpload(t, "file", "notes.txt", []byte("just some text")))
	testutil.AssertStatus(t, w, http.StatusUnsupportedMediaType)

	w = httptest.NewRecorder()
	handler.Upload(w, multipartUpload(t, "image", "x.png", []byte("x")))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	req := testutil.MakeRequest("DELETE", "/uploads/../secret", nil, nil)
	req.SetPathValue("key", "../secret")
	w = httptest.NewRecorder()
	handler.DeleteUpload(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}
