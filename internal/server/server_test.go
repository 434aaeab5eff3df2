package server_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voca-app/voca/internal/analysis"
	"github.com/voca-app/voca/internal/catalog"
	"github.com/voca-app/voca/internal/history"
	"github.com/voca-app/voca/internal/server"
	"github.com/voca-app/voca/internal/stt"
)

// fakeTranscriber returns a fixed transcript without touching the network.
type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (*stt.Transcript, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stt.Transcript{Text: f.text, Confidence: 0.9}, nil
}

func newTestServer(t *testing.T, opts ...server.Option) (*server.Server, *history.MemoryStore) {
	t.Helper()

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	a := analysis.New(cat)
	store := history.NewMemoryStore()
	return server.New(a, cat, store, opts...), store
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAnalyze_MatchedBrand(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/pronunciation", `{"transcript":"tesla"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var res analysis.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if !res.BrandFound {
		t.Error("BrandFound = false, want true")
	}
	if res.DetectedBrand != "Tesla" {
		t.Errorf("DetectedBrand = %q, want %q", res.DetectedBrand, "Tesla")
	}
	if res.Accuracy < 5 || res.Accuracy > 100 {
		t.Errorf("Accuracy = %d, want within [5, 100]", res.Accuracy)
	}
}

func TestAnalyze_BrandNameFieldAccepted(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/pronunciation", `{"brandName":"honda"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var res analysis.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if res.DetectedBrand != "Honda" {
		t.Errorf("DetectedBrand = %q, want %q", res.DetectedBrand, "Honda")
	}
}

func TestAnalyze_NoMatchStill200(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/pronunciation", `{"transcript":"xyzqqq"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}

	var res analysis.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if res.BrandFound {
		t.Error("BrandFound = true, want false")
	}
	if res.DetectedBrand != analysis.DetectedBrandUnknown {
		t.Errorf("DetectedBrand = %q, want %q", res.DetectedBrand, analysis.DetectedBrandUnknown)
	}
}

func TestAnalyze_EmptyTranscriptRejected(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	for _, body := range []string{`{}`, `{"transcript":"   "}`} {
		rec := doJSON(t, h, "POST", "/api/pronunciation", body, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestAnalyze_InvalidJSONRejected(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/pronunciation", `{"transcript":`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAnalyze_RecordsSessionForIdentifiedUser(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/pronunciation", `{"transcript":"toyota"}`,
		map[string]string{"X-User-ID": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	sessions, err := store.Sessions(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(sessions))
	}
	if sessions[0].BrandName != "Toyota" {
		t.Errorf("BrandName = %q, want %q", sessions[0].BrandName, "Toyota")
	}
	if sessions[0].BrandID != "toyota" {
		t.Errorf("BrandID = %q, want %q", sessions[0].BrandID, "toyota")
	}
}

func TestAnalyze_NoSessionForAnonymousOrUnmatched(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t)
	h := srv.Handler()

	// Anonymous match.
	doJSON(t, h, "POST", "/api/pronunciation", `{"transcript":"tesla"}`, nil)
	// Identified no-match.
	doJSON(t, h, "POST", "/api/pronunciation", `{"transcript":"xyzqqq"}`,
		map[string]string{"X-User-ID": "u1"})

	sessions, err := store.Sessions(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("len(sessions) = %d, want 0", len(sessions))
	}
}

func TestAnalyzeAudio_TranscribesThenAnalyzes(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, server.WithTranscriber(&fakeTranscriber{text: "honda"}))
	h := srv.Handler()

	audio := base64.StdEncoding.EncodeToString([]byte("fake-wav"))
	rec := doJSON(t, h, "POST", "/api/pronunciation/audio",
		`{"audio":"`+audio+`","contentType":"audio/wav"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var res analysis.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if res.DetectedBrand != "Honda" {
		t.Errorf("DetectedBrand = %q, want %q", res.DetectedBrand, "Honda")
	}
}

func TestAnalyzeAudio_NotConfigured(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/pronunciation/audio", `{"audio":"AAAA"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestAnalyzeAudio_InvalidBase64(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, server.WithTranscriber(&fakeTranscriber{text: "honda"}))
	h := srv.Handler()

	rec := doJSON(t, h, "POST", "/api/pronunciation/audio", `{"audio":"%%%not-base64%%%"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListBrands(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/brands", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var brands []catalog.Brand
	if err := json.NewDecoder(rec.Body).Decode(&brands); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if len(brands) == 0 {
		t.Fatal("no brands returned")
	}
}

func TestGetBrand(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/brands/tesla", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var b catalog.Brand
	if err := json.NewDecoder(rec.Body).Decode(&b); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if b.Name != "Tesla" {
		t.Errorf("Name = %q, want %q", b.Name, "Tesla")
	}
}

func TestGetBrand_NotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/brands/does-not-exist", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSessions_RequiresUserHeader(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/practice/sessions", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSessions_EmptyForNewUser(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/practice/sessions", "",
		map[string]string{"X-User-ID": "new"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %s, want []", got)
	}
}

func TestSessions_RejectsBadLimit(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/practice/sessions?limit=abc", "",
		map[string]string{"X-User-ID": "u1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestProgress_NewUserGetsEmptyAggregate(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/api/user/progress", "",
		map[string]string{"X-User-ID": "new"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var p history.Progress
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if p.UserID != "new" {
		t.Errorf("UserID = %q, want %q", p.UserID, "new")
	}
	if p.TotalSessions != 0 {
		t.Errorf("TotalSessions = %d, want 0", p.TotalSessions)
	}
}

func TestProgress_AfterPractice(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()
	hdr := map[string]string{"X-User-ID": "u1"}

	doJSON(t, h, "POST", "/api/pronunciation", `{"transcript":"tesla"}`, hdr)
	doJSON(t, h, "POST", "/api/pronunciation", `{"transcript":"bmw"}`, hdr)

	rec := doJSON(t, h, "GET", "/api/user/progress", "", hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var p history.Progress
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if p.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2", p.TotalSessions)
	}
	if p.BestAccuracy <= 0 {
		t.Errorf("BestAccuracy = %d, want > 0", p.BestAccuracy)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, "GET", "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body)
	}
}
