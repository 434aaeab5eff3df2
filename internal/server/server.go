// Package server exposes the Voca HTTP API.
//
// Routes:
//
//	POST /api/pronunciation        analyse a transcript
//	POST /api/pronunciation/audio  transcribe audio, then analyse
//	GET  /api/brands               list the brand catalog
//	GET  /api/brands/{id}          fetch one brand
//	GET  /api/practice/sessions    recent sessions for the X-User-ID user
//	GET  /api/user/progress        aggregated progress for the X-User-ID user
//	GET  /healthz, /readyz         probes
//	GET  /metrics                  Prometheus scrape endpoint
//
// All handlers write JSON. Analysis never fails with a 5xx for unmatched
// input; the no-match fallback result is a normal 200 response.
package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voca-app/voca/internal/analysis"
	"github.com/voca-app/voca/internal/catalog"
	"github.com/voca-app/voca/internal/health"
	"github.com/voca-app/voca/internal/history"
	"github.com/voca-app/voca/internal/observe"
	"github.com/voca-app/voca/internal/stt"
)

// maxBodyBytes bounds request bodies. Audio uploads arrive base64-encoded,
// so this allows roughly 7.5 MB of raw audio.
const maxBodyBytes = 10 << 20

// userIDHeader carries the caller's identity for history endpoints.
const userIDHeader = "X-User-ID"

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithTranscriber enables the audio analysis endpoint using the given
// provider. Without it, POST /api/pronunciation/audio returns 503.
func WithTranscriber(p stt.Provider) Option {
	return func(s *Server) {
		s.transcriber = p
	}
}

// WithMetrics replaces the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Server holds the handler dependencies and builds the route table.
type Server struct {
	analyzer    *analysis.Analyzer
	catalog     *catalog.Catalog
	store       history.Store
	transcriber stt.Provider
	metrics     *observe.Metrics
}

// New creates a [Server]. The analyzer, catalog, and store are required;
// optional dependencies are supplied via options.
func New(a *analysis.Analyzer, cat *catalog.Catalog, store history.Store, opts ...Option) *Server {
	s := &Server{
		analyzer: a,
		catalog:  cat,
		store:    store,
		metrics:  observe.DefaultMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the complete HTTP handler: all routes wrapped in the
// observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/pronunciation", s.handleAnalyze)
	mux.HandleFunc("POST /api/pronunciation/audio", s.handleAnalyzeAudio)
	mux.HandleFunc("GET /api/brands", s.handleListBrands)
	mux.HandleFunc("GET /api/brands/{id}", s.handleGetBrand)
	mux.HandleFunc("GET /api/practice/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/user/progress", s.handleProgress)

	health.New(
		health.CatalogChecker(s.catalog.Len),
		health.HistoryChecker(s.store.Ping),
	).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// analyzeRequest is the body for POST /api/pronunciation. Either field may
// carry the attempt; BrandName exists for clients that send the name the
// user was prompted with instead of a transcript.
type analyzeRequest struct {
	Transcript string `json:"transcript"`
	BrandName  string `json:"brandName"`
}

// analyzeAudioRequest is the body for POST /api/pronunciation/audio.
type analyzeAudioRequest struct {
	// Audio is the base64-encoded recording.
	Audio string `json:"audio"`

	// ContentType is the MIME type of the decoded audio, e.g. "audio/wav".
	ContentType string `json:"contentType"`
}

// errorResponse is the JSON body for 4xx and 5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	transcript := req.Transcript
	if strings.TrimSpace(transcript) == "" {
		transcript = req.BrandName
	}
	if strings.TrimSpace(transcript) == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}

	s.analyze(w, r, transcript)
}

func (s *Server) handleAnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "audio analysis is not configured")
		return
	}

	var req analyzeAudioRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Audio == "" {
		writeError(w, http.StatusBadRequest, "audio is required")
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio is not valid base64")
		return
	}

	ctx := r.Context()
	start := time.Now()
	tr, err := s.transcriber.Transcribe(ctx, audio, req.ContentType)
	s.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordTranscriptionError(ctx)
		observe.Logger(ctx).Error("transcription failed", "error", err)
		writeError(w, http.StatusBadGateway, "transcription failed")
		return
	}

	s.analyze(w, r, tr.Text)
}

// analyze runs the scoring engine, records the session when the caller is
// identified, and writes the result.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, transcript string) {
	ctx := r.Context()

	start := time.Now()
	result := s.analyzer.Analyze(transcript)
	s.metrics.RecordAnalysis(ctx, result.DetectedBrand, result.BrandFound, time.Since(start).Seconds())

	if userID := r.Header.Get(userIDHeader); userID != "" && result.BrandFound {
		sess := &history.Session{
			UserID:     userID,
			BrandName:  result.DetectedBrand,
			Transcript: result.Transcript,
			Accuracy:   result.Accuracy,
		}
		if b, ok := s.catalog.ByName(result.DetectedBrand); ok {
			sess.BrandID = b.ID
		}
		if err := s.store.RecordSession(ctx, sess); err != nil {
			// The analysis result is still valid; history is best effort.
			observe.Logger(ctx).Error("record session failed", "error", err, "user_id", userID)
		} else {
			s.metrics.SessionsRecorded.Add(ctx, 1)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListBrands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Brands())
}

func (s *Server) handleGetBrand(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, ok := s.catalog.ByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown brand "+strconv.Quote(id))
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, userIDHeader+" header is required")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sessions, err := s.store.Sessions(r.Context(), userID, limit)
	if err != nil {
		observe.Logger(r.Context()).Error("list sessions failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "could not load sessions")
		return
	}
	if sessions == nil {
		sessions = []history.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusBadRequest, userIDHeader+" header is required")
		return
	}

	p, err := s.store.Progress(r.Context(), userID)
	if err != nil {
		observe.Logger(r.Context()).Error("load progress failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "could not load progress")
		return
	}
	if p == nil {
		// A new user simply has an empty aggregate.
		p = &history.Progress{UserID: userID}
	}
	writeJSON(w, http.StatusOK, p)
}

// decodeJSON reads the request body into v. On failure it writes a 400 and
// returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "unexpected trailing data")
		return false
	}
	io.Copy(io.Discard, body)
	return true
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
