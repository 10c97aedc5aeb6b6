package briefapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
	"github.com/lueurxax/impact-brief/internal/platform/config"
	"github.com/lueurxax/impact-brief/internal/process/pipeline"
	"github.com/lueurxax/impact-brief/internal/storage"
)

type stubBriefer struct {
	res  *pipeline.BriefResult
	err  error
	opts []pipeline.BriefOptions
}

func (s *stubBriefer) Brief(_ context.Context, opts pipeline.BriefOptions) (*pipeline.BriefResult, error) {
	s.opts = append(s.opts, opts)

	if s.err != nil {
		return nil, s.err
	}

	res := *s.res
	res.Bypassed = opts.NoCache

	return &res, nil
}

func newTestConfig() *config.Config {
	return &config.Config{
		CORSOrigin: "*",
		CacheTTL:   15 * time.Minute,
	}
}

func testResult(t *testing.T) *pipeline.BriefResult {
	t.Helper()

	payload := domain.Payload{
		Date:           "2025-06-02",
		MainItems:      []domain.BriefItem{{Title: "見出し", Source: "Reuters", Topic: domain.TopicRegulation}},
		SecondaryItems: []domain.BriefItem{},
		Sources:        []string{"Reuters"},
		GeneratedAt:    "2025-06-02T08:30:00+09:00",
		Version:        "impact-brief/1 fallback",
		RunID:          "run-1",
	}
	diag := &domain.Diagnostics{
		RawCount:   4,
		PoolSize:   3,
		TimingsMS:  map[string]int64{"total": 120},
		Enrichment: "fallback",
	}

	entry, err := storage.NewEntry(payload, diag, time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	return &pipeline.BriefResult{Entry: entry, Hit: true, Cacheable: true, Age: 5 * time.Minute}
}

func newTestHandler(t *testing.T, briefer Briefer) *Handler {
	t.Helper()

	return NewHandler(newTestConfig(), briefer, nil)
}

func TestHandler_Methods(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		wantStatus int
		wantBody   bool
	}{
		{name: "get", method: http.MethodGet, wantStatus: http.StatusOK, wantBody: true},
		{name: "head", method: http.MethodHead, wantStatus: http.StatusOK},
		{name: "options preflight", method: http.MethodOptions, wantStatus: http.StatusNoContent},
		{name: "post rejected", method: http.MethodPost, wantStatus: http.StatusMethodNotAllowed, wantBody: true},
		{name: "delete rejected", method: http.MethodDelete, wantStatus: http.StatusMethodNotAllowed, wantBody: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubBriefer{res: testResult(t)})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/brief", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantBody, rec.Body.Len() > 0)

			if tt.wantStatus == http.StatusMethodNotAllowed {
				assert.Equal(t, allowedMethods, rec.Header().Get("Allow"))
			}
		})
	}
}

func TestHandler_ServesCachedBody(t *testing.T) {
	res := testResult(t)
	h := newTestHandler(t, &stubBriefer{res: res})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/brief", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, res.Entry.Body, rec.Body.Bytes())
	assert.Equal(t, res.Entry.ETag, rec.Header().Get("ETag"))
	assert.Equal(t, "public, max-age=600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, contentTypeJSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, "HIT", rec.Header().Get("X-Brief-Cache"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotContains(t, payload, "debug")
}

func TestHandler_UncacheablePayload(t *testing.T) {
	payload := domain.Payload{
		Date:           "2025-06-02",
		MainItems:      []domain.BriefItem{},
		SecondaryItems: []domain.BriefItem{},
		Sources:        []string{},
		GeneratedAt:    "2025-06-02T08:30:00+09:00",
		Version:        "impact-brief/1 fallback",
		RunID:          "run-2",
	}

	entry, err := storage.NewEntry(payload, &domain.Diagnostics{}, time.Date(2025, 6, 1, 23, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	res := &pipeline.BriefResult{Entry: entry}

	tests := []struct {
		name        string
		ifNoneMatch string
	}{
		{name: "plain get"},
		{name: "conditional get still served", ifNoneMatch: entry.ETag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubBriefer{res: res})

			req := httptest.NewRequest(http.MethodGet, "/api/brief", nil)
			if tt.ifNoneMatch != "" {
				req.Header.Set("If-None-Match", tt.ifNoneMatch)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			assert.Empty(t, rec.Header().Get("ETag"))
			assert.Equal(t, entry.Body, rec.Body.Bytes())
			assert.Equal(t, "MISS", rec.Header().Get("X-Brief-Cache"))
		})
	}
}

func TestHandler_ConditionalGet(t *testing.T) {
	res := testResult(t)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "matching tag", header: res.Entry.ETag, wantStatus: http.StatusNotModified},
		{name: "weak matching tag", header: "W/" + res.Entry.ETag, wantStatus: http.StatusNotModified},
		{name: "tag in list", header: `"other", ` + res.Entry.ETag, wantStatus: http.StatusNotModified},
		{name: "stale tag", header: `"deadbeef"`, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubBriefer{res: res})

			req := httptest.NewRequest(http.MethodGet, "/api/brief", nil)
			req.Header.Set("If-None-Match", tt.header)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusNotModified {
				assert.Zero(t, rec.Body.Len())
			}
		})
	}
}

func TestHandler_Flags(t *testing.T) {
	tests := []struct {
		query       string
		wantNoCache bool
	}{
		{query: "", wantNoCache: false},
		{query: "?nocache", wantNoCache: true},
		{query: "?nocache=1", wantNoCache: true},
		{query: "?nocache=true", wantNoCache: true},
		{query: "?nocache=0", wantNoCache: false},
		{query: "?nocache=false", wantNoCache: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("query %q", tt.query), func(t *testing.T) {
			briefer := &stubBriefer{res: testResult(t)}
			h := newTestHandler(t, briefer)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/brief"+tt.query, nil))

			require.Len(t, briefer.opts, 1)
			assert.Equal(t, tt.wantNoCache, briefer.opts[0].NoCache)
		})
	}
}

func TestHandler_Debug(t *testing.T) {
	h := newTestHandler(t, &stubBriefer{res: testResult(t)})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/brief?debug=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var payload domain.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotNil(t, payload.Debug)
	assert.Equal(t, 3, payload.Debug.PoolSize)
	assert.Equal(t, "fallback", payload.Debug.Enrichment)
	require.NotNil(t, payload.Debug.Cache)
	assert.True(t, payload.Debug.Cache.Hit)
	assert.InDelta(t, 300.0, payload.Debug.Cache.AgeSeconds, 1e-9)
	assert.Equal(t, "run-1", payload.RunID)
}

func TestHandler_DebugDoesNotMutateEntry(t *testing.T) {
	res := testResult(t)
	h := newTestHandler(t, &stubBriefer{res: res})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/brief?debug", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Nil(t, res.Entry.Payload.Debug)
	assert.Nil(t, res.Entry.Diagnostics.Cache)
}

func TestHandler_MissingCredential(t *testing.T) {
	err := fmt.Errorf("brief: %w: LLM_API_KEY", coreerrors.ErrMissingCredential)
	h := newTestHandler(t, &stubBriefer{err: err})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/brief", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errorCodeConfig, body.Error)
	assert.Contains(t, body.Message, "LLM_API_KEY")
}

func TestHandler_RateLimit(t *testing.T) {
	h := newTestHandler(t, &stubBriefer{res: testResult(t)})

	var limited int

	for range rateLimitBurst + 5 {
		req := httptest.NewRequest(http.MethodGet, "/api/brief", nil)
		req.RemoteAddr = "203.0.113.7:4000"

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Positive(t, limited)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/brief", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	briefer := &stubBriefer{res: testResult(t)}
	h := newTestHandler(t, briefer)

	var limited int

	for i := range rateLimitBurst + 5 {
		req := httptest.NewRequest(http.MethodGet, "/api/brief?nocache=1", nil)
		req.RemoteAddr = "203.0.113.9:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i+1))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Equal(t, 5, limited)
	assert.Len(t, briefer.opts, rateLimitBurst)
	assert.Len(t, h.limiters, 1)
}

func TestHandler_RateLimitTrustedProxy(t *testing.T) {
	cfg := newTestConfig()
	cfg.TrustedProxies = []string{"10.0.0.0/8", "bogus"}
	h := NewHandler(cfg, &stubBriefer{res: testResult(t)}, nil)

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/brief", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", xff)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		return rec.Code
	}

	var limited int

	for range rateLimitBurst + 5 {
		if send("203.0.113.7") == http.StatusTooManyRequests {
			limited++
		}
	}

	assert.Equal(t, 5, limited)
	assert.Equal(t, http.StatusOK, send("203.0.113.8"))
	assert.Len(t, h.limiters, 2)
}

func TestHandler_IdleLimitersEvicted(t *testing.T) {
	h := newTestHandler(t, &stubBriefer{res: testResult(t)})

	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	for i := range 3 {
		assert.True(t, h.allowRequest(fmt.Sprintf("203.0.113.%d", i+1)))
	}

	require.Len(t, h.limiters, 3)

	now = now.Add(limiterIdleTTL / 2)
	assert.True(t, h.allowRequest("203.0.113.1"))

	now = now.Add(limiterIdleTTL/2 + time.Second)
	assert.True(t, h.allowRequest("198.51.100.1"))

	assert.Len(t, h.limiters, 2)
	assert.Contains(t, h.limiters, "203.0.113.1")
	assert.Contains(t, h.limiters, "198.51.100.1")
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "untrusted peer ignores forwarded for",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remote:  "192.0.2.1:5555",
			want:    "192.0.2.1",
		},
		{
			name:    "untrusted peer ignores real ip",
			headers: map[string]string{"X-Real-IP": "198.51.100.2"},
			remote:  "192.0.2.1:5555",
			want:    "192.0.2.1",
		},
		{
			name:    "trusted proxy forwarded for",
			trusted: []string{"10.0.0.0/8"},
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "trusted hops skipped from the right",
			trusted: []string{"10.0.0.0/8"},
			headers: map[string]string{"X-Forwarded-For": "198.51.100.66, 203.0.113.7, 10.1.2.3"},
			remote:  "10.0.0.1:1234",
			want:    "203.0.113.7",
		},
		{
			name:    "trusted single address real ip",
			trusted: []string{"10.0.0.1"},
			headers: map[string]string{"X-Real-IP": "198.51.100.2"},
			remote:  "10.0.0.1:1234",
			want:    "198.51.100.2",
		},
		{
			name:    "trusted proxy without headers",
			trusted: []string{"10.0.0.1"},
			remote:  "10.0.0.1:1234",
			want:    "10.0.0.1",
		},
		{
			name:   "remote addr without port",
			remote: "192.0.2.1",
			want:   "192.0.2.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			cfg.TrustedProxies = tt.trusted
			h := NewHandler(cfg, &stubBriefer{}, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/brief", nil)
			req.RemoteAddr = tt.remote

			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, h.clientIP(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, invalid := parseTrustedProxies([]string{" 10.0.0.0/8 ", "192.0.2.1", "", "::1", "nope", "10.0.0.0/99"})

	require.Len(t, prefixes, 3)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.1/32", prefixes[1].String())
	assert.Equal(t, "::1/128", prefixes[2].String())
	assert.Equal(t, []string{"nope", "10.0.0.0/99"}, invalid)
}
