// Package briefapi serves the brief payload over HTTP.
package briefapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
	"github.com/lueurxax/impact-brief/internal/platform/config"
	"github.com/lueurxax/impact-brief/internal/process/pipeline"
)

// Rate limiting constants.
const (
	rateLimitRequests = 30
	rateLimitBurst    = 10
	rateLimitWindow   = time.Minute

	// A limiter idle this long has refilled its burst and can be dropped.
	limiterIdleTTL   = 10 * time.Minute
	limiterSweepEach = time.Minute
)

// Query flags.
const (
	flagNoCache = "nocache"
	flagDebug   = "debug"
)

// HTTP header constants.
const (
	headerContentType = "Content-Type"
	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
	headerCache       = "Cache-Control"
	headerBriefCache  = "X-Brief-Cache"
	contentTypeJSON   = "application/json; charset=utf-8"
	allowedMethods    = "GET, HEAD, OPTIONS"
)

// Error codes in JSON error bodies.
const (
	errorCodeConfig   = "configuration_error"
	errorCodeInternal = "internal_error"
	errorCodeMethod   = "method_not_allowed"
	errorCodeLimited  = "rate_limited"
)

// Briefer produces the payload for a request.
type Briefer interface {
	Brief(ctx context.Context, opts pipeline.BriefOptions) (*pipeline.BriefResult, error)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Handler serves GET /api/brief.
type Handler struct {
	briefer    Briefer
	corsOrigin string
	cacheTTL   time.Duration
	logger     *zerolog.Logger

	// IP-based rate limiting
	limiters   map[string]*clientLimiter
	limitersMu sync.Mutex
	lastSweep  time.Time
	trusted    []netip.Prefix
	now        func() time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewHandler creates a new brief handler.
func NewHandler(cfg *config.Config, briefer Briefer, logger *zerolog.Logger) *Handler {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	trusted, invalid := parseTrustedProxies(cfg.TrustedProxies)
	for _, entry := range invalid {
		logger.Warn().Str("entry", entry).Msg("ignoring invalid trusted proxy")
	}

	return &Handler{
		briefer:    briefer,
		corsOrigin: cfg.CORSOrigin,
		cacheTTL:   cfg.CacheTTL,
		logger:     logger,
		limiters:   make(map[string]*clientLimiter),
		trusted:    trusted,
		now:        time.Now,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	defer func() {
		LatencyHistogram.Observe(time.Since(start).Seconds())
	}()

	h.setCORS(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		HitsTotal.WithLabelValues(StatusNoContent).Inc()

		return
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", allowedMethods)
		h.writeError(w, http.StatusMethodNotAllowed, errorBody{Error: errorCodeMethod})
		HitsTotal.WithLabelValues(StatusBadMethod).Inc()

		return
	}

	if !h.allowRequest(h.clientIP(r)) {
		h.writeError(w, http.StatusTooManyRequests, errorBody{Error: errorCodeLimited})
		HitsTotal.WithLabelValues(StatusLimited).Inc()

		return
	}

	query := r.URL.Query()
	debug := flagSet(query, flagDebug)

	res, err := h.briefer.Brief(r.Context(), pipeline.BriefOptions{NoCache: flagSet(query, flagNoCache)})
	if err != nil {
		h.handleBriefError(w, err)

		return
	}

	w.Header().Set(headerBriefCache, cacheState(res))

	if debug {
		h.serveDebug(w, r, res)

		return
	}

	if !res.Cacheable {
		w.Header().Set(headerCache, "no-store")
		h.writeBody(w, r, res.Entry.Body)

		return
	}

	w.Header().Set(headerETag, res.Entry.ETag)
	w.Header().Set(headerCache, "public, max-age="+strconv.Itoa(h.maxAge(res)))

	if etagMatches(r.Header.Get(headerIfNoneMatch), res.Entry.ETag) {
		w.WriteHeader(http.StatusNotModified)
		HitsTotal.WithLabelValues(StatusNotModified).Inc()

		return
	}

	h.writeBody(w, r, res.Entry.Body)
}

func (h *Handler) serveDebug(w http.ResponseWriter, r *http.Request, res *pipeline.BriefResult) {
	payload := res.Entry.Payload

	if res.Entry.Diagnostics != nil {
		diag := *res.Entry.Diagnostics
		diag.Cache = res.CacheDiagnostics()
		payload.Debug = &diag
	}

	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode debug payload")
		h.writeError(w, http.StatusInternalServerError, errorBody{Error: errorCodeInternal})
		HitsTotal.WithLabelValues(StatusError).Inc()

		return
	}

	w.Header().Set(headerCache, "no-store")
	h.writeBody(w, r, body)
}

func (h *Handler) writeBody(w http.ResponseWriter, r *http.Request, body []byte) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	HitsTotal.WithLabelValues(StatusOK).Inc()

	if r.Method == http.MethodHead {
		return
	}

	if _, err := w.Write(body); err != nil {
		h.logger.Debug().Err(err).Msg("failed to write brief response")
	}
}

func (h *Handler) handleBriefError(w http.ResponseWriter, err error) {
	HitsTotal.WithLabelValues(StatusError).Inc()

	if errors.Is(err, coreerrors.ErrMissingCredential) {
		h.logger.Error().Err(err).Msg("brief requested with incomplete configuration")
		h.writeError(w, http.StatusInternalServerError, errorBody{Error: errorCodeConfig, Message: err.Error()})

		return
	}

	h.logger.Error().Err(err).Msg("brief failed")
	h.writeError(w, http.StatusInternalServerError, errorBody{Error: errorCodeInternal})
}

func (h *Handler) writeError(w http.ResponseWriter, code int, body errorBody) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.Header().Set(headerCache, "no-store")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Debug().Err(err).Msg("failed to write error response")
	}
}

func (h *Handler) setCORS(w http.ResponseWriter) {
	if h.corsOrigin == "" {
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", h.corsOrigin)
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-None-Match")
	w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Brief-Cache")
}

// maxAge is the time left before the served entry expires, in whole seconds.
func (h *Handler) maxAge(res *pipeline.BriefResult) int {
	left := h.cacheTTL - res.Age
	if left < 0 {
		return 0
	}

	return int(left / time.Second)
}

func (h *Handler) allowRequest(ip string) bool {
	now := h.now()

	h.limitersMu.Lock()

	if now.Sub(h.lastSweep) >= limiterSweepEach {
		h.sweepLimiters(now)
	}

	entry, ok := h.limiters[ip]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(rate.Every(rateLimitWindow/rateLimitRequests), rateLimitBurst)}
		h.limiters[ip] = entry
	}

	entry.lastSeen = now

	h.limitersMu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// sweepLimiters drops idle limiters. Callers hold limitersMu.
func (h *Handler) sweepLimiters(now time.Time) {
	for ip, entry := range h.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(h.limiters, ip)
		}
	}

	h.lastSweep = now
}

func cacheState(res *pipeline.BriefResult) string {
	switch {
	case res.Hit:
		return "HIT"
	case res.Bypassed:
		return "BYPASS"
	default:
		return "MISS"
	}
}

// flagSet treats a bare flag and the usual truthy spellings as set.
func flagSet(query map[string][]string, name string) bool {
	values, ok := query[name]
	if !ok {
		return false
	}

	if len(values) == 0 {
		return true
	}

	switch strings.ToLower(strings.TrimSpace(values[0])) {
	case "", "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}

	return false
}

// clientIP identifies the caller. Forwarding headers are only honored when
// the direct peer is a trusted proxy; X-Forwarded-For is walked from the
// right, skipping trusted hops.
func (h *Handler) clientIP(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	if !h.isTrusted(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !h.isTrusted(hop) {
				return hop
			}
		}

		if first := strings.TrimSpace(hops[0]); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return remote
}

func (h *Handler) isTrusted(ip string) bool {
	if len(h.trusted) == 0 {
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}

	addr = addr.Unmap()

	for _, prefix := range h.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}

	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}

// parseTrustedProxies accepts single addresses and CIDR ranges.
func parseTrustedProxies(entries []string) (prefixes []netip.Prefix, invalid []string) {
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				invalid = append(invalid, entry)

				continue
			}

			prefixes = append(prefixes, prefix.Masked())

			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			invalid = append(invalid, entry)

			continue
		}

		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return prefixes, invalid
}
