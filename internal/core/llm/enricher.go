package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/impact-brief/internal/core/domain"
	coreerrors "github.com/lueurxax/impact-brief/internal/core/errors"
)

// Reasons reported when enrichment is unavailable.
const (
	ReasonEmptySelection = "empty_selection"
	ReasonBudget         = "budget_exhausted"
	ReasonCircuitOpen    = "circuit_open"
	ReasonTimeout        = "timeout"
	ReasonCallFailed     = "call_failed"
	ReasonEmptyResponse  = "empty_response"
	ReasonParse          = "parse_error"
	ReasonSchema         = "schema_invalid"
	ReasonInternal       = "internal_error"

	outcomeOK = "ok"
)

// callMargin is kept free between the end of the call timeout and the end of
// the remaining pipeline budget.
const callMargin = time.Second

// EnricherConfig configures an Enricher.
type EnricherConfig struct {
	// Timeout is the upper bound for the single provider call.
	Timeout time.Duration
	// MinBudget is the remaining pipeline budget below which no call is made.
	MinBudget time.Duration
	MaxTokens int
}

// Result is either a set of enriched items or the reason enrichment was
// unavailable.
type Result struct {
	Main      []domain.BriefItem
	Secondary *domain.BriefItem
	Reason    string
}

// Available reports whether enrichment produced items.
func (r Result) Available() bool {
	return r.Reason == ""
}

func unavailable(reason string) Result {
	return Result{Reason: reason}
}

// Enricher rewrites a selection into brief items through one provider call.
type Enricher struct {
	provider Provider
	breaker  *CircuitBreaker
	cfg      EnricherConfig
	logger   *zerolog.Logger
}

// NewEnricher creates an Enricher. breaker may be nil.
func NewEnricher(provider Provider, breaker *CircuitBreaker, cfg EnricherConfig, logger *zerolog.Logger) *Enricher {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &Enricher{
		provider: provider,
		breaker:  breaker,
		cfg:      cfg,
		logger:   logger,
	}
}

// Enrich makes at most one provider call for sel, bounded by remaining. It
// never returns an error: every failure becomes an unavailable Result.
func (e *Enricher) Enrich(ctx context.Context, sel domain.Selection, remaining time.Duration) Result {
	res := e.enrich(ctx, sel, remaining)

	outcome := outcomeOK
	if !res.Available() {
		outcome = res.Reason

		e.logger.Warn().Str(logKeyProvider, string(e.provider.Name())).Str(logKeyReason, res.Reason).Msg("enrichment unavailable")
	}

	recordOutcome(e.provider.Name(), outcome)

	return res
}

func (e *Enricher) enrich(ctx context.Context, sel domain.Selection, remaining time.Duration) Result {
	if len(sel.Main) == 0 && sel.Secondary == nil {
		return unavailable(ReasonEmptySelection)
	}

	if remaining < e.cfg.MinBudget {
		return unavailable(ReasonBudget)
	}

	timeout := min(e.cfg.Timeout, remaining-callMargin)
	if timeout <= 0 {
		return unavailable(ReasonBudget)
	}

	if e.breaker != nil {
		if err := e.breaker.CheckCircuit(); err != nil {
			e.logger.Debug().Err(err).Str(logKeyReason, ReasonCircuitOpen).Msg("enrichment skipped")

			return unavailable(ReasonCircuitOpen)
		}
	}

	req, err := buildRequest(sel, e.cfg.MaxTokens)
	if err != nil {
		return unavailable(ReasonInternal)
	}

	text, reason := e.call(ctx, req, timeout)
	if reason != "" {
		e.recordFailure()

		return unavailable(reason)
	}

	res, err := assemble(text, sel)
	if err != nil {
		e.recordFailure()
		e.logger.Debug().Err(err).Msg("enrichment response rejected")

		if errors.Is(err, errParse) {
			return unavailable(ReasonParse)
		}

		return unavailable(ReasonSchema)
	}

	if e.breaker != nil {
		e.breaker.RecordSuccess()
	}

	return res
}

func (e *Enricher) call(ctx context.Context, req Request, timeout time.Duration) (string, string) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := e.provider.Complete(callCtx, req)

	switch {
	case err == nil && strings.TrimSpace(text) == "":
		return "", ReasonEmptyResponse
	case err == nil:
		return text, ""
	case errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil:
		return "", ReasonTimeout
	case errors.Is(err, coreerrors.ErrEmptyResponse):
		return "", ReasonEmptyResponse
	default:
		e.logger.Debug().Err(err).Msg("enrichment call failed")

		return "", ReasonCallFailed
	}
}

func (e *Enricher) recordFailure() {
	if e.breaker != nil {
		e.breaker.RecordFailure()
	}
}

// assemble parses text, validates it against sel and re-stamps identifying
// fields from sel by position. A secondary item the selection does not have is
// dropped.
func assemble(text string, sel domain.Selection) (Result, error) {
	resp, err := parseResponse(text)
	if err != nil {
		return Result{}, err
	}

	if err := validateCounts(resp, sel); err != nil {
		return Result{}, err
	}

	res := Result{Main: make([]domain.BriefItem, 0, len(sel.Main))}

	for i, c := range sel.Main {
		item, err := stamp(resp.MainItems[i], c)
		if err != nil {
			return Result{}, err
		}

		res.Main = append(res.Main, item)
	}

	if sel.Secondary != nil && len(resp.SecondaryItems) == 1 {
		item, err := stamp(resp.SecondaryItems[0], *sel.Secondary)
		if err != nil {
			return Result{}, err
		}

		res.Secondary = &item
	}

	return res, nil
}
