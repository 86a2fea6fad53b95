package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-cloud/ragdesk/internal/domain"
	domgen "github.com/helpdesk-cloud/ragdesk/internal/domain/generation"
	"github.com/helpdesk-cloud/ragdesk/internal/metrics"
)

// ApologyMessage is returned verbatim when the whole backend chain fails.
const ApologyMessage = "Извините, в данный момент сервис недоступен. Попробуйте позже."

// Config holds routing policy.
type Config struct {
	DefaultBackend   string
	FallbackBackends []string
	AttemptTimeout   time.Duration // per-backend budget; 0 disables the cap
}

// Router tries backends sequentially until one succeeds. The chain is
// rebuilt per request so backends regaining credentials are picked up.
type Router struct {
	registry  *Registry
	defName   string
	fallbacks []string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRouter creates a generation router over the given registry.
func NewRouter(registry *Registry, cfg Config, logger *zap.Logger) *Router {
	return &Router{
		registry:  registry,
		defName:   cfg.DefaultBackend,
		fallbacks: cfg.FallbackBackends,
		timeout:   cfg.AttemptTimeout,
		logger:    logger,
	}
}

// AttemptOrder computes the backend chain for one request: the preferred
// backend when it is registered and available, then the configured default,
// then the fallback list. Duplicates and unavailable backends are dropped.
// The default is always a candidate, so a dead preferred backend never
// shortens the chain below what the configuration guarantees.
func (r *Router) AttemptOrder(preferred string) []string {
	var names []string

	if b, ok := r.registry.Get(preferred); preferred != "" && ok && b.Available() {
		names = append(names, preferred)
	}
	names = append(names, r.defName)
	names = append(names, r.fallbacks...)

	seen := make(map[string]bool, len(names))
	var order []string
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		b, ok := r.registry.Get(name)
		if !ok || !b.Available() {
			continue
		}
		order = append(order, name)
	}
	return order
}

// Generate runs the fallback chain for the request. The first successful
// backend wins; when every attempt fails the outcome carries the fixed
// apology text under the sentinel backend name.
func (r *Router) Generate(ctx context.Context, req domgen.Request, preferred string) domgen.Outcome {
	start := time.Now()

	if len(r.registry.Names()) == 0 {
		return r.exhausted(start, nil, domain.ErrNoBackendsConfigured)
	}

	order := r.AttemptOrder(preferred)
	if len(order) == 0 {
		r.logger.Warn("No available generation backends", zap.String("preferred", preferred))
		return r.exhausted(start, nil, domain.ErrAllBackendsExhausted)
	}

	attempts := make([]domgen.Attempt, 0, len(order))

	for _, name := range order {
		backend, _ := r.registry.Get(name)

		resp, err := r.tryBackend(ctx, backend, req)
		attempts = append(attempts, domgen.Attempt{Backend: name, Elapsed: resp.Elapsed, Err: err})

		if err == nil {
			r.logger.Info("Generation succeeded",
				zap.String("backend", name),
				zap.Int("attempts", len(attempts)),
				zap.Duration("elapsed", resp.Elapsed))
			return domgen.Outcome{
				Content:     resp.Content,
				BackendUsed: name,
				TokensUsed:  resp.TokensUsed,
				Elapsed:     time.Since(start),
				Success:     true,
				Attempts:    attempts,
			}
		}

		r.logger.Warn("Generation backend failed",
			zap.String("backend", name),
			zap.Error(err))

		// A canceled caller stops the chain: later backends would inherit
		// the same dead context.
		if ctx.Err() != nil {
			return r.exhausted(start, attempts, fmt.Errorf("chain aborted: %w", ctx.Err()))
		}
	}

	return r.exhausted(start, attempts, domain.ErrAllBackendsExhausted)
}

// tryBackend runs one attempt under the per-backend timeout.
func (r *Router) tryBackend(ctx context.Context, b Backend, req domgen.Request) (domgen.Response, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := b.Generate(ctx, req.Messages(), req.Temperature(), req.MaxTokens())
	elapsed := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(b.Name(), "error").Inc()
		return domgen.Response{Elapsed: elapsed}, err
	}

	metrics.GenerationRequestsTotal.WithLabelValues(b.Name(), "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(b.Name()).Observe(elapsed.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(b.Name()).Add(float64(resp.TokensUsed))

	resp.Elapsed = elapsed
	return resp, nil
}

func (r *Router) exhausted(start time.Time, attempts []domgen.Attempt, err error) domgen.Outcome {
	if errors.Is(err, domain.ErrAllBackendsExhausted) || errors.Is(err, domain.ErrNoBackendsConfigured) {
		metrics.GenerationFallbacksTotal.Inc()
	}
	return domgen.Outcome{
		Content:     ApologyMessage,
		BackendUsed: domgen.FallbackBackendName,
		Elapsed:     time.Since(start),
		Success:     false,
		Err:         err,
		Attempts:    attempts,
	}
}
