package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kizilabs/chat-gateway/internal/adapter/observability"
	"github.com/kizilabs/chat-gateway/internal/domain"
	"github.com/kizilabs/chat-gateway/internal/service/classifier"
)

// Dispatcher executes the fallback chain. Engines are invoked strictly
// sequentially, so at most one external call is in flight per request and the
// first success wins deterministically.
type Dispatcher struct {
	registry       *Registry
	attemptTimeout time.Duration
}

// NewDispatcher constructs a dispatcher. attemptTimeout bounds each engine
// invocation so one stalled provider cannot block the whole chain; zero
// disables the per-attempt deadline.
func NewDispatcher(registry *Registry, attemptTimeout time.Duration) *Dispatcher {
	return &Dispatcher{registry: registry, attemptTimeout: attemptTimeout}
}

// Dispatch picks the initial tier (forced, or classified from the latest
// user message), then walks the fallback plan until an engine answers. The
// terminal failure is surfaced wrapped in domain.ErrProvider.
func (d *Dispatcher) Dispatch(ctx context.Context, messages []domain.Message, forced *domain.EngineTier, systemPrompt string) (domain.DispatchResult, error) {
	var tier domain.EngineTier
	var reason string
	if forced != nil {
		tier = *forced
		reason = classifier.ReasonForced
	} else {
		verdict := classifier.Classify(domain.LatestUserContent(messages))
		tier = verdict.Tier
		reason = verdict.Reason
		observability.ClassifierVerdictsTotal.WithLabelValues(string(tier)).Inc()
	}

	plan := PlanFor(tier)
	var lastErr error
	for i, attempt := range plan {
		engine, ok := d.registry.Engine(attempt)
		if !ok {
			lastErr = fmt.Errorf("%w: no engine for tier %q", domain.ErrConfiguration, attempt)
			continue
		}

		text, err := d.invoke(ctx, engine, messages, systemPrompt)
		if err == nil {
			observability.EngineRequestsTotal.WithLabelValues(string(attempt), "success").Inc()
			return domain.DispatchResult{
				Text:       text,
				Engine:     attempt,
				EngineName: engine.DisplayName(),
				Reason:     reason,
			}, nil
		}

		observability.EngineRequestsTotal.WithLabelValues(string(attempt), "failure").Inc()
		slog.Warn("engine attempt failed",
			slog.String("engine", string(attempt)),
			slog.Int("attempt", i+1),
			slog.Any("error", err))
		if i+1 < len(plan) {
			observability.FallbackTotal.WithLabelValues(string(attempt), string(plan[i+1])).Inc()
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: empty fallback plan", domain.ErrInternal)
	}
	if !errors.Is(lastErr, domain.ErrProvider) && !errors.Is(lastErr, domain.ErrConfiguration) && !errors.Is(lastErr, domain.ErrUpstreamTimeout) {
		lastErr = fmt.Errorf("%w: %v", domain.ErrProvider, lastErr)
	}
	slog.Error("all engines failed", slog.String("initial_tier", string(tier)), slog.Any("error", lastErr))
	return domain.DispatchResult{}, lastErr
}

// invoke runs one engine attempt under the per-attempt deadline. A timeout
// counts as a retryable provider failure and advances the plan.
func (d *Dispatcher) invoke(ctx context.Context, engine domain.Engine, messages []domain.Message, systemPrompt string) (string, error) {
	if d.attemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.attemptTimeout)
		defer cancel()
	}
	start := time.Now()
	text, err := engine.Invoke(ctx, messages, systemPrompt)
	observability.EngineRequestDuration.WithLabelValues(string(engine.Tier())).Observe(time.Since(start).Seconds())
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %s attempt timed out: %v", domain.ErrUpstreamTimeout, engine.Tier(), err)
	}
	return text, err
}
