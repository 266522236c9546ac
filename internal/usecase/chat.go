// Package usecase wires the chat pipeline: validation, injection screening,
// rate limiting, behavior telemetry, then engine dispatch.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kizilabs/chat-gateway/internal/adapter/observability"
	"github.com/kizilabs/chat-gateway/internal/config"
	"github.com/kizilabs/chat-gateway/internal/domain"
	"github.com/kizilabs/chat-gateway/internal/service/behavior"
	"github.com/kizilabs/chat-gateway/internal/service/dispatch"
	"github.com/kizilabs/chat-gateway/internal/service/ratelimiter"
	"github.com/kizilabs/chat-gateway/internal/service/sanitizer"
)

// RateLimitedError carries the wait hint alongside the sentinel so the HTTP
// layer can emit a Retry-After header.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return domain.ErrRateLimited }

// ChatService runs one chat turn through the gateway pipeline.
type ChatService struct {
	cfg        config.Config
	limiter    ratelimiter.Limiter
	tracker    *behavior.Tracker
	dispatcher *dispatch.Dispatcher
}

// NewChatService constructs the pipeline.
func NewChatService(cfg config.Config, limiter ratelimiter.Limiter, tracker *behavior.Tracker, dispatcher *dispatch.Dispatcher) *ChatService {
	return &ChatService{cfg: cfg, limiter: limiter, tracker: tracker, dispatcher: dispatcher}
}

// Chat validates and screens the conversation, applies the per-session rate
// limit, records behavior telemetry, and dispatches to an engine. Stage order
// matters: a malformed or injecting message must not consume a rate-limit
// slot, and the behavior score stays advisory.
func (s *ChatService) Chat(ctx context.Context, sessionID string, messages []domain.Message, forced *domain.EngineTier) (domain.DispatchResult, error) {
	if len(messages) == 0 {
		return domain.DispatchResult{}, fmt.Errorf("op=usecase.Chat: %w: messages required", domain.ErrInvalidArgument)
	}
	for i := range messages {
		if !domain.ValidRole(messages[i].Role) {
			return domain.DispatchResult{}, fmt.Errorf("op=usecase.Chat: %w: unknown role %q", domain.ErrInvalidArgument, messages[i].Role)
		}
	}
	if forced != nil && !domain.ValidTier(*forced) {
		return domain.DispatchResult{}, fmt.Errorf("op=usecase.Chat: %w: unknown engine %q", domain.ErrInvalidArgument, *forced)
	}

	cleaned, err := s.screen(messages)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("op=usecase.Chat: %w", err)
	}

	allowed, retryAfter, err := s.limiter.Allow(ctx, sessionID)
	if err != nil {
		// The limiter fails open; the error is telemetry, not a verdict.
		slog.Warn("rate limiter error, failing open", slog.String("session", sessionID), slog.Any("error", err))
	}
	if !allowed {
		observability.RateLimitRejectionsTotal.Inc()
		return domain.DispatchResult{}, &RateLimitedError{RetryAfter: retryAfter}
	}

	s.observe(sessionID)

	res, err := s.dispatcher.Dispatch(ctx, cleaned, forced, s.cfg.SystemPrompt)
	if err != nil {
		return domain.DispatchResult{}, fmt.Errorf("op=usecase.Chat: %w", err)
	}

	// Engine output is rendered in a browser; strip active content before it
	// leaves the gateway.
	res.Text = sanitizer.RemoveSuspiciousURLs(sanitizer.RemoveScripts(res.Text))
	return res, nil
}

// screen sanitizes every user turn and rejects the conversation when any user
// turn carries an injection pattern.
func (s *ChatService) screen(messages []domain.Message) ([]domain.Message, error) {
	cleaned := make([]domain.Message, len(messages))
	copy(cleaned, messages)
	for i := range cleaned {
		if cleaned[i].Role != domain.RoleUser {
			continue
		}
		msg, err := sanitizer.Validate(cleaned[i].Content, s.cfg.MaxMessageLength)
		if err != nil {
			return nil, err
		}
		if sanitizer.LooksLikeInjection(msg) {
			return nil, fmt.Errorf("%w: user message rejected", domain.ErrInjection)
		}
		cleaned[i].Content = msg
	}
	return cleaned, nil
}

// observe records the turn in the behavior tracker. Advisory only: a
// suspicious session is logged and counted, never blocked.
func (s *ChatService) observe(sessionID string) {
	suspicious, score := s.tracker.RecordAction(sessionID, "chat", time.Now())
	if suspicious {
		observability.BehaviorSuspicionTotal.Inc()
		slog.Warn("suspicious session behavior",
			slog.String("session", sessionID),
			slog.Float64("score", score))
	}
}

// ResetLimits clears rate-limit and behavior state (administrative operation).
func (s *ChatService) ResetLimits(ctx context.Context) error {
	if err := s.limiter.Reset(ctx); err != nil {
		return fmt.Errorf("op=usecase.ResetLimits: %w", err)
	}
	s.tracker.ResetAll()
	return nil
}
