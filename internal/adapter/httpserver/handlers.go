package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kizilabs/chat-gateway/internal/config"
	"github.com/kizilabs/chat-gateway/internal/domain"
	"github.com/kizilabs/chat-gateway/internal/usecase"
)

// maxChatBodyBytes caps the JSON request body for the chat endpoint.
const maxChatBodyBytes = 1 << 20

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Chat       *usecase.ChatService
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, chat *usecase.ChatService, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Chat: chat, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type chatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages" validate:"required,min=1,dive"`
	ForceEngine string        `json:"force_engine" validate:"omitempty,oneof=flash speed pro"`
}

type chatResponse struct {
	Response   string `json:"response"`
	Engine     string `json:"engine"`
	EngineName string `json:"engine_name"`
	Reason     string `json:"reason"`
}

// ChatHandler handles POST /v1/chat.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Accept negotiation: only JSON responses supported
		if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
			writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a}}})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_bytes": maxChatBodyBytes}}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}

		session, err := sessionIdentity(w, r)
		if err != nil {
			writeError(w, r, err, map[string]string{"header": sessionHeader})
			return
		}

		messages := make([]domain.Message, 0, len(req.Messages))
		for _, m := range req.Messages {
			messages = append(messages, domain.Message{
				Role:      domain.Role(m.Role),
				Content:   m.Content,
				Timestamp: time.Now(),
			})
		}
		var forced *domain.EngineTier
		if req.ForceEngine != "" {
			tier := domain.EngineTier(req.ForceEngine)
			forced = &tier
		}

		res, err := s.Chat.Chat(r.Context(), session, messages, forced)
		if err != nil {
			var rle *usecase.RateLimitedError
			if errors.As(err, &rle) {
				secs := int(rle.RetryAfter / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, r, err, map[string]any{"retry_after_seconds": secs})
				return
			}
			writeError(w, r, err, nil)
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{
			Response:   res.Text,
			Engine:     string(res.Engine),
			EngineName: res.EngineName,
			Reason:     res.Reason,
		})
	}
}

// HealthzHandler reports process liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler verifies the gateway can actually serve: engine credentials
// are present (or the stub set is active in dev) and Redis answers when the
// shared limiter is configured.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 3)

		stubbed := s.Cfg.IsDev() && s.Cfg.GeminiAPIKey == "" && s.Cfg.GroqAPIKey == ""
		if stubbed {
			checks = append(checks, check{Name: "engines", OK: true, Details: "stub"})
		} else {
			if s.Cfg.GeminiAPIKey == "" {
				checks = append(checks, check{Name: "gemini", OK: false, Details: "GEMINI_API_KEY missing"})
			} else {
				checks = append(checks, check{Name: "gemini", OK: true})
			}
			if s.Cfg.GroqAPIKey == "" {
				checks = append(checks, check{Name: "groq", OK: false, Details: "GROQ_API_KEY missing"})
			} else {
				checks = append(checks, check{Name: "groq", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}

		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

// AdminResetHandler handles POST /v1/admin/limits/reset: clears rate-limit
// windows and behavior logs across all sessions.
func (s *Server) AdminResetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Chat.ResetLimits(r.Context()); err != nil {
			writeError(w, r, fmt.Errorf("%w: reset failed: %v", domain.ErrInternal, err), nil)
			return
		}
		LoggerFrom(r).Info("limits reset by admin")
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	}
}
