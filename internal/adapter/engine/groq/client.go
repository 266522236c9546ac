// Package groq implements the speed engine over Groq's OpenAI-compatible
// chat completions API.
package groq

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/kizilabs/chat-gateway/internal/config"
	"github.com/kizilabs/chat-gateway/internal/domain"
)

// Client calls the Groq chat completions endpoint.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New constructs the speed engine client.
func New(cfg config.Config) *Client {
	return &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Tier implements domain.Engine.
func (c *Client) Tier() domain.EngineTier { return domain.TierSpeed }

// DisplayName implements domain.Engine.
func (c *Client) DisplayName() string { return "Groq " + c.cfg.GroqModel }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Invoke implements domain.Engine. The system prompt is prepended as a
// system-role message; internal roles map one-to-one onto the OpenAI
// vocabulary.
func (c *Client) Invoke(ctx domain.Context, messages []domain.Message, systemPrompt string) (string, error) {
	if c.cfg.GroqAPIKey == "" {
		return "", fmt.Errorf("%w: GROQ_API_KEY missing", domain.ErrConfiguration)
	}

	payload := make([]chatMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		payload = append(payload, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		payload = append(payload, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	body := map[string]any{
		"model":       c.cfg.GroqModel,
		"messages":    payload,
		"temperature": 0.7,
		"max_tokens":  c.cfg.EngineMaxTokens,
	}
	b, _ := json.Marshal(body)

	var out chatResponse
	op := func() error {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.GroqBaseURL+"/chat/completions", bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
		r.Header.Set("Authorization", "Bearer "+c.cfg.GroqAPIKey)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("engine rate limited", slog.String("provider", "groq"), slog.Int("status", resp.StatusCode))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("groq status %d: %s", resp.StatusCode, providerMessage(bodyBytes)))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("groq status %d: %s", resp.StatusCode, providerMessage(bodyBytes))
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			return fmt.Errorf("groq decode: %v", err)
		}
		return nil
	}

	if err := backoff.Retry(op, c.newBackoff(ctx)); err != nil {
		slog.Error("groq call failed", slog.String("model", c.cfg.GroqModel), slog.Any("error", err))
		return "", fmt.Errorf("%w: groq: %v", domain.ErrProvider, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: groq: empty choices", domain.ErrProvider)
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) newBackoff(ctx domain.Context) backoff.BackOffContext {
	expo := backoff.NewExponentialBackOff()
	maxElapsed, initial, maxInterval, multiplier := c.cfg.EngineBackoff()
	expo.MaxElapsedTime = maxElapsed
	expo.InitialInterval = initial
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return backoff.WithContext(expo, ctx)
}

// providerMessage pulls the provider's error message out of an error body,
// falling back to a truncated snippet of the raw payload.
func providerMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	s := string(body)
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
