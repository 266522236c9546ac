// Package gemini implements the flash and pro engines over the Gemini
// generateContent API. One Client serves one tier; the model name decides
// which.
package gemini

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/kizilabs/chat-gateway/internal/config"
	"github.com/kizilabs/chat-gateway/internal/domain"
)

// Client calls the Gemini generateContent endpoint for a single model.
type Client struct {
	cfg   config.Config
	tier  domain.EngineTier
	model string
	hc    *http.Client
}

// NewFlash constructs the flash-tier client.
func NewFlash(cfg config.Config) *Client {
	return newClient(cfg, domain.TierFlash, cfg.GeminiFlash)
}

// NewPro constructs the pro-tier client.
func NewPro(cfg config.Config) *Client {
	return newClient(cfg, domain.TierPro, cfg.GeminiPro)
}

func newClient(cfg config.Config, tier domain.EngineTier, model string) *Client {
	return &Client{
		cfg:   cfg,
		tier:  tier,
		model: model,
		hc:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Tier implements domain.Engine.
func (c *Client) Tier() domain.EngineTier { return c.tier }

// DisplayName implements domain.Engine.
func (c *Client) DisplayName() string { return "Gemini " + c.model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Invoke implements domain.Engine. Assistant turns map onto Gemini's "model"
// role; system-role turns are folded into the system instruction because the
// contents array only accepts user and model roles.
func (c *Client) Invoke(ctx domain.Context, messages []domain.Message, systemPrompt string) (string, error) {
	if c.cfg.GeminiAPIKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY missing", domain.ErrConfiguration)
	}

	sys := []string{}
	if systemPrompt != "" {
		sys = append(sys, systemPrompt)
	}
	contents := make([]content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			sys = append(sys, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		default:
			contents = append(contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		}
	}

	reqBody := generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: c.cfg.EngineMaxTokens,
		},
	}
	if len(sys) > 0 {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: strings.Join(sys, "\n\n")}}}
	}
	b, _ := json.Marshal(reqBody)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.cfg.GeminiBaseURL, c.model, c.cfg.GeminiAPIKey)

	var out generateResponse
	op := func() error {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return backoff.Permanent(err)
		}
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
			slog.Warn("engine rate limited", slog.String("provider", "gemini"), slog.String("model", c.model))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErrorMessage(bodyBytes)))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErrorMessage(bodyBytes))
		}
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			return fmt.Errorf("gemini decode: %v", err)
		}
		return nil
	}

	if err := backoff.Retry(op, c.newBackoff(ctx)); err != nil {
		slog.Error("gemini call failed", slog.String("model", c.model), slog.Any("error", err))
		return "", fmt.Errorf("%w: gemini %s: %v", domain.ErrProvider, c.model, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini %s: empty candidates", domain.ErrProvider, c.model)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
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

func apiErrorMessage(body []byte) string {
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
