// Package stub provides a deterministic in-process engine for development
// and tests, used whenever real provider credentials are absent.
package stub

import (
	"fmt"

	"github.com/kizilabs/chat-gateway/internal/domain"
)

// Client answers locally without any network calls.
type Client struct {
	tier domain.EngineTier
}

// New constructs a stub engine for the given tier.
func New(tier domain.EngineTier) *Client {
	return &Client{tier: tier}
}

// Tier implements domain.Engine.
func (c *Client) Tier() domain.EngineTier { return c.tier }

// DisplayName implements domain.Engine.
func (c *Client) DisplayName() string { return "Stub " + string(c.tier) }

// Invoke implements domain.Engine. The reply echoes the latest user turn so
// handlers and tests can assert the round trip end to end.
func (c *Client) Invoke(ctx domain.Context, messages []domain.Message, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	latest := domain.LatestUserContent(messages)
	if latest == "" {
		return fmt.Sprintf("[%s] hello", c.tier), nil
	}
	return fmt.Sprintf("[%s] %s", c.tier, latest), nil
}
