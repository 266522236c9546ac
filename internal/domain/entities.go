package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInjection       = errors.New("injection suspected")
	ErrRateLimited     = errors.New("rate limited")
	ErrConfiguration   = errors.New("misconfiguration")
	ErrProvider        = errors.New("provider failure")
	ErrUpstreamTimeout = errors.New("upstream timeout")
	ErrInternal        = errors.New("internal error")
)

// Role enumerates chat message roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ValidRole reports whether r is one of the known chat roles.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// Message is a single conversation entry. Immutable once created;
// ordering within a conversation is insertion order.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// LatestUserContent returns the content of the most recent user-role message,
// or the empty string when none exists.
func LatestUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// EngineTier identifies one of the interchangeable backend engines.
type EngineTier string

const (
	TierFlash EngineTier = "flash"
	TierSpeed EngineTier = "speed"
	TierPro   EngineTier = "pro"
)

// Tiers lists all registered engine tiers.
func Tiers() []EngineTier { return []EngineTier{TierFlash, TierSpeed, TierPro} }

// ValidTier reports whether t names a registered engine tier.
func ValidTier(t EngineTier) bool {
	return t == TierFlash || t == TierSpeed || t == TierPro
}

// Verdict is the classifier's proposal for which tier should answer a message.
type Verdict struct {
	Tier   EngineTier
	Reason string
}

// Engine (port)
//
// Invoke builds the provider-specific payload (prepending the system prompt and
// mapping roles to the provider vocabulary), performs the network call, and
// translates a non-success response into an error wrapping ErrProvider carrying
// the provider's message. A missing credential is reported as ErrConfiguration.
type Engine interface {
	Invoke(ctx Context, messages []Message, systemPrompt string) (string, error)
	Tier() EngineTier
	DisplayName() string
}

// DispatchResult is what the dispatcher hands back on success.
type DispatchResult struct {
	Text       string
	Engine     EngineTier
	EngineName string
	Reason     string
}

// Context is an alias so services can stay decoupled from std context in
// signatures while adapters pass context.Context straight through.
type Context = context.Context
