// Package dispatch selects an engine for a chat request and executes the
// ordered fallback chain across backends so a single provider outage does not
// fail the request.
package dispatch

import (
	"fmt"

	"github.com/kizilabs/chat-gateway/internal/domain"
)

// Registry holds the configured engines, one per tier. Fixed at startup and
// read-only afterwards, so it needs no synchronization.
type Registry struct {
	engines map[domain.EngineTier]domain.Engine
}

// NewRegistry wires the engine set. Every tier must be present; a partial
// registry is a deployment misconfiguration surfaced at startup.
func NewRegistry(engines ...domain.Engine) (*Registry, error) {
	m := make(map[domain.EngineTier]domain.Engine, len(engines))
	for _, e := range engines {
		tier := e.Tier()
		if !domain.ValidTier(tier) {
			return nil, fmt.Errorf("%w: unknown engine tier %q", domain.ErrConfiguration, tier)
		}
		if _, dup := m[tier]; dup {
			return nil, fmt.Errorf("%w: duplicate engine for tier %q", domain.ErrConfiguration, tier)
		}
		m[tier] = e
	}
	for _, tier := range domain.Tiers() {
		if _, ok := m[tier]; !ok {
			return nil, fmt.Errorf("%w: no engine registered for tier %q", domain.ErrConfiguration, tier)
		}
	}
	return &Registry{engines: m}, nil
}

// Engine returns the engine serving the tier.
func (r *Registry) Engine(tier domain.EngineTier) (domain.Engine, bool) {
	e, ok := r.engines[tier]
	return e, ok
}

// fallbackPlans maps each initial tier to the full attempt order: a
// permutation of all three engines with the chosen tier first.
var fallbackPlans = map[domain.EngineTier][3]domain.EngineTier{
	domain.TierPro:   {domain.TierPro, domain.TierSpeed, domain.TierFlash},
	domain.TierSpeed: {domain.TierSpeed, domain.TierPro, domain.TierFlash},
	domain.TierFlash: {domain.TierFlash, domain.TierSpeed, domain.TierPro},
}

// defaultPlan is used when the initial tier is unrecognized.
var defaultPlan = [3]domain.EngineTier{domain.TierSpeed, domain.TierPro, domain.TierFlash}

// PlanFor returns the ordered attempt sequence for the initial tier.
func PlanFor(tier domain.EngineTier) [3]domain.EngineTier {
	if plan, ok := fallbackPlans[tier]; ok {
		return plan
	}
	return defaultPlan
}
