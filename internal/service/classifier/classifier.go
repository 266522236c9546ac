// Package classifier proposes which engine tier should answer a message from
// a heuristic complexity estimate. Classification is a pure function of the
// message text; the pattern data is versioned YAML kept separate from the
// decision logic so the precedence rules stay independently testable.
package classifier

import (
	_ "embed"
	"fmt"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kizilabs/chat-gateway/internal/domain"
)

//go:embed patterns.yaml
var patternsYAML []byte

// Decision thresholds. Greetings only short-circuit below the length cap;
// two complex signals or a long message escalate to the pro tier.
const (
	greetingMaxLength = 50
	complexMinSignals = 2
	longMessageLength = 500
)

// Verdict reasons, stable strings surfaced to API clients.
const (
	ReasonGreeting = "short greeting or simple reply"
	ReasonComplex  = "complex question detected"
	ReasonDefault  = "medium complexity question"
	ReasonForced   = "engine forced by caller"
)

type patternFile struct {
	Version   int      `yaml:"version"`
	Greetings []string `yaml:"greetings"`
	Complex   []struct {
		Name     string   `yaml:"name"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"complex"`
}

type signalGroup struct {
	name     string
	patterns []*regexp.Regexp
}

type ruleset struct {
	greetings []*regexp.Regexp
	complex   []signalGroup
}

var (
	rulesOnce sync.Once
	rules     *ruleset
	rulesErr  error
)

func loadRules() (*ruleset, error) {
	rulesOnce.Do(func() {
		var pf patternFile
		if err := yaml.Unmarshal(patternsYAML, &pf); err != nil {
			rulesErr = fmt.Errorf("op=classifier.loadRules: %w", err)
			return
		}
		rs := &ruleset{}
		for _, p := range pf.Greetings {
			re, err := regexp.Compile(p)
			if err != nil {
				rulesErr = fmt.Errorf("op=classifier.loadRules: greeting pattern %q: %w", p, err)
				return
			}
			rs.greetings = append(rs.greetings, re)
		}
		for _, g := range pf.Complex {
			sg := signalGroup{name: g.Name}
			for _, p := range g.Patterns {
				re, err := regexp.Compile(p)
				if err != nil {
					rulesErr = fmt.Errorf("op=classifier.loadRules: group %q pattern %q: %w", g.Name, p, err)
					return
				}
				sg.patterns = append(sg.patterns, re)
			}
			rs.complex = append(rs.complex, sg)
		}
		rules = rs
	})
	return rules, rulesErr
}

// Classify returns the engine tier that should answer the message.
// Deterministic and never fails: pattern data is embedded, and any message
// that matches nothing falls through to the default tier.
func Classify(message string) domain.Verdict {
	rs, err := loadRules()
	if err != nil {
		// embedded patterns are validated by tests; fall back to default tier
		return domain.Verdict{Tier: domain.TierSpeed, Reason: ReasonDefault}
	}

	if len(message) < greetingMaxLength {
		for _, re := range rs.greetings {
			if re.MatchString(message) {
				return domain.Verdict{Tier: domain.TierFlash, Reason: ReasonGreeting}
			}
		}
	}

	signals := 0
	for _, g := range rs.complex {
		for _, re := range g.patterns {
			if re.MatchString(message) {
				signals++
				break
			}
		}
	}
	if signals >= complexMinSignals || len(message) > longMessageLength {
		return domain.Verdict{Tier: domain.TierPro, Reason: ReasonComplex}
	}

	return domain.Verdict{Tier: domain.TierSpeed, Reason: ReasonDefault}
}
