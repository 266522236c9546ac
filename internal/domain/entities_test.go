package domain

import (
	"testing"
	"time"
)

func TestValidRole(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleSystem} {
		if !ValidRole(r) {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if ValidRole(Role("bot")) {
		t.Fatalf("unexpected valid role")
	}
}

func TestValidTier(t *testing.T) {
	for _, tier := range Tiers() {
		if !ValidTier(tier) {
			t.Fatalf("expected %q to be valid", tier)
		}
	}
	if ValidTier(EngineTier("turbo")) {
		t.Fatalf("unexpected valid tier")
	}
}

func TestLatestUserContent(t *testing.T) {
	now := time.Now()
	msgs := []Message{
		{Role: RoleSystem, Content: "sys", Timestamp: now},
		{Role: RoleUser, Content: "first", Timestamp: now},
		{Role: RoleAssistant, Content: "reply", Timestamp: now},
		{Role: RoleUser, Content: "second", Timestamp: now},
	}
	if got := LatestUserContent(msgs); got != "second" {
		t.Fatalf("want second, got %q", got)
	}
	if got := LatestUserContent(nil); got != "" {
		t.Fatalf("want empty for no messages, got %q", got)
	}
	if got := LatestUserContent([]Message{{Role: RoleAssistant, Content: "x"}}); got != "" {
		t.Fatalf("want empty when no user message, got %q", got)
	}
}
