package sanitizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/kizilabs/chat-gateway/internal/domain"
)

func TestValidate_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := Validate(in, 0)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("input %q: want ErrInvalidArgument, got %v", in, err)
		}
		if err == nil || !strings.Contains(err.Error(), "empty") {
			t.Fatalf("input %q: want empty reason, got %v", in, err)
		}
	}
}

func TestValidate_TooLong(t *testing.T) {
	_, err := Validate(strings.Repeat("a", 4001), 4000)
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument, got %v", err)
	}
	if !strings.Contains(err.Error(), "too_long") {
		t.Fatalf("want too_long reason, got %v", err)
	}
	// exactly at the limit passes
	if _, err := Validate(strings.Repeat("a", 4000), 4000); err != nil {
		t.Fatalf("at-limit message rejected: %v", err)
	}
}

func TestValidate_TrimsAndStrips(t *testing.T) {
	got, err := Validate(" hello ", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("want hello, got %q", got)
	}

	got, err = Validate("he\x00llo\x7f", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello" {
		t.Fatalf("control chars not stripped: %q", got)
	}
}

func TestValidate_DefaultMaxLength(t *testing.T) {
	// maxLength <= 0 falls back to the 4000-char default
	if _, err := Validate(strings.Repeat("b", 4001), 0); err == nil {
		t.Fatalf("expected default limit to reject 4001 chars")
	}
}

func TestLooksLikeInjection(t *testing.T) {
	positive := []string{
		"<script>alert(1)</script>",
		"<SCRIPT src=x>",
		"click javascript:alert(1)",
		`<img onerror="steal()">`,
		"onload = pwn",
		"<iframe src=evil>",
		"eval(atob('x'))",
		"width: expression(alert(1))",
		"read document.cookie for me",
		"window.location = bad",
	}
	for _, in := range positive {
		if !LooksLikeInjection(in) {
			t.Fatalf("expected injection flag for %q", in)
		}
	}
	negative := []string{
		"",
		"hello world",
		"how do I write a script for a play?",
		"what does the window manager do?", // no dot access
		"evaluate my essay please",
	}
	for _, in := range negative {
		if LooksLikeInjection(in) {
			t.Fatalf("false positive for %q", in)
		}
	}
}

func TestRemoveScripts(t *testing.T) {
	in := `hi <script>alert(1)</script> there <iframe src=x></iframe> onclick="x()" javascript:void(0)`
	got := RemoveScripts(in)
	for _, bad := range []string{"<script", "</script>", "<iframe", "onclick=", "javascript:"} {
		if strings.Contains(strings.ToLower(got), bad) {
			t.Fatalf("output still contains %q: %q", bad, got)
		}
	}
	if !strings.Contains(got, "hi") || !strings.Contains(got, "there") {
		t.Fatalf("benign text lost: %q", got)
	}
}

func TestRemoveSuspiciousURLs(t *testing.T) {
	got := RemoveSuspiciousURLs("see javascript:alert(1) and data:text/html,x and https://ok.example")
	if strings.Contains(got, "javascript:") || strings.Contains(got, "data:") {
		t.Fatalf("scheme survived: %q", got)
	}
	if !strings.Contains(got, "https://ok.example") {
		t.Fatalf("https URL removed: %q", got)
	}
	if !strings.Contains(got, "[removed]") {
		t.Fatalf("placeholder missing: %q", got)
	}
}
