package classifier

import (
	"strings"
	"testing"

	"github.com/kizilabs/chat-gateway/internal/domain"
)

func TestClassify_Greetings(t *testing.T) {
	cases := []string{
		"hello",
		"Hi there",
		"hey",
		"thanks!",
		"thank you",
		"yes",
		"no",
		"ok",
		"bye",
		"good morning",
		"how are you?",
	}
	for _, in := range cases {
		v := Classify(in)
		if v.Tier != domain.TierFlash {
			t.Fatalf("%q: want flash, got %s (%s)", in, v.Tier, v.Reason)
		}
		if v.Reason != ReasonGreeting {
			t.Fatalf("%q: wrong reason %q", in, v.Reason)
		}
	}
}

func TestClassify_GreetingLengthCap(t *testing.T) {
	// greeting-shaped but 50+ chars: rule 1 must not apply
	in := "hello there my good friend, how is everything going today"
	if len(in) < 50 {
		t.Fatalf("test input too short: %d", len(in))
	}
	v := Classify(in)
	if v.Tier == domain.TierFlash {
		t.Fatalf("long message must not short-circuit to flash")
	}
}

func TestClassify_GreetingWinsOverComplexSignals(t *testing.T) {
	// matches thanks + code + analysis but rule 1 has precedence
	v := Classify("thanks for the code review!")
	if v.Tier != domain.TierFlash {
		t.Fatalf("want flash via greeting precedence, got %s", v.Tier)
	}
}

func TestClassify_ComplexSignals(t *testing.T) {
	cases := []string{
		"Can you analyze the difference between TCP and UDP?",       // analysis + comparison
		"explain step by step how does a garbage collector work",    // step_by_step + internals
		"debug this function for me",                                // debugging + code
		"implement an algorithm for shortest paths",                 // implementation + code
		"How does caching work? And when does it fail?",             // internals + multiple question marks
		"review our architecture plan",                              // analysis + architecture + strategy
	}
	for _, in := range cases {
		v := Classify(in)
		if v.Tier != domain.TierPro {
			t.Fatalf("%q: want pro, got %s (%s)", in, v.Tier, v.Reason)
		}
		if v.Reason != ReasonComplex {
			t.Fatalf("%q: wrong reason %q", in, v.Reason)
		}
	}
}

func TestClassify_LongMessageEscalates(t *testing.T) {
	in := strings.Repeat("tell me about the weather in lisbon ", 20)
	if len(in) <= 500 {
		t.Fatalf("test input too short: %d", len(in))
	}
	v := Classify(in)
	if v.Tier != domain.TierPro {
		t.Fatalf("want pro for >500 chars, got %s", v.Tier)
	}
}

func TestClassify_DefaultTier(t *testing.T) {
	cases := []string{
		"what time is it in tokyo",
		"recommend a book about whales",
		"who won the world cup in 2018",
		"", // post-validation this should not happen, but it must not panic
	}
	for _, in := range cases {
		v := Classify(in)
		if v.Tier != domain.TierSpeed {
			t.Fatalf("%q: want speed, got %s (%s)", in, v.Tier, v.Reason)
		}
		if v.Reason != ReasonDefault {
			t.Fatalf("%q: wrong reason %q", in, v.Reason)
		}
	}
}

func TestClassify_SingleSignalStaysDefault(t *testing.T) {
	// one complex signal is not enough
	v := Classify("is this error message serious")
	if v.Tier != domain.TierSpeed {
		t.Fatalf("one signal should stay speed, got %s (%s)", v.Tier, v.Reason)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	in := "explain step by step how does DNS resolution work"
	first := Classify(in)
	for i := 0; i < 10; i++ {
		if got := Classify(in); got != first {
			t.Fatalf("classification not deterministic: %+v vs %+v", first, got)
		}
	}
}

func TestPatternFileLoads(t *testing.T) {
	rs, err := loadRules()
	if err != nil {
		t.Fatalf("embedded patterns must compile: %v", err)
	}
	if len(rs.greetings) == 0 || len(rs.complex) == 0 {
		t.Fatalf("pattern groups missing: %d greetings, %d complex", len(rs.greetings), len(rs.complex))
	}
}
