package textx

import "testing"

func TestStripControl(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"null and bell", "a\x00b\x07c", "abc"},
		{"keeps tab newline cr", "a\tb\nc\rd", "a\tb\nc\rd"},
		{"vertical tab and form feed", "a\x0bb\x0cc", "abc"},
		{"del", "a\x7fb", "ab"},
		{"unicode preserved", "olá, café", "olá, café"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripControl(tc.in); got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
		})
	}
}
