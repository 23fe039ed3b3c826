package services

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw    string
		prefix string
		want   string
	}{
		{"9876543210", "+91", "+919876543210"},
		{"  9876543210 ", "+91", "+919876543210"},
		{"+14155550100", "+91", "+14155550100"},
		{"9876543210", "44", "+449876543210"},
		{"9876543210", "", "+919876543210"},
		{"", "+91", ""},
		{"   ", "+91", ""},
	}
	for _, tt := range cases {
		got := NormalizePhone(tt.raw, tt.prefix)
		if got != tt.want {
			t.Fatalf("NormalizePhone(%q, %q)=%q, want %q", tt.raw, tt.prefix, got, tt.want)
		}
		if again := NormalizePhone(got, tt.prefix); again != got {
			t.Fatalf("NormalizePhone not idempotent: %q -> %q", got, again)
		}
	}
}
