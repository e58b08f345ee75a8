package redact

import (
	"regexp"
	"strings"
	"testing"
	"unicode"
)

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func TestScrub_PhoneNumberDefaults(t *testing.T) {
	got := Scrub("Call me at 0977123456", DefaultOptions())

	if got != "Call me at "+Marker {
		t.Errorf("Scrub() = %q, want %q", got, "Call me at "+Marker)
	}
	if hasDigit(got) {
		t.Errorf("Scrub() leaked digits: %q", got)
	}
}

func TestScrub_Categories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"phone with country code", "phone +84977123456 ok", "phone " + Marker + " ok"},
		{"phone with separators", "phone 0977.123.456", "phone " + Marker},
		{"phone zambia", "phone +260977123456 ok", "phone " + Marker + " ok"},
		{"email", "mail nguyen.van.a@example.com now", "mail " + Marker + " now"},
		{"national id 12 digits", "cccd 001203004567", "cccd " + Marker},
		{"national id 9 digits", "cmnd 123456789", "cmnd " + Marker},
		{"card number spaced", "card 4111 1111 1111 1111", "card " + Marker},
		{"card number contiguous", "card 4111111111111111", "card " + Marker},
		{"pin", "otp 123456", "otp " + Marker},
		{"passport", "passport B1234567", "passport " + Marker},
		{"bank account", "acct 1903456789", "acct " + Marker},
		{"no pii", "loan approved", "loan approved"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scrub(tt.input, DefaultOptions())
			if got != tt.want {
				t.Errorf("Scrub(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestScrub_PhoneRuleCoversZambianNumbers(t *testing.T) {
	opts := Options{Phone: true, Mask: MaskFull}
	for _, in := range []string{
		"+260977123456",
		"+260 977 123 456",
		"260977123456",
		"0977123456",
	} {
		got := Scrub("call "+in, opts)
		if got != "call "+Marker {
			t.Errorf("Scrub(%q) with phone rule only = %q", in, got)
		}
	}
}

func TestScrub_PartialMask(t *testing.T) {
	opts := DefaultOptions()
	opts.Mask = MaskPartial

	got := Scrub("Call me at 0977123456", opts)
	want := "Call me at " + Marker + "56"
	if got != want {
		t.Errorf("Scrub() = %q, want %q", got, want)
	}
}

func TestScrub_CategoryToggles(t *testing.T) {
	opts := DefaultOptions()
	opts.Email = false

	input := "a@b.com 0977123456"
	got := Scrub(input, opts)
	if !strings.Contains(got, "a@b.com") {
		t.Errorf("email should be kept when disabled, got %q", got)
	}
	if strings.Contains(got, "0977123456") {
		t.Errorf("phone should still be scrubbed, got %q", got)
	}

	if got := Scrub(input, Options{}); got != input {
		t.Errorf("zero Options should scrub nothing, got %q", got)
	}
}

func TestScrub_NamesAreKeptByDefault(t *testing.T) {
	input := "Borrower Nguyen Van A submitted KYC"
	if got := Scrub(input, DefaultOptions()); got != input {
		t.Errorf("Scrub() = %q, want names untouched", got)
	}
}

func TestScrub_KnownFalsePositives(t *testing.T) {
	// Years and order numbers are masked by the heuristic rules.
	got := Scrub("order 20250101123 in 2025", DefaultOptions())
	if got != "order "+Marker+" in "+Marker {
		t.Errorf("Scrub() = %q", got)
	}
}

func TestScrub_ExtraRules(t *testing.T) {
	opts := Options{Extra: []Rule{{Name: "loan_id", Pattern: regexp.MustCompile(`GL-\d{4}-\d{3}`)}}}

	got := Scrub("loan GL-2025-001", opts)
	if got != "loan "+Marker {
		t.Errorf("Scrub() = %q", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"newPassword", true},
		{"access_token", true},
		{"refreshToken", true},
		{"client_secret", true},
		{"apiKey", true},
		{"api_key", true},
		{"X-API-KEY", true},
		{"email", false},
		{"loanId", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.want {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestParseMaskMode(t *testing.T) {
	if ParseMaskMode("partial") != MaskPartial {
		t.Error("expected partial")
	}
	if ParseMaskMode("PARTIAL ") != MaskPartial {
		t.Error("expected partial for mixed case")
	}
	if ParseMaskMode("bogus") != MaskFull {
		t.Error("unknown mode should fall back to full")
	}
	if MaskPartial.String() != "partial" || MaskFull.String() != "full" {
		t.Error("unexpected String() values")
	}
}

func TestRedactor_NilIsPassthrough(t *testing.T) {
	var r *Redactor
	if got := r.Scrub("0977123456"); got != "0977123456" {
		t.Errorf("nil Redactor.Scrub() = %q", got)
	}
}
