package redact

import (
	"regexp"
	"strings"
)

// Marker replaces every redacted value.
const Marker = "[REDACTED]"

// MaskMode controls how a pattern match is replaced.
type MaskMode int

const (
	// MaskFull replaces the whole match with Marker.
	MaskFull MaskMode = iota
	// MaskPartial replaces the match with Marker followed by the last two
	// characters of the original match.
	MaskPartial
)

// String returns the configuration name of the mode.
func (m MaskMode) String() string {
	switch m {
	case MaskPartial:
		return "partial"
	default:
		return "full"
	}
}

// ParseMaskMode parses "full" or "partial". Unknown values fall back to full.
func ParseMaskMode(s string) MaskMode {
	if strings.EqualFold(strings.TrimSpace(s), "partial") {
		return MaskPartial
	}
	return MaskFull
}

// Rule is a named detection pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Built-in rules, applied in this order.
var (
	PhoneRule       = Rule{"phone", regexp.MustCompile(`(?:\+260|\+84|\b260|\b84|\b0)(?:[ .\-]?\d){8,10}\b`)}
	EmailRule       = Rule{"email", regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)}
	NationalIDRule  = Rule{"national_id", regexp.MustCompile(`\b(?:\d{12}|\d{9})\b`)}
	CardNumberRule  = Rule{"card_number", regexp.MustCompile(`\b\d(?:[ \-]?\d){12,18}\b`)}
	PINRule         = Rule{"pin", regexp.MustCompile(`\b\d{4,6}\b`)}
	PassportRule    = Rule{"passport", regexp.MustCompile(`\b[A-Z]\d{7,8}\b`)}
	BankAccountRule = Rule{"bank_account", regexp.MustCompile(`\b\d{10,20}\b`)}
)

// Options selects which categories are scrubbed and how.
type Options struct {
	Phone       bool
	Email       bool
	NationalID  bool
	CardNumber  bool
	PIN         bool
	Passport    bool
	BankAccount bool

	// Mask selects the replacement policy for pattern matches.
	Mask MaskMode

	// Extra rules run after the built-in categories.
	Extra []Rule
}

// DefaultOptions scrubs every numeric and contact identifier with a full mask.
func DefaultOptions() Options {
	return Options{
		Phone:       true,
		Email:       true,
		NationalID:  true,
		CardNumber:  true,
		PIN:         true,
		Passport:    true,
		BankAccount: true,
		Mask:        MaskFull,
	}
}

func (o Options) rules() []Rule {
	rules := make([]Rule, 0, 7+len(o.Extra))
	add := func(enabled bool, r Rule) {
		if enabled {
			rules = append(rules, r)
		}
	}
	add(o.Phone, PhoneRule)
	add(o.Email, EmailRule)
	add(o.NationalID, NationalIDRule)
	add(o.CardNumber, CardNumberRule)
	add(o.PIN, PINRule)
	add(o.Passport, PassportRule)
	add(o.BankAccount, BankAccountRule)
	for _, r := range o.Extra {
		if r.Pattern != nil {
			rules = append(rules, r)
		}
	}
	return rules
}

// Scrub replaces every enabled pattern match in text.
func Scrub(text string, opts Options) string {
	if text == "" {
		return text
	}
	for _, rule := range opts.rules() {
		text = rule.Pattern.ReplaceAllStringFunc(text, func(match string) string {
			return mask(match, opts.Mask)
		})
	}
	return text
}

func mask(match string, mode MaskMode) string {
	if mode != MaskPartial {
		return Marker
	}
	r := []rune(match)
	if len(r) <= 2 {
		return Marker
	}
	return Marker + string(r[len(r)-2:])
}

// sensitiveKeyParts are field-name fragments that force wholesale redaction.
var sensitiveKeyParts = []string{"password", "token", "secret", "apikey"}

// IsSensitiveKey reports whether a field name must be redacted regardless of
// its value. Matching is case-insensitive and ignores '_' and '-'.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	k = strings.NewReplacer("_", "", "-", "").Replace(k)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(k, part) {
			return true
		}
	}
	return false
}

// Redactor binds a set of options so it can be handed to log sinks.
type Redactor struct {
	opts Options
}

// New creates a Redactor with the given options.
func New(opts Options) *Redactor {
	return &Redactor{opts: opts}
}

// NewDefault creates a Redactor with DefaultOptions.
func NewDefault() *Redactor {
	return New(DefaultOptions())
}

// Options returns the bound options.
func (r *Redactor) Options() Options {
	return r.opts
}

// Scrub scrubs text with the bound options. A nil Redactor returns text as is.
func (r *Redactor) Scrub(text string) string {
	if r == nil {
		return text
	}
	return Scrub(text, r.opts)
}

// ScrubDeep scrubs a structured value with the bound options.
func (r *Redactor) ScrubDeep(v any) any {
	if r == nil {
		return v
	}
	return ScrubDeep(v, r.opts)
}
