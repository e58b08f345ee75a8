package cache

import (
	"strings"
	"testing"
)

type loanID string

func (l loanID) String() string { return "loan-" + string(l) }

func TestBuildKey_LoanDetail(t *testing.T) {
	got := BuildKey("loans", "detail", "GL-2025-001")
	want := "goodleaf:cache:loans:detail:GL-2025-001"
	if got != want {
		t.Errorf("BuildKey() = %q, want %q", got, want)
	}
}

func TestBuildKey_Parts(t *testing.T) {
	var nilID *loanID

	tests := []struct {
		name      string
		namespace string
		parts     []any
		want      string
	}{
		{"no parts", "loans", nil, "goodleaf:cache:loans"},
		{"empty namespace", "", []any{"x"}, "goodleaf:cache:global:x"},
		{"blank namespace", "   ", []any{"x"}, "goodleaf:cache:global:x"},
		{"nil dropped", "loans", []any{nil, "detail", nil}, "goodleaf:cache:loans:detail"},
		{"empty dropped", "loans", []any{"", "detail", "  "}, "goodleaf:cache:loans:detail"},
		{"typed nil dropped", "loans", []any{nilID, "detail"}, "goodleaf:cache:loans:detail"},
		{"numbers", "loans", []any{"page", 2, int64(50)}, "goodleaf:cache:loans:page:2:50"},
		{"bool", "settings", []any{true}, "goodleaf:cache:settings:true"},
		{"stringer", "loans", []any{loanID("7")}, "goodleaf:cache:loans:loan-7"},
		{"string slice", "loans", []any{[]string{"detail", "GL-2025-001"}}, "goodleaf:cache:loans:detail:GL-2025-001"},
		{"any slice", "loans", []any{[]any{"detail", nil, 3}}, "goodleaf:cache:loans:detail:3"},
		{"trimmed", "loans", []any{" detail "}, "goodleaf:cache:loans:detail"},
		{"case preserved", "Loans", []any{"Detail"}, "goodleaf:cache:Loans:Detail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildKey(tt.namespace, tt.parts...); got != tt.want {
				t.Errorf("BuildKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildKey_Deterministic(t *testing.T) {
	a := BuildKey("loans", "detail", "GL-2025-001")
	b := BuildKey("loans", "detail", "GL-2025-001")
	if a != b {
		t.Errorf("same inputs produced %q and %q", a, b)
	}
}

func TestBuildKey_OrderSensitive(t *testing.T) {
	a := BuildKey("loans", "a", "b")
	b := BuildKey("loans", "b", "a")
	if a == b {
		t.Errorf("different part order produced same key %q", a)
	}
}

func TestKeyRegistry(t *testing.T) {
	r := NewKeyRegistry("acme:cache")

	if got := r.Build("loans", "detail"); got != "acme:cache:loans:detail" {
		t.Errorf("Build() = %q", got)
	}
	if got := r.Namespace("loans"); got != "acme:cache:loans:" {
		t.Errorf("Namespace() = %q", got)
	}
	if !strings.HasPrefix(r.Build("loans", "x"), r.Namespace("loans")) {
		t.Error("namespace prefix does not match built key")
	}
	if strings.HasPrefix(r.Build("loansx", "x"), r.Namespace("loans")) {
		t.Error("namespace prefix matched a different namespace")
	}

	if got := NewKeyRegistry("").Prefix(); got != DefaultPrefix {
		t.Errorf("blank prefix = %q, want %q", got, DefaultPrefix)
	}
}

func TestKeyRegistry_NamespaceOf(t *testing.T) {
	r := KeyRegistry{}
	tests := []struct {
		key  string
		want string
	}{
		{BuildKey("loans", "detail", "1"), "loans"},
		{BuildKey("settings"), "settings"},
		{BuildKey(""), GlobalNamespace},
		{"other:prefix:loans", ""},
	}
	for _, tt := range tests {
		if got := r.NamespaceOf(tt.key); got != tt.want {
			t.Errorf("NamespaceOf(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestBuildKey_PassesValidation(t *testing.T) {
	if err := ValidateKey(BuildKey("loans", "detail", "GL-2025-001")); err != nil {
		t.Errorf("ValidateKey() = %v", err)
	}
}
