package redact

import (
	"strings"
	"testing"
)

func TestEmails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no email", "quarterly report for finance", "quarterly report for finance"},
		{"plain email", "send to alice@example.com today", "send to " + Placeholder + " today"},
		{"subaddressed", "cc bob+reports@dept.example.co.uk", "cc " + Placeholder},
		{"two emails", "a@b.io and c@d.io", Placeholder + " and " + Placeholder},
		{"email inside word boundary", "contact:eve@corp.example.org.", "contact:" + Placeholder + "."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Emails(tt.in); got != tt.want {
				t.Errorf("Emails(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHasEmail(t *testing.T) {
	t.Parallel()

	if !HasEmail("reach me at carol@example.net") {
		t.Error("expected email detection")
	}
	if HasEmail("no addresses here, not even at signs used properly") {
		t.Error("unexpected email detection")
	}
	// An @ without a domain suffix is not an address.
	if HasEmail("user@localhost") {
		t.Error("bare hostname should not match")
	}
}

func TestEmails_NeverLeaves(t *testing.T) {
	t.Parallel()

	out := Emails("first a@b.com then c.d@e-f.org then done")
	if strings.Contains(out, "@") && !strings.Contains(out, Placeholder) {
		t.Errorf("redaction left an address: %q", out)
	}
	if HasEmail(out) {
		t.Errorf("redacted output still matches: %q", out)
	}
}
