package sqlsafe

import (
	"errors"
	"strings"
	"testing"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
)

func TestValidIdent(t *testing.T) {
	tests := []struct {
		name  string
		ident string
		want  bool
	}{
		{"simple", "city", true},
		{"underscore prefix", "_internal", true},
		{"digits", "data_1028", true},
		{"empty", "", false},
		{"leading digit", "1028_data", false},
		{"uppercase", "City", false},
		{"quote", `col"name`, false},
		{"semicolon", "col;drop table x", false},
		{"space", "col name", false},
		{"too long", strings.Repeat("a", 64), false},
		{"at limit", strings.Repeat("a", 63), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidIdent(tt.ident); got != tt.want {
				t.Errorf("ValidIdent(%q) = %v, want %v", tt.ident, got, tt.want)
			}
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	q, err := QuoteIdent("column_name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q != `"column_name"` {
		t.Errorf("QuoteIdent = %q", q)
	}

	_, err = QuoteIdent(`x";DROP TABLE y;--`)
	if !errors.Is(err, apperrors.ErrInvalidIdent) {
		t.Errorf("expected ErrInvalidIdent, got %v", err)
	}
}

func TestJoinQuoted(t *testing.T) {
	out, err := JoinQuoted([]string{"a", "b"}, ", ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `"a", "b"` {
		t.Errorf("JoinQuoted = %q", out)
	}

	if _, err := JoinQuoted([]string{"a", "no good"}, ","); err == nil {
		t.Error("expected error for invalid member")
	}
}

func TestCheckText(t *testing.T) {
	if err := CheckText("missing phone numbers for most sellers"); err != nil {
		t.Errorf("benign comment rejected: %v", err)
	}
	if err := CheckText("' OR 1=1 --"); !errors.Is(err, apperrors.ErrSuspectInput) {
		t.Errorf("expected ErrSuspectInput, got %v", err)
	}
}
