package request

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/footage/internal/domain"
)

func TestNew_TrimsQuery(t *testing.T) {
	r, err := New("  wedding dance  ", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Query() != "wedding dance" {
		t.Errorf("Query() = %q", r.Query())
	}
	if r.Limit() != 5 {
		t.Errorf("Limit() = %d", r.Limit())
	}
}

func TestNew_EmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := New(q, 5)
		if err == nil {
			t.Fatalf("expected error for %q", q)
		}
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	}
}

func TestNew_QueryTooLong(t *testing.T) {
	_, err := New(strings.Repeat("a", MaxQueryLength+1), 5)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "too long") {
		t.Errorf("error = %q", err)
	}
}

func TestNew_LimitClamp(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-7, 1},
		{1, 1},
		{20, 20},
		{21, 20},
		{500, 20},
	}
	for _, tt := range tests {
		r, err := New("q", tt.in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Limit() != tt.want {
			t.Errorf("limit %d -> %d, want %d", tt.in, r.Limit(), tt.want)
		}
	}
}

func TestRequest_InitialK(t *testing.T) {
	tests := []struct {
		limit, mult, floor, want int
	}{
		{1, 3, 20, 20},
		{6, 3, 20, 20},
		{7, 3, 20, 21},
		{20, 3, 20, 60},
		{10, 0, 0, 30},
	}
	for _, tt := range tests {
		r, _ := New("q", tt.limit)
		if got := r.InitialK(tt.mult, tt.floor); got != tt.want {
			t.Errorf("InitialK(limit=%d, %d, %d) = %d, want %d", tt.limit, tt.mult, tt.floor, got, tt.want)
		}
	}
}
