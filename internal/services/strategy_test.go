package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRunStrategies(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	tests := []struct {
		name     string
		results  []error
		next     func(error) bool
		wantName string
		wantErr  error
		wantRuns int
	}{
		{
			name:     "first succeeds",
			results:  []error{nil, nil},
			next:     func(error) bool { return true },
			wantName: "s0",
			wantRuns: 1,
		},
		{
			name:     "falls through to second",
			results:  []error{errA, nil},
			next:     func(error) bool { return true },
			wantName: "s1",
			wantRuns: 2,
		},
		{
			name:     "exhausted returns last error",
			results:  []error{errA, errB},
			next:     func(error) bool { return true },
			wantName: "s1",
			wantErr:  errB,
			wantRuns: 2,
		},
		{
			name:     "next stops the chain",
			results:  []error{errA, nil},
			next:     func(error) bool { return false },
			wantName: "s0",
			wantErr:  errA,
			wantRuns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := 0
			chain := make([]strategy, len(tt.results))
			for i, res := range tt.results {
				res := res
				chain[i] = strategy{
					name: "s" + string(rune('0'+i)),
					run: func(ctx context.Context) error {
						runs++
						return res
					},
				}
			}

			name, err := runStrategies(context.Background(), "test", chain, tt.next)
			if name != tt.wantName {
				t.Errorf("expected strategy %s, got %s", tt.wantName, name)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
			if runs != tt.wantRuns {
				t.Errorf("expected %d runs, got %d", tt.wantRuns, runs)
			}
		})
	}
}

func TestRunStrategies_StepRuleOverridesChainRule(t *testing.T) {
	errResolved := errors.New("connection reset")
	errMismatch := &pgconn.PgError{Code: "42883"}

	tests := []struct {
		name     string
		first    error
		wantName string
		wantRuns int
	}{
		{name: "mismatch moves on", first: errMismatch, wantName: "second", wantRuns: 2},
		{name: "other failure stops", first: errResolved, wantName: "first", wantRuns: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := 0
			chain := []strategy{
				{
					name: "first",
					run:  func(ctx context.Context) error { runs++; return tt.first },
					next: isSignatureMismatch,
				},
				{name: "second", run: func(ctx context.Context) error { runs++; return nil }},
			}

			name, _ := runStrategies(context.Background(), "test", chain, func(error) bool { return true })
			if name != tt.wantName {
				t.Errorf("expected strategy %s, got %s", tt.wantName, name)
			}
			if runs != tt.wantRuns {
				t.Errorf("expected %d runs, got %d", tt.wantRuns, runs)
			}
		})
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		signature bool
		unique    bool
		privilege bool
		noData    bool
	}{
		{"nil", nil, false, false, false, false},
		{"undefined function", &pgconn.PgError{Code: "42883"}, true, false, false, false},
		{"ambiguous function", &pgconn.PgError{Code: "42725"}, true, false, false, false},
		{"ambiguous message", errors.New("function kick_party_member is ambiguous"), true, false, false, false},
		{"does not exist message", errors.New("function foo(uuid) does not exist"), true, false, false, false},
		{"unique", &pgconn.PgError{Code: "23505"}, false, true, false, false},
		{"privilege", &pgconn.PgError{Code: "42501"}, false, false, true, false},
		{"no data", &pgconn.PgError{Code: "P0002"}, false, false, false, true},
		{"plain", errors.New("boom"), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSignatureMismatch(tt.err); got != tt.signature {
				t.Errorf("isSignatureMismatch = %v", got)
			}
			if got := isUniqueViolation(tt.err); got != tt.unique {
				t.Errorf("isUniqueViolation = %v", got)
			}
			if got := isInsufficientPrivilege(tt.err); got != tt.privilege {
				t.Errorf("isInsufficientPrivilege = %v", got)
			}
			if got := isNoDataFound(tt.err); got != tt.noData {
				t.Errorf("isNoDataFound = %v", got)
			}
		})
	}
}
