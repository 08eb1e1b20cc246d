package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/metrics"
)

// Postgres error codes the membership chains care about.
const (
	pgUndefinedFunction     = "42883"
	pgAmbiguousFunction     = "42725"
	pgUniqueViolation       = "23505"
	pgInsufficientPrivilege = "42501"
	pgNoDataFound           = "P0002"
)

// strategy is one attempt in an ordered fallback chain. When next is set it
// replaces the chain-wide rule for failures of this attempt.
type strategy struct {
	name string
	run  func(ctx context.Context) error
	next func(error) bool
}

// runStrategies runs each strategy in order until one succeeds. After a
// failure, the strategy's own next rule (or the chain-wide one) decides
// whether the chain moves on; when it says no, or the chain is exhausted,
// the last error is returned. The name of the strategy that produced the
// result is returned either way.
func runStrategies(ctx context.Context, chain string, strategies []strategy, next func(error) bool) (string, error) {
	var lastErr error
	for i, s := range strategies {
		err := s.run(ctx)
		if err == nil {
			metrics.RecordFallback(chain, s.name, "success")
			if i > 0 {
				logging.Info("Fallback strategy succeeded", logging.Fields{"chain": chain, "strategy": s.name})
			}
			return s.name, nil
		}
		lastErr = err

		more := next
		if s.next != nil {
			more = s.next
		}
		if i == len(strategies)-1 || !more(err) {
			metrics.RecordFallback(chain, s.name, "error")
			return s.name, err
		}

		metrics.RecordFallback(chain, s.name, "next")
		logging.Debug("Strategy failed, trying next", logging.Fields{"chain": chain, "strategy": s.name, "error": err})
	}
	return "", lastErr
}

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isSignatureMismatch reports errors caused by a stored function that does
// not exist under the called signature or resolves to several overloads.
func isSignatureMismatch(err error) bool {
	if err == nil {
		return false
	}
	switch pgErrorCode(err) {
	case pgUndefinedFunction, pgAmbiguousFunction:
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "ambiguous") || strings.Contains(msg, "does not exist")
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isInsufficientPrivilege(err error) bool {
	return pgErrorCode(err) == pgInsufficientPrivilege
}

func isNoDataFound(err error) bool {
	return pgErrorCode(err) == pgNoDataFound
}
