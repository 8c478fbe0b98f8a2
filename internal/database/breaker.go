package database

import (
	"context"
	"time"

	"nvd-api/internal/models"
	"nvd-api/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/xerrors"
)

// ErrStoreUnavailable is returned without touching the store while the
// breaker is open
var ErrStoreUnavailable = xerrors.New("store unavailable")

// GuardedStore fails fast once the wrapped store has failed too many times in
// a row. Validation errors and cancelled requests do not count as failures.
type GuardedStore struct {
	store DataStore
	cb    *gobreaker.CircuitBreaker
}

var _ DataStore = &GuardedStore{}

// Guarded wraps store with a circuit breaker that opens after failures
// consecutive errors and retries after cooldown. A zero failures value
// returns store unchanged.
func Guarded(store DataStore, failures uint32, cooldown time.Duration) DataStore {
	if failures == 0 {
		return store
	}

	logger := utils.NewLogger("breaker")
	settings := gobreaker.Settings{
		Name:        "store",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
		IsSuccessful: isStoreHealthy,
	}

	return &GuardedStore{store: store, cb: gobreaker.NewCircuitBreaker(settings)}
}

func isStoreHealthy(err error) bool {
	if err == nil {
		return true
	}
	return models.IsValidationError(err) ||
		xerrors.Is(err, context.Canceled) ||
		xerrors.Is(err, context.DeadlineExceeded)
}

func guard[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		v, err := fn()
		return v, err
	})
	if err != nil {
		var zero T
		if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, xerrors.Errorf("%s: %w", err.Error(), ErrStoreUnavailable)
		}
		return zero, err
	}
	return out.(T), nil
}

func (g *GuardedStore) SeverityDistribution(ctx context.Context) ([]models.SeverityCount, error) {
	return guard(g.cb, func() ([]models.SeverityCount, error) {
		return g.store.SeverityDistribution(ctx)
	})
}

func (g *GuardedStore) SeverityByYear(ctx context.Context) ([]models.SeverityYear, error) {
	return guard(g.cb, func() ([]models.SeverityYear, error) {
		return g.store.SeverityByYear(ctx)
	})
}

func (g *GuardedStore) WorstAffected(ctx context.Context, kind models.AffectedKind) ([]models.AffectedCount, error) {
	return guard(g.cb, func() ([]models.AffectedCount, error) {
		return g.store.WorstAffected(ctx, kind)
	})
}

func (g *GuardedStore) TopVulnerabilities(ctx context.Context, ver models.CVSSVersion, score models.ScoreType) ([]models.VectorScore, error) {
	return guard(g.cb, func() ([]models.VectorScore, error) {
		return g.store.TopVulnerabilities(ctx, ver, score)
	})
}

func (g *GuardedStore) Lookup(ctx context.Context, kind models.LookupKind, id string) ([]models.Record, error) {
	return guard(g.cb, func() ([]models.Record, error) {
		return g.store.Lookup(ctx, kind, id)
	})
}

func (g *GuardedStore) Close() error {
	return g.store.Close()
}
