package infra

import (
	"context"
	"errors"

	"mini-httpd/ratelimit/domain"
)

type multiStatsStore []domain.StatsStore

// NewMultiStatsStore repassa cada evento para todos os stores não nil.
// Com zero stores retorna nil; com um só, retorna ele mesmo.
func NewMultiStatsStore(stores ...domain.StatsStore) domain.StatsStore {
	var out multiStatsStore
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// Record tenta todos os stores mesmo que um falhe.
func (m multiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
