package infra

import (
	"context"
	"errors"

	"rest-gateway/middleware/ratelimit/domain"
)

// MultiStats fans an event out to every sink. All sinks are tried even when
// one fails.
type MultiStats []domain.StatsStore

func (m MultiStats) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
