package accounts

import (
	"context"
	"errors"

	"rest-gateway/middleware/ratelimit/domain"
)

// Lookup adapts a Store to the classifier's account existence check.
type Lookup struct {
	Store Store
}

var _ domain.AccountLookup = Lookup{}

func (l Lookup) LookupAccount(ctx context.Context, id string) error {
	_, err := l.Store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return domain.ErrAccountNotFound
	}
	return err
}
