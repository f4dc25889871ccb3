package domain

import (
	"context"
	"errors"
	"time"
)

var ErrAccountNotFound = errors.New("account not found")

// ProUserClaim is the decoded payload of a verified bearer token.
type ProUserClaim struct {
	AccountID string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenVerifier checks signature and expiry of a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (ProUserClaim, error)
}

// AccountLookup resolves an account id. Implementations return
// ErrAccountNotFound when the account does not exist.
type AccountLookup interface {
	LookupAccount(ctx context.Context, id string) error
}
