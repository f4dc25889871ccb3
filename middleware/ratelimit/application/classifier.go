package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"rest-gateway/middleware/ratelimit/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultPartnerUser is the Basic username partners authenticate with.
const DefaultPartnerUser = "BITBOX"

// TierClassifier maps a credential to a tier. Implementations never fail:
// anything unexpected resolves to domain.TierAnonymous.
type TierClassifier interface {
	Classify(ctx context.Context, cred domain.Credential) domain.Tier
}

type ClassifierConfig struct {
	PartnerUser    string
	PartnerSecrets []string

	Tokens   domain.TokenVerifier
	Accounts domain.AccountLookup
	// LookupTimeout bounds the account lookup. Defaults to 2s.
	LookupTimeout time.Duration

	Logger logrus.FieldLogger
}

// Classifier resolves Partner from a shared Basic secret and ProUser from a
// verified bearer token whose account exists.
type Classifier struct {
	partnerUser   string
	secrets       [][]byte
	tokens        domain.TokenVerifier
	accounts      domain.AccountLookup
	lookupTimeout time.Duration
	log           logrus.FieldLogger
	partnerLog    *rate.Sometimes
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	c := &Classifier{
		partnerUser:   cfg.PartnerUser,
		tokens:        cfg.Tokens,
		accounts:      cfg.Accounts,
		lookupTimeout: cfg.LookupTimeout,
		log:           cfg.Logger,
		partnerLog:    &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	if c.partnerUser == "" {
		c.partnerUser = DefaultPartnerUser
	}
	if c.lookupTimeout <= 0 {
		c.lookupTimeout = 2 * time.Second
	}
	if c.log == nil {
		c.log = discardLogger
	}
	for _, s := range cfg.PartnerSecrets {
		if s == "" {
			continue
		}
		c.secrets = append(c.secrets, []byte(s))
	}
	return c
}

// Classify returns Partner for a matching shared secret, ProUser for a valid
// token whose account exists, and Anonymous otherwise.
func (c *Classifier) Classify(ctx context.Context, cred domain.Credential) (tier domain.Tier) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Error("tier classification panicked; using anonymous tier")
			tier = domain.TierAnonymous
		}
	}()

	switch cred.Kind {
	case domain.CredentialBasic:
		if idx := c.partnerSecret(cred); idx >= 0 {
			c.partnerLog.Do(func() {
				c.log.WithField("secret_index", idx).Info("partner credential used")
			})
			return domain.TierPartner
		}
	case domain.CredentialBearer:
		if c.isProUser(ctx, cred.Token) {
			return domain.TierProUser
		}
	}
	return domain.TierAnonymous
}

// partnerSecret returns the index of the matching partner secret, or -1.
// Every secret is compared in constant time; there is no early exit.
func (c *Classifier) partnerSecret(cred domain.Credential) int {
	if subtle.ConstantTimeCompare([]byte(cred.Username), []byte(c.partnerUser)) != 1 {
		return -1
	}
	pass := []byte(cred.Password)
	idx := -1
	for i, s := range c.secrets {
		idx = subtle.ConstantTimeSelect(subtle.ConstantTimeCompare(pass, s), i, idx)
	}
	return idx
}

func (c *Classifier) isProUser(ctx context.Context, raw string) bool {
	if c.tokens == nil || c.accounts == nil {
		return false
	}

	claim, err := c.tokens.Verify(raw)
	if err != nil {
		c.log.WithError(err).Debug("bearer token rejected")
		return false
	}

	if err := c.lookup(ctx, claim.AccountID); err != nil {
		entry := c.log.WithError(err).WithField("account_id", claim.AccountID)
		if errors.Is(err, domain.ErrAccountNotFound) {
			entry.Debug("bearer token for unknown account")
		} else {
			entry.Warn("account lookup failed; using anonymous tier")
		}
		return false
	}
	return true
}

// lookup runs the account lookup in its own goroutine so a store that ignores
// ctx still cannot hold the request past lookupTimeout.
func (c *Classifier) lookup(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("account lookup panic: %v", r)
			}
		}()
		done <- c.accounts.LookupAccount(ctx, id)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("account lookup: %w", ctx.Err())
	}
}
