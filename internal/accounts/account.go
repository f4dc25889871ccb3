// Package accounts persists pro-user accounts. The gateway only needs to
// know whether an account id exists; the user routes create and manage them.
package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

const (
	pbkdf2Iterations = 10000
	pbkdf2KeyLen     = 512
	saltBytes        = 16
)

type Account struct {
	ID           string    `json:"_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	BchAddr      string    `json:"bchAddr,omitempty"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	DisplayName  string    `json:"displayName,omitempty"`
	Misc         string    `json:"misc,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store is implemented by MemoryStore and PostgresStore. Get and Delete
// return ErrNotFound for unknown ids; Create returns ErrEmailTaken when the
// normalized email already exists.
type Store interface {
	Create(ctx context.Context, acct Account) (Account, error)
	Get(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	List(ctx context.Context) ([]Account, error)
	Delete(ctx context.Context, id string) error
}

// NormalizeEmail is applied before every store write and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword generates a fresh salt and stores the derived hash.
func (a *Account) SetPassword(password string) error {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	a.Salt = hex.EncodeToString(salt)
	a.PasswordHash = hashPassword(password, a.Salt)
	return nil
}

func (a Account) ValidatePassword(password string) bool {
	if a.Salt == "" || a.PasswordHash == "" {
		return false
	}
	got := hashPassword(password, a.Salt)
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.PasswordHash)) == 1
}

// The hex salt string itself is the pbkdf2 salt, matching hashes created by
// earlier deployments.
func hashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLen, sha512.New)
	return hex.EncodeToString(key)
}
