package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS gateway_users (
	id           UUID PRIMARY KEY,
	email        TEXT NOT NULL UNIQUE,
	pass_hash    TEXT NOT NULL,
	salt         TEXT NOT NULL,
	bch_addr     TEXT NOT NULL DEFAULT '',
	first_name   TEXT NOT NULL DEFAULT '',
	last_name    TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	misc         TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL
)`

// Migrate creates the users table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate accounts: %w", err)
	}
	return nil
}

// PostgresStore implements Store on database/sql with the lib/pq driver.
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectColumns = `id, email, pass_hash, salt, bch_addr, first_name, last_name, display_name, misc, created_at`

func (s *PostgresStore) Create(ctx context.Context, acct Account) (Account, error) {
	acct.Email = NormalizeEmail(acct.Email)
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	acct.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gateway_users (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, acct.ID, acct.Email, acct.PasswordHash, acct.Salt, acct.BchAddr,
		acct.FirstName, acct.LastName, acct.DisplayName, acct.Misc, acct.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return Account{}, ErrEmailTaken
		}
		return Account{}, fmt.Errorf("insert account: %w", err)
	}
	return acct, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Account, error) {
	// Ids are UUIDs; anything else cannot exist and would make postgres
	// reject the query.
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM gateway_users WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM gateway_users WHERE email = $1`, NormalizeEmail(email))
	return scanAccount(row)
}

func (s *PostgresStore) List(ctx context.Context) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM gateway_users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM gateway_users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (Account, error) {
	var acct Account
	err := row.Scan(&acct.ID, &acct.Email, &acct.PasswordHash, &acct.Salt, &acct.BchAddr,
		&acct.FirstName, &acct.LastName, &acct.DisplayName, &acct.Misc, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	return acct, nil
}
