package accounts

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "6f1c1f5e-3b0a-4c4e-9d3e-1a2b3c4d5e6f"

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "pass_hash", "salt", "bch_addr",
		"first_name", "last_name", "display_name", "misc", "created_at",
	})
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS gateway_users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gateway_users")).
		WithArgs(sqlmock.AnyArg(), "a@example.com", "hash", "salt", "", "", "", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	acct, err := s.Create(context.Background(), Account{Email: "A@example.com ", PasswordHash: "hash", Salt: "salt"})
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, "a@example.com", acct.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gateway_users")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := s.Create(context.Background(), Account{Email: "a@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestPostgresStore_CreateOtherError(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO gateway_users")).
		WillReturnError(errors.New("connection reset"))

	_, err := s.Create(context.Background(), Account{Email: "a@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailTaken)
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM gateway_users WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(accountRows().AddRow(testID, "a@example.com", "h", "s", "", "Ada", "", "", "", created))

	acct, err := s.Get(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", acct.FirstName)
	assert.True(t, acct.CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMissing(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM gateway_users WHERE id = $1")).
		WithArgs(testID).
		WillReturnRows(accountRows())

	_, err := s.Get(context.Background(), testID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_GetNonUUIDSkipsQuery(t *testing.T) {
	s, mock := newMock(t)

	_, err := s.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByEmail(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM gateway_users WHERE email = $1")).
		WithArgs("a@example.com").
		WillReturnRows(accountRows().AddRow(testID, "a@example.com", "h", "s", "", "", "", "", "", time.Now()))

	acct, err := s.GetByEmail(context.Background(), "A@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, testID, acct.ID)
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM gateway_users ORDER BY created_at")).
		WillReturnRows(accountRows().
			AddRow(testID, "a@example.com", "h", "s", "", "", "", "", "", now).
			AddRow("7f1c1f5e-3b0a-4c4e-9d3e-1a2b3c4d5e6f", "b@example.com", "h", "s", "", "", "", "", "", now))

	list, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b@example.com", list[1].Email)
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM gateway_users WHERE id = $1")).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), testID))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM gateway_users WHERE id = $1")).
		WithArgs(testID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(context.Background(), testID), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
