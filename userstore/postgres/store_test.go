package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/password"
	"github.com/MrEthical07/credAuth/userstore/postgres/migrations"
)

const (
	testUserID = "6f1c1c2e-4a63-4b8e-9a55-0f6d0e1b7a10"

	qSelectByEmail   = `(?s)^SELECT\s+id,\s*name,\s*email,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	qSelectByID      = `(?s)^SELECT\s+id,\s*name,\s*email,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	qSelectForUpdate = `(?s)^SELECT\s+id,\s*name,\s*email,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s+FOR\s+UPDATE$`
	qHistory         = `(?s)^SELECT\s+ip,\s*last_seen\s+FROM\s+user_ip_history\s+WHERE\s+user_id\s*=\s*\$1`
	qInsertUser      = `(?s)^INSERT\s+INTO\s+users\s*\(`
	qInsertIP        = `(?s)^INSERT\s+INTO\s+user_ip_history`
	qUpdateUser      = `(?s)^UPDATE\s+users\s+SET`
	qDeleteIP        = `(?s)^DELETE\s+FROM\s+user_ip_history\s+WHERE\s+user_id\s*=\s*\$1$`
)

var userColumns = []string{
	"id", "name", "email", "about", "password_hash", "pepper_version",
	"last_password_rehash", "failed_logins", "created_at",
}

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	s := New(db)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func TestFindByEmailFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rehash := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	seen := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(qSelectByEmail).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(testUserID, "Ada", "ada@example.com", "", "digest", int64(1), rehash, int64(2), created))
	mock.ExpectQuery(qHistory).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"ip", "last_seen"}).AddRow("203.0.113.7", seen))

	got, err := s.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, testUserID, got.ID)
	require.Equal(t, password.PepperOld, got.PepperVersion)
	require.Equal(t, rehash, got.LastPasswordRehash)
	require.Equal(t, 2, got.FailedLogins)
	require.Equal(t, []credAuth.IPSighting{{IP: "203.0.113.7", LastSeen: seen}}, got.IPHistory)
}

func TestFindByEmailNullRehash(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(qSelectByEmail).
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(testUserID, "Ada", "ada@example.com", "", "digest", int64(0), nil, int64(0), time.Now()))
	mock.ExpectQuery(qHistory).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"ip", "last_seen"}))

	got, err := s.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.True(t, got.LastPasswordRehash.IsZero())
	require.Empty(t, got.IPHistory)
}

func TestFindByEmailNotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(qSelectByEmail).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, credAuth.ErrUserNotFound)
}

func TestFindByEmailDBError(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(qSelectByEmail).
		WithArgs("ada@example.com").
		WillReturnError(errors.New("db down"))

	_, err := s.FindByEmail(context.Background(), "ada@example.com")
	require.ErrorContains(t, err, "db error: db down")
	require.NotErrorIs(t, err, credAuth.ErrUserNotFound)
}

func TestFindByIDRejectsMalformedID(t *testing.T) {
	s, _ := newStoreWithMock(t)
	_, err := s.FindByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, credAuth.ErrUserNotFound)
}

func TestFindByID(t *testing.T) {
	s, mock := newStoreWithMock(t)
	mock.ExpectQuery(qSelectByID).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(testUserID, "Ada", "ada@example.com", "about", "digest", int64(0), nil, int64(0), time.Now()))
	mock.ExpectQuery(qHistory).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"ip", "last_seen"}))

	got, err := s.FindByID(context.Background(), testUserID)
	require.NoError(t, err)
	require.Equal(t, "about", got.About)
}

func TestCreateInsertsUserAndHistory(t *testing.T) {
	s, mock := newStoreWithMock(t)
	seen := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(qInsertUser).
		WithArgs(sqlmock.AnyArg(), "Ada", "ada@example.com", "", "digest", int64(0), nil, int64(0), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qInsertIP).
		WithArgs(sqlmock.AnyArg(), "203.0.113.7", seen).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u := &credAuth.UserRecord{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "digest",
		IPHistory:    []credAuth.IPSighting{{IP: "203.0.113.7", LastSeen: seen}},
	}
	require.NoError(t, s.Create(context.Background(), u))
	require.Len(t, u.ID, 36)
	require.Equal(t, s.now(), u.CreatedAt)
}

func TestCreateDuplicateEmail(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(qInsertUser).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	mock.ExpectRollback()

	u := &credAuth.UserRecord{Name: "Ada", Email: "ada@example.com", PasswordHash: "digest"}
	err := s.Create(context.Background(), u)
	require.ErrorIs(t, err, credAuth.ErrDuplicateEmail)
	require.Empty(t, u.ID)
}

func expectLockedRow(mock sqlmock.Sqlmock, hash string, failed int64) {
	mock.ExpectQuery(qSelectForUpdate).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(testUserID, "Ada", "ada@example.com", "", hash, int64(0), nil, failed, time.Now()))
	mock.ExpectQuery(qHistory).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows([]string{"ip", "last_seen"}))
}

func TestUpdateAppliesToLockedRow(t *testing.T) {
	s, mock := newStoreWithMock(t)
	rehash := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectLockedRow(mock, "fresh", 3)
	mock.ExpectExec(qUpdateUser).
		WithArgs(testUserID, "Ada", "ada@example.com", "", "fresh", int64(0), nil, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qDeleteIP).
		WithArgs(testUserID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qInsertIP).
		WithArgs(testUserID, "203.0.113.7", rehash).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Update(context.Background(), testUserID, func(u *credAuth.UserRecord) error {
		require.Equal(t, "fresh", u.PasswordHash)
		u.FailedLogins++
		u.IPHistory = append(u.IPHistory, credAuth.IPSighting{IP: "203.0.113.7", LastSeen: rehash})
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateMissingAccount(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(qSelectForUpdate).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectRollback()

	err := s.Update(context.Background(), testUserID, func(*credAuth.UserRecord) error {
		t.Fatal("callback must not run for a missing account")
		return nil
	})
	require.ErrorIs(t, err, credAuth.ErrUserNotFound)

	err = s.Update(context.Background(), "not-a-uuid", func(*credAuth.UserRecord) error { return nil })
	require.ErrorIs(t, err, credAuth.ErrUserNotFound)
}

func TestUpdateCallbackErrorRollsBack(t *testing.T) {
	s, mock := newStoreWithMock(t)
	boom := errors.New("stale")

	mock.ExpectBegin()
	expectLockedRow(mock, "digest", 0)
	mock.ExpectRollback()

	err := s.Update(context.Background(), testUserID, func(*credAuth.UserRecord) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NotContains(t, err.Error(), "db error")
}

func TestUpdateRollsBackOnHistoryError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	expectLockedRow(mock, "digest", 0)
	mock.ExpectExec(qUpdateUser).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qDeleteIP).WillReturnError(errors.New("db down"))
	mock.ExpectRollback()

	err := s.Update(context.Background(), testUserID, func(*credAuth.UserRecord) error { return nil })
	require.ErrorContains(t, err, "db error: db down")
}

func TestUpdateEmailTaken(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	expectLockedRow(mock, "digest", 0)
	mock.ExpectExec(qUpdateUser).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := s.Update(context.Background(), testUserID, func(u *credAuth.UserRecord) error {
		u.Email = "eve@example.com"
		return nil
	})
	require.ErrorIs(t, err, credAuth.ErrDuplicateEmail)
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_users.sql", "00002_user_ip_history.sql"}, files)

	body, err := fs.ReadFile(migrations.FS, "00001_users.sql")
	require.NoError(t, err)
	require.Contains(t, string(body), "-- +goose Up")
	require.Contains(t, string(body), "users_email_key")
}
