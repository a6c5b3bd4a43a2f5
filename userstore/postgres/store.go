package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/password"
	"github.com/MrEthical07/credAuth/userstore/postgres/migrations"
)

const uniqueViolation = "23505"

// Store is a credAuth.UserStore backed by Postgres.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ credAuth.UserStore = (*Store)(nil)

// New wraps an open database. Call Migrate before first use on a fresh database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open connects through the pgx driver, checks the connection and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	return s, nil
}

// Migrate applies the embedded goose migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, s.db, ".")
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectUser = `SELECT id, name, email, about, password_hash, pepper_version,
		last_password_rehash, failed_logins, created_at
	 FROM users
	`

// FindByEmail loads the account and its IP history by email.
func (s *Store) FindByEmail(ctx context.Context, email string) (*credAuth.UserRecord, error) {
	return findOne(ctx, s.db, selectUser+`WHERE email = $1`, email)
}

// FindByID loads the account and its IP history by id.
func (s *Store) FindByID(ctx context.Context, id string) (*credAuth.UserRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, credAuth.ErrUserNotFound
	}
	return findOne(ctx, s.db, selectUser+`WHERE id = $1`, id)
}

func findOne(ctx context.Context, q dbtx, query string, arg string) (*credAuth.UserRecord, error) {
	var (
		u          credAuth.UserRecord
		version    int16
		lastRehash sql.NullTime
	)
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.About, &u.PasswordHash, &version,
		&lastRehash, &u.FailedLogins, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credAuth.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.PepperVersion = password.PepperVersion(version)
	if lastRehash.Valid {
		u.LastPasswordRehash = lastRehash.Time
	}

	history, err := ipHistory(ctx, q, u.ID)
	if err != nil {
		return nil, err
	}
	u.IPHistory = history
	return &u, nil
}

func ipHistory(ctx context.Context, q dbtx, userID string) ([]credAuth.IPSighting, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ip, last_seen FROM user_ip_history
		 WHERE user_id = $1
		 ORDER BY last_seen`, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []credAuth.IPSighting
	for rows.Next() {
		var s credAuth.IPSighting
		if err := rows.Scan(&s.IP, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Create inserts the account and its IP history in one transaction. The ID is a new UUID.
func (s *Store) Create(ctx context.Context, user *credAuth.UserRecord) error {
	id := uuid.NewString()
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	err := withTx(ctx, s.db, func(ctx context.Context, tx dbtx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, about, password_hash, pepper_version,
				last_password_rehash, failed_logins, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, user.Name, user.Email, user.About, user.PasswordHash, int16(user.PepperVersion),
			nullTime(user.LastPasswordRehash), user.FailedLogins, createdAt,
		)
		if err != nil {
			return err
		}
		return insertHistory(ctx, tx, id, user.IPHistory)
	})
	if err != nil {
		return translate(err)
	}

	user.ID = id
	user.CreatedAt = createdAt
	return nil
}

// Update locks the account row, applies fn to the loaded record and writes every field back
// with its IP history in the same transaction. Nothing is written when fn fails.
func (s *Store) Update(ctx context.Context, id string, fn func(*credAuth.UserRecord) error) error {
	if _, err := uuid.Parse(id); err != nil {
		return credAuth.ErrUserNotFound
	}

	var fnErr error
	err := withTx(ctx, s.db, func(ctx context.Context, tx dbtx) error {
		user, err := findOne(ctx, tx, selectUser+`WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if err := fn(user); err != nil {
			fnErr = err
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET name = $2, email = $3, about = $4, password_hash = $5,
				pepper_version = $6, last_password_rehash = $7, failed_logins = $8
			 WHERE id = $1`,
			id, user.Name, user.Email, user.About, user.PasswordHash, int16(user.PepperVersion),
			nullTime(user.LastPasswordRehash), user.FailedLogins,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM user_ip_history WHERE user_id = $1`, id); err != nil {
			return err
		}
		return insertHistory(ctx, tx, id, user.IPHistory)
	})
	if fnErr != nil {
		return fnErr
	}
	return translate(err)
}

func insertHistory(ctx context.Context, tx dbtx, userID string, history []credAuth.IPSighting) error {
	for _, s := range history {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_ip_history (user_id, ip, last_seen)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, ip) DO UPDATE SET last_seen = EXCLUDED.last_seen`,
			userID, s.IP, s.LastSeen,
		); err != nil {
			return err
		}
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, credAuth.ErrUserNotFound) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return credAuth.ErrDuplicateEmail
	}
	return fmt.Errorf("db error: %w", err)
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
