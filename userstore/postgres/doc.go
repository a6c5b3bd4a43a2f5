// Package postgres implements credAuth.UserStore on Postgres through database/sql and the
// pgx stdlib driver.
//
// Accounts live in the users table with a unique index on email. Known client addresses
// live in user_ip_history, one row per (user, ip). Update locks the user row and rewrites both in one transaction.
// The schema is applied by [Store.Migrate] from goose migrations embedded in the binary.
package postgres
