// Package userstore groups the credAuth.UserStore implementations.
//
//   - [github.com/MrEthical07/credAuth/userstore/memory] keeps accounts in process memory.
//   - [github.com/MrEthical07/credAuth/userstore/postgres] persists them with database/sql and
//     the pgx driver, schema managed by embedded goose migrations.
package userstore
