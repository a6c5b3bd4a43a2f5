// Package middleware exposes net/http adapters that verify credAuth login tokens.
//
// # Guards
//
//   - [Guard] rejects requests without a valid bearer token.
//   - [Optional] attaches claims when a valid token is present and never rejects.
//
// Both read the Authorization header, call Engine.ParseToken and store the verified
// claims in the request context, where [ClaimsFromContext] finds them.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not parse JWTs itself
// and does not make authorization decisions beyond pass or reject.
package middleware
