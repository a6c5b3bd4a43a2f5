// Package httpapi exposes the credAuth engine over HTTP with gin.
//
//	POST  /api/users/register   create an account
//	POST  /api/users/login      exchange email and password for a token
//	PATCH /api/users/edit-user  edit the token holder's profile and password
//	GET   /api/users/:id        public account summary
//	GET   /metrics              Prometheus text, when configured
//
// Errors are JSON objects with a single message field. Unknown accounts and wrong
// passwords both answer 401 with the same body.
package httpapi
