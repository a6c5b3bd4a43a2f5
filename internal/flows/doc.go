// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunAuthenticate, RunRegister, RunUpdateCredentials) accepts a typed
// dependency struct and returns results without side-effects beyond those dependencies.
// The Engine builds the dependency structs once and delegates to the matching flow.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user store, IP limiter, password verifier, token
// issuer, audit dispatcher, and metrics. They do NOT own any of these resources; ownership
// stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import credAuth (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
