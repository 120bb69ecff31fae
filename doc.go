// Package authcore is the authentication and session core of the DonorHub
// donation platform: credential issuance, argon2id password hashing, JWT
// access tokens, rotating single-use refresh tokens, Redis-backed session
// tracking, timed login lockout, and one-time-code flows for email
// verification and password reset.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Profile, LoginResult, AuditEvent, etc.). Internal
// coordination (refresh-token records, ticket stores, lockout counters)
// lives under internal/ and is never exported.
//
// The engine does not persist user records itself and does not deliver mail.
// Callers plug in a [UserDirectory] (the in-memory implementation under
// directory/ is sufficient for a single process; a persistent one must keep
// the same uniqueness and lookup semantics) and a [Mailer] that gets one-time
// codes to the user out of band.
//
// # What this package must NOT do
//
//   - Expose Redis clients, internal stores, or key layouts in its public API.
//   - Define an HTTP wire format; callers map engine results and error kinds
//     (see [KindOf]) onto their own responses.
//   - Hold any internal lock across a Mailer call.
package authcore
