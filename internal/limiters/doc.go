// Package limiters holds the Redis-backed failed-login lockout. Counters
// and locks live entirely in Redis so every engine instance sharing the
// backend enforces the same policy.
package limiters
