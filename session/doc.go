// Package session persists login sessions in Redis. Each session is one
// JSON value keyed by session id, plus a per-user set of session ids so all
// of a user's sessions can be found and revoked without scanning.
//
// A session that is absent from Redis is inactive. There is no tombstone
// state; expiry and explicit deletion look identical to readers.
package session
