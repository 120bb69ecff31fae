// Package stores holds the Redis-backed single-use record tables: refresh
// token records and one-time-code tickets. Consumption is atomic on the
// Redis side via Lua, so two concurrent presenters of the same secret can
// never both succeed.
package stores
