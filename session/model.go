package session

import "time"

// Session is the server-side record behind one login. Timestamps are unix
// seconds so the Redis payload stays stable across timezones.
type Session struct {
	ID           string `json:"id"`
	UserID       string `json:"uid"`
	UserAgent    string `json:"ua,omitempty"`
	IP           string `json:"ip,omitempty"`
	LoginTime    int64  `json:"login_at"`
	LastActivity int64  `json:"last_seen"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Expired reports whether the session's stored expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}
