// Package directory provides user directory implementations satisfying
// authcore.UserDirectory. The in-memory directory here is the reference
// implementation used by tests and the examples; production deployments
// plug in their own database-backed one.
package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/donorhub/authcore"
)

// Memory is a concurrency-safe in-memory user directory. Email uniqueness
// is enforced case-insensitively through a lowercase index.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]authcore.UserRecord
	byEmail map[string]string // lowercase email -> id
}

// NewMemory returns an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]authcore.UserRecord),
		byEmail: make(map[string]string),
	}
}

// FindByEmail looks up a record by email, case-insensitively.
func (m *Memory) FindByEmail(ctx context.Context, email string) (authcore.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return m.byID[id], nil
}

// FindByID looks up a record by id.
func (m *Memory) FindByID(ctx context.Context, id string) (authcore.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byID[id]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}
	return record, nil
}

// Create inserts a new record. A record with the same email (any casing)
// yields ErrDuplicateEmail.
func (m *Memory) Create(ctx context.Context, record authcore.UserRecord) (authcore.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	emailKey := strings.ToLower(record.Email)
	if _, exists := m.byEmail[emailKey]; exists {
		return authcore.UserRecord{}, authcore.ErrDuplicateEmail
	}

	m.byID[record.ID] = record
	m.byEmail[emailKey] = record.ID
	return record, nil
}

// Update applies patch to the record with the given id and returns the
// updated record.
func (m *Memory) Update(ctx context.Context, id string, patch authcore.UserPatch) (authcore.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.byID[id]
	if !ok {
		return authcore.UserRecord{}, authcore.ErrUserNotFound
	}

	if patch.Name != nil {
		record.Name = *patch.Name
	}
	if patch.Phone != nil {
		record.Phone = *patch.Phone
	}
	if patch.Bio != nil {
		record.Bio = *patch.Bio
	}
	if patch.AvatarURL != nil {
		record.AvatarURL = *patch.AvatarURL
	}
	if patch.Preferences != nil {
		if record.Preferences == nil {
			record.Preferences = make(map[string]string, len(patch.Preferences))
		}
		for k, v := range patch.Preferences {
			record.Preferences[k] = v
		}
	}
	if patch.Role != nil {
		record.Role = *patch.Role
	}
	if patch.IsActive != nil {
		record.IsActive = *patch.IsActive
	}
	if patch.IsEmailVerified != nil {
		record.IsEmailVerified = *patch.IsEmailVerified
	}
	if patch.PasswordHash != nil {
		record.PasswordHash = *patch.PasswordHash
	}
	if patch.LastLoginAt != nil {
		record.LastLoginAt = patch.LastLoginAt
	}
	if patch.EmailVerifiedAt != nil {
		record.EmailVerifiedAt = patch.EmailVerifiedAt
	}
	record.UpdatedAt = now()

	m.byID[id] = record
	return record, nil
}
