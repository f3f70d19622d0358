package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memStore is an in-memory UserStore that enforces the same unique
// constraints as the SQL store. Hooks let tests inject races and failures.
type memStore struct {
	mu    sync.Mutex
	byID  map[string]*User
	seq   int
	calls []string

	// beforeCreate runs (unlocked) before Create checks constraints.
	beforeCreate func(NewUser)
	// failWith, when set, is returned by the named operation.
	failWith map[string]error
}

func newMemStore() *memStore {
	return &memStore{byID: map[string]*User{}, failWith: map[string]error{}}
}

func (m *memStore) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
	return m.failWith[op]
}

func (m *memStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := m.record("FindByEmail"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memStore) FindByGoogleID(ctx context.Context, googleID string) (*User, error) {
	if err := m.record("FindByGoogleID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memStore) Create(ctx context.Context, nu NewUser) (*User, error) {
	if err := m.record("Create"); err != nil {
		return nil, err
	}
	if m.beforeCreate != nil {
		m.beforeCreate(nu)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(nu)
}

func (m *memStore) insertLocked(nu NewUser) (*User, error) {
	for _, u := range m.byID {
		if u.Email == nu.Email {
			return nil, ErrConflict
		}
		if nu.GoogleID != nil && u.GoogleID != nil && *u.GoogleID == *nu.GoogleID {
			return nil, ErrConflict
		}
	}
	m.seq++
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &User{
		ID:           fmt.Sprintf("user-%d", m.seq),
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		FullName:     nu.FullName,
		AvatarURL:    nu.AvatarURL,
		GoogleID:     nu.GoogleID,
		Role:         nu.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.byID[u.ID] = u
	cp := *u
	return &cp, nil
}

// seed inserts directly, bypassing hooks and call recording.
func (m *memStore) seed(nu NewUser) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.insertLocked(nu)
	if err != nil {
		panic(err)
	}
	return u
}

func (m *memStore) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	if err := m.record("Update"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	if upd.GoogleID != nil {
		for _, other := range m.byID {
			if other.ID != id && other.GoogleID != nil && *other.GoogleID == *upd.GoogleID {
				return nil, ErrConflict
			}
		}
		u.GoogleID = upd.GoogleID
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = upd.AvatarURL
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
