package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/loanwise/loanwise/internal/model"
)

// MemoryStore is an in-memory implementation of the user and prediction
// methods of Repository. It backs service and handler tests.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[string]*model.User
	predictions []*model.Prediction

	// Err, when set, is returned by every write.
	Err error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*model.User)}
}

// CreateUser stores a copy of user.
func (m *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrEmailExists
		}
	}
	cp := *user
	cp.Email = strings.ToLower(cp.Email)
	m.users[user.ID] = &cp
	return nil
}

// GetUserByID returns a copy of the user with id.
func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail returns a copy of the user with email, case-insensitively.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

// UpdateUserProfile sets the user's full name.
func (m *MemoryStore) UpdateUserProfile(_ context.Context, id, fullName string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	now := time.Now().UTC()
	u.FullName = fullName
	u.UpdatedAt = &now
	cp := *u
	return &cp, nil
}

// SetActive toggles a user's active flag.
func (m *MemoryStore) SetActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[id]; ok {
		u.IsActive = active
	}
}

// PredictionCount returns the number of stored predictions across all users.
func (m *MemoryStore) PredictionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.predictions)
}

// CreatePrediction appends a copy of p.
func (m *MemoryStore) CreatePrediction(_ context.Context, p *model.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	cp := *p
	m.predictions = append(m.predictions, &cp)
	return nil
}

// ListPredictionsByUser mirrors Repository.ListPredictionsByUser.
func (m *MemoryStore) ListPredictionsByUser(_ context.Context, userID, cursor string, limit int) ([]*model.Prediction, string, error) {
	var after *PaginationCursor
	if cursor != "" {
		c, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		after = c
	}

	m.mu.RLock()
	var owned []*model.Prediction
	for _, p := range m.predictions {
		if p.UserID == userID {
			cp := *p
			owned = append(owned, &cp)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(owned, comparePredictions)

	out := make([]*model.Prediction, 0, limit)
	for _, p := range owned {
		if after != nil && comparePredictions(p, &model.Prediction{ID: after.ID, CreatedAt: after.CreatedAt}) <= 0 {
			continue
		}
		out = append(out, p)
		if len(out) > limit {
			break
		}
	}

	var next string
	if len(out) > limit {
		out = out[:limit]
		last := out[len(out)-1]
		next = encodeCursor(&PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}
	return out, next, nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error { return nil }

func comparePredictions(a, b *model.Prediction) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
