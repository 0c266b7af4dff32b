package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
)

// UserRepository implements repositories.UserRepository in memory
type UserRepository struct {
	store *Store
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Roles = append([]string{}, u.Roles...)
	sort.Strings(c.Roles)
	return &c
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[user.Username]; ok {
		return fmt.Errorf("username %s: %w", user.Username, repositories.ErrDuplicate)
	}
	r.store.users[user.Username] = copyUser(user)
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, u := range r.store.users {
		if u.ID == id {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, repositories.ErrNotFound)
	}
	return copyUser(u), nil
}

// List retrieves users ordered by username
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	names := make([]string, 0, len(r.store.users))
	for name := range r.store.users {
		names = append(names, name)
	}
	sort.Strings(names)

	users := []*models.User{}
	for _, name := range paginate(names, limit, offset) {
		users = append(users, copyUser(r.store.users[name]))
	}
	return users, nil
}

// SetActive activates or deactivates a user
func (r *UserRepository) SetActive(ctx context.Context, username string, active bool) error {
	return r.update(username, func(u *models.User) { u.IsActive = active })
}

// SetRoles replaces the roles of a user
func (r *UserRepository) SetRoles(ctx context.Context, username string, roles []string) error {
	return r.update(username, func(u *models.User) { u.Roles = append([]string{}, roles...) })
}

func (r *UserRepository) update(username string, fn func(u *models.User)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[username]
	if !ok {
		return fmt.Errorf("user %s: %w", username, repositories.ErrNotFound)
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

// WithTx returns the repository itself
func (r *UserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return r
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
