// Package memory provides process-local implementations of the repository
// interfaces. Data does not survive a restart; it backs DB_DRIVER=memory
// and the HTTP end-to-end tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
)

// Store holds the shared state of all in-memory repositories
type Store struct {
	mu sync.RWMutex

	users    map[string]*models.User
	books    map[uuid.UUID]*models.Book
	audit    []*models.AuditLog
	attempts map[string][]time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:    make(map[string]*models.User),
		books:    make(map[uuid.UUID]*models.Book),
		attempts: make(map[string][]time.Time),
	}
}

// Repositories returns repository implementations backed by s
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:         &UserRepository{store: s},
		Books:         &BookRepository{store: s},
		AuditLogs:     &AuditRepository{store: s},
		LoginAttempts: &LoginAttemptRepository{store: s},
	}
}

// TransactionManager returns a transaction manager for s. Transactions are
// no-ops: writes made before a rollback are not undone.
func (s *Store) TransactionManager() repositories.TransactionManager {
	return &transactionManager{}
}

type transactionManager struct{}

func (m *transactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &transaction{ctx: ctx}, nil
}

func (m *transactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, _ := m.Begin(ctx)
	if err := fn(tx.Context(), tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type transaction struct {
	ctx context.Context
}

func (t *transaction) Commit() error            { return nil }
func (t *transaction) Rollback() error          { return nil }
func (t *transaction) Context() context.Context { return t.ctx }
