package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/catalog-inventory/models"
)

var (
	// ErrNotFound is wrapped by repositories when a row does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is wrapped by repositories when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user and role data operations
type UserRepository interface {
	// Create creates a new user together with its role assignments
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user and its roles by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// List retrieves users with pagination
	List(ctx context.Context, limit, offset int) ([]*models.User, error)

	// SetActive activates or deactivates a user
	SetActive(ctx context.Context, username string, active bool) error

	// SetRoles replaces the role assignments of a user
	SetRoles(ctx context.Context, username string, roles []string) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// BookRepository handles book data operations. Lookups other than GetByID
// only see active books.
type BookRepository interface {
	// Create creates a new book
	Create(ctx context.Context, book *models.Book) error

	// GetByID retrieves a book by ID regardless of its active flag
	GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error)

	// GetByISBN retrieves an active book by ISBN
	GetByISBN(ctx context.Context, isbn string) (*models.Book, error)

	// ExistsByISBN reports whether an active book has the ISBN
	ExistsByISBN(ctx context.Context, isbn string) (bool, error)

	// Search retrieves a page of active books matching the criteria and the total match count
	Search(ctx context.Context, criteria models.BookSearch, page models.PageRequest) ([]*models.Book, int64, error)

	// ListLowStock retrieves active books with stock at or below threshold
	ListLowStock(ctx context.Context, threshold int) ([]*models.Book, error)

	// Statistics computes inventory aggregates over active books
	Statistics(ctx context.Context) (*models.BookStatistics, error)

	// Update updates a book
	Update(ctx context.Context, book *models.Book) error

	// SetActive soft-deletes or restores a book
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// UpdateStock sets the stock quantity of a book
	UpdateStock(ctx context.Context, id uuid.UUID, quantity int) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) BookRepository
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// List retrieves audit logs matching the filter, newest first
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// LoginAttemptRepository records failed login attempts per username
type LoginAttemptRepository interface {
	// RecordFailure records a failed attempt at the given time
	RecordFailure(ctx context.Context, username string, at time.Time) error

	// CountFailuresSince counts failures recorded at or after since
	CountFailuresSince(ctx context.Context, username string, since time.Time) (int, error)

	// Clear removes all recorded failures for username
	Clear(ctx context.Context, username string) error

	// DeleteOlderThan removes failures recorded before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users         UserRepository
	Books         BookRepository
	AuditLogs     AuditRepository
	LoginAttempts LoginAttemptRepository
}
