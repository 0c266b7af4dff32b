package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
)

// AuditRepository implements repositories.AuditRepository in memory
type AuditRepository struct {
	store *Store
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c := *log
	r.store.audit = append(r.store.audit, &c)
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, log := range r.store.audit {
		if log.ID == id {
			c := *log
			return &c, nil
		}
	}
	return nil, fmt.Errorf("audit log %s: %w", id, repositories.ErrNotFound)
}

// List retrieves audit logs matching the filter, newest first
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	matches := []*models.AuditLog{}
	for i := len(r.store.audit) - 1; i >= 0; i-- {
		log := r.store.audit[i]
		if filter.Username != "" && (log.Username == nil || *log.Username != filter.Username) {
			continue
		}
		if filter.Action != "" && log.Action != filter.Action {
			continue
		}
		c := *log
		matches = append(matches, &c)
	}
	return paginate(matches, filter.Limit, filter.Offset), nil
}

// WithTx returns the repository itself
func (r *AuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return r
}
