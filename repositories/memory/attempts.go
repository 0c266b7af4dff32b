package memory

import (
	"context"
	"time"
)

// LoginAttemptRepository implements repositories.LoginAttemptRepository in memory
type LoginAttemptRepository struct {
	store *Store
}

// RecordFailure records a failed attempt at the given time
func (r *LoginAttemptRepository) RecordFailure(ctx context.Context, username string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.attempts[username] = append(r.store.attempts[username], at)
	return nil
}

// CountFailuresSince counts failures recorded at or after since
func (r *LoginAttemptRepository) CountFailuresSince(ctx context.Context, username string, since time.Time) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, at := range r.store.attempts[username] {
		if !at.Before(since) {
			count++
		}
	}
	return count, nil
}

// Clear removes all recorded failures for username
func (r *LoginAttemptRepository) Clear(ctx context.Context, username string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.attempts, username)
	return nil
}

// DeleteOlderThan removes failures recorded before cutoff
func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deleted int64
	for username, times := range r.store.attempts {
		kept := times[:0]
		for _, at := range times {
			if at.Before(cutoff) {
				deleted++
				continue
			}
			kept = append(kept, at)
		}
		if len(kept) == 0 {
			delete(r.store.attempts, username)
		} else {
			r.store.attempts[username] = kept
		}
	}
	return deleted, nil
}
