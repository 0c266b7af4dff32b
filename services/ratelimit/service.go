// Package ratelimit throttles logins per username with a sliding window of
// recorded failures kept in PostgreSQL.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/upb/catalog-inventory/repositories"
	"go.uber.org/zap"
)

// Config holds the throttle policy
type Config struct {
	MaxFailures int           // 0 disables throttling
	Window      time.Duration // sliding window the failures are counted over
}

// CheckResult represents the result of a throttle check
type CheckResult struct {
	Allowed           bool
	FailuresInWindow  int
	AttemptsRemaining int
	RetryAfter        time.Duration
}

// LoginThrottle refuses logins for a username after too many recent failures.
// Store errors fail open: they are logged and the login proceeds.
type LoginThrottle struct {
	attempts repositories.LoginAttemptRepository
	config   Config
	clock    clock.Clock
	logger   *zap.Logger
}

// NewLoginThrottle creates a new LoginThrottle instance
func NewLoginThrottle(attempts repositories.LoginAttemptRepository, config Config, clk clock.Clock, logger *zap.Logger) *LoginThrottle {
	if clk == nil {
		clk = clock.New()
	}
	return &LoginThrottle{
		attempts: attempts,
		config:   config,
		clock:    clk,
		logger:   logger,
	}
}

// Enabled reports whether the throttle enforces anything
func (s *LoginThrottle) Enabled() bool {
	return s != nil && s.config.MaxFailures > 0 && s.config.Window > 0
}

// Check reports whether a login for username may proceed.
// Usernames are keyed case-insensitively so casing cannot bypass the window.
func (s *LoginThrottle) Check(ctx context.Context, username string) CheckResult {
	if !s.Enabled() {
		return CheckResult{Allowed: true}
	}

	now := s.clock.Now()
	count, err := s.attempts.CountFailuresSince(ctx, throttleKey(username), now.Add(-s.config.Window))
	if err != nil {
		s.logger.Warn("login throttle check failed, allowing attempt", zap.Error(err))
		return CheckResult{Allowed: true}
	}

	if count >= s.config.MaxFailures {
		return CheckResult{
			Allowed:          false,
			FailuresInWindow: count,
			RetryAfter:       s.config.Window,
		}
	}

	return CheckResult{
		Allowed:           true,
		FailuresInWindow:  count,
		AttemptsRemaining: s.config.MaxFailures - count,
	}
}

// RecordFailure records a failed login for username
func (s *LoginThrottle) RecordFailure(ctx context.Context, username string) {
	if !s.Enabled() {
		return
	}
	if err := s.attempts.RecordFailure(ctx, throttleKey(username), s.clock.Now()); err != nil {
		s.logger.Warn("failed to record login failure", zap.Error(err))
	}
}

// Reset forgets the failures of username after a successful login
func (s *LoginThrottle) Reset(ctx context.Context, username string) {
	if !s.Enabled() {
		return
	}
	if err := s.attempts.Clear(ctx, throttleKey(username)); err != nil {
		s.logger.Warn("failed to clear login failures", zap.Error(err))
	}
}

// CleanupOldAttempts removes failures older than the window
func (s *LoginThrottle) CleanupOldAttempts(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.config.Window)

	rows, err := s.attempts.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old login attempts: %w", err)
	}

	s.logger.Debug("cleaned up old login attempts",
		zap.Int64("rows_deleted", rows),
		zap.Time("cutoff_time", cutoff))

	return rows, nil
}

// StartCleanupWorker periodically removes expired failures until ctx is done
func (s *LoginThrottle) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	if !s.Enabled() {
		return
	}

	ticker := s.clock.Ticker(interval)
	defer ticker.Stop()

	s.logger.Info("started login throttle cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("window", s.config.Window))

	for {
		select {
		case <-ticker.C:
			if _, err := s.CleanupOldAttempts(ctx); err != nil {
				s.logger.Error("failed to cleanup old login attempts", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Info("stopping login throttle cleanup worker")
			return
		}
	}
}

func throttleKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
