package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/repositories"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log      *models.AuditLog
	Priority int // Higher for security-relevant rejections
}

// RequestInfo carries the request metadata stored with every event
type RequestInfo struct {
	RequestID string
	IPAddress string
	UserAgent string
	Method    string
	Path      string
}

// AuditService handles asynchronous audit logging of authentication events
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	stopped     bool
	mu          sync.RWMutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())

	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultConfig().WorkerCount
	}
	if config.BufferSize < 0 {
		config.BufferSize = 0
	}

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service.
// Waits for all pending events to be processed.
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.stopped = true
	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))
	// Closed under the lock so no sender can race the close
	close(s.eventChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent queues an event without blocking.
// A full buffer drops the event and returns an error.
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.stopped {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("request_id", event.Log.RequestID))
		return fmt.Errorf("audit event buffer full")
	}
}

// LogEventBlocking waits until the event is queued or ctx is cancelled
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.stopped {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)),
				zap.String("request_id", event.Log.RequestID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
}

// ListLogs returns stored audit logs, newest first
func (s *AuditService) ListLogs(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	logs, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

// Convenience methods for the authentication events.
// All of them are safe to call on a nil *AuditService.

func (s *AuditService) record(log *models.AuditLog, info RequestInfo, priority int) error {
	if s == nil {
		return nil
	}
	log.WithRequest(info.RequestID, info.IPAddress, info.UserAgent).
		WithRoute(info.Method, info.Path)
	return s.LogEvent(&AuditEvent{Log: log, Priority: priority})
}

// LogLoginSucceeded records a successful login
func (s *AuditService) LogLoginSucceeded(info RequestInfo, username string) error {
	log := models.NewAuditLog(models.AuditActionLoginSucceeded).
		WithUsername(username).
		WithStatus(200)
	return s.record(log, info, 1)
}

// LogLoginFailed records a failed login. reason is stored server-side only.
func (s *AuditService) LogLoginFailed(info RequestInfo, username, reason string) error {
	log := models.NewAuditLog(models.AuditActionLoginFailed).
		WithUsername(username).
		WithDetails(map[string]interface{}{"reason": reason}).
		WithError(401, "authentication failed")
	return s.record(log, info, 2)
}

// LogLoginThrottled records a login refused by the failure throttle
func (s *AuditService) LogLoginThrottled(info RequestInfo, username string) error {
	log := models.NewAuditLog(models.AuditActionLoginThrottled).
		WithUsername(username).
		WithError(429, "too many failed login attempts")
	return s.record(log, info, 2)
}

// LogTokenRefreshed records a refreshed token
func (s *AuditService) LogTokenRefreshed(info RequestInfo, username string) error {
	log := models.NewAuditLog(models.AuditActionTokenRefreshed).
		WithUsername(username).
		WithStatus(200)
	return s.record(log, info, 1)
}

// LogRefreshRejected records a refused refresh
func (s *AuditService) LogRefreshRejected(info RequestInfo, username, reason string) error {
	log := models.NewAuditLog(models.AuditActionRefreshRejected).
		WithUsername(username).
		WithDetails(map[string]interface{}{"reason": reason}).
		WithError(401, "token refresh rejected")
	return s.record(log, info, 2)
}

// LogLogout records a logout signal
func (s *AuditService) LogLogout(info RequestInfo, username string) error {
	log := models.NewAuditLog(models.AuditActionLogout).
		WithUsername(username).
		WithStatus(200)
	return s.record(log, info, 1)
}

// LogAccessDenied records a 401 or 403 from the authorization gate
func (s *AuditService) LogAccessDenied(info RequestInfo, username string, statusCode int, reason string, required []string) error {
	log := models.NewAuditLog(models.AuditActionAccessDenied).
		WithUsername(username).
		WithDetails(map[string]interface{}{
			"reason":         reason,
			"required_roles": required,
		}).
		WithError(statusCode, reason)
	return s.record(log, info, 2)
}
