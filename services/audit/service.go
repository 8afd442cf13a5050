package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/upb/travel-control-plane/internal/observability"
	"github.com/upb/travel-control-plane/models"
	"github.com/upb/travel-control-plane/repositories"
	"github.com/upb/travel-control-plane/services"
	"go.uber.org/zap"
)

// Recorder accepts audit entries. Implementations must not block the caller
// on persistence.
type Recorder interface {
	Record(ctx context.Context, log *models.AuditLog) error
}

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log      *models.AuditLog
	Priority int // higher for violations; workers currently process in arrival order
}

// AuditService persists audit logs asynchronously through a pool of workers
type AuditService struct {
	auditRepo    repositories.AuditRepository
	logger       *zap.Logger
	eventChan    chan *AuditEvent
	workerCount  int
	bufferSize   int
	writeTimeout time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc

	// mu guards started/stopped; senders hold the read lock so Stop never
	// closes the channel under them.
	mu      sync.RWMutex
	started bool
	stopped bool
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize   int
	WorkerCount  int
	WriteTimeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:   10000,
		WorkerCount:  5,
		WriteTimeout: 5 * time.Second,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AuditService{
		auditRepo:    auditRepo,
		logger:       logger,
		eventChan:    make(chan *AuditEvent, config.BufferSize),
		workerCount:  config.WorkerCount,
		bufferSize:   config.BufferSize,
		writeTimeout: config.WriteTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}
	if s.stopped {
		return fmt.Errorf("audit service already stopped")
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

// Stop stops accepting events and waits up to timeout for pending ones to be written
func (s *AuditService) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not running")
	}
	s.stopped = true
	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))
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

func (s *AuditService) running() bool {
	return s.started && !s.stopped
}

// LogEvent queues an event without blocking. A full buffer drops the event.
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running() {
		return fmt.Errorf("audit service not running")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("company_id", event.Log.CompanyID.String()))
		return fmt.Errorf("audit event buffer full")
	}
}

// LogEventBlocking waits until the event is queued or ctx is cancelled
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running() {
		return fmt.Errorf("audit service not running")
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

// Record attaches the request metadata found in ctx and queues the entry.
func (s *AuditService) Record(ctx context.Context, log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	if info := observability.RequestInfoFrom(ctx); info.RequestID != "" || info.IPAddress != "" {
		log.WithRequest(info.RequestID, info.IPAddress, info.UserAgent)
	}

	priority := 1
	if log.Action == models.AuditActionPolicyViolation {
		priority = 2
	}
	return s.LogEvent(&AuditEvent{Log: log, Priority: priority})
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
				zap.String("company_id", event.Log.CompanyID.String()))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int  `json:"buffer_size"`
	PendingEvents int  `json:"pending_events"`
	WorkerCount   int  `json:"worker_count"`
	Started       bool `json:"started"`
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.running(),
	}
}

// ListInput pages through a company's audit trail
type ListInput struct {
	CompanyID uuid.UUID
	Start     *time.Time
	End       *time.Time
	Limit     int
	Offset    int
}

// List returns audit logs of a company. Only administrators of the company may read them.
func (s *AuditService) List(ctx context.Context, actor *models.User, input ListInput) ([]*models.AuditLog, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}
	if input.CompanyID == uuid.Nil {
		input.CompanyID = actor.CompanyID
	}
	if !actor.CanManageCompany(input.CompanyID) {
		return nil, services.ErrInsufficientPermissions
	}
	if input.Limit <= 0 || input.Limit > 500 {
		input.Limit = 100
	}
	if input.Offset < 0 {
		input.Offset = 0
	}

	var (
		logs []*models.AuditLog
		err  error
	)
	if input.Start != nil || input.End != nil {
		start := time.Time{}
		end := time.Now()
		if input.Start != nil {
			start = *input.Start
		}
		if input.End != nil {
			end = *input.End
		}
		if end.Before(start) {
			return nil, services.ErrInvalidInput.Wrapf("end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
		}
		logs, err = s.auditRepo.GetByDateRange(ctx, input.CompanyID, start, end, input.Limit, input.Offset)
	} else {
		logs, err = s.auditRepo.GetByCompanyID(ctx, input.CompanyID, input.Limit, input.Offset)
	}
	if err != nil {
		return nil, services.FromRepository(err, services.ErrAuditLogNotFound, "failed to list audit logs")
	}
	return logs, nil
}

// ListForResource returns the audit trail of one resource, such as a booking
func (s *AuditService) ListForResource(ctx context.Context, actor *models.User, resourceType string, resourceID uuid.UUID) ([]*models.AuditLog, error) {
	if actor == nil {
		return nil, services.ErrUnauthorized
	}

	logs, err := s.auditRepo.GetByResource(ctx, resourceType, resourceID)
	if err != nil {
		return nil, services.FromRepository(err, services.ErrAuditLogNotFound, "failed to list audit logs")
	}

	visible := make([]*models.AuditLog, 0, len(logs))
	for _, l := range logs {
		if actor.CanManageCompany(l.CompanyID) {
			visible = append(visible, l)
		}
	}
	return visible, nil
}
