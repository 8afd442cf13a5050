// Package audittest provides an in-memory audit.Recorder for tests.
package audittest

import (
	"context"
	"sync"

	"github.com/upb/travel-control-plane/models"
)

// Recorder keeps every recorded entry in memory.
type Recorder struct {
	mu   sync.Mutex
	logs []*models.AuditLog

	// Err is returned from Record when set. Entries are still kept.
	Err error
}

// Record stores the entry.
func (r *Recorder) Record(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logs = append(r.logs, log)
	return r.Err
}

// Logs returns the recorded entries in order.
func (r *Recorder) Logs() []*models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*models.AuditLog(nil), r.logs...)
}

// Actions returns the recorded actions in order.
func (r *Recorder) Actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	actions := make([]models.AuditAction, 0, len(r.logs))
	for _, l := range r.logs {
		actions = append(actions, l.Action)
	}
	return actions
}
