package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FinalizeScheduler defines the interface for a component that arranges for a
// delivered transaction to be auto-finalized once its grace period ends.
type FinalizeScheduler interface {
	// ScheduleFinalize asks for txID to be finalized at or after due.
	// Delivery is at-least-once; the finalizer must tolerate repeats.
	ScheduleFinalize(ctx context.Context, txID uint64, due time.Time) error
}

// FinalizeMessage is the payload carried to the finalizer.
type FinalizeMessage struct {
	TransactionID uint64    `json:"transaction_id"`
	DueAt         time.Time `json:"due_at"`
}

// FinalizeFunc finalizes one transaction.
type FinalizeFunc func(ctx context.Context, txID uint64) error

// Local schedules finalization in-process with timers. Pending timers are
// lost on restart; the reconciliation sweep picks those transactions up.
type Local struct {
	mu      sync.Mutex
	handler FinalizeFunc
	timers  map[uint64]*time.Timer
	logger  *slog.Logger
}

func NewLocal(logger *slog.Logger) *Local {
	return &Local{timers: make(map[uint64]*time.Timer), logger: logger}
}

// Make sure we conform to the interface
var _ FinalizeScheduler = (*Local)(nil)

// SetHandler installs the finalizer. It is separate from NewLocal because
// the engine that finalizes also depends on the scheduler.
func (l *Local) SetHandler(h FinalizeFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

func (l *Local) ScheduleFinalize(_ context.Context, txID uint64, due time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[txID]; ok {
		t.Stop()
	}
	l.timers[txID] = time.AfterFunc(time.Until(due), func() { l.fire(txID) })
	return nil
}

func (l *Local) fire(txID uint64) {
	l.mu.Lock()
	h := l.handler
	delete(l.timers, txID)
	l.mu.Unlock()
	if h == nil {
		return
	}
	if err := h(context.Background(), txID); err != nil {
		l.logger.Warn("scheduled finalize failed", "transaction_id", txID, "error", err)
	}
}

// Pending returns the number of armed timers.
func (l *Local) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// Stop cancels every armed timer.
func (l *Local) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
}
