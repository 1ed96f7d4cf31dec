package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentrt/agentrt/internal/logging"
)

// slowCommitThreshold matches the Python SSEUnitOfWork.commit warning.
const slowCommitThreshold = 100 * time.Millisecond

var (
	commitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agentrt",
		Subsystem: "uow",
		Name:      "commit_duration_seconds",
		Help:      "Duration of unit-of-work commits against the persistence store.",
		Buckets:   prometheus.DefBuckets,
	})
	commitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentrt",
		Subsystem: "uow",
		Name:      "commits_total",
		Help:      "Unit-of-work commits, labeled by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(commitDuration, commitsTotal)
}

// UnitOfWork wraps a single SQLite transaction: callers stage writes
// against Tx, then Commit flushes them as one durable unit, recording
// duration and warning on slow commits. No package outside persistence
// begins a UnitOfWork; the other stores write through Store directly.
type UnitOfWork struct {
	tx        *sql.Tx
	committed bool
}

// Begin starts a new unit of work against the store's database.
func Begin(ctx context.Context, s *Store) (*UnitOfWork, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin unit of work: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

// Tx exposes the underlying transaction for staging writes.
func (u *UnitOfWork) Tx() *sql.Tx {
	return u.tx
}

// Commit flushes the transaction, recording commit-duration metrics and
// logging a warning if the commit exceeds the slow-commit threshold.
func (u *UnitOfWork) Commit() error {
	start := time.Now()
	err := u.tx.Commit()
	elapsed := time.Since(start)

	commitDuration.Observe(elapsed.Seconds())
	if err != nil {
		commitsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("commit unit of work: %w", err)
	}

	u.committed = true
	commitsTotal.WithLabelValues("ok").Inc()

	if elapsed > slowCommitThreshold {
		logging.Logger.Warn().
			Dur("elapsed", elapsed).
			Msg("slow commit")
	}

	return nil
}

// Rollback aborts the transaction. Safe to call after a successful Commit
// (no-op) so callers can unconditionally defer it.
func (u *UnitOfWork) Rollback() error {
	if u.committed {
		return nil
	}
	if err := u.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rollback unit of work: %w", err)
	}
	return nil
}
