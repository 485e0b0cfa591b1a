package background

import (
	"context"
	"log/slog"
	"time"
)

// AbandonedAccountDeleter removes unverified accounts whose challenge
// expired before the cutoff.
type AbandonedAccountDeleter interface {
	DeleteExpiredUnverified(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupManager periodically removes abandoned registrations: accounts
// that were never verified and whose last code expired past the grace
// period.
type CleanupManager struct {
	repo        AbandonedAccountDeleter
	logger      *slog.Logger
	interval    time.Duration
	gracePeriod time.Duration
	stopCh      chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	repo AbandonedAccountDeleter,
	logger *slog.Logger,
	interval time.Duration,
	gracePeriod time.Duration,
) *CleanupManager {
	return &CleanupManager{
		repo:        repo,
		logger:      logger,
		interval:    interval,
		gracePeriod: gracePeriod,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup deletes abandoned unverified accounts
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-cm.gracePeriod)

	rowsDeleted, err := cm.repo.DeleteExpiredUnverified(cleanupCtx, cutoff)
	if err != nil {
		cm.logger.Error("failed to cleanup abandoned registrations", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("abandoned registration cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
