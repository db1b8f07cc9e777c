package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredTokenCleaner deletes revocation records whose tokens have expired
type ExpiredTokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges expired revoked tokens
type CleanupManager struct {
	cleaner  ExpiredTokenCleaner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewCleanupManager(cleaner ExpiredTokenCleaner, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CleanupManager{
		cleaner:  cleaner,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one cleanup immediately, then every interval until ctx is
// cancelled or Stop is called. It blocks.
func (cm *CleanupManager) Start(ctx context.Context) {
	defer close(cm.done)

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

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

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.cleaner.CleanupExpiredTokens(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired tokens", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired token cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the loop to exit. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}

// Done is closed once Start has returned
func (cm *CleanupManager) Done() <-chan struct{} {
	return cm.done
}
