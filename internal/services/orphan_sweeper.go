package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/welldanyogia/webrana-chat-backend/internal/attachment"
	"github.com/welldanyogia/webrana-chat-backend/internal/logger"
	"github.com/welldanyogia/webrana-chat-backend/internal/repository"
	"github.com/welldanyogia/webrana-chat-backend/internal/storage"
)

// OrphanSweeperConfig holds configuration for the orphan sweeper
type OrphanSweeperConfig struct {
	// Interval is how often a sweep runs; zero disables the background job
	Interval time.Duration
	// GracePeriod protects rows and files younger than this from removal
	GracePeriod time.Duration
}

// SweepResult counts what one sweep removed
type SweepResult struct {
	Rows  int
	Files int
}

// OrphanSweeper removes attachment rows that no message references and
// upload files that no attachment row references
type OrphanSweeper struct {
	store       repository.Store
	files       storage.FileStorage
	attachments *attachment.Processor
	config      OrphanSweeperConfig
	logger      *slog.Logger
	now         func() time.Time
	stopCh      chan struct{}
	wg          sync.WaitGroup
	running     bool
	mu          sync.Mutex
}

// NewOrphanSweeper creates a new OrphanSweeper
func NewOrphanSweeper(
	store repository.Store,
	files storage.FileStorage,
	attachments *attachment.Processor,
	config OrphanSweeperConfig,
	log *slog.Logger,
) *OrphanSweeper {
	if config.GracePeriod <= 0 {
		config.GracePeriod = 10 * time.Minute
	}

	return &OrphanSweeper{
		store:       store,
		files:       files,
		attachments: attachments,
		config:      config,
		logger:      logger.OrDiscard(log),
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the background sweep job. It is a no-op when the interval is zero.
func (s *OrphanSweeper) Start() {
	if s.config.Interval <= 0 {
		s.logger.Info("orphan sweeper disabled")
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.sweepLoop()

	s.logger.Info("orphan sweeper started",
		slog.Duration("interval", s.config.Interval),
		slog.Duration("grace_period", s.config.GracePeriod))
}

// Stop gracefully stops the background sweep job
func (s *OrphanSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("orphan sweeper stopped")
}

// IsRunning returns whether the background job is running
func (s *OrphanSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *OrphanSweeper) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("orphan sweep failed", slog.Any("error", err))
			}
			cancel()
		}
	}
}

// SweepOnce runs one reconciliation pass: unreferenced attachment rows
// first, then files with no row
func (s *OrphanSweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	cutoff := s.now().Add(-s.config.GracePeriod)

	orphans, err := s.store.Attachments().ListUnreferenced(ctx, cutoff)
	if err != nil {
		return result, err
	}
	for _, att := range orphans {
		if err := s.store.Attachments().Delete(ctx, att.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return result, err
		}
		result.Rows++
		if err := s.attachments.Release(ctx, att.StoragePath); err != nil {
			s.logger.Warn("failed to release orphaned attachment file",
				slog.String("storage_path", att.StoragePath),
				slog.Any("error", err))
		}
	}

	paths, err := s.store.Attachments().ListStoragePaths(ctx)
	if err != nil {
		return result, err
	}
	referenced := lo.SliceToMap(paths, func(p string) (string, struct{}) {
		return p, struct{}{}
	})

	stored, err := s.files.List()
	if err != nil {
		return result, err
	}
	for _, f := range stored {
		if f.ModTime.After(cutoff) {
			continue
		}
		if _, ok := referenced[f.Path]; ok && !storage.IsTempFile(f.Path) {
			continue
		}
		if err := s.files.Delete(f.Path); err != nil {
			s.logger.Warn("failed to remove orphaned file",
				slog.String("path", f.Path),
				slog.Any("error", err))
			continue
		}
		result.Files++
	}

	if result.Rows > 0 || result.Files > 0 {
		s.logger.Info("orphan sweep completed",
			slog.Int("rows_removed", result.Rows),
			slog.Int("files_removed", result.Files))
	}
	return result, nil
}
