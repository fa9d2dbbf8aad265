package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/partsdesk/internal/config"
	"github.com/mamadbah2/partsdesk/internal/domain/models"
	"github.com/mamadbah2/partsdesk/internal/repository/mongodb"
	"github.com/mamadbah2/partsdesk/internal/service/inventory"
)

const jobTimeout = 2 * time.Minute

// Refresher reloads and exposes the dashboard state.
type Refresher interface {
	Refresh(ctx context.Context) (inventory.View, error)
	View() inventory.View
}

// SheetsSyncer pushes the inventory into the spreadsheet.
type SheetsSyncer interface {
	SyncSheets(ctx context.Context) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	store     Refresher
	snapshots mongodb.Repository
	syncer    SheetsSyncer
	cfg       config.SchedulerConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance. snapshots and syncer may be
// nil, in which case their jobs are not registered.
func NewScheduler(cfg config.SchedulerConfig, store Refresher, snapshots mongodb.Repository, syncer SheetsSyncer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
		}
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		store:     store,
		snapshots: snapshots,
		syncer:    syncer,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start registers the configured jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	jobs := []struct {
		name string
		expr string
		run  func()
		on   bool
	}{
		{"refresh", s.cfg.RefreshCron, s.refresh, s.cfg.RefreshCron != ""},
		{"snapshot", s.cfg.SnapshotCron, s.snapshot, s.snapshots != nil && s.cfg.SnapshotCron != ""},
		{"sheets sync", s.cfg.SheetsSyncCron, s.syncSheets, s.syncer != nil && s.cfg.SheetsSyncCron != ""},
	}

	for _, job := range jobs {
		if !job.on {
			continue
		}
		if _, err := s.cron.AddFunc(job.expr, job.run); err != nil {
			return fmt.Errorf("schedule %s job %q: %w", job.name, job.expr, err)
		}
		s.logger.Info("job scheduled", zap.String("job", job.name), zap.String("cron", job.expr))
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.RunRefresh(ctx); err != nil {
		s.logger.Error("scheduled refresh failed", zap.Error(err))
	}
}

func (s *Scheduler) snapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.RunSnapshot(ctx); err != nil {
		s.logger.Error("scheduled snapshot failed", zap.Error(err))
	}
}

func (s *Scheduler) syncSheets() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	if err := s.syncer.SyncSheets(ctx); err != nil {
		s.logger.Error("scheduled sheets sync failed", zap.Error(err))
	}
}

// RunRefresh reloads the current page.
func (s *Scheduler) RunRefresh(ctx context.Context) error {
	_, err := s.store.Refresh(ctx)
	return err
}

// RunSnapshot refreshes the store and persists its statistics.
func (s *Scheduler) RunSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return fmt.Errorf("snapshot history is not configured")
	}

	view, err := s.store.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh before snapshot: %w", err)
	}

	record := models.NewSnapshotRecord(view.Stats, view.Filters, s.now())
	if err := s.snapshots.SaveSnapshot(ctx, record); err != nil {
		return err
	}

	s.logger.Info("stats snapshot saved",
		zap.Int("total_items", record.Stats.TotalItems),
		zap.Float64("total_value", record.Stats.TotalValue),
		zap.Int("low_stock_items", record.Stats.LowStockItems),
	)
	return nil
}
