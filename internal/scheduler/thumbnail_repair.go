package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/thuvien/thuvien/internal/config"
	"github.com/thuvien/thuvien/internal/services"
)

// ThumbnailRepairScheduler periodically re-derives thumbnails for books
// that are missing one, typically after a failed render during upload.
type ThumbnailRepairScheduler struct {
	service *services.BookService
	cfg     config.Repair

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewThumbnailRepairScheduler creates a new scheduler instance.
func NewThumbnailRepairScheduler(service *services.BookService, cfg config.Repair) *ThumbnailRepairScheduler {
	return &ThumbnailRepairScheduler{
		service: service,
		cfg:     cfg,
		cron:    cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the repair sweep is enabled.
func (s *ThumbnailRepairScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Thumbnail repair scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule repair job with '%s': %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Thumbnail repair scheduler: started with schedule '%s'", s.cfg.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *ThumbnailRepairScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Thumbnail repair scheduler: stopped")
}

// RunNow triggers an immediate sweep.
func (s *ThumbnailRepairScheduler) RunNow() {
	go s.runSweep()
}

// IsRunning returns whether the scheduler is active.
func (s *ThumbnailRepairScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will occur.
func (s *ThumbnailRepairScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *ThumbnailRepairScheduler) runSweep() {
	log.Printf("Thumbnail repair: starting sweep")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	repaired := s.service.RepairMissingThumbnails(ctx)

	log.Printf("Thumbnail repair: repaired %d thumbnails in %v",
		repaired, time.Since(startTime).Round(time.Millisecond))
}
