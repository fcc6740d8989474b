package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	mirrordomain "mirror-sync-go/internal/domain/mirror"
	"mirror-sync-go/pkg/logger"
)

type Scanner interface {
	Scan(ctx context.Context) (mirrordomain.ScanSummary, error)
	Running() bool
}

// Scheduler runs scans in the background, either on demand through Trigger or
// on a fixed interval. Scans never overlap.
type Scheduler struct {
	scanner  Scanner
	interval time.Duration
	log      logger.Logger
	busy     atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(scanner Scanner, interval time.Duration, log logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scanner:  scanner,
		interval: interval,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Running() bool {
	return s.busy.Load() || s.scanner.Running()
}

// Trigger starts a scan and returns immediately.
func (s *Scheduler) Trigger() error {
	if s.ctx.Err() != nil {
		return s.ctx.Err()
	}
	if !s.acquire() {
		return mirrordomain.ErrScanInProgress
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.runOnce()
	}()
	return nil
}

// Start launches the periodic loop. An interval of zero disables it.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info("scheduler: periodic scans enabled", "interval", s.interval)
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if !s.acquire() {
					s.log.Warn("scheduler: previous scan still running, tick skipped")
					continue
				}
				s.runOnce()
				s.busy.Store(false)
			}
		}
	}()
}

// Stop cancels any running scan and waits for background work to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) acquire() bool {
	if s.scanner.Running() {
		return false
	}
	return s.busy.CompareAndSwap(false, true)
}

func (s *Scheduler) runOnce() {
	_, err := s.scanner.Scan(s.ctx)
	switch {
	case err == nil:
	case errors.Is(err, mirrordomain.ErrScanInProgress):
		s.log.Warn("scheduler: scan already in progress")
	case errors.Is(err, context.Canceled):
		s.log.Info("scheduler: scan cancelled")
	default:
		s.log.InternalError("scheduler: scan failed", err)
	}
}
