package scheduler

import (
	"context"
	"time"

	"garage_backend/internal/events"
	partsrepo "garage_backend/internal/parts/repository"
	"garage_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultLowStockScanInterval = 24 * time.Hour

// LowStockSweep periodically scans the parts catalog and publishes an event
// for every part at or below its minimum stock threshold.
type LowStockSweep struct {
	repo     *partsrepo.Repo
	bus      events.Bus
	log      *logger.Logger
	interval time.Duration
}

func NewLowStockSweep(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, interval time.Duration) *LowStockSweep {
	if interval <= 0 {
		interval = defaultLowStockScanInterval
	}

	return &LowStockSweep{
		repo:     partsrepo.New(pool),
		bus:      bus,
		log:      log,
		interval: interval,
	}
}

func (s *LowStockSweep) Run(ctx context.Context) {
	if s == nil || s.repo == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *LowStockSweep) sweep(ctx context.Context) {
	parts, err := s.repo.ListBelowMinStock(ctx)
	if err != nil {
		s.log.Warn("low stock sweep failed", "error", err)
		return
	}

	if len(parts) == 0 {
		return
	}

	s.log.Info("low stock sweep found parts below threshold", "count", len(parts))

	if s.bus == nil {
		return
	}

	for _, p := range parts {
		s.bus.Publish(ctx, events.PartStockLow{
			BaseEvent: events.NewBaseEvent(),
			PartID:    p.ID,
			Name:      p.Name,
			Stock:     p.Stock,
			MinStock:  p.MinStock,
		})
	}
}
