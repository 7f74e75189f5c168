package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/rl1809/zoo-retail/internal/core/domain"
	"github.com/rl1809/zoo-retail/internal/port"
)

type lowStockLister interface {
	LowStock(ctx context.Context) ([]domain.Item, error)
}

// LowStockJob reports items at or below their restock threshold.
type LowStockJob struct {
	catalog   lowStockLister
	publisher port.EventPublisher
	timeout   time.Duration
}

func NewLowStockJob(catalog lowStockLister, publisher port.EventPublisher) *LowStockJob {
	return &LowStockJob{catalog: catalog, publisher: publisher, timeout: 30 * time.Second}
}

// Run performs one sweep and returns the number of low items found.
func (j *LowStockJob) Run(ctx context.Context) (int, error) {
	items, err := j.catalog.LowStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("low stock sweep: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	for _, it := range items {
		log.Printf("low stock: %s (%s) has %d left, threshold %d", it.ID, it.Name, it.StockCount, it.RestockThreshold)
	}

	if j.publisher != nil {
		event := domain.SaleEvent{
			Type:       domain.EventInventoryLowStock,
			Items:      items,
			OccurredAt: time.Now().UTC(),
		}
		if err := j.publisher.Publish(ctx, event); err != nil {
			return len(items), fmt.Errorf("publish low stock: %w", err)
		}
	}
	return len(items), nil
}

// Schedule starts the sweep on a background scheduler. Call Stop on the
// returned scheduler during shutdown.
func (j *LowStockJob) Schedule(interval time.Duration) (*gocron.Scheduler, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	_, err := s.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		if _, err := j.Run(ctx); err != nil {
			log.Printf("low stock job failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule low stock job: %w", err)
	}

	s.StartAsync()
	return s, nil
}
