package port

import (
	"context"

	"github.com/rl1809/zoo-retail/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, event domain.SaleEvent) error
}
