package ports

import (
	"context"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

type EventPublisher interface {
	Publish(ctx context.Context, e domain.Event) error
}
