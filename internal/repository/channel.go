package repository

import (
	"context"

	"github.com/user/toolscout-service/internal/entity"
)

// Channel is one independent information source for the multi-channel
// collector. Implementations set the per-item reliability prior themselves.
type Channel interface {
	// Type identifies the channel.
	Type() entity.ChannelType
	// Fetch returns up to limit items about the named tool.
	Fetch(ctx context.Context, toolName string, limit int) ([]entity.CollectedInformation, error)
}
