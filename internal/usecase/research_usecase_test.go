package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
)

func TestResearchToolProducesReport(t *testing.T) {
	collector := NewCollectorUseCase([]repository.Channel{
		&fakeChannel{channelType: entity.ChannelOfficialDocs, items: []entity.CollectedInformation{
			{
				Channel:     entity.ChannelOfficialDocs,
				URL:         "https://example.com/docs",
				Title:       "example server docs",
				Content:     "Install with npm install example-server. Supports streaming.",
				Reliability: 0.95,
			},
		}},
	}, 10, time.Second, zap.NewNop())

	formatter := &fakeFormatter{report: "# example-server\n\nwell documented"}
	uc := NewResearchUseCase(collector, NewProcessorUseCase(0.8), formatter, zap.NewNop())

	report, err := uc.ResearchTool(context.Background(), "example-server")
	require.NoError(t, err)
	assert.Contains(t, report, "example-server")
}

func TestResearchToolFailsWhenNothingCollected(t *testing.T) {
	collector := NewCollectorUseCase([]repository.Channel{
		&fakeChannel{channelType: entity.ChannelOfficialDocs, err: errors.New("unreachable")},
	}, 10, time.Second, zap.NewNop())

	uc := NewResearchUseCase(collector, NewProcessorUseCase(0.8), &fakeFormatter{}, zap.NewNop())

	_, err := uc.ResearchTool(context.Background(), "ghost-tool")
	require.Error(t, err)
}
