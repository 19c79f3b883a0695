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
	"github.com/user/toolscout-service/pkg/retry"
)

func item(channel entity.ChannelType, title string, score, reliability float64) entity.CollectedInformation {
	return entity.CollectedInformation{
		Channel:     channel,
		URL:         "https://example.com/" + title,
		Title:       title,
		Content:     "content about " + title,
		Score:       score,
		Reliability: reliability,
	}
}

func TestCollectorRanksByWeight(t *testing.T) {
	uc := NewCollectorUseCase([]repository.Channel{
		&fakeChannel{channelType: entity.ChannelReddit, items: []entity.CollectedInformation{
			item(entity.ChannelReddit, "popular-thread", 100, 0.5), // weight 50
		}},
		&fakeChannel{channelType: entity.ChannelOfficialDocs, items: []entity.CollectedInformation{
			item(entity.ChannelOfficialDocs, "docs-page", 0, 0.95), // weight 0.95
		}},
	}, 10, time.Second, zap.NewNop())

	items, err := uc.Collect(context.Background(), "some-tool")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "popular-thread", items[0].Title)
	assert.Equal(t, "docs-page", items[1].Title)
}

func TestCollectorIsolatesChannelFailure(t *testing.T) {
	uc := NewCollectorUseCase([]repository.Channel{
		&fakeChannel{channelType: entity.ChannelReddit, err: errors.New("reddit is down")},
		&fakeChannel{channelType: entity.ChannelStackOverflow, items: []entity.CollectedInformation{
			item(entity.ChannelStackOverflow, "question", 5, 0.55),
		}},
	}, 10, time.Second, zap.NewNop())

	items, err := uc.Collect(context.Background(), "some-tool")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, entity.ChannelStackOverflow, items[0].Channel)
}

func TestCollectorAllEmptyIsInvalidResponse(t *testing.T) {
	uc := NewCollectorUseCase([]repository.Channel{
		&fakeChannel{channelType: entity.ChannelReddit},
		&fakeChannel{channelType: entity.ChannelOfficialDocs, err: errors.New("unreachable")},
	}, 10, time.Second, zap.NewNop())

	_, err := uc.Collect(context.Background(), "unknown-tool")
	require.Error(t, err)

	var cerr *retry.ClassifiedError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, retry.ErrInvalidResponse, cerr.Type)
}

func TestCollectorTimesOut(t *testing.T) {
	uc := NewCollectorUseCase([]repository.Channel{
		&fakeChannel{channelType: entity.ChannelOfficialDocs, block: true},
	}, 10, 30*time.Millisecond, zap.NewNop())

	_, err := uc.Collect(context.Background(), "slow-tool")
	require.Error(t, err)

	var cerr *retry.ClassifiedError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, retry.ErrTimeout, cerr.Type)
}
