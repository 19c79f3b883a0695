package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/metrics"
	"github.com/user/toolscout-service/pkg/retry"
)

// Collector gathers information about a tool from all configured channels.
type Collector interface {
	Collect(ctx context.Context, toolName string) ([]entity.CollectedInformation, error)
}

type collectorUseCase struct {
	channels      []repository.Channel
	maxPerChannel int
	timeout       time.Duration
	log           *zap.Logger
}

// NewCollectorUseCase creates the multi-channel collector.
func NewCollectorUseCase(channels []repository.Channel, maxPerChannel int, timeout time.Duration, log *zap.Logger) Collector {
	return &collectorUseCase{
		channels:      channels,
		maxPerChannel: maxPerChannel,
		timeout:       timeout,
		log:           log,
	}
}

// Collect fans out to every channel concurrently. A single channel failing
// must not fail the others; its error is logged and the rest proceed. The
// whole call is bounded by the collector timeout.
func (uc *collectorUseCase) Collect(ctx context.Context, toolName string) ([]entity.CollectedInformation, error) {
	cctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	var (
		mu    sync.Mutex
		items []entity.CollectedInformation
		wg    sync.WaitGroup
	)

	for _, ch := range uc.channels {
		wg.Add(1)
		go func(ch repository.Channel) {
			defer wg.Done()

			fetched, err := ch.Fetch(cctx, toolName, uc.maxPerChannel)
			if err != nil {
				uc.log.Warn("channel fetch failed",
					zap.String("channel", string(ch.Type())),
					zap.String("tool", toolName),
					zap.Error(err),
				)
				observeChannelFetch(ch.Type(), "failure")
				return
			}
			observeChannelFetch(ch.Type(), "success")

			mu.Lock()
			items = append(items, fetched...)
			mu.Unlock()
		}(ch)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-cctx.Done():
	}
	if cctx.Err() != nil {
		return nil, retry.NewError(retry.ErrTimeout,
			errors.Wrapf(cctx.Err(), "collecting %q timed out after %s", toolName, uc.timeout))
	}

	if len(items) == 0 {
		return nil, retry.NewError(retry.ErrInvalidResponse,
			errors.Newf("no channel returned information about %q", toolName))
	}

	// Rank by both authority and community signal.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Weight() > items[j].Weight()
	})
	return items, nil
}

func observeChannelFetch(channel entity.ChannelType, status string) {
	if metrics.ChannelFetchesTotal != nil {
		metrics.ChannelFetchesTotal.WithLabelValues(string(channel), status).Inc()
	}
}
