package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/retry"
)

const defaultStackExchangeURL = "https://api.stackexchange.com/2.3"

// StackOverflowChannel searches questions by title, ordered by votes.
type StackOverflowChannel struct {
	baseURL string
	apiKey  string
	client  *http.Client
	policy  retry.Policy
}

var _ repository.Channel = (*StackOverflowChannel)(nil)

// NewStackOverflowChannel creates the channel; the API key is optional and
// only raises quotas.
func NewStackOverflowChannel(apiKey string) *StackOverflowChannel {
	return &StackOverflowChannel{
		baseURL: defaultStackExchangeURL,
		apiKey:  apiKey,
		client:  defaultHTTPClient,
		policy:  retry.DefaultPolicy(),
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *StackOverflowChannel) WithBaseURL(base string) *StackOverflowChannel {
	c.baseURL = base
	return c
}

func (c *StackOverflowChannel) Type() entity.ChannelType {
	return entity.ChannelStackOverflow
}

type soResponse struct {
	Items []struct {
		Title        string `json:"title"`
		Link         string `json:"link"`
		Score        int    `json:"score"`
		Body         string `json:"body"`
		CreationDate int64  `json:"creation_date"`
		Owner        struct {
			DisplayName string `json:"display_name"`
		} `json:"owner"`
	} `json:"items"`
}

func (c *StackOverflowChannel) Fetch(ctx context.Context, toolName string, limit int) ([]entity.CollectedInformation, error) {
	endpoint := fmt.Sprintf("%s/search/advanced?order=desc&sort=votes&title=%s&site=stackoverflow&filter=withbody&pagesize=%d",
		c.baseURL, url.QueryEscape(toolName), limit)
	if c.apiKey != "" {
		endpoint += "&key=" + url.QueryEscape(c.apiKey)
	}

	body, err := getBody(ctx, c.client, c.policy, endpoint, "")
	if err != nil {
		return nil, err
	}

	var resp soResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, retry.NewError(retry.ErrParsing, err)
	}

	items := make([]entity.CollectedInformation, 0, len(resp.Items))
	for _, q := range resp.Items {
		published := time.Unix(q.CreationDate, 0)
		items = append(items, entity.CollectedInformation{
			Channel:     entity.ChannelStackOverflow,
			URL:         q.Link,
			Title:       q.Title,
			Content:     q.Body,
			Author:      q.Owner.DisplayName,
			PublishedAt: &published,
			Score:       float64(q.Score),
			Reliability: soReliability(q.Score),
		})
	}
	return items, nil
}

// soReliability is 0.5 + min(0.3, votes/100): heavily-voted answers earn
// almost-documentation trust, but never quite reach it.
func soReliability(votes int) float64 {
	bonus := float64(votes) / 100
	if bonus > reliabilitySOVoteCap {
		bonus = reliabilitySOVoteCap
	}
	if bonus < 0 {
		bonus = 0
	}
	return reliabilitySOBase + bonus
}
