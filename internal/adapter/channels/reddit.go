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

const defaultRedditURL = "https://www.reddit.com"

// Subreddits is the fixed allowlist searched by the Reddit channel.
var Subreddits = []string{"mcp", "ClaudeAI", "LocalLLaMA", "programming"}

// RedditChannel searches the public JSON endpoints of allowlisted subreddits.
type RedditChannel struct {
	baseURL    string
	subreddits []string
	client     *http.Client
	policy     retry.Policy
}

var _ repository.Channel = (*RedditChannel)(nil)

// NewRedditChannel creates the channel over the default allowlist.
func NewRedditChannel() *RedditChannel {
	return &RedditChannel{
		baseURL:    defaultRedditURL,
		subreddits: Subreddits,
		client:     defaultHTTPClient,
		policy:     retry.DefaultPolicy(),
	}
}

// WithBaseURL overrides the endpoint, used by tests.
func (c *RedditChannel) WithBaseURL(base string) *RedditChannel {
	c.baseURL = base
	return c
}

func (c *RedditChannel) Type() entity.ChannelType {
	return entity.ChannelReddit
}

type redditResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				Selftext   string  `json:"selftext"`
				Permalink  string  `json:"permalink"`
				Ups        int     `json:"ups"`
				Author     string  `json:"author"`
				CreatedUTC float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (c *RedditChannel) Fetch(ctx context.Context, toolName string, limit int) ([]entity.CollectedInformation, error) {
	perSub := limit / len(c.subreddits)
	if perSub < 1 {
		perSub = 1
	}

	var items []entity.CollectedInformation
	for _, sub := range c.subreddits {
		endpoint := fmt.Sprintf("%s/r/%s/search.json?q=%s&restrict_sr=1&sort=top&limit=%d",
			c.baseURL, sub, url.QueryEscape(toolName), perSub)

		body, err := getBody(ctx, c.client, c.policy, endpoint, "toolscout/1.0")
		if err != nil {
			// One subreddit failing must not empty the whole channel.
			continue
		}

		var resp redditResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			continue
		}

		for _, child := range resp.Data.Children {
			post := child.Data
			published := time.Unix(int64(post.CreatedUTC), 0)
			items = append(items, entity.CollectedInformation{
				Channel:     entity.ChannelReddit,
				URL:         c.baseURL + post.Permalink,
				Title:       post.Title,
				Content:     post.Selftext,
				Author:      post.Author,
				PublishedAt: &published,
				Score:       float64(post.Ups),
				Reliability: redditReliability(post.Ups),
			})
			if len(items) >= limit {
				return items, nil
			}
		}
	}
	return items, nil
}

// redditReliability is 0.3 + min(0.4, upvotes/50): forum chatter starts low
// and strong community signal can at most lift it to 0.7.
func redditReliability(upvotes int) float64 {
	bonus := float64(upvotes) / 50
	if bonus > reliabilityRedditCap {
		bonus = reliabilityRedditCap
	}
	if bonus < 0 {
		bonus = 0
	}
	return reliabilityRedditBase + bonus
}
