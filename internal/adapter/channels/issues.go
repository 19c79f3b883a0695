package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/retry"
)

const defaultGitHubIssuesURL = "https://api.github.com"

// GitHubIssuesChannel searches the issue tracker for reports mentioning the
// tool. Issues come from people actually running the software, which puts
// them above general Q&A in the reliability ordering.
type GitHubIssuesChannel struct {
	baseURL string
	token   string
	client  *http.Client
	policy  retry.Policy
}

var _ repository.Channel = (*GitHubIssuesChannel)(nil)

// NewGitHubIssuesChannel creates the channel; the token is optional.
func NewGitHubIssuesChannel(token string) *GitHubIssuesChannel {
	return &GitHubIssuesChannel{
		baseURL: defaultGitHubIssuesURL,
		token:   token,
		client:  defaultHTTPClient,
		policy:  retry.DefaultPolicy(),
	}
}

// WithBaseURL overrides the endpoint, used by tests.
func (c *GitHubIssuesChannel) WithBaseURL(base string) *GitHubIssuesChannel {
	c.baseURL = base
	return c
}

func (c *GitHubIssuesChannel) Type() entity.ChannelType {
	return entity.ChannelGitHubIssues
}

type issuesResponse struct {
	Items []struct {
		Title     string    `json:"title"`
		HTMLURL   string    `json:"html_url"`
		Body      string    `json:"body"`
		Comments  int       `json:"comments"`
		CreatedAt time.Time `json:"created_at"`
		User      struct {
			Login string `json:"login"`
		} `json:"user"`
	} `json:"items"`
}

func (c *GitHubIssuesChannel) Fetch(ctx context.Context, toolName string, limit int) ([]entity.CollectedInformation, error) {
	endpoint := fmt.Sprintf("%s/search/issues?q=%s&sort=comments&order=desc&per_page=%d",
		c.baseURL, url.QueryEscape(toolName+" type:issue"), limit)

	var body []byte
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		// Same provider quirk as the repository fetcher: 403 is the
		// secondary rate limit.
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
			return retry.NewError(retry.ErrRateLimit, fmt.Errorf("github issues search returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return retry.NewHTTPError(resp.StatusCode, fmt.Errorf("github issues search returned %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	var resp issuesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, retry.NewError(retry.ErrParsing, err)
	}

	items := make([]entity.CollectedInformation, 0, len(resp.Items))
	for _, issue := range resp.Items {
		published := issue.CreatedAt
		items = append(items, entity.CollectedInformation{
			Channel:     entity.ChannelGitHubIssues,
			URL:         issue.HTMLURL,
			Title:       issue.Title,
			Content:     issue.Body,
			Author:      issue.User.Login,
			PublishedAt: &published,
			Score:       float64(issue.Comments),
			Reliability: reliabilityIssues,
		})
	}
	return items, nil
}
