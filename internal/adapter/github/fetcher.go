package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/relevance"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/retry"
)

const defaultBaseURL = "https://api.github.com"

// configFileNames are the fixed filenames whose contents Enrich fetches.
// A 404 on any of them degrades to an empty string.
var configFileNames = []string{
	"package.json",
	"mcp.json",
	"claude_desktop_config.json",
	"Dockerfile",
}

// Fetcher implements repository.Fetcher against the GitHub REST API.
type Fetcher struct {
	baseURL string
	token   string
	client  *http.Client
	cache   repository.Cache
	ttl     time.Duration
	policy  retry.Policy
	log     *zap.Logger
}

var _ repository.Fetcher = (*Fetcher)(nil)

// NewFetcher creates a GitHub fetcher. The token is optional; unauthenticated
// requests just hit lower rate limits.
func NewFetcher(token string, cache repository.Cache, cacheTTL time.Duration, log *zap.Logger) *Fetcher {
	return &Fetcher{
		baseURL: defaultBaseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		cache:   cache,
		ttl:     cacheTTL,
		policy:  retry.DefaultPolicy(),
		log:     log,
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (f *Fetcher) WithBaseURL(base string) *Fetcher {
	f.baseURL = base
	return f
}

func (f *Fetcher) Kind() entity.SourceKind {
	return entity.SourceGitHubTopic
}

type searchResponse struct {
	Items []struct {
		Name        string `json:"name"`
		FullName    string `json:"full_name"`
		HTMLURL     string `json:"html_url"`
		Description string `json:"description"`
		Stars       int    `json:"stargazers_count"`
		Language    string `json:"language"`
		Homepage    string `json:"homepage"`
		License     *struct {
			SpdxID string `json:"spdx_id"`
		} `json:"license"`
	} `json:"items"`
}

// Search queries the repository search API by topic, sorted by stars.
func (f *Fetcher) Search(ctx context.Context, query string, opts repository.SearchOptions) ([]entity.ProviderItem, error) {
	perPage := opts.MaxResults
	if perPage <= 0 || perPage > 100 {
		perPage = 30
	}
	sort := opts.SortBy
	if sort == "" {
		sort = "stars"
	}

	endpoint := fmt.Sprintf("%s/search/repositories?q=%s&sort=%s&order=desc&per_page=%d",
		f.baseURL, url.QueryEscape("topic:"+query), sort, perPage)

	body, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, retry.NewError(retry.ErrParsing, err)
	}

	items := make([]entity.ProviderItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it.Stars < opts.MinStars {
			continue
		}
		item := entity.ProviderItem{
			Name:        it.Name,
			FullName:    it.FullName,
			URL:         it.HTMLURL,
			Description: it.Description,
			Stars:       it.Stars,
			Repository:  it.HTMLURL,
			Homepage:    it.Homepage,
			Language:    it.Language,
		}
		if it.License != nil {
			item.License = it.License.SpdxID
		}
		items = append(items, item)
	}
	return items, nil
}

// Enrich fetches the readme, a docs directory listing, and the fixed config
// filenames. Optional sub-resources that 404 yield empty strings.
func (f *Fetcher) Enrich(ctx context.Context, item entity.ProviderItem) (*entity.Enrichment, error) {
	readme, err := f.getOptional(ctx, fmt.Sprintf("%s/repos/%s/readme", f.baseURL, item.FullName), "application/vnd.github.raw+json")
	if err != nil {
		return nil, err
	}

	docs, err := f.docsListing(ctx, item.FullName)
	if err != nil {
		return nil, err
	}

	configs := make(map[string]string, len(configFileNames))
	for _, name := range configFileNames {
		content, err := f.getOptional(ctx, fmt.Sprintf("%s/repos/%s/contents/%s", f.baseURL, item.FullName, name), "application/vnd.github.raw+json")
		if err != nil {
			return nil, err
		}
		if content != "" {
			configs[name] = content
		}
	}

	return &entity.Enrichment{
		Readme:      readme,
		Docs:        docs,
		ConfigFiles: configs,
		Stars:       item.Stars,
	}, nil
}

func (f *Fetcher) IsRelevant(item entity.ProviderItem, enrichment *entity.Enrichment) bool {
	texts := []string{item.Name, item.Description}
	if enrichment != nil {
		texts = append(texts, enrichment.Readme)
		if manifest, ok := enrichment.ConfigFiles["package.json"]; ok {
			texts = append(texts, manifest)
		}
	}
	return relevance.Matches(texts...)
}

func (f *Fetcher) InstallCommand(item entity.ProviderItem) string {
	return "git clone " + item.URL + ".git"
}

// docsListing returns the file names under docs/ joined by newlines; missing
// docs directories are not an error.
func (f *Fetcher) docsListing(ctx context.Context, fullName string) (string, error) {
	body, err := f.getOptional(ctx, fmt.Sprintf("%s/repos/%s/contents/docs", f.baseURL, fullName), "")
	if err != nil || body == "" {
		return "", err
	}

	var entries []struct {
		Name string `json:"name"`
		Path string `json:"path"`
	}
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		// Not a directory listing; treat the docs lookup as absent.
		return "", nil
	}
	listing := ""
	for _, e := range entries {
		listing += e.Path + "\n"
	}
	return listing, nil
}

// get performs a cached, retried GET. GitHub's 403 is its secondary rate
// limit, not an auth failure, so it is surfaced as a rate-limit error to let
// the caller apply a longer backoff.
func (f *Fetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
	return f.fetch(ctx, endpoint, "", false)
}

// getOptional is get for sub-resources where a 404 degrades to "".
func (f *Fetcher) getOptional(ctx context.Context, endpoint, accept string) (string, error) {
	body, err := f.fetch(ctx, endpoint, accept, true)
	return string(body), err
}

func (f *Fetcher) fetch(ctx context.Context, endpoint, accept string, optional bool) ([]byte, error) {
	if f.cache != nil {
		if cached, ok, err := f.cache.Get(ctx, endpoint); err == nil && ok {
			return cached, nil
		}
	}

	var body []byte
	err := retry.Do(ctx, f.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		if accept != "" {
			req.Header.Set("Accept", accept)
		} else {
			req.Header.Set("Accept", "application/vnd.github+json")
		}
		if f.token != "" {
			req.Header.Set("Authorization", "Bearer "+f.token)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if optional && resp.StatusCode == http.StatusNotFound {
			body = nil
			return nil
		}
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
			return retry.NewError(retry.ErrRateLimit, errors.Newf("github returned %d for %s", resp.StatusCode, endpoint))
		}
		if resp.StatusCode != http.StatusOK {
			return retry.NewHTTPError(resp.StatusCode, errors.Newf("github returned %d for %s", resp.StatusCode, endpoint))
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	if f.cache != nil && body != nil {
		if err := f.cache.Set(ctx, endpoint, body, f.ttl, "provider:github"); err != nil {
			f.log.Warn("failed to cache github response", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}
	return body, nil
}
