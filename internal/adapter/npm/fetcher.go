package npm

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

const (
	defaultRegistryURL  = "https://registry.npmjs.org"
	defaultDownloadsURL = "https://api.npmjs.org"
)

// Fetcher implements repository.Fetcher against the NPM registry search API,
// the package manifest endpoint, and the download-count endpoint.
type Fetcher struct {
	registryURL  string
	downloadsURL string
	client       *http.Client
	cache        repository.Cache
	ttl          time.Duration
	policy       retry.Policy
	log          *zap.Logger
}

var _ repository.Fetcher = (*Fetcher)(nil)

// NewFetcher creates an NPM fetcher.
func NewFetcher(cache repository.Cache, cacheTTL time.Duration, log *zap.Logger) *Fetcher {
	return &Fetcher{
		registryURL:  defaultRegistryURL,
		downloadsURL: defaultDownloadsURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		cache:        cache,
		ttl:          cacheTTL,
		policy:       retry.DefaultPolicy(),
		log:          log,
	}
}

// WithBaseURLs overrides both endpoints, used by tests.
func (f *Fetcher) WithBaseURLs(registry, downloads string) *Fetcher {
	f.registryURL = registry
	f.downloadsURL = downloads
	return f
}

func (f *Fetcher) Kind() entity.SourceKind {
	return entity.SourceNPMQuery
}

type searchResponse struct {
	Objects []struct {
		Package struct {
			Name        string `json:"name"`
			Version     string `json:"version"`
			Description string `json:"description"`
			Links       struct {
				NPM        string `json:"npm"`
				Homepage   string `json:"homepage"`
				Repository string `json:"repository"`
			} `json:"links"`
		} `json:"package"`
	} `json:"objects"`
}

// Search queries the registry search API with quality/popularity/maintenance
// weights biased toward popularity.
func (f *Fetcher) Search(ctx context.Context, query string, opts repository.SearchOptions) ([]entity.ProviderItem, error) {
	size := opts.MaxResults
	if size <= 0 || size > 250 {
		size = 30
	}

	endpoint := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d&quality=0.5&popularity=0.9&maintenance=0.3",
		f.registryURL, url.QueryEscape(query), size)

	body, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, retry.NewError(retry.ErrParsing, err)
	}

	items := make([]entity.ProviderItem, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		pkg := obj.Package
		itemURL := pkg.Links.NPM
		if itemURL == "" {
			itemURL = f.registryURL + "/" + pkg.Name
		}
		items = append(items, entity.ProviderItem{
			Name:        pkg.Name,
			FullName:    pkg.Name,
			URL:         itemURL,
			Description: pkg.Description,
			Version:     pkg.Version,
			Homepage:    pkg.Links.Homepage,
			Repository:  pkg.Links.Repository,
		})
	}
	return items, nil
}

type manifest struct {
	Readme  string `json:"readme"`
	License string `json:"license"`
	Version string `json:"version"`
}

type downloadsResponse struct {
	Downloads int `json:"downloads"`
}

// Enrich fetches the latest manifest (which carries the readme inline) and
// the weekly download count. A missing download count is not fatal.
func (f *Fetcher) Enrich(ctx context.Context, item entity.ProviderItem) (*entity.Enrichment, error) {
	body, err := f.get(ctx, fmt.Sprintf("%s/%s/latest", f.registryURL, url.PathEscape(item.Name)))
	if err != nil {
		return nil, err
	}

	var m manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, retry.NewError(retry.ErrParsing, err)
	}

	downloads := 0
	dlBody, err := f.get(ctx, fmt.Sprintf("%s/downloads/point/last-week/%s", f.downloadsURL, url.PathEscape(item.Name)))
	if err != nil {
		f.log.Warn("download count unavailable", zap.String("package", item.Name), zap.Error(err))
	} else {
		var dl downloadsResponse
		if err := json.Unmarshal(dlBody, &dl); err == nil {
			downloads = dl.Downloads
		}
	}

	return &entity.Enrichment{
		Readme:      m.Readme,
		ConfigFiles: map[string]string{},
		Downloads:   downloads,
	}, nil
}

func (f *Fetcher) IsRelevant(item entity.ProviderItem, enrichment *entity.Enrichment) bool {
	texts := []string{item.Name, item.Description}
	if enrichment != nil {
		texts = append(texts, enrichment.Readme)
	}
	return relevance.Matches(texts...)
}

func (f *Fetcher) InstallCommand(item entity.ProviderItem) string {
	return "npm install " + item.Name
}

func (f *Fetcher) get(ctx context.Context, endpoint string) ([]byte, error) {
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
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retry.NewHTTPError(resp.StatusCode, errors.Newf("npm returned %d for %s", resp.StatusCode, endpoint))
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, endpoint, body, f.ttl, "provider:npm"); err != nil {
			f.log.Warn("failed to cache npm response", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}
	return body, nil
}
