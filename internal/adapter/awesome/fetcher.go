package awesome

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/relevance"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/retry"
	"github.com/user/toolscout-service/pkg/utils"
)

// Fetcher implements repository.Fetcher for curated awesome-list pages. The
// source identifier is the rendered list URL; each list entry linking to a
// GitHub repository becomes a candidate item.
type Fetcher struct {
	client *http.Client
	cache  repository.Cache
	ttl    time.Duration
	policy retry.Policy
	log    *zap.Logger
}

var _ repository.Fetcher = (*Fetcher)(nil)

// NewFetcher creates an awesome-list fetcher.
func NewFetcher(cache repository.Cache, cacheTTL time.Duration, log *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
		ttl:    cacheTTL,
		policy: retry.DefaultPolicy(),
		log:    log,
	}
}

// Search fetches the list page and extracts GitHub repository links from
// list items, together with the entry's link text and trailing description.
func (f *Fetcher) Search(ctx context.Context, listURL string, opts repository.SearchOptions) ([]entity.ProviderItem, error) {
	base, err := url.Parse(listURL)
	if err != nil {
		return nil, retry.NewError(retry.ErrValidation, err)
	}

	body, err := f.get(ctx, listURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, retry.NewError(retry.ErrParsing, err)
	}

	max := opts.MaxResults
	if max <= 0 {
		max = 100
	}

	seen := map[string]struct{}{}
	var items []entity.ProviderItem
	doc.Find("li a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		abs, err := utils.ToAbsoluteURL(base, href)
		if err != nil {
			return true
		}
		fullName, ok := githubFullName(abs)
		if !ok {
			return true
		}
		if _, dup := seen[fullName]; dup {
			return true
		}
		seen[fullName] = struct{}{}

		name := strings.TrimSpace(a.Text())
		if name == "" {
			name = fullName
		}
		// "name - description" is the common awesome-list entry shape.
		description := strings.TrimSpace(strings.TrimPrefix(a.Parent().Text(), a.Text()))
		description = strings.TrimLeft(description, " -–—:")

		items = append(items, entity.ProviderItem{
			Name:        name,
			FullName:    fullName,
			URL:         "https://github.com/" + fullName,
			Description: description,
			Repository:  "https://github.com/" + fullName,
		})
		return len(items) < max
	})

	return items, nil
}

// Enrich fetches the linked repository page and scrapes its readme text.
// List entries carry little detail of their own, so a failed page fetch
// degrades to an empty enrichment rather than dropping the item.
func (f *Fetcher) Enrich(ctx context.Context, item entity.ProviderItem) (*entity.Enrichment, error) {
	body, err := f.get(ctx, item.URL)
	if err != nil {
		f.log.Warn("awesome entry page unavailable", zap.String("url", item.URL), zap.Error(err))
		return &entity.Enrichment{ConfigFiles: map[string]string{}}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return &entity.Enrichment{ConfigFiles: map[string]string{}}, nil
	}

	readme := strings.TrimSpace(doc.Find("article").First().Text())
	return &entity.Enrichment{
		Readme:      readme,
		ConfigFiles: map[string]string{},
	}, nil
}

func (f *Fetcher) Kind() entity.SourceKind {
	return entity.SourceAwesomeList
}

func (f *Fetcher) IsRelevant(item entity.ProviderItem, enrichment *entity.Enrichment) bool {
	texts := []string{item.Name, item.Description}
	if enrichment != nil {
		texts = append(texts, enrichment.Readme)
	}
	return relevance.Matches(texts...)
}

func (f *Fetcher) InstallCommand(item entity.ProviderItem) string {
	return "git clone " + item.URL + ".git"
}

// githubFullName extracts "owner/repo" from a GitHub repository URL.
func githubFullName(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host != "github.com" {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "/" + parts[1], true
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

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return retry.NewHTTPError(resp.StatusCode, errors.Newf("fetch %s returned %d", endpoint, resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, endpoint, body, f.ttl, "provider:awesome_list"); err != nil {
			f.log.Warn("failed to cache awesome-list page", zap.String("endpoint", endpoint), zap.Error(err))
		}
	}
	return body, nil
}
