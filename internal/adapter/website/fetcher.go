package website

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/relevance"
	"github.com/user/toolscout-service/internal/repository"
)

// Fetcher implements repository.Fetcher for the website source kind. The
// source identifier is the page URL itself; chromedp renders it (tool sites
// are routinely JS-heavy) and goquery extracts the text.
type Fetcher struct {
	allocatorPool *sync.Pool
	timeout       time.Duration
	cache         repository.Cache
	cacheTTL      time.Duration
	log           *zap.Logger
}

var _ repository.Fetcher = (*Fetcher)(nil)

// NewFetcher creates a website fetcher backed by a pool of headless browser
// allocators.
func NewFetcher(pageLoadTimeout time.Duration, cache repository.Cache, cacheTTL time.Duration, log *zap.Logger) *Fetcher {
	pool := &sync.Pool{
		New: func() interface{} {
			opts := append(chromedp.DefaultExecAllocatorOptions[:],
				chromedp.Flag("headless", true),
				chromedp.Flag("disable-gpu", true),
				chromedp.Flag("no-sandbox", true),
				chromedp.Flag("disable-dev-shm-usage", true),
			)
			allocCtx, _ := chromedp.NewExecAllocator(context.Background(), opts...)
			return allocCtx
		},
	}

	return &Fetcher{
		allocatorPool: pool,
		timeout:       pageLoadTimeout,
		cache:         cache,
		cacheTTL:      cacheTTL,
		log:           log,
	}
}

func (f *Fetcher) Kind() entity.SourceKind {
	return entity.SourceWebsite
}

// Search renders the page and returns it as a single candidate item.
func (f *Fetcher) Search(ctx context.Context, pageURL string, _ repository.SearchOptions) ([]entity.ProviderItem, error) {
	title, html, err := f.render(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if description == "" {
		description = strings.TrimSpace(doc.Find("p").First().Text())
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").Text())
	}

	return []entity.ProviderItem{{
		Name:        title,
		FullName:    pageURL,
		URL:         pageURL,
		Description: description,
		Homepage:    pageURL,
	}}, nil
}

// Enrich extracts the page's main text as the readme-equivalent.
func (f *Fetcher) Enrich(ctx context.Context, item entity.ProviderItem) (*entity.Enrichment, error) {
	_, html, err := f.render(ctx, item.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, nav, footer").Remove()

	var sb strings.Builder
	doc.Find("h1, h2, h3, p, li, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteByte('\n')
		}
	})

	return &entity.Enrichment{
		Readme:      sb.String(),
		ConfigFiles: map[string]string{},
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
	// No package manager involved; the page itself is the entry point.
	return ""
}

// render navigates a pooled browser context to the URL and captures the title
// and outer HTML, with the rendered HTML cached by URL.
func (f *Fetcher) render(ctx context.Context, pageURL string) (string, string, error) {
	if f.cache != nil {
		if cached, ok, err := f.cache.Get(ctx, "render:"+pageURL); err == nil && ok {
			return "", string(cached), nil
		}
	}

	allocCtx := f.allocatorPool.Get().(context.Context)
	defer f.allocatorPool.Put(allocCtx)

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	taskCtx, cancel = context.WithTimeout(taskCtx, f.timeout)
	defer cancel()

	var title, html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(pageURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", "", err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, "render:"+pageURL, []byte(html), f.cacheTTL, "provider:website"); err != nil {
			f.log.Warn("failed to cache rendered page", zap.String("url", pageURL), zap.Error(err))
		}
	}
	return title, html, nil
}
