package channels

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/retry"
)

// defaultDocTemplates are the documentation hosts probed for a tool name.
// A template that 404s is skipped, not an error.
var defaultDocTemplates = []string{
	"https://%s.readthedocs.io/en/latest/",
	"https://www.npmjs.com/package/%s",
	"https://pkg.go.dev/search?q=%s",
}

// DocsChannel scrapes official documentation pages. It carries the highest
// reliability prior of all channels.
type DocsChannel struct {
	templates []string
	client    *http.Client
	policy    retry.Policy
}

var _ repository.Channel = (*DocsChannel)(nil)

func NewDocsChannel() *DocsChannel {
	return &DocsChannel{
		templates: defaultDocTemplates,
		client:    defaultHTTPClient,
		policy:    retry.DefaultPolicy(),
	}
}

// WithTemplates overrides the probed URL templates, used by tests.
func (c *DocsChannel) WithTemplates(templates ...string) *DocsChannel {
	c.templates = templates
	return c
}

func (c *DocsChannel) Type() entity.ChannelType {
	return entity.ChannelOfficialDocs
}

func (c *DocsChannel) Fetch(ctx context.Context, toolName string, limit int) ([]entity.CollectedInformation, error) {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(toolName)), " ", "-")

	var items []entity.CollectedInformation
	for _, tpl := range c.templates {
		if len(items) >= limit {
			break
		}
		endpoint := fmt.Sprintf(tpl, slug)

		body, err := getBody(ctx, c.client, c.policy, endpoint, "")
		if err != nil {
			// A host that does not document this tool is expected;
			// only hard failures abort the whole channel.
			var cerr *retry.ClassifiedError
			if errors.As(err, &cerr) && cerr.StatusCode == http.StatusNotFound {
				continue
			}
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}

		title, content := extractDocText(body)
		if content == "" {
			continue
		}
		items = append(items, entity.CollectedInformation{
			Channel:     entity.ChannelOfficialDocs,
			URL:         endpoint,
			Title:       title,
			Content:     content,
			Reliability: reliabilityDocs,
		})
	}
	return items, nil
}

// extractDocText pulls the page title and the main prose, dropping chrome
// elements that would pollute similarity scoring downstream.
func extractDocText(body []byte) (title, content string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, nav, header, footer, aside").Remove()
	var sb strings.Builder
	doc.Find("h1, h2, h3, p, li, pre").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	})
	return title, strings.TrimSpace(sb.String())
}
