// Package channels provides the information channels behind the
// multi-channel collector. Each channel assigns its own reliability prior:
// official sources are more trustworthy than forum chatter.
package channels

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/user/toolscout-service/pkg/retry"
)

// Reliability priors. Fixed, tunable constants; the ordering (docs > issue
// tracker > Q&A > forum) is a first-class design decision.
const (
	reliabilityDocs       = 0.95
	reliabilityIssues     = 0.75
	reliabilitySOBase     = 0.5
	reliabilitySOVoteCap  = 0.3
	reliabilityRedditBase = 0.3
	reliabilityRedditCap  = 0.4
)

var defaultHTTPClient = &http.Client{Timeout: 20 * time.Second}

func getBody(ctx context.Context, client *http.Client, policy retry.Policy, endpoint, userAgent string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		if userAgent != "" {
			req.Header.Set("User-Agent", userAgent)
		}

		resp, err := client.Do(req)
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
	return body, err
}
