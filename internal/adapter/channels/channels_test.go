package channels

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/pkg/retry"
)

func immediatePolicy() retry.Policy {
	return retry.Policy{MaxRetries: 0, Strategy: retry.StrategyImmediate}
}

func TestStackOverflowChannelFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "votes", r.URL.Query().Get("sort"))
		assert.Equal(t, "stackoverflow", r.URL.Query().Get("site"))
		w.Write([]byte(`{"items":[
			{"title":"How to configure filesys-mcp","link":"https://stackoverflow.com/q/1","score":120,"body":"Use the config file.","creation_date":1700000000,"owner":{"display_name":"alice"}},
			{"title":"filesys-mcp fails on start","link":"https://stackoverflow.com/q/2","score":4,"body":"Check the logs.","creation_date":1700000100,"owner":{"display_name":"bob"}}
		]}`))
	}))
	defer srv.Close()

	c := NewStackOverflowChannel("").WithBaseURL(srv.URL)
	c.policy = immediatePolicy()

	items, err := c.Fetch(context.Background(), "filesys-mcp", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, entity.ChannelStackOverflow, items[0].Channel)
	assert.Equal(t, "alice", items[0].Author)
	// 120 votes hits the 0.3 cap.
	assert.InDelta(t, 0.8, items[0].Reliability, 1e-9)
	assert.InDelta(t, 0.54, items[1].Reliability, 1e-9)
}

func TestRedditChannelSkipsFailingSubreddit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/r/mcp/search.json" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"data":{"children":[
			{"data":{"title":"tried filesys-mcp","selftext":"works well","permalink":"/r/x/1","ups":25,"author":"carol","created_utc":1700000000}}
		]}}`))
	}))
	defer srv.Close()

	c := NewRedditChannel().WithBaseURL(srv.URL)
	c.subreddits = []string{"mcp", "ClaudeAI"}
	c.policy = immediatePolicy()

	items, err := c.Fetch(context.Background(), "filesys-mcp", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "carol", items[0].Author)
	assert.InDelta(t, 0.8, items[0].Reliability, 1e-9)
}

func TestRedditReliabilityBounds(t *testing.T) {
	assert.InDelta(t, 0.3, redditReliability(0), 1e-9)
	assert.InDelta(t, 0.5, redditReliability(10), 1e-9)
	// Bonus caps at 0.4 no matter how viral the thread.
	assert.InDelta(t, 0.7, redditReliability(10000), 1e-9)
}

func TestGitHubIssuesChannelRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewGitHubIssuesChannel("").WithBaseURL(srv.URL)
	c.policy = immediatePolicy()

	_, err := c.Fetch(context.Background(), "filesys-mcp", 10)
	require.Error(t, err)

	var cerr *retry.ClassifiedError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, retry.ErrRateLimit, cerr.Type)
}

func TestGitHubIssuesChannelFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("q"), "type:issue")
		w.Write([]byte(`{"items":[
			{"title":"crash on large files","html_url":"https://github.com/x/y/issues/1","body":"stack trace attached","comments":7,"created_at":"2024-05-01T10:00:00Z","user":{"login":"dave"}}
		]}`))
	}))
	defer srv.Close()

	c := NewGitHubIssuesChannel("").WithBaseURL(srv.URL)
	c.policy = immediatePolicy()

	items, err := c.Fetch(context.Background(), "filesys-mcp", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, entity.ChannelGitHubIssues, items[0].Channel)
	assert.InDelta(t, reliabilityIssues, items[0].Reliability, 1e-9)
	assert.Equal(t, 7.0, items[0].Score)
}

func TestDocsChannelSkipsMissingHosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing/filesys-mcp" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`<html><head><title>filesys-mcp docs</title></head>
			<body><nav>skip me</nav><h1>Getting started</h1><p>Install with npm.</p></body></html>`))
	}))
	defer srv.Close()

	c := NewDocsChannel().WithTemplates(srv.URL+"/missing/%s", srv.URL+"/docs/%s")
	c.policy = immediatePolicy()

	items, err := c.Fetch(context.Background(), "filesys-mcp", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "filesys-mcp docs", items[0].Title)
	assert.Contains(t, items[0].Content, "Getting started")
	assert.Contains(t, items[0].Content, "Install with npm.")
	assert.NotContains(t, items[0].Content, "skip me")
	assert.InDelta(t, reliabilityDocs, items[0].Reliability, 1e-9)
}
