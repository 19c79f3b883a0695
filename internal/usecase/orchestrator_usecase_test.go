package usecase

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/retry"
)

func githubSource(id string, enabled bool) *entity.Source {
	return &entity.Source{
		ID:         id,
		Kind:       entity.SourceGitHubTopic,
		Identifier: "mcp",
		Enabled:    enabled,
	}
}

func newOrchestrator(t *testing.T, sources *fakeSourceRepo, fetcher repository.Fetcher) (Orchestrator, *fakeCrawlJobRepo, *fakeResultRepo, *fakeLLMJobRepo) {
	t.Helper()
	jobs := newFakeCrawlJobRepo()
	results := newFakeResultRepo()
	llmJobs := newFakeLLMJobRepo()
	uc := NewOrchestratorUseCase(sources, jobs, results, llmJobs,
		[]repository.Fetcher{fetcher}, zap.NewNop())
	return uc, jobs, results, llmJobs
}

func TestRunCrawlJobHappyPath(t *testing.T) {
	fetcher := &fakeFetcher{
		kind: entity.SourceGitHubTopic,
		items: []entity.ProviderItem{
			{Name: "tool-a", URL: "https://github.com/x/tool-a"},
			{Name: "tool-b", URL: "https://github.com/x/tool-b"},
		},
		enrichment: entity.Enrichment{Readme: "readme text", Stars: 42},
	}
	uc, jobs, results, llmJobs := newOrchestrator(t, newFakeSourceRepo(githubSource("src-1", true)), fetcher)

	stats, err := uc.RunCrawlJob(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 0, stats.Errors)

	require.Len(t, jobs.jobs, 1)
	for _, job := range jobs.jobs {
		assert.Equal(t, entity.JobCompleted, job.Status)
		assert.NotNil(t, job.FinishedAt)
	}

	assert.Len(t, results.results, 2)
	for _, result := range results.results {
		assert.Equal(t, "readme text", result.Readme)
		assert.NotEmpty(t, result.DedupeHash)
	}

	// One queued enrichment job per persisted result.
	queued, err := llmJobs.ListQueued(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, queued, 2)
}

func TestRunCrawlJobSkipsDuplicates(t *testing.T) {
	fetcher := &fakeFetcher{
		kind: entity.SourceGitHubTopic,
		items: []entity.ProviderItem{
			{Name: "tool-a", URL: "https://github.com/x/tool-a"},
			{Name: "tool-a-again", URL: "https://github.com/x/tool-a/"}, // same canonical URL
		},
	}
	uc, _, results, llmJobs := newOrchestrator(t, newFakeSourceRepo(githubSource("src-1", true)), fetcher)

	stats, err := uc.RunCrawlJob(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Found)
	// The duplicate is not an error; it is simply not persisted again.
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 0, stats.Errors)

	assert.Len(t, results.results, 1)
	queued, err := llmJobs.ListQueued(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, queued, 1)
}

func TestRunCrawlJobCountsItemErrors(t *testing.T) {
	fetcher := &fakeFetcher{
		kind: entity.SourceGitHubTopic,
		items: []entity.ProviderItem{
			{Name: "tool-a", URL: "https://github.com/x/tool-a"},
			{Name: "tool-broken", URL: "https://github.com/x/tool-broken"},
		},
		enrichErr: map[string]error{"tool-broken": errors.New("boom")},
	}
	uc, jobs, _, _ := newOrchestrator(t, newFakeSourceRepo(githubSource("src-1", true)), fetcher)

	stats, err := uc.RunCrawlJob(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Errors)

	// Per-item failures do not fail the job.
	for _, job := range jobs.jobs {
		assert.Equal(t, entity.JobCompleted, job.Status)
	}
}

func TestRunCrawlJobSearchFailureFailsJob(t *testing.T) {
	fetcher := &fakeFetcher{
		kind:      entity.SourceGitHubTopic,
		searchErr: errors.New("api unreachable"),
	}
	uc, jobs, _, _ := newOrchestrator(t, newFakeSourceRepo(githubSource("src-1", true)), fetcher)

	_, err := uc.RunCrawlJob(context.Background(), "src-1")
	require.Error(t, err)

	require.Len(t, jobs.jobs, 1)
	for _, job := range jobs.jobs {
		assert.Equal(t, entity.JobFailed, job.Status)
		assert.Contains(t, job.Error, "api unreachable")
		assert.NotNil(t, job.FinishedAt)
	}
}

func TestRunCrawlJobIgnoresIrrelevantItems(t *testing.T) {
	fetcher := &fakeFetcher{
		kind: entity.SourceGitHubTopic,
		items: []entity.ProviderItem{
			{Name: "relevant", URL: "https://github.com/x/relevant"},
			{Name: "offtopic", URL: "https://github.com/x/offtopic"},
		},
		irrelevant: map[string]bool{"offtopic": true},
	}
	uc, _, results, _ := newOrchestrator(t, newFakeSourceRepo(githubSource("src-1", true)), fetcher)

	stats, err := uc.RunCrawlJob(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Len(t, results.results, 1)
}

func TestRunCrawlJobRejectsDisabledSource(t *testing.T) {
	uc, jobs, _, _ := newOrchestrator(t, newFakeSourceRepo(githubSource("src-1", false)),
		&fakeFetcher{kind: entity.SourceGitHubTopic})

	_, err := uc.RunCrawlJob(context.Background(), "src-1")
	require.Error(t, err)

	var cerr *retry.ClassifiedError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, retry.ErrValidation, cerr.Type)

	// No job row is created for a rejected run.
	assert.Empty(t, jobs.jobs)
}

func TestRunCrawlJobRejectsUnknownKind(t *testing.T) {
	source := &entity.Source{ID: "src-1", Kind: entity.SourceNPMQuery, Identifier: "mcp", Enabled: true}
	uc, _, _, _ := newOrchestrator(t, newFakeSourceRepo(source),
		&fakeFetcher{kind: entity.SourceGitHubTopic})

	_, err := uc.RunCrawlJob(context.Background(), "src-1")
	require.Error(t, err)

	var cerr *retry.ClassifiedError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, retry.ErrValidation, cerr.Type)
}
