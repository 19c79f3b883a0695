package usecase

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
)

// In-memory fakes shared by the usecase tests.

type fakeSourceRepo struct {
	sources map[string]*entity.Source
}

func newFakeSourceRepo(sources ...*entity.Source) *fakeSourceRepo {
	r := &fakeSourceRepo{sources: make(map[string]*entity.Source)}
	for _, s := range sources {
		r.sources[s.ID] = s
	}
	return r
}

func (r *fakeSourceRepo) Create(_ context.Context, s *entity.Source) error {
	r.sources[s.ID] = s
	return nil
}

func (r *fakeSourceRepo) FindByID(_ context.Context, id string) (*entity.Source, error) {
	s, ok := r.sources[id]
	if !ok {
		return nil, errors.Newf("source %s not found", id)
	}
	return s, nil
}

func (r *fakeSourceRepo) ListEnabled(_ context.Context) ([]*entity.Source, error) {
	var out []*entity.Source
	for _, s := range r.sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSourceRepo) SetEnabled(_ context.Context, id string, enabled bool) error {
	s, ok := r.sources[id]
	if !ok {
		return errors.Newf("source %s not found", id)
	}
	s.Enabled = enabled
	return nil
}

type fakeCrawlJobRepo struct {
	jobs map[string]*entity.CrawlJob
}

func newFakeCrawlJobRepo() *fakeCrawlJobRepo {
	return &fakeCrawlJobRepo{jobs: make(map[string]*entity.CrawlJob)}
}

func (r *fakeCrawlJobRepo) Create(_ context.Context, job *entity.CrawlJob) error {
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeCrawlJobRepo) Finish(_ context.Context, job *entity.CrawlJob) error {
	stored, ok := r.jobs[job.ID]
	if !ok {
		return errors.Newf("job %s not found", job.ID)
	}
	if stored.Status != entity.JobRunning {
		return errors.Newf("job %s is already terminal", job.ID)
	}
	cp := *job
	now := time.Now()
	if cp.FinishedAt == nil {
		cp.FinishedAt = &now
	}
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeCrawlJobRepo) FindByID(_ context.Context, id string) (*entity.CrawlJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.Newf("job %s not found", id)
	}
	return job, nil
}

func (r *fakeCrawlJobRepo) ListByStatus(_ context.Context, status entity.JobStatus, limit int) ([]*entity.CrawlJob, error) {
	var out []*entity.CrawlJob
	for _, job := range r.jobs {
		if job.Status == status && len(out) < limit {
			out = append(out, job)
		}
	}
	return out, nil
}

type fakeResultRepo struct {
	results map[string]*entity.CrawlResult
	hashes  map[string]struct{}
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{
		results: make(map[string]*entity.CrawlResult),
		hashes:  make(map[string]struct{}),
	}
}

func (r *fakeResultRepo) Insert(_ context.Context, result *entity.CrawlResult) (bool, error) {
	if _, dup := r.hashes[result.DedupeHash]; dup {
		return false, nil
	}
	r.hashes[result.DedupeHash] = struct{}{}
	cp := *result
	r.results[result.ID] = &cp
	return true, nil
}

func (r *fakeResultRepo) FindByID(_ context.Context, id string) (*entity.CrawlResult, error) {
	result, ok := r.results[id]
	if !ok {
		return nil, errors.Newf("result %s not found", id)
	}
	return result, nil
}

type fakeLLMJobRepo struct {
	jobs  map[string]*entity.LLMJob
	order []string
}

func newFakeLLMJobRepo(jobs ...*entity.LLMJob) *fakeLLMJobRepo {
	r := &fakeLLMJobRepo{jobs: make(map[string]*entity.LLMJob)}
	for _, job := range jobs {
		cp := *job
		r.jobs[job.ID] = &cp
		r.order = append(r.order, job.ID)
	}
	return r
}

func (r *fakeLLMJobRepo) Create(_ context.Context, job *entity.LLMJob) error {
	cp := *job
	r.jobs[job.ID] = &cp
	r.order = append(r.order, job.ID)
	return nil
}

func (r *fakeLLMJobRepo) ListQueued(_ context.Context, limit int) ([]*entity.LLMJob, error) {
	var out []*entity.LLMJob
	for _, id := range r.order {
		job := r.jobs[id]
		if job.Status == entity.JobQueued && len(out) < limit {
			cp := *job
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLLMJobRepo) Update(_ context.Context, job *entity.LLMJob) error {
	if _, ok := r.jobs[job.ID]; !ok {
		return errors.Newf("llm job %s not found", job.ID)
	}
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *fakeLLMJobRepo) FindByID(_ context.Context, id string) (*entity.LLMJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.Newf("llm job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

type fakeIngestRepo struct {
	byID  map[string]*entity.Ingest
	byJob map[string]*entity.Ingest
}

func newFakeIngestRepo() *fakeIngestRepo {
	return &fakeIngestRepo{
		byID:  make(map[string]*entity.Ingest),
		byJob: make(map[string]*entity.Ingest),
	}
}

func (r *fakeIngestRepo) CreateIfAbsent(_ context.Context, ingest *entity.Ingest) (*entity.Ingest, error) {
	if existing, ok := r.byJob[ingest.LLMJobID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *ingest
	r.byID[ingest.ID] = &cp
	r.byJob[ingest.LLMJobID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeIngestRepo) FindByID(_ context.Context, id string) (*entity.Ingest, error) {
	ingest, ok := r.byID[id]
	if !ok {
		return nil, errors.Newf("ingest %s not found", id)
	}
	cp := *ingest
	return &cp, nil
}

func (r *fakeIngestRepo) FindByLLMJobID(_ context.Context, llmJobID string) (*entity.Ingest, error) {
	ingest, ok := r.byJob[llmJobID]
	if !ok {
		return nil, errors.Newf("ingest for llm job %s not found", llmJobID)
	}
	cp := *ingest
	return &cp, nil
}

func (r *fakeIngestRepo) ListByStatus(_ context.Context, status entity.IngestStatus, limit int) ([]*entity.Ingest, error) {
	var out []*entity.Ingest
	for _, ingest := range r.byID {
		if ingest.Status == status && len(out) < limit {
			cp := *ingest
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeIngestRepo) UpdateDecision(_ context.Context, ingest *entity.Ingest) error {
	stored, ok := r.byID[ingest.ID]
	if !ok {
		return errors.Newf("ingest %s not found", ingest.ID)
	}
	if stored.Status != entity.IngestPendingReview {
		return errors.Newf("ingest %s is already decided", ingest.ID)
	}
	cp := *ingest
	r.byID[ingest.ID] = &cp
	r.byJob[ingest.LLMJobID] = &cp
	return nil
}

type fakeToolRepo struct {
	tools      map[string]*entity.Tool
	tagsBySlug map[string]*entity.Tag
	categories map[string]*entity.Category
	toolTags   map[string][]string
	toolCats   map[string][]string
}

func newFakeToolRepo(categories ...*entity.Category) *fakeToolRepo {
	r := &fakeToolRepo{
		tools:      make(map[string]*entity.Tool),
		tagsBySlug: make(map[string]*entity.Tag),
		categories: make(map[string]*entity.Category),
		toolTags:   make(map[string][]string),
		toolCats:   make(map[string][]string),
	}
	for _, c := range categories {
		r.categories[c.Slug] = c
	}
	return r
}

func (r *fakeToolRepo) Insert(_ context.Context, tool *entity.Tool) error {
	cp := *tool
	r.tools[tool.ID] = &cp
	return nil
}

func (r *fakeToolRepo) UpsertTagBySlug(_ context.Context, slug, name string) (*entity.Tag, error) {
	if tag, ok := r.tagsBySlug[slug]; ok {
		return tag, nil
	}
	tag := &entity.Tag{ID: "tag-" + slug, Slug: slug, Name: name}
	r.tagsBySlug[slug] = tag
	return tag, nil
}

func (r *fakeToolRepo) AssociateTag(_ context.Context, toolID, tagID string) error {
	r.toolTags[toolID] = append(r.toolTags[toolID], tagID)
	return nil
}

func (r *fakeToolRepo) FindCategoryBySlug(_ context.Context, slug string) (*entity.Category, error) {
	return r.categories[slug], nil
}

func (r *fakeToolRepo) AssociateCategory(_ context.Context, toolID, categoryID string) error {
	r.toolCats[toolID] = append(r.toolCats[toolID], categoryID)
	return nil
}

type fakeFetcher struct {
	kind       entity.SourceKind
	items      []entity.ProviderItem
	searchErr  error
	enrichErr  map[string]error // by item name
	irrelevant map[string]bool  // by item name
	enrichment entity.Enrichment
}

func (f *fakeFetcher) Kind() entity.SourceKind { return f.kind }

func (f *fakeFetcher) Search(_ context.Context, _ string, _ repository.SearchOptions) ([]entity.ProviderItem, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.items, nil
}

func (f *fakeFetcher) Enrich(_ context.Context, item entity.ProviderItem) (*entity.Enrichment, error) {
	if err := f.enrichErr[item.Name]; err != nil {
		return nil, err
	}
	e := f.enrichment
	return &e, nil
}

func (f *fakeFetcher) IsRelevant(item entity.ProviderItem, _ *entity.Enrichment) bool {
	return !f.irrelevant[item.Name]
}

func (f *fakeFetcher) InstallCommand(item entity.ProviderItem) string {
	return "install " + item.Name
}

type fakeChannel struct {
	channelType entity.ChannelType
	items       []entity.CollectedInformation
	err         error
	block       bool // wait for ctx cancellation instead of returning
}

func (c *fakeChannel) Type() entity.ChannelType { return c.channelType }

func (c *fakeChannel) Fetch(ctx context.Context, _ string, _ int) ([]entity.CollectedInformation, error) {
	if c.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.items, nil
}

type fakeEnrichmentClient struct {
	judgment *entity.Judgment
	err      error
	calls    int
}

func (c *fakeEnrichmentClient) Process(_ context.Context, _ repository.EnrichmentInput) (*entity.Judgment, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.judgment, nil
}

type fakeFormatter struct {
	report string
	err    error
}

func (f *fakeFormatter) FormatReport(_ context.Context, _ string, _ []entity.ProcessedInformation) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.report, nil
}

type fakeDecider struct {
	jobs []string
	err  error
}

func (d *fakeDecider) EnsureIngest(_ context.Context, job *entity.LLMJob) error {
	d.jobs = append(d.jobs, job.ID)
	return d.err
}

func (d *fakeDecider) Decide(_ context.Context, _ string, _ DecisionAction, _, _ string) (*entity.Ingest, error) {
	return nil, errors.New("not implemented")
}
