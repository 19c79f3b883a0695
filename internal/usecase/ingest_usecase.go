package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/metrics"
	"github.com/user/toolscout-service/pkg/retry"
	"github.com/user/toolscout-service/pkg/utils"
)

// DecisionAction names a manual review verdict.
type DecisionAction string

const (
	ActionApprove DecisionAction = "approve"
	ActionReject  DecisionAction = "reject"
)

// heuristicModerator marks decisions taken by the scoring heuristic rather
// than a human reviewer.
const heuristicModerator = "heuristic"

// Heuristic scoring. Points accumulate across relevance keywords, provider
// popularity and judgment quality; a total at or above the cutoff approves.
const (
	pointsMCPKeyword  = 50
	pointsAIKeyword   = 30
	pointsDevKeyword  = 20
	pointsHighPop     = 30
	pointsMidPop      = 20
	pointsLongSummary = 10
	pointsHasTags     = 10
	pointsHasLicense  = 5
	pointsHasRepo     = 5

	highPopStars     = 1000
	highPopDownloads = 10000
	midPopStars      = 100
	midPopDownloads  = 1000

	longSummaryRunes = 80
)

var (
	mcpKeywords = []string{"mcp", "model context protocol", "claude", "anthropic"}
	aiKeywords  = []string{"ai", "llm", "agent", "machine learning", "gpt"}
	devKeywords = []string{"cli", "sdk", "api", "framework", "developer", "automation"}
)

// IngestDecider converts completed enrichment jobs into review records and
// applies manual or heuristic decisions.
type IngestDecider interface {
	// EnsureIngest creates the pending_review record for a completed job.
	// Idempotent: a second call returns without effect. When auto approval
	// is enabled the heuristic decision runs immediately.
	EnsureIngest(ctx context.Context, job *entity.LLMJob) error
	// Decide applies a manual verdict to a pending ingest.
	Decide(ctx context.Context, ingestID string, action DecisionAction, reason, moderatorID string) (*entity.Ingest, error)
}

type ingestUseCase struct {
	ingests repository.IngestRepository
	tools   repository.ToolRepository
	llmJobs repository.LLMJobRepository
	results repository.CrawlResultRepository

	autoApprove    bool
	approvalCutoff int
	log            *zap.Logger
}

// NewIngestUseCase creates the decision stage.
func NewIngestUseCase(
	ingests repository.IngestRepository,
	tools repository.ToolRepository,
	llmJobs repository.LLMJobRepository,
	results repository.CrawlResultRepository,
	autoApprove bool,
	approvalCutoff int,
	log *zap.Logger,
) IngestDecider {
	return &ingestUseCase{
		ingests:        ingests,
		tools:          tools,
		llmJobs:        llmJobs,
		results:        results,
		autoApprove:    autoApprove,
		approvalCutoff: approvalCutoff,
		log:            log,
	}
}

func (uc *ingestUseCase) EnsureIngest(ctx context.Context, job *entity.LLMJob) error {
	if job.Status != entity.JobCompleted {
		return retry.NewError(retry.ErrValidation,
			errors.Newf("llm job %s is %s, only completed jobs produce ingests", job.ID, job.Status))
	}

	ingest, err := uc.ingests.CreateIfAbsent(ctx, &entity.Ingest{
		ID:        uuid.NewString(),
		LLMJobID:  job.ID,
		Status:    entity.IngestPendingReview,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return errors.Wrapf(err, "create ingest for llm job %s", job.ID)
	}

	if !uc.autoApprove || ingest.Status != entity.IngestPendingReview {
		return nil
	}
	return uc.autoDecide(ctx, ingest, job)
}

func (uc *ingestUseCase) Decide(ctx context.Context, ingestID string, action DecisionAction, reason, moderatorID string) (*entity.Ingest, error) {
	if action != ActionApprove && action != ActionReject {
		return nil, retry.NewError(retry.ErrValidation, errors.Newf("unknown decision action %q", action))
	}

	ingest, err := uc.ingests.FindByID(ctx, ingestID)
	if err != nil {
		return nil, errors.Wrapf(err, "load ingest %s", ingestID)
	}
	if ingest.Status != entity.IngestPendingReview {
		return nil, retry.NewError(retry.ErrValidation,
			errors.Newf("ingest %s already decided (%s)", ingestID, ingest.Status))
	}

	job, err := uc.llmJobs.FindByID(ctx, ingest.LLMJobID)
	if err != nil {
		return nil, errors.Wrapf(err, "load llm job %s", ingest.LLMJobID)
	}

	if action == ActionApprove {
		toolID, err := uc.materializeTool(ctx, job, 0, 0, 0)
		if err != nil {
			return nil, err
		}
		ingest.ToolID = toolID
		ingest.Status = entity.IngestApproved
	} else {
		ingest.Status = entity.IngestRejected
	}
	ingest.Reason = reason
	ingest.ModeratorID = moderatorID
	now := time.Now()
	ingest.DecidedAt = &now

	if err := uc.ingests.UpdateDecision(ctx, ingest); err != nil {
		return nil, errors.Wrapf(err, "record decision on ingest %s", ingestID)
	}
	observeDecision(ingest.Status, "manual")
	return ingest, nil
}

// autoDecide scores the raw item plus its judgment and provider metadata,
// approving at or above the cutoff.
func (uc *ingestUseCase) autoDecide(ctx context.Context, ingest *entity.Ingest, job *entity.LLMJob) error {
	result, meta, err := uc.loadResult(ctx, job.ResultID)
	if err != nil {
		return err
	}

	sourceScore := keywordScore(job.Output, result.Title, result.Description)
	popScore := popularityScore(meta)
	qualityScore := judgmentQualityScore(job.Output, meta)
	total := sourceScore + popScore + qualityScore

	if total >= uc.approvalCutoff {
		toolID, err := uc.materializeTool(ctx, job, sourceScore, popScore, qualityScore)
		if err != nil {
			return err
		}
		ingest.ToolID = toolID
		ingest.Status = entity.IngestApproved
	} else {
		ingest.Status = entity.IngestRejected
	}
	ingest.Reason = fmt.Sprintf("heuristic score %d against cutoff %d", total, uc.approvalCutoff)
	ingest.ModeratorID = heuristicModerator
	now := time.Now()
	ingest.DecidedAt = &now

	if err := uc.ingests.UpdateDecision(ctx, ingest); err != nil {
		return errors.Wrapf(err, "record auto decision on ingest %s", ingest.ID)
	}
	observeDecision(ingest.Status, "auto")

	uc.log.Info("heuristic ingest decision",
		zap.String("ingest_id", ingest.ID),
		zap.String("status", string(ingest.Status)),
		zap.Int("score", total),
	)
	return nil
}

// materializeTool inserts the Tool row plus its tag and category
// associations. A judgment category outside the registered set is skipped
// silently.
func (uc *ingestUseCase) materializeTool(ctx context.Context, job *entity.LLMJob, sourceScore, popScore, qualityScore int) (string, error) {
	result, meta, err := uc.loadResult(ctx, job.ResultID)
	if err != nil {
		return "", err
	}

	judgment := job.Output
	if judgment == nil {
		judgment = entity.DefaultJudgment()
	}

	tool := &entity.Tool{
		ID:              uuid.NewString(),
		Slug:            utils.Slugify(result.Title),
		Name:            result.Title,
		Summary:         judgment.Summary,
		Detail:          judgment.Detail,
		URL:             result.URL,
		Repository:      meta.Repository,
		License:         meta.License,
		InstallCommand:  meta.InstallCommand,
		SourceScore:     sourceScore,
		PopularityScore: popScore,
		QualityScore:    qualityScore,
		CreatedAt:       time.Now(),
	}
	if err := uc.tools.Insert(ctx, tool); err != nil {
		return "", errors.Wrapf(err, "insert tool %s", tool.Slug)
	}

	for _, tagName := range judgment.Tags {
		slug := utils.Slugify(tagName)
		if slug == "" {
			continue
		}
		tag, err := uc.tools.UpsertTagBySlug(ctx, slug, tagName)
		if err != nil {
			return "", errors.Wrapf(err, "upsert tag %s", slug)
		}
		if err := uc.tools.AssociateTag(ctx, tool.ID, tag.ID); err != nil {
			return "", errors.Wrapf(err, "associate tag %s", slug)
		}
	}

	if judgment.Category != "" {
		catSlug := utils.Slugify(judgment.Category)
		category, err := uc.tools.FindCategoryBySlug(ctx, catSlug)
		if err != nil {
			return "", errors.Wrapf(err, "find category %s", catSlug)
		}
		if category != nil {
			if err := uc.tools.AssociateCategory(ctx, tool.ID, category.ID); err != nil {
				return "", errors.Wrapf(err, "associate category %s", catSlug)
			}
		}
	}
	return tool.ID, nil
}

func (uc *ingestUseCase) loadResult(ctx context.Context, resultID string) (*entity.CrawlResult, entity.ResultMetadata, error) {
	var meta entity.ResultMetadata
	result, err := uc.results.FindByID(ctx, resultID)
	if err != nil {
		return nil, meta, errors.Wrapf(err, "load result %s", resultID)
	}
	if len(result.Metadata) > 0 {
		if err := json.Unmarshal(result.Metadata, &meta); err != nil {
			uc.log.Warn("result metadata unparseable", zap.String("result_id", resultID), zap.Error(err))
		}
	}
	return result, meta, nil
}

// keywordScore awards the highest matching keyword tier, not a sum across
// tiers. The raw item's title and description count alongside the judgment:
// a title naming the protocol is signal even when the summary omits it.
func keywordScore(judgment *entity.Judgment, title, description string) int {
	parts := []string{title, description}
	if judgment != nil {
		parts = append(parts, judgment.Summary, strings.Join(judgment.Tags, " "))
	}
	text := strings.ToLower(strings.Join(parts, " "))
	tokens := tokenSet(text)
	if containsAny(text, tokens, mcpKeywords) {
		return pointsMCPKeyword
	}
	if containsAny(text, tokens, aiKeywords) {
		return pointsAIKeyword
	}
	if containsAny(text, tokens, devKeywords) {
		return pointsDevKeyword
	}
	return 0
}

func popularityScore(meta entity.ResultMetadata) int {
	if meta.Stars >= highPopStars || meta.WeeklyDownloads >= highPopDownloads {
		return pointsHighPop
	}
	if meta.Stars >= midPopStars || meta.WeeklyDownloads >= midPopDownloads {
		return pointsMidPop
	}
	return 0
}

func judgmentQualityScore(judgment *entity.Judgment, meta entity.ResultMetadata) int {
	score := 0
	if judgment != nil {
		if len([]rune(judgment.Summary)) >= longSummaryRunes {
			score += pointsLongSummary
		}
		if len(judgment.Tags) > 0 {
			score += pointsHasTags
		}
	}
	if meta.License != "" {
		score += pointsHasLicense
	}
	if meta.Repository != "" {
		score += pointsHasRepo
	}
	return score
}

// containsAny matches multi-word keywords as substrings and single words as
// whole tokens, so "ai" does not fire on "maintain".
func containsAny(text string, tokens map[string]struct{}, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(text, kw) {
				return true
			}
			continue
		}
		if _, ok := tokens[kw]; ok {
			return true
		}
	}
	return false
}

func observeDecision(status entity.IngestStatus, mode string) {
	if metrics.IngestDecisionsTotal != nil {
		metrics.IngestDecisionsTotal.WithLabelValues(string(status), mode).Inc()
	}
}
