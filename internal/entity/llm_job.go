package entity

import "time"

// ToolCategories is the fixed category taxonomy the enrichment prompt
// constrains the model to. Judgments outside this set still round-trip; the
// ingest stage simply skips the category association.
var ToolCategories = []string{
	"Development Tools",
	"Data & Integration",
	"Search & Retrieval",
	"Communication",
	"Security",
}

// Judgment is the schema-validated output of the enrichment client.
// Summary, Tags and Category are required; their absence is a parse failure.
type Judgment struct {
	Summary        string   `json:"summary"`
	Tags           []string `json:"tags"`
	Category       string   `json:"category"`
	RuntimeSupport []string `json:"runtime_support,omitempty"`
	Risks          []string `json:"risks,omitempty"`
	Detail         string   `json:"detail,omitempty"`
}

// DefaultJudgment is the safe fallback when the model's output cannot be
// parsed. Downstream job processing always terminates in a completed state
// rather than propagating ambiguous partial data.
func DefaultJudgment() *Judgment {
	return &Judgment{
		Summary:  "",
		Tags:     []string{},
		Category: "Development Tools",
		Risks:    []string{"LLM response parsing failed"},
	}
}

// LLMJob is the enrichment task that turns a CrawlResult into a Judgment.
// Exactly one per CrawlResult, created alongside it.
type LLMJob struct {
	ID            string
	ResultID      string
	Status        JobStatus
	ModelID       string
	PromptVersion string
	Output        *Judgment
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
