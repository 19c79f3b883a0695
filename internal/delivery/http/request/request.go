package request

type RunCrawlRequest struct {
	SourceID string `json:"source_id"`
}

type DrainQueueRequest struct {
	BatchSize int `json:"batch_size"`
}

type DecideIngestRequest struct {
	Action string `json:"action"` // "approve" or "reject"
	Reason string `json:"reason,omitempty"`
}

type ResearchRequest struct {
	ToolName string `json:"tool_name"`
}

type SetSourceEnabledRequest struct {
	Enabled bool `json:"enabled"`
}
