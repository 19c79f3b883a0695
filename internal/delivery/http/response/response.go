package response

import "time"

type CrawlRunResponse struct {
	Status     string `json:"status"`
	Found      int    `json:"found"`
	Processed  int    `json:"processed"`
	Errors     int    `json:"errors"`
	DurationMS int64  `json:"duration_ms"`
}

type DrainQueueResponse struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
}

type DecisionResponse struct {
	IngestID  string     `json:"ingest_id"`
	Status    string     `json:"status"`
	ToolID    string     `json:"tool_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`
}

type ReportResponse struct {
	ToolName string `json:"tool_name"`
	Report   string `json:"report"`
}

type CrawlJobResponse struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Error     string    `json:"error,omitempty"`
}

type SourceResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Identifier string `json:"identifier"`
	Enabled    bool   `json:"enabled"`
}
