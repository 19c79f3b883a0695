package entity

import "time"

// Tool is materialized only on ingest approval. Scores are derived from
// provider metadata and the LLM judgment at approval time.
type Tool struct {
	ID              string
	Slug            string
	Name            string
	Summary         string
	Detail          string
	URL             string
	Repository      string
	License         string
	InstallCommand  string
	SourceScore     int
	PopularityScore int
	QualityScore    int
	CreatedAt       time.Time
}

// Tag is upserted by slug during approval.
type Tag struct {
	ID   string
	Slug string
	Name string
}

// Category entries are registered ahead of time; the pipeline only
// associates against them, never creates them.
type Category struct {
	ID   string
	Slug string
	Name string
}
