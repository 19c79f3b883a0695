package entity

import (
	"encoding/json"
	"time"
)

// JobStatus is shared by CrawlJob and LLMJob. Jobs transition
// running -> completed|failed exactly once and are immutable afterwards.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CrawlStats aggregates the outcome of one crawl job run.
type CrawlStats struct {
	Found     int           `json:"found"`
	Processed int           `json:"processed"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// CrawlJob is one execution of fetching from a Source.
type CrawlJob struct {
	ID         string
	SourceID   string
	Status     JobStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Stats      CrawlStats
	Error      string
}

// CrawlResult is one raw item discovered during a crawl job. DedupeHash is
// the content-address of the canonical URL; it is unique per result, and a
// second insert with the same hash is silently skipped.
type CrawlResult struct {
	ID          string
	JobID       string
	URL         string
	Title       string
	Description string
	Readme      string
	Metadata    json.RawMessage // provider-specific: stars, downloads, license, repo...
	DedupeHash  string
	CreatedAt   time.Time
}

// ResultMetadata is the common shape every provider fetcher writes into
// CrawlResult.Metadata. Fields absent for a provider stay zero.
type ResultMetadata struct {
	Provider        string `json:"provider"`
	Stars           int    `json:"stars,omitempty"`
	WeeklyDownloads int    `json:"weekly_downloads,omitempty"`
	License         string `json:"license,omitempty"`
	Repository      string `json:"repository,omitempty"`
	Homepage        string `json:"homepage,omitempty"`
	InstallCommand  string `json:"install_command,omitempty"`
	Version         string `json:"version,omitempty"`
	Language        string `json:"language,omitempty"`
}
