package entity

import "time"

// SourceKind identifies which provider fetcher handles a source. The set is
// closed; the orchestrator rejects unknown kinds.
type SourceKind string

const (
	SourceGitHubTopic SourceKind = "github_topic"
	SourceNPMQuery    SourceKind = "npm_query"
	SourceAwesomeList SourceKind = "awesome_list"
	SourceWebsite     SourceKind = "website"
)

// IsValidSourceKind reports whether s names a member of the closed kind set.
func IsValidSourceKind(s string) bool {
	switch SourceKind(s) {
	case SourceGitHubTopic, SourceNPMQuery, SourceAwesomeList, SourceWebsite:
		return true
	default:
		return false
	}
}

// SourceConfig carries provider-specific knobs, stored as JSONB.
type SourceConfig struct {
	MaxResults int    `json:"max_results,omitempty"`
	SortBy     string `json:"sort_by,omitempty"`
	MinStars   int    `json:"min_stars,omitempty"`
}

// Source is a configured place to look for tools. Created by configuration,
// mutated only via the enabled flag; the pipeline never deletes sources.
type Source struct {
	ID         string
	Kind       SourceKind
	Identifier string // topic name, search query, or URL depending on Kind
	Enabled    bool
	Config     SourceConfig
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
