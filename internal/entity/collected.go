package entity

import "time"

// ChannelType identifies an information channel in the multi-channel
// collector. Each carries a fixed reliability prior: official sources are
// more trustworthy than forum chatter.
type ChannelType string

const (
	ChannelOfficialDocs  ChannelType = "official_docs"
	ChannelGitHubIssues  ChannelType = "github_issues"
	ChannelStackOverflow ChannelType = "stackoverflow"
	ChannelReddit        ChannelType = "reddit"
)

// CollectedInformation is one item gathered from a channel. Ephemeral: it
// lives only within a single report-generation call.
type CollectedInformation struct {
	Channel     ChannelType
	URL         string
	Title       string
	Content     string
	Author      string
	PublishedAt *time.Time
	Score       float64 // community signal: votes, upvotes; 0 when absent
	Reliability float64 // prior in [0,1]
}

// Weight ranks collected items by both authority and community signal.
func (c CollectedInformation) Weight() float64 {
	score := c.Score
	if score == 0 {
		score = 1
	}
	return c.Reliability * score
}

// ProcessedInformation is a cluster of collected items merged into one
// consolidated unit. Not persisted.
type ProcessedInformation struct {
	Content     string
	KeyPoints   []string
	Categories  []string
	Reliability float64
	Confidence  float64
	Sources     []string // member URLs
	Channels    []ChannelType
}
