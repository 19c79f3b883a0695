package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/toolscout-service/internal/entity"
)

func TestOverallSimilarity(t *testing.T) {
	a := entity.CollectedInformation{
		URL:     "https://example.com/a",
		Title:   "install the filesystem server",
		Content: "run npm install to set it up",
	}
	same := a
	assert.InDelta(t, 1.0, overallSimilarity(a, same), 1e-9)

	unrelated := entity.CollectedInformation{
		URL:     "https://other.com/b",
		Title:   "weather forecast",
		Content: "tomorrow will be sunny",
	}
	assert.InDelta(t, 0.0, overallSimilarity(a, unrelated), 1e-9)

	// Same URL alone only contributes the 0.1 term.
	urlOnly := unrelated
	urlOnly.URL = a.URL
	assert.InDelta(t, 0.1, overallSimilarity(a, urlOnly), 1e-9)
}

func TestDedupeKeepsMostReliableDuplicate(t *testing.T) {
	docs := entity.CollectedInformation{
		Channel:     entity.ChannelOfficialDocs,
		URL:         "https://example.com/docs",
		Title:       "filesystem server setup guide",
		Content:     "install the server with npm install example-server and configure paths",
		Reliability: 0.95,
	}
	redditCopy := docs
	redditCopy.Channel = entity.ChannelReddit
	redditCopy.Reliability = 0.3

	uc := &processorUseCase{threshold: 0.8}
	// Lower-trust copy listed first: order in must not matter.
	unique := uc.dedupe([]entity.CollectedInformation{redditCopy, docs})

	require.Len(t, unique, 1)
	assert.Equal(t, entity.ChannelOfficialDocs, unique[0].Channel)
}

func TestGroupRelatedBand(t *testing.T) {
	a := entity.CollectedInformation{
		URL:     "https://example.com/1",
		Title:   "server setup guide part one",
		Content: "install the server binary and then configure the main settings file",
	}
	b := entity.CollectedInformation{
		URL:     "https://example.com/2",
		Title:   "server setup guide part two",
		Content: "configure the main settings file and then restart everything twice",
	}
	c := entity.CollectedInformation{
		URL:     "https://example.com/3",
		Title:   "completely different topic",
		Content: "bananas ripen faster inside paper bags during warm weather",
	}

	simAB := overallSimilarity(a, b)
	require.Greater(t, simAB, relatedLowerBound)
	require.LessOrEqual(t, simAB, 0.8)
	require.LessOrEqual(t, overallSimilarity(a, c), relatedLowerBound)

	uc := &processorUseCase{threshold: 0.8}
	groups := uc.group([]entity.CollectedInformation{a, b, c})

	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)
}

func TestConsolidateDeduplicatesSentences(t *testing.T) {
	group := []entity.CollectedInformation{
		{
			Channel:     entity.ChannelOfficialDocs,
			URL:         "https://example.com/docs",
			Content:     "Install with npm install example. The server supports streaming.",
			Reliability: 0.95,
		},
		{
			Channel:     entity.ChannelStackOverflow,
			URL:         "https://example.com/so",
			Content:     "install with npm install example. Watch out for a crash on startup.",
			Reliability: 0.6,
			Score:       10,
		},
	}

	out := consolidate(group)

	// The repeated install sentence appears once.
	assert.Equal(t, 1, countOccurrences(out.Content, "npm install example"))
	assert.Contains(t, out.Content, "supports streaming")
	assert.Contains(t, out.Content, "crash on startup")

	assert.ElementsMatch(t, out.Channels,
		[]entity.ChannelType{entity.ChannelOfficialDocs, entity.ChannelStackOverflow})
	assert.Len(t, out.Sources, 2)

	// avg reliability 0.775 + one extra channel bonus 0.1
	assert.InDelta(t, 0.875, out.Reliability, 1e-9)
	// base 0.5 + one extra source 0.1 + avg score 5 -> 0.05
	assert.InDelta(t, 0.65, out.Confidence, 1e-9)

	assert.NotEmpty(t, out.KeyPoints)
}

func TestConsolidateKeyPointsAndCategories(t *testing.T) {
	group := []entity.CollectedInformation{{
		Channel: entity.ChannelOfficialDocs,
		URL:     "https://example.com/docs",
		Content: "Install the package with pip install example. " +
			"A usage example is in the readme. " +
			"Performance is fast even with low memory. " +
			"One known bug makes it crash on windows.",
		Reliability: 0.95,
	}}

	out := consolidate(group)

	require.NotEmpty(t, out.KeyPoints)
	joined := ""
	for _, kp := range out.KeyPoints {
		joined += kp + "\n"
	}
	assert.Contains(t, joined, "pip install")
	assert.Contains(t, joined, "usage example")
	assert.Contains(t, joined, "crash on windows")

	assert.Contains(t, out.Categories, "installation")
	assert.Contains(t, out.Categories, "troubleshooting")
}

func TestClassifyRequiresKeywordDensity(t *testing.T) {
	// Exactly one performance keyword out of eight is below the 20% bar.
	assert.NotContains(t, classify("this tool is fast"), "performance")
	// Two out of eight clears it.
	assert.Contains(t, classify("fast with low memory use"), "performance")
}

func TestProcessEndToEnd(t *testing.T) {
	items := []entity.CollectedInformation{
		{
			Channel:     entity.ChannelOfficialDocs,
			URL:         "https://example.com/docs",
			Title:       "example server documentation",
			Content:     "Install with npm install example-server. Supports streaming responses.",
			Reliability: 0.95,
		},
		{
			Channel:     entity.ChannelReddit,
			URL:         "https://example.com/docs",
			Title:       "example server documentation",
			Content:     "Install with npm install example-server. Supports streaming responses.",
			Reliability: 0.3,
		},
		{
			Channel:     entity.ChannelStackOverflow,
			URL:         "https://example.com/so",
			Title:       "unrelated database question",
			Content:     "my postgres index bloats after vacuum runs on partitioned tables",
			Reliability: 0.55,
		},
	}

	uc := NewProcessorUseCase(0.8)
	clusters := uc.Process(items)

	// Exact duplicate collapsed away; two distinct clusters remain.
	require.Len(t, clusters, 2)
	for _, cl := range clusters {
		assert.NotEmpty(t, cl.Content)
		assert.NotEmpty(t, cl.Sources)
		assert.Greater(t, cl.Reliability, 0.0)
		assert.GreaterOrEqual(t, cl.Confidence, confidenceBase)
	}
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
