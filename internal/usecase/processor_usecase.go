package usecase

import (
	"regexp"
	"sort"
	"strings"

	"github.com/user/toolscout-service/internal/entity"
)

// relatedLowerBound opens the "related but not duplicate" band: pairs with
// similarity in (relatedLowerBound, threshold] are grouped, pairs above the
// threshold were already deduplicated away.
const relatedLowerBound = 0.3

// Bonus caps for group scoring.
const (
	diversityBonusStep = 0.1
	diversityBonusCap  = 0.2
	confidenceBase     = 0.5
	sourceBonusStep    = 0.1
	sourceBonusCap     = 0.3
	scoreBonusCap      = 0.2
)

// keyPointPatterns pick out sentences worth surfacing on their own. Order
// fixes the output ordering of key points.
var keyPointPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(install(ation|ed|ing)?|set ?up|configure|configuration|npm i(nstall)?|pip install|brew install|docker)\b`),
	regexp.MustCompile(`(?i)\b(usage|example|how to|getting started|run(ning)?|invoke)\b`),
	regexp.MustCompile(`(?i)\b(feature|support(s|ed)?|provides?|enables?|capabilit(y|ies)|allows?)\b`),
	regexp.MustCompile(`(?i)\b(error|issue|bug|fail(s|ed|ure)?|crash(es|ed)?|broken|workaround)\b`),
	regexp.MustCompile(`(?i)\b(performance|latenc(y|ies)|slow|fast(er)?|memory|throughput|benchmark)\b`),
}

// categoryKeywords is the fixed topical taxonomy for processed clusters. A
// category applies when at least keywordDensity of its list appears in the
// consolidated content.
var categoryKeywords = map[string][]string{
	"installation":    {"install", "setup", "configure", "npm", "pip", "docker", "requirements", "dependencies"},
	"usage":           {"usage", "example", "run", "command", "invoke", "api", "call", "getting"},
	"troubleshooting": {"error", "issue", "bug", "fail", "crash", "fix", "workaround", "debug"},
	"performance":     {"performance", "slow", "fast", "latency", "memory", "cpu", "throughput", "benchmark"},
	"integration":     {"integration", "plugin", "connect", "client", "server", "protocol", "claude", "mcp"},
}

const keywordDensity = 0.2

var sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)

// Processor turns ranked collected items into deduplicated, consolidated
// clusters.
type Processor interface {
	Process(items []entity.CollectedInformation) []entity.ProcessedInformation
}

type processorUseCase struct {
	threshold float64 // duplicate cutoff for overall similarity
}

// NewProcessorUseCase creates the processor; threshold is the duplicate
// similarity cutoff, typically 0.8.
func NewProcessorUseCase(threshold float64) Processor {
	return &processorUseCase{threshold: threshold}
}

func (uc *processorUseCase) Process(items []entity.CollectedInformation) []entity.ProcessedInformation {
	unique := uc.dedupe(items)
	groups := uc.group(unique)

	clusters := make([]entity.ProcessedInformation, 0, len(groups))
	for _, group := range groups {
		clusters = append(clusters, consolidate(group))
	}
	return clusters
}

// dedupe is greedy and reliability-first: candidates are visited from most
// to least trusted, so the highest-trust version of duplicated information
// always survives.
func (uc *processorUseCase) dedupe(items []entity.CollectedInformation) []entity.CollectedInformation {
	sorted := make([]entity.CollectedInformation, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Reliability > sorted[j].Reliability
	})

	var accepted []entity.CollectedInformation
	for _, cand := range sorted {
		dup := false
		for _, kept := range accepted {
			if overallSimilarity(cand, kept) > uc.threshold {
				dup = true
				break
			}
		}
		if !dup {
			accepted = append(accepted, cand)
		}
	}
	return accepted
}

// group links items transitively when their pairwise similarity falls in the
// related band.
func (uc *processorUseCase) group(items []entity.CollectedInformation) [][]entity.CollectedInformation {
	n := len(items)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		parent[find(i)] = find(j)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := overallSimilarity(items[i], items[j])
			if sim > relatedLowerBound && sim <= uc.threshold {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]entity.CollectedInformation)
	var order []int
	for i, item := range items {
		root := find(i)
		if _, seen := byRoot[root]; !seen {
			order = append(order, root)
		}
		byRoot[root] = append(byRoot[root], item)
	}

	groups := make([][]entity.CollectedInformation, 0, len(order))
	for _, root := range order {
		groups = append(groups, byRoot[root])
	}
	return groups
}

// consolidate flattens one group into a single ProcessedInformation.
func consolidate(group []entity.CollectedInformation) entity.ProcessedInformation {
	var (
		sb       strings.Builder
		seen     = make(map[string]struct{})
		keyPts   []string
		sources  []string
		channels []entity.ChannelType
		chanSet  = make(map[entity.ChannelType]struct{})

		sumReliability float64
		sumScore       float64
	)

	for _, item := range group {
		sumReliability += item.Reliability
		sumScore += item.Score
		sources = append(sources, item.URL)
		if _, ok := chanSet[item.Channel]; !ok {
			chanSet[item.Channel] = struct{}{}
			channels = append(channels, item.Channel)
		}

		for _, sentence := range splitSentences(item.Content) {
			norm := normalizeSentence(sentence)
			if norm == "" {
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(sentence)
			// Splitting consumed the terminator; restore it so the
			// consolidated text still divides into sentences.
			if !strings.HasSuffix(sentence, ".") && !strings.HasSuffix(sentence, "!") && !strings.HasSuffix(sentence, "?") {
				sb.WriteString(".")
			}
		}
	}

	content := sb.String()
	for _, pat := range keyPointPatterns {
		for _, sentence := range splitSentences(content) {
			if pat.MatchString(sentence) {
				keyPts = appendUnique(keyPts, strings.TrimSpace(sentence))
			}
		}
	}

	reliability := sumReliability / float64(len(group))
	reliability += min2(diversityBonusCap, diversityBonusStep*float64(len(channels)-1))
	if reliability > 1 {
		reliability = 1
	}

	confidence := confidenceBase
	confidence += min2(sourceBonusCap, sourceBonusStep*float64(len(group)-1))
	avgScore := sumScore / float64(len(group))
	confidence += min2(scoreBonusCap, avgScore/100)
	if confidence > 1 {
		confidence = 1
	}

	return entity.ProcessedInformation{
		Content:     content,
		KeyPoints:   keyPts,
		Categories:  classify(content),
		Reliability: reliability,
		Confidence:  confidence,
		Sources:     sources,
		Channels:    channels,
	}
}

// classify applies the keyword-density taxonomy: a category matches when at
// least 20% of its keyword list is present.
func classify(content string) []string {
	tokens := tokenSet(content)

	var cats []string
	for cat, keywords := range categoryKeywords {
		hits := 0
		for _, kw := range keywords {
			if _, ok := tokens[kw]; ok {
				hits++
			}
		}
		if float64(hits) >= keywordDensity*float64(len(keywords)) && hits > 0 {
			cats = append(cats, cat)
		}
	}
	sort.Strings(cats)
	return cats
}

func splitSentences(s string) []string {
	parts := sentenceSplit.Split(s, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSentence(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
