package entity

// ProviderItem is one candidate returned by a provider search, before
// enrichment. Only network calls produce these; fetchers never persist.
type ProviderItem struct {
	Name        string
	FullName    string // owner/repo for GitHub, package name for NPM
	URL         string
	Description string
	Stars       int
	Downloads   int
	License     string
	Repository  string
	Homepage    string
	Version     string
	Language    string
}

// Enrichment is the per-item detail fetch: readme, extra docs, contents of
// fixed config filenames, and provider metrics. Optional sub-resources that
// 404 degrade to empty strings rather than failing the enrichment.
type Enrichment struct {
	Readme      string
	Docs        string
	ConfigFiles map[string]string
	Stars       int
	Downloads   int
}
