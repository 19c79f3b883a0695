package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GitHubToken      string
	StackExchangeKey string

	LLMEndpoint  string
	LLMAPIKey    string
	LLMModel     string
	LLMMaxTokens int

	// Pipeline tuning. The similarity thresholds and the approval cutoff are
	// empirically chosen; they are configuration, not business invariants.
	ContentSimilarity float64
	ApprovalCutoff    int
	AutoApprove       bool
	LLMBatchSize      int
	BatchDelay        time.Duration
	RateLimitDelay    time.Duration
	CollectTimeout    time.Duration
	MaxPerChannel     int
	ProviderCacheTTL  time.Duration
	PageLoadTimeout   time.Duration
	CrawlIntervalMin  time.Duration
}

// Load loads configuration from environment variables via viper, with
// defaults suitable for local development.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TOOLSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_port", "8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", "5432")
	v.SetDefault("postgres_user", "user")
	v.SetDefault("postgres_password", "password")
	v.SetDefault("postgres_db", "toolscout")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("github_token", "")
	v.SetDefault("stackexchange_key", "")

	v.SetDefault("llm_endpoint", "https://api.deepseek.com/chat/completions")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_model", "deepseek-chat")
	v.SetDefault("llm_max_tokens", 2048)

	v.SetDefault("content_similarity", 0.8)
	v.SetDefault("approval_cutoff", 40)
	v.SetDefault("auto_approve", true)
	v.SetDefault("llm_batch_size", 5)
	v.SetDefault("batch_delay", "2s")
	v.SetDefault("rate_limit_delay", "30s")
	v.SetDefault("collect_timeout", "45s")
	v.SetDefault("max_per_channel", 10)
	v.SetDefault("provider_cache_ttl", "1h")
	v.SetDefault("page_load_timeout", "60s")
	v.SetDefault("crawl_interval", "6h")

	return &Config{
		ServerPort:        v.GetString("server_port"),
		LogLevel:          v.GetString("log_level"),
		PostgresHost:      v.GetString("postgres_host"),
		PostgresPort:      v.GetString("postgres_port"),
		PostgresUser:      v.GetString("postgres_user"),
		PostgresPassword:  v.GetString("postgres_password"),
		PostgresDB:        v.GetString("postgres_db"),
		RedisAddr:         v.GetString("redis_addr"),
		RedisPassword:     v.GetString("redis_password"),
		RedisDB:           v.GetInt("redis_db"),
		GitHubToken:       v.GetString("github_token"),
		StackExchangeKey:  v.GetString("stackexchange_key"),
		LLMEndpoint:       v.GetString("llm_endpoint"),
		LLMAPIKey:         v.GetString("llm_api_key"),
		LLMModel:          v.GetString("llm_model"),
		LLMMaxTokens:      v.GetInt("llm_max_tokens"),
		ContentSimilarity: v.GetFloat64("content_similarity"),
		ApprovalCutoff:    v.GetInt("approval_cutoff"),
		AutoApprove:       v.GetBool("auto_approve"),
		LLMBatchSize:      v.GetInt("llm_batch_size"),
		BatchDelay:        v.GetDuration("batch_delay"),
		RateLimitDelay:    v.GetDuration("rate_limit_delay"),
		CollectTimeout:    v.GetDuration("collect_timeout"),
		MaxPerChannel:     v.GetInt("max_per_channel"),
		ProviderCacheTTL:  v.GetDuration("provider_cache_ttl"),
		PageLoadTimeout:   v.GetDuration("page_load_timeout"),
		CrawlIntervalMin:  v.GetDuration("crawl_interval"),
	}, nil
}
