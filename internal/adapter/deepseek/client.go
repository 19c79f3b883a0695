package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/entity"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/pkg/metrics"
	"github.com/user/toolscout-service/pkg/retry"
)

// PromptVersion is recorded on every LLMJob so judgments stay auditable
// across prompt changes.
const PromptVersion = "v2"

const readmeRuneLimit = 8000

const systemPrompt = `You are a software catalog curator. Given raw data about a ` +
	`candidate developer tool, respond with strict JSON only, no prose, using keys: ` +
	`"summary" (one paragraph), "tags" (array of short lowercase strings), ` +
	`"category" (one of: "Development Tools", "Data & Integration", ` +
	`"Search & Retrieval", "Communication", "Security"), ` +
	`"runtime_support" (array, e.g. ["node", "python", "docker"]), ` +
	`"risks" (array of strings, may be empty), ` +
	`"detail" (optional longer markdown description).`

// Client talks to a DeepSeek-compatible chat completion API.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	policy     retry.Policy
	log        *zap.Logger
}

var (
	_ repository.EnrichmentClient = (*Client)(nil)
	_ repository.ReportFormatter  = (*Client)(nil)
)

// NewClient builds a client from configuration.
func NewClient(endpoint, apiKey, model string, maxTokens int, log *zap.Logger) *Client {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		policy:     retry.DefaultPolicy(),
		log:        log,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Process turns raw title/description/readme/metadata into a judgment. The
// network call is classified and retried; a malformed model response is NOT
// an error, it degrades to the default judgment so queue processing always
// terminates in a completed state.
func (c *Client) Process(ctx context.Context, input repository.EnrichmentInput) (*entity.Judgment, error) {
	userPrompt := buildPrompt(input)

	content, err := c.chat(ctx, systemPrompt, userPrompt, true)
	if err != nil {
		return nil, err
	}

	judgment, parseErr := parseJudgment(content)
	if parseErr != nil {
		c.log.Warn("llm output failed validation, using default judgment",
			zap.String("title", input.Title), zap.Error(parseErr))
		return entity.DefaultJudgment(), nil
	}
	return judgment, nil
}

// FormatReport renders processed research clusters into a markdown report.
func (c *Client) FormatReport(ctx context.Context, toolName string, clusters []entity.ProcessedInformation) (string, error) {
	payload, err := json.Marshal(clusters)
	if err != nil {
		return "", errors.Wrap(err, "marshal clusters")
	}

	system := "You are a technical writer. Produce a concise markdown research report " +
		"about the named tool from the consolidated findings, with sections for overview, " +
		"installation, usage, known issues, and an assessment of source reliability."
	user := fmt.Sprintf("Tool: %s\nFindings (JSON):\n%s", toolName, payload)

	return c.chat(ctx, system, user, false)
}

func buildPrompt(input repository.EnrichmentInput) string {
	var sb strings.Builder
	sb.WriteString("Title: " + input.Title + "\n")
	sb.WriteString("Description: " + input.Description + "\n")
	if input.Metadata != "" {
		sb.WriteString("Metadata: " + input.Metadata + "\n")
	}
	if input.Readme != "" {
		readme := input.Readme
		// Unbounded readmes blow the context window. Truncate on a rune
		// boundary so a multibyte character is never cut in half.
		if runes := []rune(readme); len(runes) > readmeRuneLimit {
			readme = string(runes[:readmeRuneLimit])
		}
		sb.WriteString("Readme:\n" + readme + "\n")
	}
	return sb.String()
}

// chat performs one completion call. Non-2xx responses become classified
// errors: 429 maps to the rate-limit member so batch callers can back off
// longer.
func (c *Client) chat(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0.2,
	}
	if jsonMode {
		reqBody.ResponseFormat = &respFormat{Type: "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.Wrap(err, "marshal chat request")
	}

	var content string
	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if metrics.LLMCallDuration != nil {
			metrics.LLMCallDuration.Observe(time.Since(start).Seconds())
		}

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return retry.NewHTTPError(resp.StatusCode,
				errors.Newf("llm api %s: %s", resp.Status, strings.TrimSpace(string(snippet))))
		}

		var parsed chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return retry.NewError(retry.ErrParsing, err)
		}
		if len(parsed.Choices) == 0 {
			return retry.NewError(retry.ErrInvalidResponse, errors.New("llm api returned no choices"))
		}
		content = parsed.Choices[0].Message.Content
		return nil
	})
	return content, err
}

// parseJudgment strips incidental code fencing, parses the JSON, and
// validates the required fields.
func parseJudgment(content string) (*entity.Judgment, error) {
	content = stripCodeFence(content)

	var j entity.Judgment
	if err := json.Unmarshal([]byte(content), &j); err != nil {
		return nil, errors.Wrap(err, "unmarshal judgment")
	}
	if j.Summary == "" {
		return nil, errors.New("judgment missing summary")
	}
	if j.Tags == nil {
		return nil, errors.New("judgment missing tags")
	}
	if j.Category == "" {
		return nil, errors.New("judgment missing category")
	}
	return &j, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
