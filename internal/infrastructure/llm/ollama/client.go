package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docsorter/internal/core/domain"
	"github.com/kirillkom/docsorter/internal/infrastructure/resilience"
)

const (
	DefaultModel          = "qwen3"
	DefaultTimeout        = 120 * time.Second
	DefaultMaxPromptChars = 12000
)

type Config struct {
	BaseURL        string
	Model          string
	Timeout        time.Duration
	MaxPromptChars int
}

type Client struct {
	baseURL        string
	model          string
	maxPromptChars int
	httpClient     *http.Client
	executor       *resilience.Executor
}

// New builds a client for the Ollama generate API. executor may be nil, in
// which case every call is attempted exactly once.
func New(cfg Config, executor *resilience.Executor) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = DefaultMaxPromptChars
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		model:          cfg.Model,
		maxPromptChars: cfg.MaxPromptChars,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		executor:       executor,
	}
}

type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

type classificationAnswer struct {
	Subject string  `json:"subject"`
	Author  string  `json:"author"`
	Type    string  `json:"type"`
	Year    string  `json:"year_processed"`
	Funding *string `json:"funding"`
}

func (c *Classifier) Classify(ctx context.Context, text, displayName string) (domain.Classification, error) {
	prompt := buildClassificationPrompt(c.client.clip(text), displayName)

	var answer classificationAnswer
	if err := c.client.generateStructured(ctx, "classify", prompt, classificationSchema, &answer); err != nil {
		return domain.Classification{}, err
	}
	return domain.Classification{
		Category: domain.Category(strings.ToUpper(strings.TrimSpace(answer.Type))),
		Funding:  domain.ParseFunding(answer.Funding),
		Subject:  answer.Subject,
		Author:   answer.Author,
		Year:     answer.Year,
	}, nil
}

type MetadataExtractor struct {
	client *Client
}

func NewMetadataExtractor(client *Client) *MetadataExtractor {
	return &MetadataExtractor{client: client}
}

func (m *MetadataExtractor) ExtractMetadata(ctx context.Context, text string) (*domain.Metadata, error) {
	prompt := buildMetadataPrompt(m.client.clip(text))

	var meta domain.Metadata
	if err := m.client.generateStructured(ctx, "extract_metadata", prompt, metadataSchema, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// generateStructured asks the model for a JSON answer constrained by schema
// and decodes it into out. Transport failures that may heal are retried by
// the executor; an undecodable answer is not.
func (c *Client) generateStructured(ctx context.Context, operation, prompt string, schema map[string]any, out any) error {
	call := func(ctx context.Context) error {
		raw, err := c.generate(ctx, map[string]any{
			"model":  c.model,
			"prompt": prompt,
			"stream": false,
			"format": schema,
		})
		if err != nil {
			return wrapTemporaryIfNeeded("ollama "+operation, err)
		}
		if err := json.Unmarshal([]byte(extractJSONObject(raw)), out); err != nil {
			return domain.WrapError(domain.ErrCollaborator, "decode "+operation+" answer", err)
		}
		return nil
	}

	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, "ollama_"+operation, call, resilience.ClassifyTemporary)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) clip(text string) string {
	runes := []rune(text)
	if len(runes) <= c.maxPromptChars {
		return text
	}
	return string(runes[:c.maxPromptChars])
}

// extractJSONObject tolerates models that wrap the object in prose or
// thinking tags.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
