package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/deckforge/deckforge-backend/internal/logger"
	"github.com/deckforge/deckforge-backend/internal/pkg/httpx"
)

// GenerateParams is one text-generation request against the gateway.
// ResponseSchema, when set, asks the provider for schema-constrained JSON;
// SchemaName is required alongside it.
type GenerateParams struct {
	Model          string
	System         string
	User           string
	Temperature    float64
	MaxTokens      int
	SchemaName     string
	ResponseSchema map[string]any
}

type GenerateResult struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

// ClaimVerification is the gateway's judgement on one claim.
type ClaimVerification struct {
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
	Reasoning  string   `json:"reasoning"`
}

// Client is the model gateway used by the generation pipelines.
type Client interface {
	Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error)
	VerifyClaim(ctx context.Context, claim string, supportingContext string) (*ClaimVerification, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing LLM_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("LLM_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("LLM_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeoutSec := 120
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "LLMClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

// NewClientWith wires an explicit endpoint, used by tests.
func NewClientWith(log *logger.Logger, baseURL, apiKey, model string, maxRetries int) Client {
	return &client{
		log:        log.With("service", "LLMClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
	}
}

type llmHTTPError struct {
	StatusCode int
	Body       string
}

func (e *llmHTTPError) Error() string {
	return fmt.Sprintf("llm http %d: %s", e.StatusCode, e.Body)
}

func (e *llmHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &llmHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("llm decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("LLM request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

type responsesRequest struct {
	Model string `json:"model"`

	Input []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"input"`

	Text struct {
		Format map[string]any `json:"format,omitempty"`
	} `json:"text,omitempty"`

	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"max_output_tokens,omitempty"`
}

type responsesResponse struct {
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details,omitempty"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func (c *client) Generate(ctx context.Context, params GenerateParams) (*GenerateResult, error) {
	model := strings.TrimSpace(params.Model)
	if model == "" {
		model = c.model
	}

	req := responsesRequest{
		Model: model,
		Input: []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		}{
			{Role: "system", Content: params.System},
			{Role: "user", Content: params.User},
		},
		Temperature:     params.Temperature,
		MaxOutputTokens: params.MaxTokens,
	}
	if params.ResponseSchema != nil {
		if params.SchemaName == "" {
			return nil, errors.New("schema name required with response schema")
		}
		req.Text.Format = map[string]any{
			"type":   "json_schema",
			"name":   params.SchemaName,
			"schema": params.ResponseSchema,
			"strict": true,
		}
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return nil, err
	}
	if resp.Refusal != "" {
		return nil, fmt.Errorf("model refused: %s", resp.Refusal)
	}

	content := extractOutputText(resp)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("no output_text found in response")
	}

	finish := "stop"
	if resp.IncompleteDetails != nil && strings.TrimSpace(resp.IncompleteDetails.Reason) != "" {
		finish = strings.TrimSpace(resp.IncompleteDetails.Reason)
	}

	usedModel := strings.TrimSpace(resp.Model)
	if usedModel == "" {
		usedModel = model
	}

	return &GenerateResult{
		Content:      content,
		Model:        usedModel,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		FinishReason: finish,
	}, nil
}

const verifySystemPrompt = "You are a meticulous fact checker. Assess the claim and respond with your confidence that it is accurate, the sources you relied on, and brief reasoning."

func (c *client) VerifyClaim(ctx context.Context, claim string, supportingContext string) (*ClaimVerification, error) {
	claim = strings.TrimSpace(claim)
	if claim == "" {
		return nil, errors.New("claim required")
	}

	user := "Claim: " + claim
	if strings.TrimSpace(supportingContext) != "" {
		user += "\n\nSupporting context:\n" + supportingContext
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"sources":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"reasoning":  map[string]any{"type": "string"},
		},
		"required":             []string{"confidence", "sources", "reasoning"},
		"additionalProperties": false,
	}

	result, err := c.Generate(ctx, GenerateParams{
		System:         verifySystemPrompt,
		User:           user,
		Temperature:    0.1,
		MaxTokens:      600,
		SchemaName:     "claim_verification",
		ResponseSchema: schema,
	})
	if err != nil {
		return nil, err
	}

	var out ClaimVerification
	if err := json.Unmarshal([]byte(result.Content), &out); err != nil {
		return nil, fmt.Errorf("parse verification JSON: %w; text=%s", err, result.Content)
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	return &out, nil
}
