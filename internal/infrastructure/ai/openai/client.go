// Package openai provides a chat completion client for OpenAI compatible APIs
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alchemorsel/recipe-remix/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-remix/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipe-remix/pkg/errors"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var _ outbound.ChatCompleter = (*Client)(nil)

// Config holds the provider settings
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client implements the ChatCompleter port using the chat completions API
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	metrics *monitoring.MetricsCollector
	logger  *zap.Logger
}

// NewClient creates a new OpenAI client. A nil httpClient gets a plain client.
func NewClient(cfg Config, httpClient *http.Client, metrics *monitoring.MetricsCollector, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger = logger.Named("openai")
	logger.Info("Chat completion client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
	)

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  httpClient,
		metrics: metrics,
		logger:  logger,
	}
}

// OpenAI API structures
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionResponse struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice keeps message and content as pointers so an absent or null
// completion is distinguishable from an empty one
type Choice struct {
	Message      *ChoiceMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type ChoiceMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Complete sends one chat completion request and returns the first choice's
// message content. No retry is attempted.
func (c *Client) Complete(ctx context.Context, in outbound.ChatRequest) (string, error) {
	reqBody := ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]Message, 0, len(in.Messages)),
		Temperature: in.Temperature,
		MaxTokens:   in.MaxTokens,
	}
	for _, m := range in.Messages {
		reqBody.Messages = append(reqBody.Messages, Message{Role: string(m.Role), Content: m.Content})
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.UpstreamRequest(monitoring.ServiceChat, 0, time.Since(start))
		return "", apperrors.NewExternalServiceError("chat completion API", 0, fmt.Errorf("API request failed: %w", err))
	}
	defer resp.Body.Close()
	c.metrics.UpstreamRequest(monitoring.ServiceChat, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", apperrors.NewExternalServiceError("chat completion API", resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewExternalServiceError("chat completion API", resp.StatusCode,
			fmt.Errorf("API error %d: %s", resp.StatusCode, string(body)))
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", apperrors.NewExternalServiceError("chat completion API", resp.StatusCode, fmt.Errorf("failed to unmarshal response: %w", err))
	}

	if len(chatResp.Choices) == 0 {
		return "", apperrors.NewExternalServiceError("chat completion API", resp.StatusCode, fmt.Errorf("no response choices returned"))
	}

	first := chatResp.Choices[0]
	if first.Message == nil || first.Message.Content == nil {
		return "", apperrors.NewExternalServiceError("chat completion API", resp.StatusCode, fmt.Errorf("no message content returned"))
	}

	c.metrics.ChatTokens(chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
	c.logger.Info("Chat completion successful",
		zap.String("model", c.model),
		zap.String("finish_reason", first.FinishReason),
		zap.Int("prompt_tokens", chatResp.Usage.PromptTokens),
		zap.Int("completion_tokens", chatResp.Usage.CompletionTokens),
		zap.Int("total_tokens", chatResp.Usage.TotalTokens),
	)

	return *first.Message.Content, nil
}
