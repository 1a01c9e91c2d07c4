package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultCallTimeout bounds a single API call when none is configured
	DefaultCallTimeout = 30 * time.Second

	maxEmbeddingAttempts = 3
)

var (
	// ErrEmptyInput is returned when there is no text to embed
	ErrEmptyInput = errors.New("input texts cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the model produces no usable choice
	ErrEmptyCompletion = errors.New("completion returned no content")
)

// Message is one entry in a chat completion request.
type Message struct {
	Role    string
	Content string
}

// ChatRequest describes a single completion call.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	// JSONMode constrains the model to emit a single JSON object.
	JSONMode bool
}

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error)
}

// Client wraps the OpenAI API with retry, timeout, and dimension checks.
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	dimensions int
	timeout    time.Duration
}

// OpenAIAdapter adapts sashabaranov/go-openai to the narrow interfaces above.
type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to embed a batch of texts.
// The returned slice is index-aligned with the input.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d items, expected %d", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("embedding response has out-of-range index %d", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	for i, emb := range out {
		if len(emb) == 0 {
			return nil, fmt.Errorf("embedding response missing item %d", i)
		}
	}
	return out, nil
}

// CreateChatCompletion calls the OpenAI chat API and returns the first choice.
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	apiReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		apiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := a.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	CallTimeout         time.Duration
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel)
	return &Client{
		embeddings: adapter,
		chat:       adapter,
		dimensions: dimensions,
		timeout:    timeout,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbeddings embeds a batch of texts, preserving input order and
// length. Transient failures are retried up to 3 times with exponential
// backoff (1s, 2s, 4s) before giving up.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	var embeddings [][]float32
	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			result, err := c.embeddings.CreateEmbeddings(callCtx, texts)
			if err != nil {
				return err
			}
			embeddings = result
			return nil
		},
		retry.Attempts(maxEmbeddingAttempts),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxJitter(0),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings after %d attempts: %w", maxEmbeddingAttempts, err)
	}

	for i, emb := range embeddings {
		if len(emb) != c.dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d: %w",
				i, len(emb), c.dimensions, ErrWrongDimensions)
		}
	}

	return embeddings, nil
}

// ChatCompletion issues one chat completion bounded by the configured timeout.
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	answer, err := c.chat.CreateChatCompletion(callCtx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return answer, nil
}
