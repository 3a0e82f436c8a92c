package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/dkotenko/newsmill/app/database"
)

const (
	DefaultMaxAttempts = 4
	defaultBaseDelay   = time.Second
)

// Draft is the validated result of one transformation, ready to be
// persisted as a canonical article.
type Draft struct {
	Title       string
	Summary     string
	Body        string
	Slug        string
	Difficulty  string
	Importance  string
	Tags        []string
	ReadingTime int

	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64

	// UsageIDs are the usage records written during this transform,
	// ready to be attached to the article once it exists.
	UsageIDs []string
}

// chatClient is the slice of the OpenAI client the service uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Service turns a raw item into a canonical article draft via the paid
// language model, with schema validation, bounded retry, and usage
// accounting. Without an API key it degrades to the deterministic
// templated transform so the pipeline stays exercisable end-to-end.
type Service struct {
	client      chatClient
	model       string
	usageRepo   database.UsageRepository
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(time.Duration)
}

func NewService(apiKey, model string, usageRepo database.UsageRepository) *Service {
	s := &Service{
		model:       model,
		usageRepo:   usageRepo,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		sleep:       time.Sleep,
	}

	if apiKey != "" {
		s.client = openai.NewClient(apiKey)
	} else {
		slog.Warn("No OpenAI API key configured, using templated transform fallback")
	}

	return s
}

// Transform produces a canonical draft for the given raw content.
// Transient provider errors are retried with exponential backoff up to
// the attempt ceiling. A schema-invalid response is returned as a
// *ValidationError without any provider retry.
func (s *Service) Transform(ctx context.Context, title, body, sourceURL string) (*Draft, error) {
	if s.client == nil {
		return s.templated(title, body), nil
	}

	prompt, operation := buildPrompt(title, body, sourceURL)

	var usageIDs []string
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := s.backoffDelay(attempt)
			slog.Warn("Retrying transformation", "attempt", attempt+1, "max_attempts", s.maxAttempts, "delay", delay.String(), "error", lastErr)
			s.sleep(delay)
		}

		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})

		// Every attempt that reached the provider leaves a usage row,
		// successful or not. Error responses carry no token counts.
		if id, ok := s.recordUsage(operation, resp.Usage); ok {
			usageIDs = append(usageIDs, id)
		}

		if err != nil {
			if isTransient(err) {
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("provider call failed: %w", err)
		}

		draft, err := s.parseResponse(resp)
		if err != nil {
			return nil, err
		}

		draft.Model = s.model
		draft.PromptTokens = resp.Usage.PromptTokens
		draft.CompletionTokens = resp.Usage.CompletionTokens
		draft.Cost = Cost(s.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		draft.UsageIDs = usageIDs

		return draft, nil
	}

	return nil, fmt.Errorf("provider unavailable after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Service) parseResponse(resp openai.ChatCompletionResponse) (*Draft, error) {
	if len(resp.Choices) == 0 {
		return nil, &ValidationError{Field: "choices", Reason: "provider returned no choices"}
	}

	var p payload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &p); err != nil {
		return nil, &ValidationError{Field: "response", Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}

	if err := p.validate(); err != nil {
		return nil, err
	}

	return &Draft{
		Title:       p.Title,
		Summary:     p.Summary,
		Body:        p.Body,
		Slug:        p.Slug,
		Difficulty:  p.Difficulty,
		Importance:  p.Importance,
		Tags:        p.Tags,
		ReadingTime: p.ReadingTime,
	}, nil
}

// recordUsage appends one usage record per call that reached the
// provider. Best-effort: a failed write is logged and swallowed, never
// surfaced to the caller.
func (s *Service) recordUsage(operation string, usage openai.Usage) (string, bool) {
	if s.usageRepo == nil {
		return "", false
	}

	id, err := s.usageRepo.Insert(database.NewUsageRecord{
		Model:            s.model,
		Operation:        operation,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Cost:             Cost(s.model, usage.PromptTokens, usage.CompletionTokens),
	})
	if err != nil {
		slog.Error("Failed to record usage", "operation", operation, "error", err)
		return "", false
	}

	return id, true
}

// backoffDelay grows exponentially per attempt: base, 2*base, 4*base...
func (s *Service) backoffDelay(attempt int) time.Duration {
	return s.baseDelay * time.Duration(1<<uint(attempt-1))
}

// isTransient reports whether a provider error is worth retrying:
// rate limits, server-side failures, and transport errors. Context
// cancellation and client-side API errors are permanent.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}

	// Transport-level failure without an API response.
	return true
}
