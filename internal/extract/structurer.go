// Package extract turns a single segmented chunk of biographical text into a
// validated AuthorRecord by calling an LLM provider with a structured-output
// schema.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/msalhab/tarajim/internal/providers"
	"github.com/msalhab/tarajim/internal/prompts/biography"
)

var (
	// ErrMalformedExtraction is returned when the model's output cannot be
	// parsed as JSON or fails schema validation, even after a repair prompt.
	ErrMalformedExtraction = errors.New("malformed extraction output")

	// ErrServiceUnavailable is returned when the provider stayed unavailable
	// through all retries.
	ErrServiceUnavailable = errors.New("extraction service unavailable")
)

// Structurer drives the per-chunk extraction call. It is safe for concurrent
// use; all state is read-only after construction.
type Structurer struct {
	client providers.LLMClient
	logger *slog.Logger

	temperature float64
	maxTokens   int
}

// Option configures a Structurer.
type Option func(*Structurer)

// WithTemperature overrides the sampling temperature for extraction calls.
func WithTemperature(t float64) Option {
	return func(s *Structurer) { s.temperature = t }
}

// WithMaxTokens caps the response length of extraction calls.
func WithMaxTokens(n int) Option {
	return func(s *Structurer) { s.maxTokens = n }
}

// NewStructurer builds a Structurer around the given client.
func NewStructurer(client providers.LLMClient, logger *slog.Logger, opts ...Option) *Structurer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Structurer{
		client:      client,
		logger:      logger,
		temperature: 0.1,
		maxTokens:   2048,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Extract structures one chunk of entry text. Transient provider failures
// are retried with backoff; a malformed response gets exactly one repair
// attempt before the chunk is given up on.
func (s *Structurer) Extract(ctx context.Context, chunkText string) (*Result, error) {
	userPrompt, err := biography.UserPrompt(chunkText)
	if err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	start := time.Now()

	result, err := s.chat(ctx, requestID, []providers.Message{
		{Role: "system", Content: biography.SystemPrompt()},
		{Role: "user", Content: userPrompt},
	})
	if err != nil {
		return nil, err
	}

	rec, parseErr := s.parseRecord(result.Content)
	attempts := result.Attempts
	repaired := false
	if parseErr != nil {
		s.logger.Warn("extraction output malformed, issuing repair prompt",
			"request_id", requestID,
			"error", parseErr)

		repairMsg := providers.RepairPrompt(biography.Schema(), result.Content, parseErr)
		repair, rerr := s.chat(ctx, requestID, []providers.Message{
			{Role: "system", Content: biography.SystemPrompt()},
			{Role: "user", Content: userPrompt},
			{Role: "assistant", Content: result.Content},
			{Role: "user", Content: repairMsg},
		})
		if rerr != nil {
			return nil, rerr
		}
		attempts += repair.Attempts
		result = repair
		repaired = true

		rec, parseErr = s.parseRecord(result.Content)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedExtraction, parseErr)
		}
	}

	return &Result{
		Record:        rec,
		Provider:      result.Provider,
		Model:         result.ModelUsed,
		Attempts:      attempts,
		Repaired:      repaired,
		ExecutionTime: time.Since(start),
	}, nil
}

// chat issues one logical request, retrying while the provider reports a
// transient unavailability.
func (s *Structurer) chat(ctx context.Context, requestID string, msgs []providers.Message) (*providers.ChatResult, error) {
	req := &providers.ChatRequest{
		Messages:    msgs,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		RequestID:   requestID,
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: biography.ResponseFormat(),
		},
	}

	attempts := uint(s.client.MaxRetries())
	if attempts == 0 {
		attempts = 1
	}
	delay := s.client.RetryDelayBase()
	if delay <= 0 {
		delay = time.Second
	}

	result, err := retry.DoWithData(
		func() (*providers.ChatResult, error) {
			return s.client.Chat(ctx, req)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, providers.ErrUnavailable)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("extraction call failed, retrying",
				"request_id", requestID,
				"attempt", n+1,
				"error", err)
		}),
	)
	if err != nil {
		if errors.Is(err, providers.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
		}
		return nil, err
	}
	return result, nil
}

// parseRecord decodes and validates one model response.
func (s *Structurer) parseRecord(content string) (*AuthorRecord, error) {
	cleaned, err := providers.ParseStructuredJSON(content)
	if err != nil {
		return nil, err
	}
	if err := providers.ValidateStructuredJSON(biography.Schema(), cleaned); err != nil {
		return nil, err
	}

	var rec AuthorRecord
	if err := json.Unmarshal(cleaned, &rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if strings.TrimSpace(rec.Name) == "" {
		return nil, errors.New("record has empty name")
	}
	if rec.KnownWorks == nil {
		rec.KnownWorks = []string{}
	}
	return &rec, nil
}
