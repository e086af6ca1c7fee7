package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	Unavailable  bool // Failures wrap ErrUnavailable instead of a plain error
	ResponseText string

	// Script holds per-call responses consumed in order. When exhausted,
	// ResponseText is used.
	Script []string

	// Rate limiting
	RPM        float64
	Retries    int
	RetryDelay time.Duration

	// State
	mu           sync.Mutex
	scriptPos    int
	requestCount atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      time.Millisecond,
		ResponseText: "mock response",
		RPM:          600,
		Retries:      3,
		RetryDelay:   time.Millisecond,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// RequestsPerMinute returns the RPM limit for rate limiting.
func (c *MockClient) RequestsPerMinute() float64 {
	return c.RPM
}

// MaxRetries returns the maximum retry attempts.
func (c *MockClient) MaxRetries() int {
	return c.Retries
}

// RetryDelayBase returns the base delay between retries.
func (c *MockClient) RetryDelayBase() time.Duration {
	return c.RetryDelay
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	// Check if we should fail
	if c.ShouldFail || (c.FailAfter > 0 && int(count) > c.FailAfter) {
		if c.Unavailable {
			return nil, fmt.Errorf("%w: mock client configured to fail", ErrUnavailable)
		}
		return nil, fmt.Errorf("mock client configured to fail")
	}

	// Simulate latency
	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	content := c.nextResponse()

	// Simulate token counting
	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	completionTokens := len(content) / 4

	return &ChatResult{
		RequestID:        fmt.Sprintf("mock-%d", count),
		Provider:         MockClientName,
		ModelUsed:        req.Model,
		Attempts:         1,
		Content:          content,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		ExecutionTime:    time.Since(start),
	}, nil
}

func (c *MockClient) nextResponse() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scriptPos < len(c.Script) {
		resp := c.Script[c.scriptPos]
		c.scriptPos++
		return resp
	}
	return c.ResponseText
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Reset resets the request counter and script position.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.scriptPos = 0
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
