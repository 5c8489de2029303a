package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client wraps an LLM provider with quota-aware retries. Rate and quota
// failures are retried with a doubling backoff; everything else fails
// immediately. Embedding calls are not retried here because a failed chunk
// embed is simply re-run by the caller.
type Client struct {
	llm         LLMProvider
	maxAttempts int
	baseBackoff time.Duration
	sleep       func(context.Context, time.Duration) error
}

func NewClient(llm LLMProvider, maxAttempts int, baseBackoff time.Duration) *Client {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseBackoff <= 0 {
		baseBackoff = 30 * time.Second
	}
	return &Client{
		llm:         llm,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
		sleep:       sleepCtx,
	}
}

func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var lastErr error
	var info ProviderInfo
	backoff := c.baseBackoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, pi, err := c.llm.Generate(ctx, req)
		info = pi
		if err == nil {
			return resp, info, nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.maxAttempts {
			break
		}
		if serr := c.sleep(ctx, backoff); serr != nil {
			return GenerateResponse{}, info, serr
		}
		backoff *= 2
	}
	if retryable(lastErr) {
		return GenerateResponse{}, info, fmt.Errorf("generate failed after %d attempts: %w", c.maxAttempts, lastErr)
	}
	return GenerateResponse{}, info, lastErr
}

// TestConnection issues a tiny probe generation so a job can fail fast on
// exhausted quota before any section work starts.
func (c *Client) TestConnection(ctx context.Context) error {
	resp, _, err := c.llm.Generate(ctx, GenerateRequest{
		Operation:       "probe",
		Prompt:          "Test message. Respond with 'API working'.",
		MaxOutputTokens: 10,
	})
	if err != nil {
		return fmt.Errorf("provider connection test failed: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return fmt.Errorf("provider connection test returned empty response")
	}
	return nil
}

func retryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorRate, ErrorQuota:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
