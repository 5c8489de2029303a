package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	calls int
	errs  []error
	text  string
}

func (s *scriptedLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "scripted", Model: "scripted-v1"}
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return GenerateResponse{}, info, s.errs[i]
	}
	return GenerateResponse{Text: s.text}, info, nil
}

func newTestClient(llm LLMProvider) (*Client, *[]time.Duration) {
	c := NewClient(llm, 3, 30*time.Second)
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestClientRetriesRateLimitWithDoublingBackoff(t *testing.T) {
	llm := &scriptedLLM{errs: []error{
		newHTTPError("gemini", 429, []byte("rate limited")),
		newHTTPError("gemini", 429, []byte("rate limited")),
		newHTTPError("gemini", 429, []byte("rate limited")),
	}}
	c, slept := newTestClient(llm)

	_, _, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	require.Equal(t, 3, llm.calls)
	require.Equal(t, []time.Duration{30 * time.Second, 60 * time.Second}, *slept)
	require.Contains(t, err.Error(), "after 3 attempts")
}

func TestClientSucceedsAfterOneRetry(t *testing.T) {
	llm := &scriptedLLM{
		errs: []error{newHTTPError("gemini", 429, []byte("quota"))},
		text: "recovered",
	}
	c, slept := newTestClient(llm)

	resp, _, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	require.Equal(t, "recovered", resp.Text)
	require.Equal(t, 2, llm.calls)
	require.Equal(t, []time.Duration{30 * time.Second}, *slept)
}

func TestClientDoesNotRetryPermanentErrors(t *testing.T) {
	llm := &scriptedLLM{errs: []error{newHTTPError("gemini", 400, []byte("bad prompt"))}}
	c, slept := newTestClient(llm)

	_, _, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	require.Equal(t, 1, llm.calls)
	require.Empty(t, *slept)
}

func TestClientDoesNotRetryConfigErrors(t *testing.T) {
	llm := &scriptedLLM{errs: []error{configError("gemini", "key missing")}}
	c, slept := newTestClient(llm)

	_, _, err := c.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	require.Equal(t, 1, llm.calls)
	require.Empty(t, *slept)
}

func TestClientTestConnection(t *testing.T) {
	c, _ := newTestClient(&scriptedLLM{text: "API working"})
	require.NoError(t, c.TestConnection(context.Background()))

	bad, _ := newTestClient(&scriptedLLM{errs: []error{newHTTPError("gemini", 403, []byte("quota exhausted")), newHTTPError("gemini", 403, []byte("quota exhausted")), newHTTPError("gemini", 403, []byte("quota exhausted"))}})
	require.Error(t, bad.TestConnection(context.Background()))
}
