package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// GeminiProvider talks to the Google Generative Language REST API for both
// generation and embeddings. Requests are paced through a client-side rate
// limiter so bursty jobs do not trip the per-minute quota immediately.
type GeminiProvider struct {
	keyName    string
	apiKey     string
	genModel   string
	embedModel string
	baseURL    string
	limiter    *rate.Limiter
	client     *http.Client
}

func NewGeminiProvider(keyName string) *GeminiProvider {
	genModel := strings.TrimSpace(os.Getenv("PAPERFORGE_GEMINI_MODEL"))
	if genModel == "" {
		genModel = "gemini-2.5-flash"
	}
	embedModel := strings.TrimSpace(os.Getenv("PAPERFORGE_GEMINI_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = "text-embedding-004"
	}
	rpm := 60
	if v, err := strconv.Atoi(os.Getenv("PAPERFORGE_GEMINI_RPM")); err == nil && v > 0 {
		rpm = v
	}
	return &GeminiProvider{
		keyName:    keyName,
		apiKey:     resolveGeminiKey(keyName),
		genModel:   genModel,
		embedModel: embedModel,
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

func (g *GeminiProvider) info(model string) ProviderInfo {
	return ProviderInfo{Name: "gemini", Model: model, Key: g.keyName}
}

func (g *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if g.apiKey == "" {
		return GenerateResponse{}, g.info(g.genModel), configError("gemini", "gemini key missing for alias %q", g.keyName)
	}
	payload, _ := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.Prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": req.MaxOutputTokens,
			"temperature":     req.Temperature,
		},
	})
	body, err := g.post(ctx, fmt.Sprintf("/models/%s:generateContent", g.genModel), payload)
	if err != nil {
		return GenerateResponse{}, g.info(g.genModel), err
	}
	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, g.info(g.genModel), fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return GenerateResponse{}, g.info(g.genModel), &ProviderError{Type: ErrorTransient, Provider: "gemini", Message: "empty candidates in response"}
	}
	var out strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	return GenerateResponse{Text: out.String()}, g.info(g.genModel), nil
}

func (g *GeminiProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	if g.apiKey == "" {
		return nil, g.info(g.embedModel), configError("gemini", "gemini key missing for alias %q", g.keyName)
	}
	out := make([][]float32, 0, len(req.Inputs))
	for _, text := range req.Inputs {
		payload, _ := json.Marshal(map[string]any{
			"content":  map[string]any{"parts": []map[string]string{{"text": text}}},
			"taskType": "RETRIEVAL_DOCUMENT",
		})
		body, err := g.post(ctx, fmt.Sprintf("/models/%s:embedContent", g.embedModel), payload)
		if err != nil {
			return nil, g.info(g.embedModel), err
		}
		var parsed struct {
			Embedding struct {
				Values []float32 `json:"values"`
			} `json:"embedding"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, g.info(g.embedModel), fmt.Errorf("decode gemini embedding: %w", err)
		}
		if len(parsed.Embedding.Values) == 0 {
			return nil, g.info(g.embedModel), &ProviderError{Type: ErrorTransient, Provider: "gemini", Message: "empty embedding in response"}
		}
		if req.Dimension > 0 && len(parsed.Embedding.Values) != req.Dimension {
			return nil, g.info(g.embedModel), configError("gemini",
				"embedding dimension mismatch: model %s returned %d, index expects %d",
				g.embedModel, len(parsed.Embedding.Values), req.Dimension)
		}
		out = append(out, parsed.Embedding.Values)
	}
	return out, g.info(g.embedModel), nil
}

func (g *GeminiProvider) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gemini limiter wait: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Type: ErrorTransient, Provider: "gemini", Message: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, newHTTPError("gemini", resp.StatusCode, body)
	}
	return body, nil
}

func resolveGeminiKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("PAPERFORGE_GEMINI_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("GEMINI_API_KEY")
}
