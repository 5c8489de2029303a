package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// MockProvider returns deterministic output for tests and local development.
// Its Generate understands the two prompt shapes the content package builds:
// single-section prompts ("SECTION TO WRITE: <name>") and batched prompts
// ("SECTIONS TO GENERATE:" followed by "SECTION: <name>" lines), so pipelines
// exercised against it behave like they would against a real model.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 768
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	_ = ctx
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	vectors := make([][]float32, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		vectors = append(vectors, deterministicVector(input, dim))
	}
	return vectors, ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", dim), Key: "mock"}, nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	_ = ctx
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1", Key: "mock"}

	if names := batchSectionNames(req.Prompt); len(names) > 0 {
		var b strings.Builder
		for _, name := range names {
			fmt.Fprintf(&b, "=== SECTION: %s ===\n%s\n\n", name, mockSectionBody(name))
		}
		return GenerateResponse{Text: b.String()}, info, nil
	}
	if name := singleSectionName(req.Prompt); name != "" {
		return GenerateResponse{Text: mockSectionBody(name)}, info, nil
	}
	if strings.Contains(req.Prompt, "realistic academic references") {
		return GenerateResponse{Text: `[1] Doe, J., "A Deterministic Study of Mock Systems," IEEE Trans. Test, vol. 1, no. 1, pp. 1-10, 2024.
[2] Roe, R., "Reproducible Pipelines in Practice," Proc. IEEE MockConf, pp. 11-20, 2023.`}, info, nil
	}
	if strings.Contains(strings.ToLower(req.Operation), "probe") {
		return GenerateResponse{Text: "API working"}, info, nil
	}
	return GenerateResponse{Text: "Mock response."}, info, nil
}

func singleSectionName(prompt string) string {
	const tag = "SECTION TO WRITE:"
	i := strings.Index(prompt, tag)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(tag):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func batchSectionNames(prompt string) []string {
	i := strings.Index(prompt, "SECTIONS TO GENERATE:")
	if i < 0 {
		return nil
	}
	var names []string
	for _, line := range strings.Split(prompt[i:], "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "SECTION: "); ok {
			names = append(names, strings.TrimSpace(rest))
		}
	}
	return names
}

func mockSectionBody(name string) string {
	return fmt.Sprintf("This is deterministic %s content produced for pipeline testing. "+
		"It references retrieved evidence [1] and follows the requested structure without "+
		"semantic meaning.", name)
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
	return v
}
