package activities

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"paperforge/internal/config"
	"paperforge/internal/content"
	"paperforge/internal/models"
	"paperforge/internal/providers"
	"paperforge/internal/storage"
	"paperforge/internal/vector"
)

type Activities struct {
	cfg          config.Config
	paperRepo    *storage.PaperRepo
	sectionRepo  *storage.SectionRepo
	llmAuditRepo *storage.LLMAuditRepo
	searcher     *vector.Searcher
	embedder     providers.EmbeddingProvider
	llm          *providers.Client
	llmRef       providers.ProviderRef
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	caps := storage.DetectCapabilities(context.Background(), db)
	embedder, _ := pm.FirstEmbedProvider()
	llm, llmRef := pm.FirstLLMProvider()
	return &Activities{
		cfg:          cfg,
		paperRepo:    storage.NewPaperRepo(db, caps),
		sectionRepo:  storage.NewSectionRepo(db, caps),
		llmAuditRepo: storage.NewLLMAuditRepo(db),
		searcher:     vector.NewSearcher(db.Pool),
		embedder:     embedder,
		llm: providers.NewClient(llm, cfg.GenerateMaxAttempts,
			time.Duration(cfg.GenerateBackoffSecs)*time.Second),
		llmRef: llmRef,
	}, nil
}

func (a *Activities) GetPaperActivity(ctx context.Context, in GetPaperInput) (GetPaperOutput, error) {
	p, err := a.paperRepo.GetPaper(ctx, in.PaperID)
	if err != nil {
		return GetPaperOutput{}, err
	}
	return GetPaperOutput{Paper: p}, nil
}

func (a *Activities) ListSectionNamesActivity(ctx context.Context, in ListSectionNamesInput) (ListSectionNamesOutput, error) {
	names, err := a.sectionRepo.ListSectionNames(ctx, in.PaperID)
	if err != nil {
		return ListSectionNamesOutput{}, err
	}
	return ListSectionNamesOutput{Names: names}, nil
}

func (a *Activities) EmbedQueryActivity(ctx context.Context, in EmbedQueryInput) (EmbedQueryOutput, error) {
	vectors, info, err := a.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: in.Operation,
		Inputs:    []string{in.Text},
		Dimension: a.cfg.EmbedDim,
	})
	if err != nil {
		return EmbedQueryOutput{}, err
	}
	if len(vectors) == 0 {
		return EmbedQueryOutput{}, fmt.Errorf("embedding provider returned empty vectors")
	}
	return EmbedQueryOutput{Vector: vectors[0], ProviderName: info.Name, Model: info.Model}, nil
}

func (a *Activities) MatchChunksActivity(ctx context.Context, in MatchChunksInput) (MatchChunksOutput, error) {
	matches, err := a.searcher.MatchChunks(ctx, in.QueryVec, in.PaperID, in.TopK, in.Threshold)
	if err != nil {
		return MatchChunksOutput{}, err
	}
	return MatchChunksOutput{Matches: matches, Context: vector.ContextBlock(matches)}, nil
}

func (a *Activities) GenerateSectionActivity(ctx context.Context, in GenerateSectionInput) (GenerateSectionOutput, error) {
	prompt := content.BuildSectionPrompt(in.SectionName, content.PaperInfo{
		Title:    in.Title,
		Domain:   in.Domain,
		Authors:  in.Authors,
		Keywords: in.Keywords,
	}, in.Context)
	resp, info, err := a.llm.Generate(ctx, providers.GenerateRequest{
		Operation:       "generate_section",
		Prompt:          prompt,
		MaxOutputTokens: a.cfg.MaxOutputTokens,
		Temperature:     a.cfg.Temperature,
	})
	if err != nil {
		return GenerateSectionOutput{}, fmt.Errorf("generate %s via %s: %w", in.SectionName, a.llmRef.Raw, err)
	}
	return GenerateSectionOutput{
		Content:      content.PostProcess(resp.Text, in.SectionName),
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func (a *Activities) GenerateBatchActivity(ctx context.Context, in GenerateBatchInput) (GenerateBatchOutput, error) {
	prompt := content.BuildBatchPrompt(in.SectionNames, content.PaperInfo{
		Title:    in.Title,
		Domain:   in.Domain,
		Authors:  in.Authors,
		Keywords: in.Keywords,
	}, in.Context)
	resp, info, err := a.llm.Generate(ctx, providers.GenerateRequest{
		Operation:       "generate_batch",
		Prompt:          prompt,
		MaxOutputTokens: a.cfg.BatchMaxOutputTokens,
		Temperature:     a.cfg.Temperature,
	})
	if err != nil {
		return GenerateBatchOutput{}, fmt.Errorf("generate batch via %s: %w", a.llmRef.Raw, err)
	}
	return GenerateBatchOutput{
		Sections:     content.ParseBatch(resp.Text, in.SectionNames),
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func (a *Activities) SaveSectionActivity(ctx context.Context, in SaveSectionInput) (SaveSectionOutput, error) {
	metrics := content.Estimate(in.Content)
	sectionID := uuid.NewString()
	err := a.sectionRepo.InsertSection(ctx, models.Section{
		SectionID:   sectionID,
		PaperID:     in.PaperID,
		SectionName: in.SectionName,
		Content:     in.Content,
		OrderIndex:  in.OrderIndex,
		Metadata: map[string]any{
			"words":           metrics.Words,
			"characters":      metrics.Characters,
			"estimated_pages": metrics.EstimatedPages,
			"model":           in.Model,
		},
	})
	if err != nil {
		return SaveSectionOutput{}, err
	}
	return SaveSectionOutput{SectionID: sectionID, Words: metrics.Words, Pages: metrics.EstimatedPages}, nil
}

func (a *Activities) UpdatePaperStatusActivity(ctx context.Context, in UpdatePaperStatusInput) error {
	return a.paperRepo.UpdateStatusWithMetadata(ctx, in.PaperID, in.Status, in.Metadata)
}

func (a *Activities) TestConnectionActivity(ctx context.Context, in TestConnectionInput) error {
	_ = in
	return a.llm.TestConnection(ctx)
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	return a.llmAuditRepo.Insert(ctx, storage.LLMCallRecord{
		Operation:    in.Operation,
		PaperID:      in.PaperID,
		SectionName:  in.SectionName,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		Attempts:     in.Attempts,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
	})
}
