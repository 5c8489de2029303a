package workflows

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"paperforge/internal/activities"
	"paperforge/internal/content"
	"paperforge/internal/models"
	"paperforge/internal/providers"
)

const QueryGetProgress = "GetProgress"

// WorkflowIDForPaper builds the deterministic workflow id so starting
// generation twice for the same paper dedupes on the running execution.
func WorkflowIDForPaper(paperID string) string {
	return "generate-paper-" + paperID
}

// PaperGenerateWorkflow drives full-paper generation: pre-flight provider
// probe, job-level retrieval, then the missing sections in small batches with
// pacing between batches. Per-section failures are recorded and skipped so one
// bad batch cannot sink the whole paper.
func PaperGenerateWorkflow(ctx workflow.Context, input GenerateInput) (GenerateResult, error) {
	progress := GenerateProgress{
		PaperID:   input.PaperID,
		Status:    models.StatusGenerating,
		Completed: []string{},
		Failed:    []string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (GenerateProgress, error) {
		return progress, nil
	}); err != nil {
		return GenerateResult{}, err
	}

	dbOpts := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	// Generation activities retry rate limits internally with long sleeps, so
	// Temporal gets a single long attempt instead of stacked retries.
	genOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	dbCtx := workflow.WithActivityOptions(ctx, dbOpts)
	genCtx := workflow.WithActivityOptions(ctx, genOpts)

	fail := func(reason string) (GenerateResult, error) {
		progress.Status = models.StatusError
		_ = workflow.ExecuteActivity(dbCtx, "UpdatePaperStatusActivity", activities.UpdatePaperStatusInput{
			PaperID:  input.PaperID,
			Status:   models.StatusError,
			Metadata: map[string]any{"error": reason},
		}).Get(dbCtx, nil)
		return GenerateResult{PaperID: input.PaperID, Status: models.StatusError}, nil
	}

	if err := workflow.ExecuteActivity(genCtx, "TestConnectionActivity", activities.TestConnectionInput{}).Get(genCtx, nil); err != nil {
		return fail("provider connection test failed: " + err.Error())
	}

	var paperOut activities.GetPaperOutput
	if err := workflow.ExecuteActivity(dbCtx, "GetPaperActivity", activities.GetPaperInput{PaperID: input.PaperID}).Get(dbCtx, &paperOut); err != nil {
		return GenerateResult{}, err
	}
	paper := paperOut.Paper

	if err := workflow.ExecuteActivity(dbCtx, "UpdatePaperStatusActivity", activities.UpdatePaperStatusInput{
		PaperID: input.PaperID,
		Status:  models.StatusGenerating,
	}).Get(dbCtx, nil); err != nil {
		return GenerateResult{}, err
	}

	// One retrieval pass covers the whole job; individual sections share the
	// same evidence pool.
	jobQuery := fmt.Sprintf("comprehensive research paper %s %s", paper.Title, paper.Domain)
	retrievedContext := ""
	var embedOut activities.EmbedQueryOutput
	if err := workflow.ExecuteActivity(genCtx, "EmbedQueryActivity", activities.EmbedQueryInput{
		Operation: "job_context_embed",
		Text:      jobQuery,
	}).Get(genCtx, &embedOut); err == nil {
		var matchOut activities.MatchChunksOutput
		if err := workflow.ExecuteActivity(dbCtx, "MatchChunksActivity", activities.MatchChunksInput{
			PaperID:   input.PaperID,
			QueryVec:  embedOut.Vector,
			TopK:      defaultCount(input.TopK, 20),
			Threshold: defaultThreshold(input.Threshold, 0.5),
		}).Get(dbCtx, &matchOut); err == nil {
			retrievedContext = matchOut.Context
		}
	}

	var existing activities.ListSectionNamesOutput
	if err := workflow.ExecuteActivity(dbCtx, "ListSectionNamesActivity", activities.ListSectionNamesInput{PaperID: input.PaperID}).Get(dbCtx, &existing); err != nil {
		return GenerateResult{}, err
	}
	remaining := missingSections(existing.Names)
	batches := batchSections(remaining, defaultCount(input.BatchSize, 2))
	progress.TotalBatches = len(batches)

	pacing := time.Duration(defaultCount(input.PacingSeconds, 15)) * time.Second
	totalWords := 0

	for i, batch := range batches {
		progress.CurrentBatch = i + 1
		progress.Status = fmt.Sprintf("%s_batch_%d", models.StatusGenerating, i+1)
		_ = workflow.ExecuteActivity(dbCtx, "UpdatePaperStatusActivity", activities.UpdatePaperStatusInput{
			PaperID: input.PaperID,
			Status:  progress.Status,
			Metadata: map[string]any{
				"current_section":     strings.Join(batch, ", "),
				"completed_sections":  len(progress.Completed),
				"total_sections":      len(remaining),
				"progress_percentage": math.Round(float64(len(progress.Completed))/float64(len(remaining))*1000) / 10,
			},
		}).Get(dbCtx, nil)
		if i > 0 {
			if err := workflow.Sleep(ctx, pacing); err != nil {
				return GenerateResult{}, err
			}
		}

		generated := map[string]string{}
		providerModel := ""
		if len(batch) == 1 {
			var out activities.GenerateSectionOutput
			err := workflow.ExecuteActivity(genCtx, "GenerateSectionActivity", activities.GenerateSectionInput{
				PaperID:     input.PaperID,
				SectionName: batch[0],
				Title:       paper.Title,
				Domain:      paper.Domain,
				Authors:     paper.Authors,
				Keywords:    paper.Keywords,
				Context:     retrievedContext,
			}).Get(genCtx, &out)
			if err == nil {
				generated[batch[0]] = out.Content
				providerModel = out.Model
			} else {
				logGenerateFailure(dbCtx, input.PaperID, batch[0], err)
			}
		} else {
			var out activities.GenerateBatchOutput
			err := workflow.ExecuteActivity(genCtx, "GenerateBatchActivity", activities.GenerateBatchInput{
				PaperID:      input.PaperID,
				SectionNames: batch,
				Title:        paper.Title,
				Domain:       paper.Domain,
				Authors:      paper.Authors,
				Keywords:     paper.Keywords,
				Context:      retrievedContext,
			}).Get(genCtx, &out)
			if err == nil {
				generated = out.Sections
				providerModel = out.Model
			} else {
				logGenerateFailure(dbCtx, input.PaperID, strings.Join(batch, ","), err)
			}

			// Sections the batch response dropped get one individual retry.
			for _, name := range batch {
				if _, ok := generated[name]; ok {
					continue
				}
				var single activities.GenerateSectionOutput
				serr := workflow.ExecuteActivity(genCtx, "GenerateSectionActivity", activities.GenerateSectionInput{
					PaperID:     input.PaperID,
					SectionName: name,
					Title:       paper.Title,
					Domain:      paper.Domain,
					Authors:     paper.Authors,
					Keywords:    paper.Keywords,
					Context:     retrievedContext,
				}).Get(genCtx, &single)
				if serr == nil {
					generated[name] = single.Content
					providerModel = single.Model
				} else {
					logGenerateFailure(dbCtx, input.PaperID, name, serr)
				}
			}
		}

		for _, name := range batch {
			text, ok := generated[name]
			if !ok || strings.TrimSpace(text) == "" {
				progress.Failed = append(progress.Failed, name)
				continue
			}
			var saved activities.SaveSectionOutput
			if err := workflow.ExecuteActivity(dbCtx, "SaveSectionActivity", activities.SaveSectionInput{
				PaperID:     input.PaperID,
				SectionName: name,
				Content:     text,
				OrderIndex:  content.SectionIndex(name),
				Model:       providerModel,
			}).Get(dbCtx, &saved); err != nil {
				progress.Failed = append(progress.Failed, name)
				continue
			}
			totalWords += saved.Words
			progress.Completed = append(progress.Completed, name)
		}
	}

	result := GenerateResult{
		PaperID:           input.PaperID,
		SectionsGenerated: len(progress.Completed),
		SectionsFailed:    len(progress.Failed),
		FailedSections:    progress.Failed,
		TotalWords:        totalWords,
		EstimatedPages:    math.Round(float64(totalWords)/250*10) / 10,
	}
	if len(remaining) > 0 && len(progress.Completed) == 0 {
		progress.Status = models.StatusError
		result.Status = models.StatusError
		_ = workflow.ExecuteActivity(dbCtx, "UpdatePaperStatusActivity", activities.UpdatePaperStatusInput{
			PaperID:  input.PaperID,
			Status:   models.StatusError,
			Metadata: map[string]any{"error": "no sections could be generated"},
		}).Get(dbCtx, nil)
		return result, nil
	}

	progress.Status = models.StatusCompleted
	result.Status = models.StatusCompleted
	if err := workflow.ExecuteActivity(dbCtx, "UpdatePaperStatusActivity", activities.UpdatePaperStatusInput{
		PaperID: input.PaperID,
		Status:  models.StatusCompleted,
		Metadata: map[string]any{
			"sections_generated": result.SectionsGenerated,
			"sections_failed":    result.SectionsFailed,
			"total_words":        result.TotalWords,
			"estimated_pages":    result.EstimatedPages,
			"completed_at":       workflow.Now(ctx),
		},
	}).Get(dbCtx, nil); err != nil {
		return GenerateResult{}, err
	}
	return result, nil
}

func logGenerateFailure(ctx workflow.Context, paperID, section string, err error) {
	_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{
		Operation:   "generate_section",
		PaperID:     paperID,
		SectionName: section,
		Status:      "failed",
		ErrorType:   string(providers.ClassifyError(err)),
	}).Get(ctx, nil)
}

// missingSections returns the canonical sections that have no stored row yet,
// preserving paper order. Matching is case-insensitive so a manually created
// "abstract" row suppresses regeneration of "Abstract".
func missingSections(existing []string) []string {
	have := make(map[string]bool, len(existing))
	for _, n := range existing {
		have[strings.ToLower(strings.TrimSpace(n))] = true
	}
	out := make([]string, 0, len(content.CanonicalSections))
	for _, name := range content.CanonicalSections {
		if !have[strings.ToLower(name)] {
			out = append(out, name)
		}
	}
	return out
}

func batchSections(sections []string, size int) [][]string {
	if size <= 0 {
		size = 2
	}
	var out [][]string
	for i := 0; i < len(sections); i += size {
		end := i + size
		if end > len(sections) {
			end = len(sections)
		}
		out = append(out, sections[i:end])
	}
	return out
}

func defaultCount(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

func defaultThreshold(v, fallback float64) float64 {
	if v <= 0 {
		return fallback
	}
	return v
}
