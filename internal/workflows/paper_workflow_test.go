package workflows

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"

	"paperforge/internal/activities"
	"paperforge/internal/models"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func newGenerateEnv(t *testing.T) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PaperGenerateWorkflow)
	registerActivityName(env, "TestConnectionActivity", func(context.Context, activities.TestConnectionInput) error { return nil })
	registerActivityName(env, "GetPaperActivity", func(context.Context, activities.GetPaperInput) (activities.GetPaperOutput, error) {
		return activities.GetPaperOutput{}, nil
	})
	registerActivityName(env, "UpdatePaperStatusActivity", func(context.Context, activities.UpdatePaperStatusInput) error { return nil })
	registerActivityName(env, "EmbedQueryActivity", func(context.Context, activities.EmbedQueryInput) (activities.EmbedQueryOutput, error) {
		return activities.EmbedQueryOutput{}, nil
	})
	registerActivityName(env, "MatchChunksActivity", func(context.Context, activities.MatchChunksInput) (activities.MatchChunksOutput, error) {
		return activities.MatchChunksOutput{}, nil
	})
	registerActivityName(env, "ListSectionNamesActivity", func(context.Context, activities.ListSectionNamesInput) (activities.ListSectionNamesOutput, error) {
		return activities.ListSectionNamesOutput{}, nil
	})
	registerActivityName(env, "GenerateSectionActivity", func(context.Context, activities.GenerateSectionInput) (activities.GenerateSectionOutput, error) {
		return activities.GenerateSectionOutput{}, nil
	})
	registerActivityName(env, "GenerateBatchActivity", func(context.Context, activities.GenerateBatchInput) (activities.GenerateBatchOutput, error) {
		return activities.GenerateBatchOutput{}, nil
	})
	registerActivityName(env, "SaveSectionActivity", func(context.Context, activities.SaveSectionInput) (activities.SaveSectionOutput, error) {
		return activities.SaveSectionOutput{}, nil
	})
	registerActivityName(env, "LogLLMCallActivity", func(context.Context, activities.LogLLMCallInput) error { return nil })
	return env
}

func testPaper() activities.GetPaperOutput {
	return activities.GetPaperOutput{Paper: models.Paper{
		PaperID:  "p1",
		Title:    "Adaptive Caching",
		Domain:   "Distributed Systems",
		Authors:  []string{"A. Author"},
		Keywords: []string{"caching"},
		Status:   models.StatusDraft,
	}}
}

func batchOutputFor(in activities.GenerateBatchInput) activities.GenerateBatchOutput {
	out := activities.GenerateBatchOutput{Sections: map[string]string{}, ProviderName: "mock", Model: "mock-llm-v1"}
	for _, name := range in.SectionNames {
		out.Sections[name] = "Generated " + name + " body."
	}
	return out
}

func TestPaperGenerateWorkflowFullRun(t *testing.T) {
	env := newGenerateEnv(t)

	env.OnActivity("TestConnectionActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetPaperActivity", mock.Anything, mock.Anything).Return(testPaper(), nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("EmbedQueryActivity", mock.Anything, mock.Anything).Return(activities.EmbedQueryOutput{Vector: []float32{0.1, 0.2}, ProviderName: "mock"}, nil)
	env.OnActivity("MatchChunksActivity", mock.Anything, mock.Anything).Return(activities.MatchChunksOutput{Context: "evidence"}, nil)
	env.OnActivity("ListSectionNamesActivity", mock.Anything, mock.Anything).Return(activities.ListSectionNamesOutput{}, nil)
	var batchCalls int
	env.OnActivity("GenerateBatchActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateBatchInput) (activities.GenerateBatchOutput, error) {
			batchCalls++
			require.Equal(t, "evidence", in.Context)
			return batchOutputFor(in), nil
		})
	env.OnActivity("GenerateSectionActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateSectionInput) (activities.GenerateSectionOutput, error) {
			return activities.GenerateSectionOutput{Content: "Generated " + in.SectionName + " body.", Model: "mock-llm-v1"}, nil
		})
	env.OnActivity("SaveSectionActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.SaveSectionInput) (activities.SaveSectionOutput, error) {
			return activities.SaveSectionOutput{SectionID: "s-" + in.SectionName, Words: 100}, nil
		})

	env.ExecuteWorkflow(PaperGenerateWorkflow, GenerateInput{PaperID: "p1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result GenerateResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, models.StatusCompleted, result.Status)
	// 11 canonical sections in batches of two: five pairs plus one single.
	require.Equal(t, 11, result.SectionsGenerated)
	require.Equal(t, 0, result.SectionsFailed)
	require.Equal(t, 5, batchCalls)
	require.Equal(t, 1100, result.TotalWords)
	require.InDelta(t, 4.4, result.EstimatedPages, 0.001)
}

func TestPaperGenerateWorkflowResumesFromExistingSections(t *testing.T) {
	env := newGenerateEnv(t)

	env.OnActivity("TestConnectionActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetPaperActivity", mock.Anything, mock.Anything).Return(testPaper(), nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("EmbedQueryActivity", mock.Anything, mock.Anything).Return(activities.EmbedQueryOutput{Vector: []float32{0.1}}, nil)
	env.OnActivity("MatchChunksActivity", mock.Anything, mock.Anything).Return(activities.MatchChunksOutput{}, nil)
	env.OnActivity("ListSectionNamesActivity", mock.Anything, mock.Anything).Return(
		activities.ListSectionNamesOutput{Names: []string{"Abstract", "Introduction"}}, nil)

	var requested []string
	env.OnActivity("GenerateBatchActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateBatchInput) (activities.GenerateBatchOutput, error) {
			requested = append(requested, in.SectionNames...)
			return batchOutputFor(in), nil
		})
	env.OnActivity("GenerateSectionActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateSectionInput) (activities.GenerateSectionOutput, error) {
			requested = append(requested, in.SectionName)
			return activities.GenerateSectionOutput{Content: "body"}, nil
		})
	env.OnActivity("SaveSectionActivity", mock.Anything, mock.Anything).Return(activities.SaveSectionOutput{Words: 50}, nil)

	env.ExecuteWorkflow(PaperGenerateWorkflow, GenerateInput{PaperID: "p1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result GenerateResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, models.StatusCompleted, result.Status)
	require.Equal(t, 9, result.SectionsGenerated)
	require.NotContains(t, requested, "Abstract")
	require.NotContains(t, requested, "Introduction")
}

func TestPaperGenerateWorkflowPreflightFailureSetsErrorStatus(t *testing.T) {
	env := newGenerateEnv(t)

	env.OnActivity("TestConnectionActivity", mock.Anything, mock.Anything).Return(errors.New("quota exhausted"))
	var statuses []string
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.UpdatePaperStatusInput) error {
			statuses = append(statuses, in.Status)
			return nil
		})

	env.ExecuteWorkflow(PaperGenerateWorkflow, GenerateInput{PaperID: "p1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result GenerateResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, models.StatusError, result.Status)
	require.Contains(t, statuses, models.StatusError)
}

func TestPaperGenerateWorkflowSkipsFailedBatchesAndCompletes(t *testing.T) {
	env := newGenerateEnv(t)

	env.OnActivity("TestConnectionActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetPaperActivity", mock.Anything, mock.Anything).Return(testPaper(), nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("EmbedQueryActivity", mock.Anything, mock.Anything).Return(activities.EmbedQueryOutput{Vector: []float32{0.1}}, nil)
	env.OnActivity("MatchChunksActivity", mock.Anything, mock.Anything).Return(activities.MatchChunksOutput{}, nil)
	env.OnActivity("ListSectionNamesActivity", mock.Anything, mock.Anything).Return(activities.ListSectionNamesOutput{}, nil)
	env.OnActivity("LogLLMCallActivity", mock.Anything, mock.Anything).Return(nil)

	env.OnActivity("GenerateBatchActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateBatchInput) (activities.GenerateBatchOutput, error) {
			if contains(in.SectionNames, "Methodology") {
				return activities.GenerateBatchOutput{}, errors.New("429 rate limited after retries")
			}
			return batchOutputFor(in), nil
		})
	env.OnActivity("GenerateSectionActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateSectionInput) (activities.GenerateSectionOutput, error) {
			if in.SectionName == "Literature Review" || in.SectionName == "Methodology" {
				return activities.GenerateSectionOutput{}, errors.New("429 rate limited after retries")
			}
			return activities.GenerateSectionOutput{Content: "body"}, nil
		})
	env.OnActivity("SaveSectionActivity", mock.Anything, mock.Anything).Return(activities.SaveSectionOutput{Words: 10}, nil)

	env.ExecuteWorkflow(PaperGenerateWorkflow, GenerateInput{PaperID: "p1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result GenerateResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, models.StatusCompleted, result.Status)
	require.Equal(t, 9, result.SectionsGenerated)
	require.Equal(t, 2, result.SectionsFailed)
	require.Contains(t, result.FailedSections, "Methodology")
}

func TestPaperGenerateWorkflowBatchDropoutFallsBackToSingle(t *testing.T) {
	env := newGenerateEnv(t)

	env.OnActivity("TestConnectionActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetPaperActivity", mock.Anything, mock.Anything).Return(testPaper(), nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("EmbedQueryActivity", mock.Anything, mock.Anything).Return(activities.EmbedQueryOutput{Vector: []float32{0.1}}, nil)
	env.OnActivity("MatchChunksActivity", mock.Anything, mock.Anything).Return(activities.MatchChunksOutput{}, nil)
	env.OnActivity("ListSectionNamesActivity", mock.Anything, mock.Anything).Return(activities.ListSectionNamesOutput{}, nil)

	env.OnActivity("GenerateBatchActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateBatchInput) (activities.GenerateBatchOutput, error) {
			out := batchOutputFor(in)
			// The model answers with only the first marker.
			delete(out.Sections, in.SectionNames[len(in.SectionNames)-1])
			return out, nil
		})
	var singles []string
	env.OnActivity("GenerateSectionActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateSectionInput) (activities.GenerateSectionOutput, error) {
			singles = append(singles, in.SectionName)
			return activities.GenerateSectionOutput{Content: "recovered " + in.SectionName}, nil
		})
	env.OnActivity("SaveSectionActivity", mock.Anything, mock.Anything).Return(activities.SaveSectionOutput{Words: 10}, nil)

	env.ExecuteWorkflow(PaperGenerateWorkflow, GenerateInput{PaperID: "p1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result GenerateResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Equal(t, models.StatusCompleted, result.Status)
	require.Equal(t, 11, result.SectionsGenerated)
	require.Len(t, singles, 6)
}

func TestPaperGenerateWorkflowWritesBatchProgressMetadata(t *testing.T) {
	env := newGenerateEnv(t)

	env.OnActivity("TestConnectionActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetPaperActivity", mock.Anything, mock.Anything).Return(testPaper(), nil)
	env.OnActivity("EmbedQueryActivity", mock.Anything, mock.Anything).Return(activities.EmbedQueryOutput{Vector: []float32{0.1}}, nil)
	env.OnActivity("MatchChunksActivity", mock.Anything, mock.Anything).Return(activities.MatchChunksOutput{}, nil)
	env.OnActivity("ListSectionNamesActivity", mock.Anything, mock.Anything).Return(activities.ListSectionNamesOutput{}, nil)

	var batchUpdates []activities.UpdatePaperStatusInput
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.UpdatePaperStatusInput) error {
			if strings.HasPrefix(in.Status, models.StatusGenerating+"_batch_") {
				batchUpdates = append(batchUpdates, in)
			}
			return nil
		})
	env.OnActivity("GenerateBatchActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateBatchInput) (activities.GenerateBatchOutput, error) {
			return batchOutputFor(in), nil
		})
	env.OnActivity("GenerateSectionActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateSectionInput) (activities.GenerateSectionOutput, error) {
			return activities.GenerateSectionOutput{Content: "body"}, nil
		})
	env.OnActivity("SaveSectionActivity", mock.Anything, mock.Anything).Return(activities.SaveSectionOutput{Words: 10}, nil)

	env.ExecuteWorkflow(PaperGenerateWorkflow, GenerateInput{PaperID: "p1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	require.Len(t, batchUpdates, 6)
	for _, in := range batchUpdates {
		require.NotEmpty(t, in.Metadata)
		require.NotEmpty(t, in.Metadata["current_section"])
		require.EqualValues(t, 11, in.Metadata["total_sections"])
	}
	first := batchUpdates[0]
	require.Equal(t, "Abstract, Introduction", first.Metadata["current_section"])
	require.EqualValues(t, 0, first.Metadata["completed_sections"])
	last := batchUpdates[5]
	require.Equal(t, "Future Work", last.Metadata["current_section"])
	require.EqualValues(t, 10, last.Metadata["completed_sections"])
	require.InDelta(t, 90.9, toFloat(t, last.Metadata["progress_percentage"]), 0.001)
}

func toFloat(t *testing.T, v any) float64 {
	t.Helper()
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		t.Fatalf("unexpected numeric type %T", v)
		return 0
	}
}

func TestPaperGenerateWorkflowProgressQuery(t *testing.T) {
	env := newGenerateEnv(t)

	env.OnActivity("TestConnectionActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("GetPaperActivity", mock.Anything, mock.Anything).Return(testPaper(), nil)
	env.OnActivity("UpdatePaperStatusActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("EmbedQueryActivity", mock.Anything, mock.Anything).Return(activities.EmbedQueryOutput{Vector: []float32{0.1}}, nil)
	env.OnActivity("MatchChunksActivity", mock.Anything, mock.Anything).Return(activities.MatchChunksOutput{}, nil)
	env.OnActivity("ListSectionNamesActivity", mock.Anything, mock.Anything).Return(activities.ListSectionNamesOutput{}, nil)
	env.OnActivity("GenerateBatchActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateBatchInput) (activities.GenerateBatchOutput, error) {
			return batchOutputFor(in), nil
		})
	env.OnActivity("GenerateSectionActivity", mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activities.GenerateSectionInput) (activities.GenerateSectionOutput, error) {
			return activities.GenerateSectionOutput{Content: "body"}, nil
		})
	env.OnActivity("SaveSectionActivity", mock.Anything, mock.Anything).Return(activities.SaveSectionOutput{Words: 10}, nil)

	env.ExecuteWorkflow(PaperGenerateWorkflow, GenerateInput{PaperID: "p1"})
	require.True(t, env.IsWorkflowCompleted())

	v, err := env.QueryWorkflow(QueryGetProgress)
	require.NoError(t, err)
	var progress GenerateProgress
	require.NoError(t, v.Get(&progress))
	require.Equal(t, models.StatusCompleted, progress.Status)
	require.Equal(t, 6, progress.TotalBatches)
	require.Len(t, progress.Completed, 11)
	require.Empty(t, progress.Failed)
}

func TestWorkflowIDForPaper(t *testing.T) {
	id := WorkflowIDForPaper("abc-123")
	require.Equal(t, "generate-paper-abc-123", id)
	require.True(t, strings.HasPrefix(id, "generate-paper-"))
}

func TestBatchSections(t *testing.T) {
	batches := batchSections([]string{"a", "b", "c", "d", "e"}, 2)
	require.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches)
	require.Empty(t, batchSections(nil, 2))
}

func TestMissingSectionsCaseInsensitive(t *testing.T) {
	remaining := missingSections([]string{"abstract", "INTRODUCTION"})
	require.Len(t, remaining, 9)
	require.NotContains(t, remaining, "Abstract")
	require.NotContains(t, remaining, "Introduction")
	require.Equal(t, "Literature Review", remaining[0])
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
