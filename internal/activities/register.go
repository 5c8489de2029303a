package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.GetPaperActivity)
	w.RegisterActivity(a.ListSectionNamesActivity)
	w.RegisterActivity(a.EmbedQueryActivity)
	w.RegisterActivity(a.MatchChunksActivity)
	w.RegisterActivity(a.GenerateSectionActivity)
	w.RegisterActivity(a.GenerateBatchActivity)
	w.RegisterActivity(a.SaveSectionActivity)
	w.RegisterActivity(a.UpdatePaperStatusActivity)
	w.RegisterActivity(a.TestConnectionActivity)
	w.RegisterActivity(a.LogLLMCallActivity)
}
