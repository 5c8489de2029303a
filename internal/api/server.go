package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"

	"paperforge/internal/config"
	"paperforge/internal/content"
	"paperforge/internal/latex"
	"paperforge/internal/models"
	"paperforge/internal/providers"
	"paperforge/internal/storage"
	"paperforge/internal/textsplit"
	"paperforge/internal/util"
	"paperforge/internal/vector"
	"paperforge/internal/workflows"
)

// chunkMatcher is the retrieval surface the handlers need; *vector.Searcher
// satisfies it.
type chunkMatcher interface {
	MatchChunks(ctx context.Context, queryVec []float32, paperID string, topK int, threshold float64) ([]models.ChunkMatch, error)
}

type Server struct {
	cfg         config.Config
	db          *storage.DB
	paperRepo   *storage.PaperRepo
	docRepo     *storage.DocumentRepo
	chunkRepo   *storage.ChunkRepo
	sectionRepo *storage.SectionRepo
	searcher    chunkMatcher
	embedder    providers.EmbeddingProvider
	llm         *providers.Client
	temporal    tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	caps := storage.DetectCapabilities(ctx, db)
	embedder, _ := pm.FirstEmbedProvider()
	llm, _ := pm.FirstLLMProvider()
	return &Server{
		cfg:         cfg,
		db:          db,
		paperRepo:   storage.NewPaperRepo(db, caps),
		docRepo:     storage.NewDocumentRepo(db),
		chunkRepo:   storage.NewChunkRepo(db),
		sectionRepo: storage.NewSectionRepo(db, caps),
		searcher:    vector.NewSearcher(db.Pool),
		embedder:    embedder,
		llm: providers.NewClient(llm, cfg.GenerateMaxAttempts,
			time.Duration(cfg.GenerateBackoffSecs)*time.Second),
		temporal: tc,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/papers", s.handlePapers)
	mux.HandleFunc("/api/papers/", s.handlePapersScoped)
	mux.HandleFunc("/api/generate", s.handleGenerateSection)
	mux.HandleFunc("/api/tasks/", s.handleTaskStatus)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		papers, err := s.paperRepo.ListPapers(r.Context())
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"papers": papers})
	case http.MethodPost:
		var req struct {
			Title        string   `json:"title"`
			Domain       string   `json:"domain"`
			Authors      []string `json:"authors"`
			Affiliations []string `json:"affiliations"`
			Keywords     []string `json:"keywords"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.Title = strings.TrimSpace(req.Title)
		if req.Title == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("title is required"))
			return
		}
		paper := models.Paper{
			PaperID:      uuid.NewString(),
			Title:        req.Title,
			Domain:       strings.TrimSpace(req.Domain),
			Authors:      req.Authors,
			Affiliations: req.Affiliations,
			Keywords:     req.Keywords,
			Status:       models.StatusDraft,
		}
		if err := s.paperRepo.CreatePaper(r.Context(), paper); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"paper_id": paper.PaperID, "status": paper.Status})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handlePapersScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/papers/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	paperID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		paper, err := s.paperRepo.GetPaper(r.Context(), paperID)
		if err != nil {
			writeErr(w, statusForStorageErr(err), err)
			return
		}
		chunkCount, err := s.chunkRepo.CountChunksByPaper(r.Context(), paperID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"paper": paper, "chunk_count": chunkCount})
		return
	}

	switch parts[1] {
	case "upload":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleUpload(w, r, paperID)
	case "documents":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		docs, err := s.docRepo.ListDocumentsByPaper(r.Context(), paperID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	case "chunks":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		chunks, err := s.chunkRepo.ListChunksByPaper(r.Context(), paperID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
	case "sections":
		s.handleSections(w, r, paperID)
	case "generate-all":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleGenerateAll(w, r, paperID)
	case "export":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleExport(w, r, paperID)
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

var allowedUploadExts = map[string]bool{".pdf": true, ".txt": true, ".md": true}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, paperID string) {
	if _, err := s.paperRepo.GetPaper(r.Context(), paperID); err != nil {
		writeErr(w, statusForStorageErr(err), err)
		return
	}
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		if single, ok := firstSingleFile(r.MultipartForm.File); ok {
			files = append(files, single)
		}
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	uploadDir := filepath.Join(s.cfg.UploadDir, paperID)
	if err := util.EnsureDir(uploadDir); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	type uploadResult struct {
		Filename   string `json:"filename"`
		DocumentID string `json:"document_id"`
		Chunks     int    `json:"chunks"`
	}
	results := make([]uploadResult, 0, len(files))

	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !allowedUploadExts[ext] {
			writeErr(w, http.StatusBadRequest,
				fmt.Errorf("%w: %s", util.ErrUnsupportedType, filepath.Base(fh.Filename)))
			return
		}
		if fh.Size > s.cfg.MaxUploadBytes {
			writeErr(w, http.StatusBadRequest,
				fmt.Errorf("%w: %s", util.ErrFileTooLarge, filepath.Base(fh.Filename)))
			return
		}
		docID, chunkCount, err := s.ingestFile(r.Context(), paperID, uploadDir, fh)
		if err != nil {
			if errors.Is(err, util.ErrNoExtractableText) {
				writeErr(w, http.StatusBadRequest, err)
				return
			}
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		results = append(results, uploadResult{
			Filename:   filepath.Base(fh.Filename),
			DocumentID: docID,
			Chunks:     chunkCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploaded": results})
}

// ingestFile saves the upload, extracts and sanitizes text, splits it into
// overlapping chunks, embeds them and stores document plus chunks. Ingestion
// is synchronous; by the time the response returns the chunks are queryable.
func (s *Server) ingestFile(ctx context.Context, paperID, dir string, fh *multipart.FileHeader) (string, int, error) {
	savedPath, err := saveUploadedFile(dir, fh)
	if err != nil {
		return "", 0, err
	}
	text, err := extractText(savedPath)
	if err != nil {
		return "", 0, err
	}
	text = util.SanitizeText(text)
	if strings.TrimSpace(text) == "" {
		return "", 0, util.ErrNoExtractableText
	}

	parts := textsplit.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	vectors, _, err := s.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "document_chunks_embed",
		Inputs:    parts,
		Dimension: s.cfg.EmbedDim,
	})
	if err != nil {
		return "", 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(parts) {
		return "", 0, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(parts))
	}

	docID := uuid.NewString()
	filename := filepath.Base(fh.Filename)
	if err := s.docRepo.InsertDocument(ctx, models.Document{
		DocumentID: docID,
		PaperID:    paperID,
		Filename:   filename,
		FileSize:   fh.Size,
		FileType:   strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
	}); err != nil {
		return "", 0, err
	}

	records := make([]storage.ChunkRecord, 0, len(parts))
	for i, part := range parts {
		records = append(records, storage.ChunkRecord{
			ChunkID:    uuid.NewString(),
			DocumentID: docID,
			PaperID:    paperID,
			ChunkIndex: i,
			Content:    part,
			Source:     map[string]any{"filename": filename, "chunk_index": i},
			Embedding:  vectors[i],
		})
	}
	if err := s.chunkRepo.InsertChunks(ctx, records); err != nil {
		return "", 0, err
	}
	return docID, len(records), nil
}

func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		f, r, err := pdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("open pdf: %w", err)
		}
		defer f.Close()
		reader, err := r.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("extract pdf text: %w", err)
		}
		buf := new(strings.Builder)
		if _, err := io.Copy(buf, reader); err != nil {
			return "", fmt.Errorf("read extracted text: %w", err)
		}
		return buf.String(), nil
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read document: %w", err)
		}
		return string(b), nil
	}
}

func (s *Server) handleSections(w http.ResponseWriter, r *http.Request, paperID string) {
	switch r.Method {
	case http.MethodGet:
		sections, err := s.sectionRepo.ListSections(r.Context(), paperID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sections": sections})
	case http.MethodPost:
		var req struct {
			SectionName string `json:"section_name"`
			Content     string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
		req.SectionName = strings.TrimSpace(req.SectionName)
		if req.SectionName == "" || strings.TrimSpace(req.Content) == "" {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("section_name and content are required"))
			return
		}
		metrics := content.Estimate(req.Content)
		section := models.Section{
			SectionID:   uuid.NewString(),
			PaperID:     paperID,
			SectionName: req.SectionName,
			Content:     req.Content,
			OrderIndex:  content.SectionIndex(req.SectionName),
			Metadata: map[string]any{
				"words":           metrics.Words,
				"characters":      metrics.Characters,
				"estimated_pages": metrics.EstimatedPages,
				"source":          "manual",
			},
		}
		if err := s.sectionRepo.InsertSection(r.Context(), section); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"section_id": section.SectionID, "words": metrics.Words})
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

// handleGenerateSection serves the synchronous single-section path: retrieve
// the section-scoped context, generate, persist, return the content inline.
// Provider failures surface to the caller rather than being swallowed.
func (s *Server) handleGenerateSection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		PaperID     string `json:"paper_id"`
		SectionName string `json:"section_name"`
		TopK        int    `json:"top_k,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.PaperID = strings.TrimSpace(req.PaperID)
	req.SectionName = strings.TrimSpace(req.SectionName)
	if req.PaperID == "" || req.SectionName == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("paper_id and section_name are required"))
		return
	}
	if req.TopK <= 0 {
		req.TopK = s.cfg.TopK
	}

	paper, err := s.paperRepo.GetPaper(r.Context(), req.PaperID)
	if err != nil {
		writeErr(w, statusForStorageErr(err), err)
		return
	}

	query := fmt.Sprintf("%s %s %s", req.SectionName, paper.Title, paper.Domain)
	retrievedContext := ""
	var matches []models.ChunkMatch
	if vecs, _, err := s.embedder.Embed(r.Context(), providers.EmbedRequest{
		Operation: "section_query_embed",
		Inputs:    []string{query},
		Dimension: s.cfg.EmbedDim,
	}); err == nil && len(vecs) > 0 {
		matches, err = s.searcher.MatchChunks(r.Context(), vecs[0], req.PaperID, req.TopK, s.cfg.MatchThreshold)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		retrievedContext = vector.ContextBlock(matches)
	}

	prompt := content.BuildSectionPrompt(req.SectionName, content.PaperInfo{
		Title:    paper.Title,
		Domain:   paper.Domain,
		Authors:  paper.Authors,
		Keywords: paper.Keywords,
	}, retrievedContext)
	resp, info, err := s.llm.Generate(r.Context(), providers.GenerateRequest{
		Operation:       "generate_section",
		Prompt:          prompt,
		MaxOutputTokens: s.cfg.MaxOutputTokens,
		Temperature:     s.cfg.Temperature,
	})
	if err != nil {
		writeErr(w, http.StatusBadGateway, fmt.Errorf("generation failed: %w", err))
		return
	}

	text := content.PostProcess(resp.Text, req.SectionName)
	metrics := content.Estimate(text)
	section := models.Section{
		SectionID:   uuid.NewString(),
		PaperID:     req.PaperID,
		SectionName: req.SectionName,
		Content:     text,
		OrderIndex:  content.SectionIndex(req.SectionName),
		Metadata: map[string]any{
			"words":           metrics.Words,
			"characters":      metrics.Characters,
			"estimated_pages": metrics.EstimatedPages,
			"model":           info.Model,
		},
	}
	if err := s.sectionRepo.InsertSection(r.Context(), section); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"section_id":      section.SectionID,
		"section_name":    req.SectionName,
		"content":         text,
		"words":           metrics.Words,
		"estimated_pages": metrics.EstimatedPages,
		"retrieved_count": len(matches),
		"llm_provider":    info.Name,
		"llm_model":       info.Model,
	})
}

func (s *Server) handleGenerateAll(w http.ResponseWriter, r *http.Request, paperID string) {
	if _, err := s.paperRepo.GetPaper(r.Context(), paperID); err != nil {
		writeErr(w, statusForStorageErr(err), err)
		return
	}
	wfID := workflows.WorkflowIDForPaper(paperID)
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       wfID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.PaperGenerateWorkflow, workflows.GenerateInput{
		PaperID:       paperID,
		BatchSize:     2,
		PacingSeconds: s.cfg.BatchPacingSecs,
		TopK:          s.cfg.JobTopK,
		Threshold:     s.cfg.JobMatchThreshold,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"task_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	taskID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	if taskID == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}

	desc, err := s.temporal.DescribeWorkflowExecution(r.Context(), taskID, "")
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"task_id": taskID, "status": "not_found"})
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	switch desc.WorkflowExecutionInfo.Status {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		var progress workflows.GenerateProgress
		resp, qErr := s.temporal.QueryWorkflow(r.Context(), taskID, "", workflows.QueryGetProgress)
		if qErr == nil && resp.Get(&progress) == nil {
			writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "status": progress.Status, "progress": progress})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "status": models.StatusGenerating})
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "status": models.StatusCompleted})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "status": models.StatusError})
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, paperID string) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "latex" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unsupported export format: %s", format))
		return
	}
	paper, err := s.paperRepo.GetPaper(r.Context(), paperID)
	if err != nil {
		writeErr(w, statusForStorageErr(err), err)
		return
	}
	sections, err := s.sectionRepo.ListSections(r.Context(), paperID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	if format == "text" {
		writeJSON(w, http.StatusOK, map[string]any{"paper": plainExport(paper, sections)})
		return
	}

	// References come from the model when it is reachable. Render falls back
	// to seeded placeholders on empty input, so failures here are not fatal.
	references := ""
	if resp, _, err := s.llm.Generate(r.Context(), providers.GenerateRequest{
		Operation:       "generate_references",
		Prompt:          content.BuildReferencesPrompt(paper.Domain, s.referencesContext(r.Context(), paper)),
		MaxOutputTokens: s.cfg.MaxOutputTokens,
		Temperature:     s.cfg.Temperature,
	}); err == nil {
		references = resp.Text
	}

	doc := latex.RenderWithReferences(paper, sections, references)
	w.Header().Set("Content-Type", "application/x-latex")
	w.Header().Set("Content-Disposition", `attachment; filename="paper.tex"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// plainExport assembles the paper as readable text: header block, then each
// stored section with an underlined heading.
func plainExport(paper models.Paper, sections []models.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", paper.Title)
	fmt.Fprintf(&b, "Authors: %s\n", strings.Join(paper.Authors, ", "))
	fmt.Fprintf(&b, "Affiliations: %s\n", strings.Join(paper.Affiliations, ", "))
	fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(paper.Keywords, ", "))
	for _, s := range sections {
		fmt.Fprintf(&b, "\n%s\n%s\n\n%s\n", s.SectionName, strings.Repeat("=", len(s.SectionName)), s.Content)
	}
	return b.String()
}

// referencesContext retrieves evidence to seed the reference-list prompt.
// Empty on any failure; the prompt then leans on the domain alone.
func (s *Server) referencesContext(ctx context.Context, paper models.Paper) string {
	query := fmt.Sprintf("key references %s %s", paper.Title, paper.Domain)
	vecs, _, err := s.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "references_query_embed",
		Inputs:    []string{query},
		Dimension: s.cfg.EmbedDim,
	})
	if err != nil || len(vecs) == 0 {
		return ""
	}
	matches, err := s.searcher.MatchChunks(ctx, vecs[0], paper.PaperID, s.cfg.TopK, s.cfg.MatchThreshold)
	if err != nil {
		return ""
	}
	return vector.ContextBlock(matches)
}

func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	sum, err := util.SHA256HexFromReader(src)
	if err != nil {
		return "", fmt.Errorf("hash upload: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	safeName := util.SafeJoin(dstDir, sum[:12]+"_"+fh.Filename)
	tmp, err := os.CreateTemp(dstDir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()
	if _, err := io.Copy(tmp, src); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), safeName); err != nil {
		return "", fmt.Errorf("atomic move upload: %w", err)
	}
	return safeName, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func statusForStorageErr(err error) int {
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "PF-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500 && status != http.StatusBadGateway:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "PF-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "PF-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "PF-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "PF-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "PF-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "PF-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "PF-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusBadGateway:
		code = "PF-API-5020"
		// The generation error itself carries the actionable detail
		// (quota, rate limit, misconfiguration), so pass it through.
		msg = "Upstream provider error."
		if err != nil {
			msg = err.Error()
		}
	}

	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "title is required"):
			msg = "Paper title is required."
		case strings.Contains(raw, "paper_id and section_name are required"):
			msg = "Both paper and section name are required."
		case strings.Contains(raw, "section_name and content are required"):
			msg = "Both section name and content are required."
		case strings.Contains(raw, "no files provided"):
			msg = "No files were provided."
		case strings.Contains(raw, "unsupported file type"):
			msg = "Only .pdf, .txt and .md files are accepted."
		case strings.Contains(raw, "exceeds upload size limit"):
			msg = "File exceeds the upload size limit."
		case strings.Contains(raw, "no extractable text"):
			msg = "No extractable text found in the uploaded document."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(raw, "unsupported export format"):
			msg = "Unsupported export format. Use format=latex."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
