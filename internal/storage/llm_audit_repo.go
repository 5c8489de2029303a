package storage

import (
	"context"
	"fmt"
)

// LLMCallRecord audits one provider call made on behalf of a paper.
type LLMCallRecord struct {
	CallID       string
	Operation    string
	PaperID      string
	SectionName  string
	ProviderName string
	Model        string
	Attempts     int
	Status       string
	ErrorType    string
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, operation, paper_id, section_name, provider_name, model, attempts, status, error_type)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,''), NULLIF($4,''), $5, $6, $7, $8, NULLIF($9,''))`,
		rec.CallID, rec.Operation, rec.PaperID, rec.SectionName, rec.ProviderName, rec.Model, rec.Attempts, rec.Status, rec.ErrorType)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
