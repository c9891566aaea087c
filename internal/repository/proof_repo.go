package repository

import (
	"context"
	"fmt"

	"fieldops/internal/model"
)

// ProofRepository defines operations for the append-only proof rows
type ProofRepository interface {
	Create(ctx context.Context, proof *model.Proof) error
	ListByTask(ctx context.Context, taskID int64) ([]model.Proof, error)
}

type proofRepository struct {
	db DB
}

// NewProofRepository creates a new ProofRepository
func NewProofRepository(db DB) ProofRepository {
	return &proofRepository{db: db}
}

// Create links a proof to its request
func (r *proofRepository) Create(ctx context.Context, p *model.Proof) error {
	sql := `INSERT INTO task_proofs (task_id, image_path, notes, uploaded_at)
            VALUES ($1, $2, $3, $4) RETURNING id`
	if err := conn(ctx, r.db).QueryRow(ctx, sql, p.TaskID, p.ImagePath, p.Notes, p.UploadedAt).Scan(&p.ID); err != nil {
		return classify("failed to create proof", err)
	}
	return nil
}

// ListByTask returns every proof of a request in upload order
func (r *proofRepository) ListByTask(ctx context.Context, taskID int64) ([]model.Proof, error) {
	sql := `SELECT id, task_id, image_path, notes, uploaded_at
            FROM task_proofs WHERE task_id = $1 ORDER BY uploaded_at, id`
	rows, err := conn(ctx, r.db).Query(ctx, sql, taskID)
	if err != nil {
		return nil, classify("failed to query proofs", err)
	}
	defer rows.Close()

	proofs := []model.Proof{}
	for rows.Next() {
		var p model.Proof
		if err := rows.Scan(&p.ID, &p.TaskID, &p.ImagePath, &p.Notes, &p.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan proof row: %w", err)
		}
		proofs = append(proofs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("error iterating proof rows", err)
	}
	return proofs, nil
}
