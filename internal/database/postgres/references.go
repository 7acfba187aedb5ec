package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/pgvector/pgvector-go"
)

// ReferenceRepository stores reference image embeddings in reference_embeddings.
type ReferenceRepository struct {
	pool *Pool
}

// NewReferenceRepository creates a new PostgreSQL reference embedding repository
func NewReferenceRepository(pool *Pool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

var _ database.ReferenceStore = (*ReferenceRepository)(nil)

// Get retrieves the embedding stored for path, returns nil if not found
func (r *ReferenceRepository) Get(ctx context.Context, path string) (*database.ReferenceEmbedding, error) {
	query := `
		SELECT path, content_hash, embedding, det_score, model, dim, created_at
		FROM reference_embeddings
		WHERE path = $1
	`

	var ref database.ReferenceEmbedding
	var vec *pgvector.Vector

	err := r.pool.QueryRow(ctx, query, path).Scan(
		&ref.Path,
		&ref.ContentHash,
		&vec,
		&ref.DetScore,
		&ref.Model,
		&ref.Dim,
		&ref.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reference embedding: %w", err)
	}

	if vec != nil {
		ref.Embedding = vec.Slice()
	}
	return &ref, nil
}

// Save stores or replaces the embedding of one reference image. A reference
// without a face is stored with a NULL embedding.
func (r *ReferenceRepository) Save(ctx context.Context, ref *database.ReferenceEmbedding) error {
	query := `
		INSERT INTO reference_embeddings (path, content_hash, embedding, det_score, model, dim)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (path) DO UPDATE SET
			content_hash = EXCLUDED.content_hash,
			embedding = EXCLUDED.embedding,
			det_score = EXCLUDED.det_score,
			model = EXCLUDED.model,
			dim = EXCLUDED.dim,
			created_at = NOW()
	`

	var vec any
	if ref.HasFace() {
		vec = pgvector.NewVector(ref.Embedding)
	}

	_, err := r.pool.Exec(ctx, query, ref.Path, ref.ContentHash, vec, ref.DetScore, ref.Model, ref.Dim)
	if err != nil {
		return fmt.Errorf("save reference embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored reference embeddings
func (r *ReferenceRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reference_embeddings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reference embeddings: %w", err)
	}
	return count, nil
}
