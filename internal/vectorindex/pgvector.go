package vectorindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// PgvectorIndex implements Index on PostgreSQL with the pgvector extension.
type PgvectorIndex struct {
	db *sql.DB
}

// NewPgvectorIndex creates a new PgvectorIndex.
func NewPgvectorIndex(db *sql.DB) *PgvectorIndex {
	return &PgvectorIndex{db: db}
}

// Init creates the extension and the embeddings table if missing.
func (x *PgvectorIndex) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	if _, err := x.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create extension: %w", err)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS paragraph_embeddings (
			paragraph_key uuid PRIMARY KEY,
			project_id uuid NOT NULL,
			document_id uuid NOT NULL,
			paragraph_id text NOT NULL,
			paragraph_index integer NOT NULL,
			embedding vector(%d) NOT NULL
		)
	`, dimension)

	if _, err := x.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	return nil
}

// Upsert inserts or replaces embeddings keyed by paragraph.
func (x *PgvectorIndex) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO paragraph_embeddings (paragraph_key, project_id, document_id, paragraph_id, paragraph_index, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (paragraph_key) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			document_id = EXCLUDED.document_id,
			paragraph_id = EXCLUDED.paragraph_id,
			paragraph_index = EXCLUDED.paragraph_index,
			embedding = EXCLUDED.embedding
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.ExecContext(ctx,
			p.Key,
			p.ProjectID,
			p.DocumentID,
			p.PositionTag,
			p.Index,
			pgvector.NewVector(p.Vector),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetVector retrieves the stored embedding for a paragraph key.
func (x *PgvectorIndex) GetVector(ctx context.Context, key uuid.UUID) ([]float32, error) {
	query := `
		SELECT embedding
		FROM paragraph_embeddings
		WHERE paragraph_key = $1
	`

	var embedding pgvector.Vector
	err := x.db.QueryRowContext(ctx, query, key).Scan(&embedding)

	if err == sql.ErrNoRows {
		return nil, ErrVectorNotFound
	}
	if err != nil {
		return nil, err
	}

	return embedding.Slice(), nil
}

// QueryNearest finds the most similar paragraphs within one project/document
// using pgvector cosine distance. Similarity = 1 - distance.
func (x *PgvectorIndex) QueryNearest(ctx context.Context, vector []float32, filter Filter, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT paragraph_key, 1 - (embedding <=> $1) as similarity
		FROM paragraph_embeddings
		WHERE project_id = $2 AND document_id = $3
		ORDER BY embedding <=> $1
		LIMIT $4
	`

	rows, err := x.db.QueryContext(ctx, query, pgvector.NewVector(vector), filter.ProjectID, filter.DocumentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Key, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}

// DeleteByDocument removes all embeddings of one document in a project.
func (x *PgvectorIndex) DeleteByDocument(ctx context.Context, projectID, documentID uuid.UUID) error {
	query := `DELETE FROM paragraph_embeddings WHERE project_id = $1 AND document_id = $2`
	_, err := x.db.ExecContext(ctx, query, projectID, documentID)
	return err
}
