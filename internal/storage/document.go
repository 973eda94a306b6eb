package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDocumentNotFound is returned when a document lookup misses.
var ErrDocumentNotFound = errors.New("document not found")

// Document represents a document in the system. Content lives with the owning
// backend; this engine only needs identity and the display name for prompts.
type Document struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	Name      string
	CreatedAt time.Time
}

// DocumentRepository defines the interface for document metadata lookups.
type DocumentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]*Document, error)
}

// PostgresDocumentRepository implements DocumentRepository using PostgreSQL.
type PostgresDocumentRepository struct {
	db *sql.DB
}

// NewPostgresDocumentRepository creates a new PostgresDocumentRepository.
func NewPostgresDocumentRepository(db *sql.DB) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

// GetByID retrieves a document by its ID.
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := `
		SELECT id, project_id, name, created_at
		FROM documents
		WHERE id = $1
	`

	document := &Document{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&document.ID,
		&document.ProjectID,
		&document.Name,
		&document.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}

	return document, nil
}

// GetByProjectID retrieves all documents for a specific project.
func (r *PostgresDocumentRepository) GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]*Document, error) {
	query := `
		SELECT id, project_id, name, created_at
		FROM documents
		WHERE project_id = $1
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		document := &Document{}
		err := rows.Scan(
			&document.ID,
			&document.ProjectID,
			&document.Name,
			&document.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		documents = append(documents, document)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return documents, nil
}
