package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrParagraphNotFound is returned when a point lookup misses.
var ErrParagraphNotFound = errors.New("paragraph not found")

// Paragraph is one ordered unit of document text. PositionTag is the stable
// human-readable identifier ("p-0", "p-1", ...); Index is the zero-based
// position within the document.
type Paragraph struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	PositionTag string
	Index       int
	Text        string
	CreatedAt   time.Time
}

// ParagraphStore defines the interface for paragraph storage operations.
type ParagraphStore interface {
	CreateBatch(ctx context.Context, paragraphs []*Paragraph) error
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Paragraph, error)
	GetByKey(ctx context.Context, key uuid.UUID) (*Paragraph, error)
	GetByPosition(ctx context.Context, documentID uuid.UUID, positionTag string) (*Paragraph, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}

// PostgresParagraphStore implements ParagraphStore using PostgreSQL.
type PostgresParagraphStore struct {
	db *sql.DB
}

// NewPostgresParagraphStore creates a new PostgresParagraphStore.
func NewPostgresParagraphStore(db *sql.DB) *PostgresParagraphStore {
	return &PostgresParagraphStore{db: db}
}

// CreateBatch inserts multiple paragraphs in a single transaction.
func (r *PostgresParagraphStore) CreateBatch(ctx context.Context, paragraphs []*Paragraph) error {
	if len(paragraphs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_paragraphs (id, document_id, paragraph_id, index, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range paragraphs {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}

		_, err := stmt.ExecContext(ctx,
			p.ID,
			p.DocumentID,
			p.PositionTag,
			p.Index,
			p.Text,
			p.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListByDocument retrieves all paragraphs of a document in document order.
func (r *PostgresParagraphStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Paragraph, error) {
	query := `
		SELECT id, document_id, paragraph_id, index, text, created_at
		FROM document_paragraphs
		WHERE document_id = $1
		ORDER BY index ASC
	`

	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paragraphs []*Paragraph
	for rows.Next() {
		p := &Paragraph{}
		err := rows.Scan(
			&p.ID,
			&p.DocumentID,
			&p.PositionTag,
			&p.Index,
			&p.Text,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		paragraphs = append(paragraphs, p)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return paragraphs, nil
}

// GetByKey retrieves a paragraph by its storage key.
func (r *PostgresParagraphStore) GetByKey(ctx context.Context, key uuid.UUID) (*Paragraph, error) {
	query := `
		SELECT id, document_id, paragraph_id, index, text, created_at
		FROM document_paragraphs
		WHERE id = $1
	`

	p := &Paragraph{}
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&p.ID,
		&p.DocumentID,
		&p.PositionTag,
		&p.Index,
		&p.Text,
		&p.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrParagraphNotFound
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}

// GetByPosition retrieves a paragraph by its document and position tag.
func (r *PostgresParagraphStore) GetByPosition(ctx context.Context, documentID uuid.UUID, positionTag string) (*Paragraph, error) {
	query := `
		SELECT id, document_id, paragraph_id, index, text, created_at
		FROM document_paragraphs
		WHERE document_id = $1 AND paragraph_id = $2
	`

	p := &Paragraph{}
	err := r.db.QueryRowContext(ctx, query, documentID, positionTag).Scan(
		&p.ID,
		&p.DocumentID,
		&p.PositionTag,
		&p.Index,
		&p.Text,
		&p.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrParagraphNotFound
	}
	if err != nil {
		return nil, err
	}

	return p, nil
}

// DeleteByDocument removes all paragraphs of a document.
func (r *PostgresParagraphStore) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	query := `DELETE FROM document_paragraphs WHERE document_id = $1`
	_, err := r.db.ExecContext(ctx, query, documentID)
	return err
}
