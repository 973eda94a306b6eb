package vectorindex

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrVectorNotFound is returned when a point retrieval misses.
var ErrVectorNotFound = errors.New("vector not found")

// Point is one stored embedding keyed by the paragraph's storage key and
// tagged with the metadata the nearest-neighbor filter matches on.
type Point struct {
	Key         uuid.UUID
	Vector      []float32
	ProjectID   uuid.UUID
	DocumentID  uuid.UUID
	PositionTag string
	Index       int
}

// Filter restricts a nearest-neighbor query to one project/document pair.
// Both conditions are conjunctive exact matches.
type Filter struct {
	ProjectID  uuid.UUID
	DocumentID uuid.UUID
}

// Match is one nearest-neighbor result. Score is cosine similarity,
// descending order.
type Match struct {
	Key   uuid.UUID
	Score float64
}

// Index persists one vector per paragraph and supports filtered
// nearest-neighbor search and point retrieval.
type Index interface {
	// Init prepares the underlying collection for the given dimension.
	Init(ctx context.Context, dimension int) error

	// Upsert inserts or replaces points wholesale.
	Upsert(ctx context.Context, points []Point) error

	// GetVector retrieves the stored vector for a paragraph key.
	GetVector(ctx context.Context, key uuid.UUID) ([]float32, error)

	// QueryNearest returns up to limit matches ordered by descending
	// similarity, restricted by the filter. No minimum score is enforced.
	QueryNearest(ctx context.Context, vector []float32, filter Filter, limit int) ([]Match, error)

	// DeleteByDocument removes all points of one document in a project.
	DeleteByDocument(ctx context.Context, projectID, documentID uuid.UUID) error
}
