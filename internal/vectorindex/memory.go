package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
)

// MemoryIndex is an in-memory brute-force index using cosine similarity.
// Intended for tests and local development.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	points    map[uuid.UUID]Point
}

// NewMemoryIndex creates an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[uuid.UUID]Point)}
}

// Init resets the index to the given dimension.
func (x *MemoryIndex) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.dimension = dimension
	x.points = make(map[uuid.UUID]Point)
	return nil
}

// Upsert inserts or replaces points.
func (x *MemoryIndex) Upsert(ctx context.Context, points []Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, p := range points {
		if x.dimension > 0 && len(p.Vector) != x.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(p.Vector), x.dimension)
		}
		x.points[p.Key] = p
	}
	return nil
}

// GetVector retrieves the stored vector for a key.
func (x *MemoryIndex) GetVector(ctx context.Context, key uuid.UUID) ([]float32, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	p, ok := x.points[key]
	if !ok {
		return nil, ErrVectorNotFound
	}
	vector := make([]float32, len(p.Vector))
	copy(vector, p.Vector)
	return vector, nil
}

// QueryNearest brute-forces cosine similarity over points matching the filter.
func (x *MemoryIndex) QueryNearest(ctx context.Context, vector []float32, filter Filter, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	var matches []Match
	for _, p := range x.points {
		if p.ProjectID != filter.ProjectID || p.DocumentID != filter.DocumentID {
			continue
		}
		matches = append(matches, Match{Key: p.Key, Score: cosineSimilarity(vector, p.Vector)})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// DeleteByDocument removes all points of one document in a project.
func (x *MemoryIndex) DeleteByDocument(ctx context.Context, projectID, documentID uuid.UUID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for key, p := range x.points {
		if p.ProjectID == projectID && p.DocumentID == documentID {
			delete(x.points, key)
		}
	}
	return nil
}

// cosineSimilarity returns a value between -1 and 1, where 1 means identical
// direction, 0 orthogonal, -1 opposite.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	aFloat64 := make([]float64, len(a))
	bFloat64 := make([]float64, len(b))
	for i := range a {
		aFloat64[i] = float64(a[i])
		bFloat64[i] = float64(b[i])
	}

	dotProduct := floats.Dot(aFloat64, bFloat64)
	magA := math.Sqrt(floats.Dot(aFloat64, aFloat64))
	magB := math.Sqrt(floats.Dot(bFloat64, bFloat64))

	if magA == 0 || magB == 0 {
		return 0
	}

	return dotProduct / (magA * magB)
}
