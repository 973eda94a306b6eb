package analysis

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/docalign/rag-engine/internal/storage"
	"github.com/docalign/rag-engine/internal/vectorindex"
)

// stubParagraphStore serves canned paragraphs.
type stubParagraphStore struct {
	byDoc map[uuid.UUID][]*storage.Paragraph
	byKey map[uuid.UUID]*storage.Paragraph
}

func newStubParagraphStore() *stubParagraphStore {
	return &stubParagraphStore{
		byDoc: make(map[uuid.UUID][]*storage.Paragraph),
		byKey: make(map[uuid.UUID]*storage.Paragraph),
	}
}

func (s *stubParagraphStore) add(p *storage.Paragraph) {
	s.byDoc[p.DocumentID] = append(s.byDoc[p.DocumentID], p)
	s.byKey[p.ID] = p
}

func (s *stubParagraphStore) CreateBatch(ctx context.Context, paragraphs []*storage.Paragraph) error {
	for _, p := range paragraphs {
		s.add(p)
	}
	return nil
}

func (s *stubParagraphStore) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*storage.Paragraph, error) {
	return s.byDoc[documentID], nil
}

func (s *stubParagraphStore) GetByKey(ctx context.Context, key uuid.UUID) (*storage.Paragraph, error) {
	p, ok := s.byKey[key]
	if !ok {
		return nil, storage.ErrParagraphNotFound
	}
	return p, nil
}

func (s *stubParagraphStore) GetByPosition(ctx context.Context, documentID uuid.UUID, positionTag string) (*storage.Paragraph, error) {
	for _, p := range s.byDoc[documentID] {
		if p.PositionTag == positionTag {
			return p, nil
		}
	}
	return nil, storage.ErrParagraphNotFound
}

func (s *stubParagraphStore) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	for _, p := range s.byDoc[documentID] {
		delete(s.byKey, p.ID)
	}
	delete(s.byDoc, documentID)
	return nil
}

// stubIndex delegates to optional func fields; nil fields fail loudly so a
// test only stubs what it uses.
type stubIndex struct {
	getVectorFn    func(key uuid.UUID) ([]float32, error)
	queryNearestFn func(vector []float32, filter vectorindex.Filter, limit int) ([]vectorindex.Match, error)
}

func (s *stubIndex) Init(ctx context.Context, dimension int) error { return nil }

func (s *stubIndex) Upsert(ctx context.Context, points []vectorindex.Point) error { return nil }

func (s *stubIndex) GetVector(ctx context.Context, key uuid.UUID) ([]float32, error) {
	if s.getVectorFn == nil {
		return nil, errors.New("stubIndex: GetVector not stubbed")
	}
	return s.getVectorFn(key)
}

func (s *stubIndex) QueryNearest(ctx context.Context, vector []float32, filter vectorindex.Filter, limit int) ([]vectorindex.Match, error) {
	if s.queryNearestFn == nil {
		return nil, errors.New("stubIndex: QueryNearest not stubbed")
	}
	return s.queryNearestFn(vector, filter, limit)
}

func (s *stubIndex) DeleteByDocument(ctx context.Context, projectID, documentID uuid.UUID) error {
	return nil
}

// stubEmbedder returns a fixed vector or a fixed error.
type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.EmbedText(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int { return len(s.vector) }

// stubJudge delegates to a func field.
type stubJudge struct {
	fn func(textA, textB, titleA, titleB string) Judgment
}

func (s *stubJudge) Judge(ctx context.Context, textA, textB, titleA, titleB string) Judgment {
	return s.fn(textA, textB, titleA, titleB)
}

// stubDocuments resolves canned document names.
type stubDocuments struct {
	names map[uuid.UUID]string
}

func (s *stubDocuments) GetByID(ctx context.Context, id uuid.UUID) (*storage.Document, error) {
	name, ok := s.names[id]
	if !ok {
		return nil, storage.ErrDocumentNotFound
	}
	return &storage.Document{ID: id, Name: name}, nil
}

func (s *stubDocuments) GetByProjectID(ctx context.Context, projectID uuid.UUID) ([]*storage.Document, error) {
	return nil, nil
}
