package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/docalign/rag-engine/internal/storage"
)

// ErrNoParagraphs is returned when either document of an analysis request has
// no paragraphs.
var ErrNoParagraphs = errors.New("document has no paragraphs")

const (
	defaultMaxConcurrent       = 5
	defaultUndeterminedRetries = 1
)

// Orchestrator runs the pairwise analysis pipeline: candidate retrieval per
// source paragraph, then one judgment per candidate pair.
type Orchestrator struct {
	paragraphs storage.ParagraphStore
	documents  storage.DocumentRepository
	retriever  *CandidateRetriever
	judge      Judge

	maxConcurrent       int
	undeterminedRetries int
	logger              *slog.Logger
}

// OrchestratorConfig holds orchestrator tuning knobs.
type OrchestratorConfig struct {
	// MaxConcurrent bounds in-flight judge calls; the oracle is
	// rate-limited upstream so unbounded fan-out is not allowed.
	MaxConcurrent int
	// UndeterminedRetries is how many times an undetermined pair is
	// re-judged before it is given up and counted.
	UndeterminedRetries int
	Logger              *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(paragraphs storage.ParagraphStore, documents storage.DocumentRepository, retriever *CandidateRetriever, judge Judge, config OrchestratorConfig) *Orchestrator {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = defaultMaxConcurrent
	}
	if config.UndeterminedRetries < 0 {
		config.UndeterminedRetries = defaultUndeterminedRetries
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Orchestrator{
		paragraphs:          paragraphs,
		documents:           documents,
		retriever:           retriever,
		judge:               judge,
		maxConcurrent:       config.MaxConcurrent,
		undeterminedRetries: config.UndeterminedRetries,
		logger:              config.Logger,
	}
}

// pair is one (source paragraph, resolved candidate) unit of judge work,
// addressed by source index and candidate rank.
type pair struct {
	srcIdx int
	rank   int
	source *storage.Paragraph
	target *storage.Paragraph
}

// Analyze compares every paragraph of the source document against its topK
// nearest paragraphs in the target document. Records come back in
// source-paragraph-major, candidate-rank-minor order regardless of judge
// completion order. Cancellation surfaces as the context error; partial
// results are never returned as success.
func (o *Orchestrator) Analyze(ctx context.Context, projectID, sourceDocID, targetDocID uuid.UUID, topK int) (*Result, error) {
	sourceParagraphs, err := o.paragraphs.ListByDocument(ctx, sourceDocID)
	if err != nil {
		return nil, fmt.Errorf("list source paragraphs: %w", err)
	}
	targetParagraphs, err := o.paragraphs.ListByDocument(ctx, targetDocID)
	if err != nil {
		return nil, fmt.Errorf("list target paragraphs: %w", err)
	}

	if len(sourceParagraphs) == 0 || len(targetParagraphs) == 0 {
		return nil, ErrNoParagraphs
	}

	o.logger.Info("analyzing document pair",
		"source_doc", sourceDocID,
		"target_doc", targetDocID,
		"source_paragraphs", len(sourceParagraphs),
		"target_paragraphs", len(targetParagraphs),
		"top_k", topK,
	)

	titleA, titleB := o.documentTitles(ctx, sourceDocID, targetDocID)

	pairs, err := o.collectPairs(ctx, sourceParagraphs, projectID, targetDocID, topK)
	if err != nil {
		return nil, err
	}

	judgments, err := o.judgePairs(ctx, pairs, titleA, titleB)
	if err != nil {
		return nil, err
	}

	result := &Result{PairsAnalyzed: len(pairs)}
	for i, p := range pairs {
		j := judgments[i]
		switch j.Outcome {
		case OutcomeInconsistent:
			result.Records = append(result.Records, buildRecord(sourceDocID, targetDocID, p, j.Verdict))
		case OutcomeUndetermined:
			result.PairsUndetermined++
			o.logger.Warn("pair undetermined",
				"source_paragraph", p.source.PositionTag,
				"target_paragraph", p.target.PositionTag,
				"reason", j.Reason,
			)
		}
	}

	o.logger.Info("analysis complete",
		"pairs_analyzed", result.PairsAnalyzed,
		"pairs_undetermined", result.PairsUndetermined,
		"inconsistencies", len(result.Records),
	)

	return result, nil
}

// collectPairs retrieves candidates for each source paragraph in document
// order and resolves them to full target paragraphs. A candidate whose
// paragraph record is gone is skipped; retrieval failures end the request.
func (o *Orchestrator) collectPairs(ctx context.Context, sourceParagraphs []*storage.Paragraph, projectID, targetDocID uuid.UUID, topK int) ([]pair, error) {
	var pairs []pair

	for srcIdx, source := range sourceParagraphs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches, err := o.retriever.Retrieve(ctx, source, projectID, targetDocID, topK)
		if err != nil {
			return nil, err
		}

		rank := 0
		for _, m := range matches {
			target, err := o.paragraphs.GetByKey(ctx, m.Key)
			if err != nil {
				if errors.Is(err, storage.ErrParagraphNotFound) {
					// Index point without a backing row; a transient
					// data-integrity gap, not fatal.
					o.logger.Warn("candidate paragraph missing from store", "key", m.Key)
					continue
				}
				return nil, fmt.Errorf("fetch candidate paragraph: %w", err)
			}

			pairs = append(pairs, pair{srcIdx: srcIdx, rank: rank, source: source, target: target})
			rank++
		}
	}

	return pairs, nil
}

// judgePairs runs judge calls through a bounded worker pool. Judgments land
// in slots indexed by the pair's position, so output order never depends on
// completion order. Once the context is cancelled no further pairs are
// dispatched.
func (o *Orchestrator) judgePairs(ctx context.Context, pairs []pair, titleA, titleB string) ([]Judgment, error) {
	judgments := make([]Judgment, len(pairs))

	sem := make(chan struct{}, o.maxConcurrent)
	var wg sync.WaitGroup

	for i := range pairs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(slot int, p pair) {
			defer wg.Done()
			defer func() { <-sem }()

			judgments[slot] = o.judgeWithRetry(ctx, p, titleA, titleB)
		}(i, pairs[i])
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return judgments, nil
}

func (o *Orchestrator) judgeWithRetry(ctx context.Context, p pair, titleA, titleB string) Judgment {
	var j Judgment
	for attempt := 0; attempt <= o.undeterminedRetries; attempt++ {
		j = o.judge.Judge(ctx, p.source.Text, p.target.Text, titleA, titleB)
		if j.Outcome != OutcomeUndetermined || ctx.Err() != nil {
			return j
		}
	}
	return j
}

// documentTitles fetches both document names best-effort; prompts simply omit
// titles that cannot be resolved.
func (o *Orchestrator) documentTitles(ctx context.Context, sourceDocID, targetDocID uuid.UUID) (string, string) {
	var titleA, titleB string
	if o.documents != nil {
		if doc, err := o.documents.GetByID(ctx, sourceDocID); err == nil {
			titleA = doc.Name
		}
		if doc, err := o.documents.GetByID(ctx, targetDocID); err == nil {
			titleB = doc.Name
		}
	}
	return titleA, titleB
}

func buildRecord(sourceDocID, targetDocID uuid.UUID, p pair, v *Verdict) Record {
	return Record{
		SourceDocumentID:  sourceDocID,
		TargetDocumentID:  targetDocID,
		SourceParagraphID: p.source.PositionTag,
		TargetParagraphID: p.target.PositionTag,
		Type:              v.Type,
		Severity:          v.Severity,
		Description:       v.Description,
		Explanation:       v.Explanation,
		Recommendation:    v.Recommendation,
		SourceExcerpt:     v.SourceExcerpt,
		TargetExcerpt:     v.TargetExcerpt,
		SourceLocation:    v.SourceLocation,
		TargetLocation:    v.TargetLocation,
	}
}
