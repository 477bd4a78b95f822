package plagiarism

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/extract"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/logger"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/queue"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/storage"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

// CorpusSource yields the comparison corpus for one check.
type CorpusSource interface {
	Build(ctx context.Context, projectID primitive.ObjectID, submissionID string) ([]models.CorpusDocument, error)
}

// Notifier delivers a fire-and-forget message to a user. Implementations
// must never let a delivery failure reach the caller.
type Notifier interface {
	Notify(ctx context.Context, userID primitive.ObjectID, notifType string, payload map[string]interface{})
}

// ExtractFunc converts raw file bytes into plain text.
type ExtractFunc func(data []byte, mimeType string) (string, error)

// Processor runs one originality check end to end. The asynq worker and the
// synchronous fallback runner share this routine so both paths converge on
// identical persisted outcomes.
type Processor struct {
	results  ResultStore
	store    storage.Store
	extract  ExtractFunc
	corpus   CorpusSource
	engine   *Engine
	notifier Notifier

	shortTextThreshold int
	timeout            time.Duration
}

func NewProcessor(
	results ResultStore,
	store storage.Store,
	extractFn ExtractFunc,
	corpus CorpusSource,
	engine *Engine,
	notifier Notifier,
	shortTextThreshold int,
	timeout time.Duration,
) *Processor {
	if extractFn == nil {
		extractFn = extract.Extract
	}
	if shortTextThreshold <= 0 {
		shortTextThreshold = 50
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Processor{
		results:            results,
		store:              store,
		extract:            extractFn,
		corpus:             corpus,
		engine:             engine,
		notifier:           notifier,
		shortTextThreshold: shortTextThreshold,
		timeout:            timeout,
	}
}

// Run executes one check: download, extract, compare, persist, notify. Any
// returned error means nothing terminal was persisted; the caller decides
// when to commit the failed state (the worker after retries are exhausted,
// the fallback runner immediately).
func (p *Processor) Run(ctx context.Context, job queue.CheckPayload) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sub, err := p.results.GetSubmission(ctx, job.SubmissionID)
	if err != nil {
		return nil, err
	}

	if err := p.results.MarkProcessing(ctx, job.SubmissionID); err != nil {
		return nil, err
	}

	data, err := p.store.Download(ctx, job.StorageKey)
	if err != nil {
		return nil, err
	}

	text, err := p.extract(data, job.FileType)
	if err != nil {
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}

	// Sub-threshold text carries no reliable comparison signal; scoring it
	// against the corpus would produce false positives.
	if len(strings.TrimSpace(text)) < p.shortTextThreshold {
		res := &Result{OriginalityScore: 100, MatchedSources: []models.MatchedSource{}}
		if err := p.results.MarkCompleted(ctx, job.SubmissionID, res); err != nil {
			return nil, err
		}
		p.notifyScore(sub, res)
		return res, nil
	}

	// Keep the extracted text so this submission becomes corpus material for
	// future checks.
	if err := p.results.SaveExtractedText(ctx, job.SubmissionID, text); err != nil {
		return nil, err
	}

	corpus, err := p.corpus.Build(ctx, sub.ProjectID, job.SubmissionID)
	if err != nil {
		return nil, fmt.Errorf("corpus build failed: %w", err)
	}

	res, strategy := p.engine.CheckOriginality(ctx, text, corpus)
	if err := p.results.MarkCompleted(ctx, job.SubmissionID, res); err != nil {
		return nil, err
	}

	logger.Info("originality check completed",
		"submission_id", job.SubmissionID,
		"score", res.OriginalityScore,
		"matches", len(res.MatchedSources),
		"corpus_size", len(corpus),
		"strategy", strategy.String(),
	)

	p.notifyScore(sub, res)
	return res, nil
}

// notifyScore informs the author. Delivery runs in its own goroutine with an
// isolated error boundary so it can never affect the persisted result.
func (p *Processor) notifyScore(sub *models.Submission, res *Result) {
	if p.notifier == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("notification panicked", "submission_id", sub.ID, "panic", fmt.Sprint(r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		p.notifier.Notify(ctx, sub.AuthorID, models.NotificationPlagiarismChecked, map[string]interface{}{
			"submission_id":     sub.ID,
			"chapter":           sub.Chapter,
			"originality_score": res.OriginalityScore,
		})
	}()
}
