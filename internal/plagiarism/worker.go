package plagiarism

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/logger"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/queue"
)

// Worker is the asynq task handler for originality checks. The server caps
// concurrency; the limiter additionally bounds executions to the configured
// number per rolling minute so the document store and extraction step are
// never hammered by a backlog flush.
type Worker struct {
	processor *Processor
	results   ResultStore
	limiter   *rate.Limiter
}

func NewWorker(processor *Processor, results ResultStore, ratePerMinute int) *Worker {
	if ratePerMinute <= 0 {
		ratePerMinute = 10
	}
	return &Worker{
		processor: processor,
		results:   results,
		limiter:   rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute),
	}
}

// HandleCheck processes one delivery. Intermediate attempt failures return
// the error so asynq's retry envelope re-attempts; only the final attempt
// commits the terminal failed state.
func (w *Worker) HandleCheck(ctx context.Context, t *asynq.Task) error {
	var payload queue.CheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	res, err := w.processor.Run(ctx, payload)
	if err != nil {
		if errors.Is(err, ErrAlreadyTerminal) {
			// A redelivery of a check that already reached a terminal state;
			// nothing left to do.
			logger.Debug("check redelivery ignored, result terminal", "submission_id", payload.SubmissionID)
			return nil
		}

		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry {
			logger.Error("check retries exhausted",
				"submission_id", payload.SubmissionID, "attempts", retried+1, "error", err.Error())
			w.commitFailed(payload.SubmissionID, err.Error())
		} else {
			logger.Warn("check attempt failed, will retry",
				"submission_id", payload.SubmissionID, "attempt", retried+1, "error", err.Error())
		}
		return err
	}

	logger.Info("check task completed",
		"submission_id", payload.SubmissionID, "score", res.OriginalityScore)
	return nil
}

func (w *Worker) commitFailed(submissionID, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := w.results.MarkFailed(ctx, submissionID, msg); err != nil && !errors.Is(err, ErrAlreadyTerminal) {
		logger.Error("failed to persist terminal state", "submission_id", submissionID, "error", err.Error())
	}
}
