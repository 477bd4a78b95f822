package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/logger"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/queue"
)

// SyncRunner executes checks inline when the broker is unavailable. No
// retries: any failure is committed as terminal failed immediately. This
// path trades the worker pool's resource limits for availability in
// broker-less deployments.
type SyncRunner struct {
	processor *Processor
	results   ResultStore
}

func NewSyncRunner(processor *Processor, results ResultStore) *SyncRunner {
	return &SyncRunner{processor: processor, results: results}
}

// RunSync executes the shared process routine once. The returned result is
// nil when the check failed; the failure is already persisted and never
// propagated.
func (r *SyncRunner) RunSync(ctx context.Context, job queue.CheckPayload) *Result {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("sync check panicked", "submission_id", job.SubmissionID, "panic", fmt.Sprint(rec))
			r.commitFailed(job.SubmissionID, fmt.Sprintf("check panicked: %v", rec))
		}
	}()

	res, err := r.processor.Run(ctx, job)
	if err != nil {
		if errors.Is(err, ErrAlreadyTerminal) {
			logger.Debug("sync check skipped, result already terminal", "submission_id", job.SubmissionID)
			return nil
		}
		logger.Error("sync check failed", "submission_id", job.SubmissionID, "error", err.Error())
		r.commitFailed(job.SubmissionID, err.Error())
		return nil
	}
	return res
}

// Start runs the check in the background relative to the triggering request,
// which has already received its upload response.
func (r *SyncRunner) Start(job queue.CheckPayload) {
	go r.RunSync(context.Background(), job)
}

func (r *SyncRunner) commitFailed(submissionID, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := r.results.MarkFailed(ctx, submissionID, msg); err != nil && !errors.Is(err, ErrAlreadyTerminal) {
		logger.Error("failed to persist terminal state", "submission_id", submissionID, "error", err.Error())
	}
}
