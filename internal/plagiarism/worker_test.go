package plagiarism

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/queue"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

func checkTask(t *testing.T, payload queue.CheckPayload) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return asynq.NewTask(queue.TaskPlagiarismCheck, body)
}

func TestHandleCheckSuccess(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{data: map[string][]byte{sub.StorageKey: []byte(sampleText)}}

	p := NewProcessor(results, store, passthroughExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)
	w := NewWorker(p, results, 600)

	if err := w.HandleCheck(context.Background(), checkTask(t, testPayload(sub))); err != nil {
		t.Fatalf("HandleCheck: %v", err)
	}

	status, score, _ := results.snapshot()
	if status != models.CheckStatusCompleted || score == nil {
		t.Fatalf("status = %s, score = %v, want completed with score", status, score)
	}
}

func TestHandleCheckMalformedPayloadSkipsRetry(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	p := NewProcessor(results, &fakeStore{}, passthroughExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)
	w := NewWorker(p, results, 600)

	err := w.HandleCheck(context.Background(), asynq.NewTask(queue.TaskPlagiarismCheck, []byte("{not json")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v, want SkipRetry", err)
	}
}

func TestHandleCheckTerminalRedeliveryIsNoop(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	results.status = models.CheckStatusCompleted
	store := &fakeStore{data: map[string][]byte{sub.StorageKey: []byte(sampleText)}}

	p := NewProcessor(results, store, passthroughExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)
	w := NewWorker(p, results, 600)

	if err := w.HandleCheck(context.Background(), checkTask(t, testPayload(sub))); err != nil {
		t.Fatalf("redelivery of terminal check returned %v, want nil", err)
	}

	status, _, _ := results.snapshot()
	if status != models.CheckStatusCompleted {
		t.Fatalf("terminal state mutated to %s", status)
	}
}

func TestHandleCheckFailureReturnsError(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{err: errors.New("bucket unreachable")}

	p := NewProcessor(results, store, passthroughExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)
	w := NewWorker(p, results, 600)

	if err := w.HandleCheck(context.Background(), checkTask(t, testPayload(sub))); err == nil {
		t.Fatal("expected error to drive the retry envelope")
	}
}
