package plagiarism

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/queue"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

// fakeResultStore records state transitions in memory with the same legal
// prior state guard as the mongo implementation.
type fakeResultStore struct {
	mu  sync.Mutex
	sub *models.Submission

	status    string
	score     *int
	matches   []models.MatchedSource
	errMsg    string
	extracted string
	jobID     string

	getErr error
}

func newFakeResultStore(sub *models.Submission) *fakeResultStore {
	return &fakeResultStore{sub: sub, status: models.CheckStatusQueued}
}

func (f *fakeResultStore) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.sub, nil
}

func (f *fakeResultStore) SetJobID(ctx context.Context, id, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobID = jobID
	return nil
}

func (f *fakeResultStore) MarkProcessing(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != models.CheckStatusQueued && f.status != models.CheckStatusProcessing {
		return ErrAlreadyTerminal
	}
	f.status = models.CheckStatusProcessing
	return nil
}

func (f *fakeResultStore) SaveExtractedText(ctx context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracted = text
	return nil
}

func (f *fakeResultStore) MarkCompleted(ctx context.Context, id string, res *Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != models.CheckStatusQueued && f.status != models.CheckStatusProcessing {
		return ErrAlreadyTerminal
	}
	f.status = models.CheckStatusCompleted
	score := res.OriginalityScore
	f.score = &score
	f.matches = res.MatchedSources
	f.errMsg = ""
	return nil
}

func (f *fakeResultStore) MarkFailed(ctx context.Context, id, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != models.CheckStatusQueued && f.status != models.CheckStatusProcessing {
		return ErrAlreadyTerminal
	}
	f.status = models.CheckStatusFailed
	f.errMsg = msg
	return nil
}

func (f *fakeResultStore) snapshot() (string, *int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.score, f.errMsg
}

type fakeStore struct {
	data map[string][]byte
	err  error
}

func (f *fakeStore) Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	return nil
}

func (f *fakeStore) Download(ctx context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.data[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error { return nil }

type fakeCorpus struct {
	docs []models.CorpusDocument
	err  error
}

func (f *fakeCorpus) Build(ctx context.Context, projectID primitive.ObjectID, submissionID string) ([]models.CorpusDocument, error) {
	return f.docs, f.err
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) Notify(ctx context.Context, userID primitive.ObjectID, notifType string, payload map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifType)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testSubmission() *models.Submission {
	return &models.Submission{
		ID:         "sub-123",
		ProjectID:  primitive.NewObjectID(),
		AuthorID:   primitive.NewObjectID(),
		Chapter:    "3",
		StorageKey: "submissions/p/sub-123.txt",
		FileType:   "text/plain",
	}
}

func testPayload(sub *models.Submission) queue.CheckPayload {
	return queue.CheckPayload{
		SubmissionID: sub.ID,
		StorageKey:   sub.StorageKey,
		FileType:     sub.FileType,
		ProjectID:    sub.ProjectID.Hex(),
		Chapter:      sub.Chapter,
	}
}

func passthroughExtract(data []byte, mimeType string) (string, error) {
	return string(data), nil
}

func TestProcessorRunCompletes(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{data: map[string][]byte{sub.StorageKey: []byte(sampleText)}}
	corpus := &fakeCorpus{docs: []models.CorpusDocument{
		{ID: "sub-other", Title: "Other Project", Text: sampleText},
	}}
	notifier := &fakeNotifier{}

	p := NewProcessor(results, store, passthroughExtract, corpus, NewEngine(3, 5, 10, nil), notifier, 50, time.Minute)

	res, err := p.Run(context.Background(), testPayload(sub))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	status, score, errMsg := results.snapshot()
	if status != models.CheckStatusCompleted {
		t.Fatalf("status = %s, want completed", status)
	}
	if score == nil || *score != res.OriginalityScore {
		t.Fatalf("persisted score %v does not match result %d", score, res.OriginalityScore)
	}
	if errMsg != "" {
		t.Errorf("unexpected error message %q", errMsg)
	}
	if results.extracted != sampleText {
		t.Errorf("extracted text not persisted")
	}

	waitFor(t, func() bool { return notifier.count() == 1 })
}

func TestProcessorRunShortText(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{data: map[string][]byte{sub.StorageKey: []byte("too short")}}
	corpus := &fakeCorpus{err: errors.New("corpus must not be consulted")}
	notifier := &fakeNotifier{}

	p := NewProcessor(results, store, passthroughExtract, corpus, NewEngine(3, 5, 10, nil), notifier, 50, time.Minute)

	res, err := p.Run(context.Background(), testPayload(sub))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OriginalityScore != 100 || len(res.MatchedSources) != 0 {
		t.Fatalf("short text result = %+v, want {100 []}", res)
	}

	status, score, _ := results.snapshot()
	if status != models.CheckStatusCompleted || score == nil || *score != 100 {
		t.Fatalf("short text not persisted as completed 100: status=%s score=%v", status, score)
	}
	if results.extracted != "" {
		t.Errorf("short text should not be persisted as corpus material")
	}

	waitFor(t, func() bool { return notifier.count() == 1 })
}

func TestProcessorRunDownloadFailureLeavesNonTerminal(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{err: errors.New("bucket unreachable")}

	p := NewProcessor(results, store, passthroughExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)

	if _, err := p.Run(context.Background(), testPayload(sub)); err == nil {
		t.Fatal("expected download error")
	}

	// The processor never commits failed itself; that is the caller's call.
	status, _, _ := results.snapshot()
	if status != models.CheckStatusProcessing {
		t.Fatalf("status = %s, want processing", status)
	}
}

func TestProcessorRunExtractionFailure(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{data: map[string][]byte{sub.StorageKey: []byte("raw")}}
	failExtract := func(data []byte, mimeType string) (string, error) {
		return "", errors.New("corrupt document")
	}

	p := NewProcessor(results, store, failExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)

	_, err := p.Run(context.Background(), testPayload(sub))
	if err == nil || !strings.Contains(err.Error(), "text extraction failed") {
		t.Fatalf("err = %v, want wrapped extraction failure", err)
	}
}

func TestProcessorRunAlreadyTerminal(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	results.status = models.CheckStatusCompleted
	store := &fakeStore{data: map[string][]byte{sub.StorageKey: []byte(sampleText)}}

	p := NewProcessor(results, store, passthroughExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)

	_, err := p.Run(context.Background(), testPayload(sub))
	if !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("err = %v, want ErrAlreadyTerminal", err)
	}
}

func TestSyncRunnerCommitsFailure(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{err: errors.New("bucket unreachable")}

	p := NewProcessor(results, store, passthroughExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)
	runner := NewSyncRunner(p, results)

	if res := runner.RunSync(context.Background(), testPayload(sub)); res != nil {
		t.Fatalf("expected nil result on failure, got %+v", res)
	}

	status, _, errMsg := results.snapshot()
	if status != models.CheckStatusFailed {
		t.Fatalf("status = %s, want failed", status)
	}
	if errMsg == "" {
		t.Error("failure message not persisted")
	}
}

func TestSyncRunnerSuccessMatchesWorkerOutcome(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{data: map[string][]byte{sub.StorageKey: []byte(sampleText)}}
	corpus := &fakeCorpus{docs: []models.CorpusDocument{
		{ID: "sub-other", Title: "Other Project", Text: sampleText},
	}}

	p := NewProcessor(results, store, passthroughExtract, corpus, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)
	runner := NewSyncRunner(p, results)

	res := runner.RunSync(context.Background(), testPayload(sub))
	if res == nil {
		t.Fatal("expected result")
	}

	status, score, _ := results.snapshot()
	if status != models.CheckStatusCompleted || score == nil || *score != res.OriginalityScore {
		t.Fatalf("sync outcome diverged: status=%s score=%v res=%d", status, score, res.OriginalityScore)
	}
}

func TestSyncRunnerRecoversPanic(t *testing.T) {
	sub := testSubmission()
	results := newFakeResultStore(sub)
	store := &fakeStore{data: map[string][]byte{sub.StorageKey: []byte(sampleText)}}
	panicExtract := func(data []byte, mimeType string) (string, error) {
		panic("extractor blew up")
	}

	p := NewProcessor(results, store, panicExtract, &fakeCorpus{}, NewEngine(3, 5, 10, nil), nil, 50, time.Minute)
	runner := NewSyncRunner(p, results)

	// Must not propagate the panic.
	if res := runner.RunSync(context.Background(), testPayload(sub)); res != nil {
		t.Fatalf("expected nil result, got %+v", res)
	}

	status, _, errMsg := results.snapshot()
	if status != models.CheckStatusFailed {
		t.Fatalf("status = %s, want failed", status)
	}
	if !strings.Contains(errMsg, "panicked") {
		t.Errorf("error message %q does not record the panic", errMsg)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
