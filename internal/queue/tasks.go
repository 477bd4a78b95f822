package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/logger"
)

const (
	// TaskPlagiarismCheck is the task type for one originality check.
	TaskPlagiarismCheck = "plagiarism:check"

	dedupPrefix = "plag-"
)

// ErrBrokerUnavailable reports that the message broker cannot accept work.
// It is a routing signal for the synchronous fallback, not a failure of the
// check itself.
var ErrBrokerUnavailable = errors.New("job broker unavailable")

// CheckPayload is the transient job message for one originality check.
type CheckPayload struct {
	SubmissionID string `json:"submission_id"`
	StorageKey   string `json:"storage_key"`
	FileType     string `json:"file_type"`
	ProjectID    string `json:"project_id"`
	Chapter      string `json:"chapter"`
}

// DedupKey is the deterministic job ID guaranteeing at most one in-flight
// check per submission.
func (p CheckPayload) DedupKey() string {
	return dedupPrefix + p.SubmissionID
}

// Manager owns the asynq client used to schedule checks. It is constructed
// once at startup and injected into the upload handler; Close releases the
// underlying connection.
type Manager struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	maxRetry  int
	retention time.Duration
}

func NewManager(cfg *config.Config) *Manager {
	redisOpt := config.AsynqRedisOpt(cfg)
	return &Manager{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		queue:     cfg.CheckQueue,
		maxRetry:  cfg.CheckMaxRetry,
		// Completed task records stick around for operational inspection
		// until the maintenance pruner trims them to the configured counts.
		retention: 24 * time.Hour,
	}
}

// Enqueue submits a check job keyed by its dedup key. A second enqueue for
// the same submission collapses onto the already-scheduled job and returns
// its ID. A broker outage yields ErrBrokerUnavailable so the caller can take
// the synchronous fallback path.
func (m *Manager) Enqueue(ctx context.Context, payload CheckPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal check payload: %w", err)
	}

	task := asynq.NewTask(TaskPlagiarismCheck, body)
	info, err := m.client.EnqueueContext(ctx, task,
		asynq.TaskID(payload.DedupKey()),
		asynq.Queue(m.queue),
		asynq.MaxRetry(m.maxRetry),
		asynq.Retention(m.retention),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// Same submission already has a non-terminal job; collapse.
			logger.Debug("duplicate check collapsed onto in-flight job",
				"submission_id", payload.SubmissionID)
			return payload.DedupKey(), nil
		}
		logger.Warn("broker enqueue failed, reporting unavailable",
			"submission_id", payload.SubmissionID, "error", err.Error())
		return "", ErrBrokerUnavailable
	}
	return info.ID, nil
}

// Inspector exposes the queue introspection handle used by the maintenance
// pruner.
func (m *Manager) Inspector() *asynq.Inspector {
	return m.inspector
}

// Queue returns the queue name checks are scheduled on.
func (m *Manager) Queue() string {
	return m.queue
}

func (m *Manager) Close() error {
	return m.client.Close()
}

// RetryDelay implements the check retry envelope: 5s, 10s, 20s between the
// three delivery attempts.
func RetryDelay(base time.Duration) asynq.RetryDelayFunc {
	if base <= 0 {
		base = 5 * time.Second
	}
	return func(n int, err error, task *asynq.Task) time.Duration {
		// n counts delivery attempts so far: 5s after the first, then 10s,
		// then 20s.
		d := base
		for i := 1; i < n; i++ {
			d *= 2
		}
		return d
	}
}
