package services

import (
	"context"
	"sort"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/logger"
	"github.com/Patrickjoshanedez/CMS-V2-sub000/models"
)

// MaintenanceService runs the periodic housekeeping the queue needs: job
// records are retained only up to the configured caps (completed and failed
// separately), and checks stuck in processing past a cutoff are closed out.
// The persisted plagiarism results on submissions are permanent audit
// artifacts and are never touched here.
type MaintenanceService struct {
	inspector   *asynq.Inspector
	submissions *mongo.Collection
	cfg         *config.Config
	stopChan    chan struct{}
}

func NewMaintenanceService(inspector *asynq.Inspector, db *mongo.Database, cfg *config.Config) *MaintenanceService {
	return &MaintenanceService{
		inspector:   inspector,
		submissions: db.Collection("submissions"),
		cfg:         cfg,
		stopChan:    make(chan struct{}),
	}
}

func (m *MaintenanceService) Start() {
	ticker := time.NewTicker(m.cfg.MaintenanceInterval)
	defer ticker.Stop()

	logger.Info("maintenance service started", "interval", m.cfg.MaintenanceInterval.String())

	for {
		select {
		case <-ticker.C:
			m.runOnce()
		case <-m.stopChan:
			logger.Info("maintenance service stopped")
			return
		}
	}
}

func (m *MaintenanceService) Stop() {
	close(m.stopChan)
}

func (m *MaintenanceService) runOnce() {
	m.pruneCompleted()
	m.pruneFailed()
	m.sweepStaleProcessing()
}

// pruneCompleted keeps the newest RetainCompletedJobs completed task records.
func (m *MaintenanceService) pruneCompleted() {
	tasks := m.listAll(m.inspector.ListCompletedTasks)
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CompletedAt.After(tasks[j].CompletedAt)
	})
	m.deleteBeyond(tasks, m.cfg.RetainCompletedJobs, "completed")
}

// pruneFailed keeps the newest RetainFailedJobs archived task records.
// asynq moves a task to the archive once its retries are exhausted.
func (m *MaintenanceService) pruneFailed() {
	tasks := m.listAll(m.inspector.ListArchivedTasks)
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].LastFailedAt.After(tasks[j].LastFailedAt)
	})
	m.deleteBeyond(tasks, m.cfg.RetainFailedJobs, "failed")
}

func (m *MaintenanceService) listAll(list func(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error)) []*asynq.TaskInfo {
	var all []*asynq.TaskInfo
	for page := 1; ; page++ {
		batch, err := list(m.cfg.CheckQueue, asynq.PageSize(500), asynq.Page(page))
		if err != nil {
			logger.Warn("queue listing failed during retention prune", "error", err.Error())
			return all
		}
		all = append(all, batch...)
		if len(batch) < 500 {
			return all
		}
	}
}

func (m *MaintenanceService) deleteBeyond(tasks []*asynq.TaskInfo, keep int, kind string) {
	if len(tasks) <= keep {
		return
	}
	pruned := 0
	for _, task := range tasks[keep:] {
		if err := m.inspector.DeleteTask(m.cfg.CheckQueue, task.ID); err != nil {
			logger.Warn("failed to prune job record", "task_id", task.ID, "error", err.Error())
			continue
		}
		pruned++
	}
	logger.Info("pruned job records", "kind", kind, "kept", keep, "pruned", pruned)
}

// sweepStaleProcessing closes out checks whose worker disappeared mid-run.
// Without this, a crashed worker after the final retry would leave the
// result in processing forever.
func (m *MaintenanceService) sweepStaleProcessing() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-m.cfg.StaleProcessingAge)
	result, err := m.submissions.UpdateMany(ctx,
		bson.M{
			"plagiarism.status": models.CheckStatusProcessing,
			"updated_at":        bson.M{"$lt": cutoff},
		},
		bson.M{"$set": bson.M{
			"plagiarism.status": models.CheckStatusFailed,
			"plagiarism.error":  "check abandoned: worker lost",
			"updated_at":        time.Now(),
		}},
	)
	if err != nil {
		logger.Warn("stale processing sweep failed", "error", err.Error())
		return
	}
	if result.ModifiedCount > 0 {
		logger.Warn("closed out stale processing checks", "count", result.ModifiedCount)
	}
}
