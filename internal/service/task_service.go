package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/taskstore"
)

// Enqueuer is the slice of *asynq.Client the service needs; narrowed to an
// interface so handler tests can run without Redis.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskService submits background operations and answers progress polls.
// Every submission mints a fresh task id — client-supplied ids are never
// reused as execution keys, so resubmission cannot collide with a running
// task.
type TaskService struct {
	store taskstore.Store
	queue Enqueuer
}

func NewTaskService(store taskstore.Store, queue Enqueuer) *TaskService {
	return &TaskService{store: store, queue: queue}
}

// Store exposes the underlying task store to workers and cleanup.
func (s *TaskService) Store() taskstore.Store {
	return s.store
}

// StartDownload submits a video download.
func (s *TaskService) StartDownload(ctx context.Context, req *model.DownloadRequest) (*model.TaskAccepted, error) {
	return s.submit(ctx, model.TaskTypeDownload, "download", &model.DownloadPayload{URL: req.URL},
		"Download started in the background.")
}

// StartSeparation submits stem separation. The referenced video must exist
// at submission time; that failure is synchronous, not a failed task.
func (s *TaskService) StartSeparation(ctx context.Context, req *model.SeparateRequest) (*model.TaskAccepted, error) {
	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, fmt.Errorf("video file not found: %w", taskstore.ErrNotFound)
	}
	mdl := req.Model
	if mdl == "" {
		mdl = model.ModelSixStem
	}
	return s.submit(ctx, model.TaskTypeSeparate, "separate",
		&model.SeparatePayload{VideoPath: req.VideoPath, Model: mdl},
		fmt.Sprintf("Separation with model '%s' started for %s.", mdl, req.VideoPath))
}

// StartMerge submits stem assembly on a separated directory.
func (s *TaskService) StartMerge(ctx context.Context, req *model.MergeRequest) (*model.TaskAccepted, error) {
	info, err := os.Stat(req.SeparatedDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("separated stems directory not found: %w", taskstore.ErrNotFound)
	}
	return s.submit(ctx, model.TaskTypeMerge, "merge",
		&model.MergePayload{SeparatedDir: req.SeparatedDir},
		"Stem merging started in the background.")
}

// StartExport submits a gain-mixed export.
func (s *TaskService) StartExport(ctx context.Context, req *model.ExportRequest) (*model.TaskAccepted, error) {
	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, fmt.Errorf("original video file not found: %w", taskstore.ErrNotFound)
	}
	if _, err := os.Stat(req.MultichannelPath); err != nil {
		return nil, fmt.Errorf("multichannel WAV file not found: %w", taskstore.ErrNotFound)
	}
	return s.submit(ctx, model.TaskTypeExport, "export",
		&model.ExportPayload{
			VideoPath:        req.VideoPath,
			MultichannelPath: req.MultichannelPath,
			Gains:            req.Gains,
			OutputFilename:   req.OutputFilename,
		},
		"Mix export started in the background.")
}

// GetProgress answers a poll. Unknown ids surface taskstore.ErrNotFound.
func (s *TaskService) GetProgress(ctx context.Context, taskID string) (*model.ProgressResponse, error) {
	task, err := s.store.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return &model.ProgressResponse{
		TaskID:   task.ID,
		Status:   task.Status,
		Progress: task.Progress,
		Message:  task.Message,
		Result:   task.Result,
	}, nil
}

func (s *TaskService) submit(ctx context.Context, taskType, queue string, payload interface{}, message string) (*model.TaskAccepted, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	taskID := uuid.New().String()
	task := &model.Task{
		ID:        taskID,
		Type:      taskType,
		Status:    model.TaskStatusPending,
		Progress:  0,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	envelope, err := json.Marshal(map[string]interface{}{
		"taskId":  taskID,
		"payload": json.RawMessage(payloadBytes),
	})
	if err != nil {
		return nil, err
	}

	_, err = s.queue.Enqueue(asynq.NewTask(taskType, envelope),
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.TaskAccepted{TaskID: taskID, Message: message}, nil
}
