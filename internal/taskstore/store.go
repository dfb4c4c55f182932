// Package taskstore holds background task records. The store is the single
// writer-checked home of task state: progress updates are clamped to be
// non-decreasing and terminal records are never overwritten.
package taskstore

import (
	"context"
	"errors"

	"github.com/stemstage/api/internal/model"
)

// ErrNotFound is returned when no task exists for the given id.
var ErrNotFound = errors.New("task not found")

// Store is the task table abstraction. One record per submission; only the
// task's own execution path writes its entry, any caller may read.
type Store interface {
	// Create inserts a fresh task record.
	Create(ctx context.Context, task *model.Task) error
	// Get returns the task record or ErrNotFound.
	Get(ctx context.Context, id string) (*model.Task, error)
	// UpdateProgress moves a task forward. It promotes pending tasks to
	// in_progress, ignores regressions below the stored progress and is a
	// no-op on terminal records.
	UpdateProgress(ctx context.Context, id string, progress float64, message string) error
	// Complete marks the task completed with progress 1.0. No-op if the task
	// is already terminal.
	Complete(ctx context.Context, id string, message string, result map[string]interface{}) error
	// Fail marks the task failed. No-op if the task is already terminal.
	Fail(ctx context.Context, id string, message string) error
	// List returns all known task records.
	List(ctx context.Context) ([]*model.Task, error)
	// Clear drops every task record.
	Clear(ctx context.Context) error
}

// applyProgress mutates a task record in place following the store rules.
// Returns false when the record must not be written back.
func applyProgress(task *model.Task, progress float64, message string) bool {
	if task.Status.IsTerminal() {
		return false
	}
	if progress > 1 {
		progress = 1
	}
	if progress > task.Progress {
		task.Progress = progress
	}
	if message != "" {
		task.Message = message
	}
	if task.Status == model.TaskStatusPending {
		task.Status = model.TaskStatusInProgress
	}
	return true
}
