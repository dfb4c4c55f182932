// Package worker holds the asynq task processors. Each processor owns its
// task record: it is the only writer of that entry, reporting progress
// through the store (and mirroring it to push subscribers) until a terminal
// state.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/taskstore"
	ws "github.com/stemstage/api/internal/websocket"
)

type envelope struct {
	TaskID  string          `json:"taskId"`
	Payload json.RawMessage `json:"payload"`
}

func decode(t *asynq.Task, payload interface{}) (string, error) {
	var env envelope
	if err := json.Unmarshal(t.Payload(), &env); err != nil {
		return "", fmt.Errorf("failed to unmarshal task envelope: %w", err)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return env.TaskID, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	return env.TaskID, nil
}

// reporter funnels one task's state changes through the store and the push
// hub. The store enforces monotonic progress and terminal-state protection;
// publishing happens only after the store accepted the write, so push
// subscribers see the same ordering pollers do.
type reporter struct {
	store  taskstore.Store
	hub    *ws.Hub
	taskID string
}

func (r *reporter) Progress(ctx context.Context, frac float64, message string) {
	if err := r.store.UpdateProgress(ctx, r.taskID, frac, message); err != nil {
		log.Printf("Failed to update progress for task %s: %v", r.taskID, err)
		return
	}
	if r.hub != nil {
		r.hub.PublishTaskProgress(r.taskID, string(model.TaskStatusInProgress), frac, message)
	}
}

func (r *reporter) Complete(ctx context.Context, message string, result map[string]interface{}) {
	if err := r.store.Complete(ctx, r.taskID, message, result); err != nil {
		log.Printf("Failed to complete task %s: %v", r.taskID, err)
		return
	}
	if r.hub != nil {
		r.hub.PublishTaskProgress(r.taskID, string(model.TaskStatusCompleted), 1.0, message)
	}
}

func (r *reporter) Fail(ctx context.Context, message string) {
	if err := r.store.Fail(ctx, r.taskID, message); err != nil {
		log.Printf("Failed to fail task %s: %v", r.taskID, err)
		return
	}
	if r.hub != nil {
		r.hub.PublishTaskProgress(r.taskID, string(model.TaskStatusFailed), 0, message)
	}
}
