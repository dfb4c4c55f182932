package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/taskstore"
)

func TestDecodeEnvelope(t *testing.T) {
	body, _ := json.Marshal(map[string]interface{}{
		"taskId":  "t1",
		"payload": model.DownloadPayload{URL: "https://example.com/v"},
	})
	task := asynq.NewTask(model.TaskTypeDownload, body)

	var payload model.DownloadPayload
	taskID, err := decode(task, &payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if taskID != "t1" {
		t.Errorf("task id = %q, want t1", taskID)
	}
	if payload.URL != "https://example.com/v" {
		t.Errorf("payload url = %q", payload.URL)
	}
}

func TestDecodeBadEnvelope(t *testing.T) {
	task := asynq.NewTask(model.TaskTypeDownload, []byte("not json"))
	var payload model.DownloadPayload
	if _, err := decode(task, &payload); err == nil {
		t.Fatal("expected envelope error")
	}
}

func TestReporterFollowsStoreRules(t *testing.T) {
	store := taskstore.NewMemoryStore()
	ctx := context.Background()
	store.Create(ctx, &model.Task{
		ID:        "t1",
		Type:      model.TaskTypeMerge,
		Status:    model.TaskStatusPending,
		CreatedAt: time.Now(),
	})

	r := &reporter{store: store, taskID: "t1"}

	r.Progress(ctx, 0.5, "Interleaving stems...")
	task, _ := store.Get(ctx, "t1")
	if task.Progress != 0.5 || task.Status != model.TaskStatusInProgress {
		t.Fatalf("after progress: %s/%v", task.Status, task.Progress)
	}

	r.Complete(ctx, "Stems assembled.", map[string]interface{}{"path": "/x"})
	task, _ = store.Get(ctx, "t1")
	if task.Status != model.TaskStatusCompleted || task.Progress != 1.0 {
		t.Fatalf("after complete: %s/%v", task.Status, task.Progress)
	}

	// A late failure from a racing retry must not flip the terminal record.
	r.Fail(ctx, "late failure")
	task, _ = store.Get(ctx, "t1")
	if task.Status != model.TaskStatusCompleted {
		t.Errorf("terminal record flipped to %s", task.Status)
	}
}
