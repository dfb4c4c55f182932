package taskstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stemstage/api/internal/model"
)

func newTask(id string) *model.Task {
	return &model.Task{
		ID:        id,
		Type:      model.TaskTypeDownload,
		Status:    model.TaskStatusPending,
		CreatedAt: time.Now(),
	}
}

func TestCreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, newTask("t1")); err != nil {
		t.Fatalf("Create: %v", err)
	}

	task, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if task.Status != model.TaskStatusPending || task.Progress != 0 {
		t.Errorf("fresh task = %s/%v, want pending/0", task.Status, task.Progress)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Create(ctx, newTask("t1"))

	if err := store.UpdateProgress(ctx, "t1", 0.6, "Separating..."); err != nil {
		t.Fatal(err)
	}
	// A late or duplicate update must not move the task backwards.
	if err := store.UpdateProgress(ctx, "t1", 0.3, "stale update"); err != nil {
		t.Fatal(err)
	}

	task, _ := store.Get(ctx, "t1")
	if task.Progress != 0.6 {
		t.Errorf("progress = %v, want 0.6 after regression attempt", task.Progress)
	}
	if task.Status != model.TaskStatusInProgress {
		t.Errorf("status = %s, want in_progress", task.Status)
	}
	if task.Message != "stale update" {
		t.Errorf("message = %q; messages update even when progress does not", task.Message)
	}
}

func TestProgressClampsToOne(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Create(ctx, newTask("t1"))

	store.UpdateProgress(ctx, "t1", 1.7, "overshoot")
	task, _ := store.Get(ctx, "t1")
	if task.Progress != 1.0 {
		t.Errorf("progress = %v, want clamped 1.0", task.Progress)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Create(ctx, newTask("done"))
	store.Complete(ctx, "done", "Finished.", map[string]interface{}{"path": "/x"})
	store.Create(ctx, newTask("dead"))
	store.Fail(ctx, "dead", "Download failed: boom")

	// No write may touch a terminal record.
	store.UpdateProgress(ctx, "done", 0.5, "ghost update")
	store.Fail(ctx, "done", "late failure")
	store.UpdateProgress(ctx, "dead", 0.9, "ghost update")
	store.Complete(ctx, "dead", "late success", nil)

	done, _ := store.Get(ctx, "done")
	if done.Status != model.TaskStatusCompleted || done.Progress != 1.0 || done.Message != "Finished." {
		t.Errorf("completed task mutated: %+v", done)
	}
	if done.Result["path"] != "/x" {
		t.Errorf("result lost: %+v", done.Result)
	}

	dead, _ := store.Get(ctx, "dead")
	if dead.Status != model.TaskStatusFailed || dead.Message != "Download failed: boom" {
		t.Errorf("failed task mutated: %+v", dead)
	}
}

func TestGetReturnsClone(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Create(ctx, newTask("t1"))

	task, _ := store.Get(ctx, "t1")
	task.Progress = 0.99

	fresh, _ := store.Get(ctx, "t1")
	if fresh.Progress != 0 {
		t.Error("mutating a returned record leaked into the store")
	}
}

func TestListAndClear(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Create(ctx, newTask("a"))
	store.Create(ctx, newTask("b"))

	tasks, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("List = %d tasks, want 2", len(tasks))
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	tasks, _ = store.List(ctx)
	if len(tasks) != 0 {
		t.Fatalf("List after Clear = %d tasks, want 0", len(tasks))
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Clear = %v, want ErrNotFound", err)
	}
}

func TestUpdateProgressUnknownTask(t *testing.T) {
	store := NewMemoryStore()
	if err := store.UpdateProgress(context.Background(), "nope", 0.5, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
