package taskstore

import (
	"context"
	"sync"
	"time"

	"github.com/stemstage/api/internal/model"
)

// MemoryStore keeps task records in process memory. State lives exactly as
// long as the process, which matches the task table's intended lifetime;
// it is also what the handler tests run against.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*model.Task)}
}

func (s *MemoryStore) Create(ctx context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *task
	return &clone, nil
}

func (s *MemoryStore) UpdateProgress(ctx context.Context, id string, progress float64, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if !applyProgress(task, progress, message) {
		return nil
	}
	if task.StartedAt == nil {
		now := time.Now()
		task.StartedAt = &now
	}
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, id string, message string, result map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if task.Status.IsTerminal() {
		return nil
	}

	task.Status = model.TaskStatusCompleted
	task.Progress = 1.0
	task.Message = message
	task.Result = result
	now := time.Now()
	task.CompletedAt = &now
	return nil
}

func (s *MemoryStore) Fail(ctx context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return ErrNotFound
	}
	if task.Status.IsTerminal() {
		return nil
	}

	task.Status = model.TaskStatusFailed
	task.Message = message
	now := time.Now()
	task.CompletedAt = &now
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]*model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		clone := *task
		tasks = append(tasks, &clone)
	}
	return tasks, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*model.Task)
	return nil
}
