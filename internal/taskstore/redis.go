package taskstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stemstage/api/internal/model"
)

const (
	taskKeyPrefix = "task:"
	taskIndexKey  = "tasks"
	taskTTL       = 24 * time.Hour
)

// RedisStore keeps task records as JSON values in Redis with a retention TTL.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, task *model.Task) error {
	if err := s.save(ctx, task); err != nil {
		return err
	}
	return s.client.SAdd(ctx, taskIndexKey, task.ID).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Task, error) {
	data, err := s.client.Get(ctx, taskKeyPrefix+id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task %s: %w", id, err)
	}
	return &task, nil
}

func (s *RedisStore) UpdateProgress(ctx context.Context, id string, progress float64, message string) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !applyProgress(task, progress, message) {
		return nil
	}
	if task.StartedAt == nil {
		now := time.Now()
		task.StartedAt = &now
	}
	return s.save(ctx, task)
}

func (s *RedisStore) Complete(ctx context.Context, id string, message string, result map[string]interface{}) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
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
	return s.save(ctx, task)
}

func (s *RedisStore) Fail(ctx context.Context, id string, message string) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.Status.IsTerminal() {
		return nil
	}

	task.Status = model.TaskStatusFailed
	task.Message = message
	now := time.Now()
	task.CompletedAt = &now
	return s.save(ctx, task)
}

func (s *RedisStore) List(ctx context.Context) ([]*model.Task, error) {
	ids, err := s.client.SMembers(ctx, taskIndexKey).Result()
	if err != nil {
		return nil, err
	}

	tasks := make([]*model.Task, 0, len(ids))
	for _, id := range ids {
		task, err := s.Get(ctx, id)
		if err != nil {
			if err == ErrNotFound {
				// Record expired; drop the stale index entry.
				s.client.SRem(ctx, taskIndexKey, id)
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	ids, err := s.client.SMembers(ctx, taskIndexKey).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.client.Del(ctx, taskKeyPrefix+id).Err(); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, taskIndexKey).Err()
}

func (s *RedisStore) save(ctx context.Context, task *model.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, taskKeyPrefix+task.ID, data, taskTTL).Err()
}
