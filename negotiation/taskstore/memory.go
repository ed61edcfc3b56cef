package taskstore

import (
	"context"
	"sort"
	"sync"

	"github.com/SanteonNL/medex/negotiator/lib/deep"
)

var _ Store = &MemoryStore{}

// MemoryStore is an in-memory Store for single-process deployments and tests.
// Tasks and artifacts are deep-copied on both write and read, so callers never
// alias store state.
type MemoryStore struct {
	mux            sync.RWMutex
	tasks          map[int64]Task
	artifacts      map[int64]Artifact
	nextTaskID     int64
	nextArtifactID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:     map[int64]Task{},
		artifacts: map[int64]Artifact{},
	}
}

func (s *MemoryStore) AllocateTaskID(_ context.Context) (int64, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.nextTaskID++
	return s.nextTaskID, nil
}

func (s *MemoryStore) AllocateArtifactID(_ context.Context) (int64, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.nextArtifactID++
	return s.nextArtifactID, nil
}

func (s *MemoryStore) PutTask(_ context.Context, task Task) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	existing, exists := s.tasks[task.ID]
	if exists {
		if task.Version != existing.Version+1 {
			return ErrConcurrentUpdate
		}
	} else if task.Version != 1 {
		return ErrConcurrentUpdate
	}
	s.tasks[task.ID] = deep.Copy(task)
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id int64) (*Task, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	task, exists := s.tasks[id]
	if !exists {
		return nil, ErrTaskNotFound
	}
	result := deep.Copy(task)
	return &result, nil
}

func (s *MemoryStore) PutArtifact(_ context.Context, artifact Artifact) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, exists := s.artifacts[artifact.ID]; exists {
		return ErrConcurrentUpdate
	}
	s.artifacts[artifact.ID] = deep.Copy(artifact)
	return nil
}

func (s *MemoryStore) GetArtifact(_ context.Context, id int64) (*Artifact, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	artifact, exists := s.artifacts[id]
	if !exists {
		return nil, ErrArtifactNotFound
	}
	result := deep.Copy(artifact)
	return &result, nil
}

func (s *MemoryStore) ListTasks(_ context.Context, filter TaskFilter) ([]Task, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var result []Task
	for _, task := range s.tasks {
		if filter.Matches(task) {
			result = append(result, deep.Copy(task))
		}
	}
	sortTasksNewestFirst(result)
	return result, nil
}

func sortTasksNewestFirst(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
}
