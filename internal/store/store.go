// Package store holds the locally loaded tasks and tags.
//
// A Store is owned by one syncer.Controller, which is the only caller of the
// mutation primitives. Everything else reads immutable snapshots.
package store

import (
	"slices"
	"sync"

	"github.com/benvon/smart-todo-sync/internal/models"
)

// TaskPatch is a shallow partial update keyed by ID. nil fields are left as is;
// a non-nil pointer to a zero Timestamp clears that date.
type TaskPatch struct {
	ID             int64
	Title          *string
	Description    *string
	StartDate      *models.Timestamp
	EndDate        *models.Timestamp
	Priority       *models.Priority
	Tags           *[]models.Tag
	CompletionDate *models.Timestamp
	Repeat         *string
	RepeatType     *models.RepeatType
}

// Snapshot is a point-in-time copy of the store
type Snapshot struct {
	Tasks         []models.Task
	Tags          []models.Tag
	LoadingAll    bool
	LoadingChange bool
}

// Task returns the task with the given id from the snapshot
func (s Snapshot) Task(id int64) (models.Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return models.Task{}, false
}

// Store is the in-memory task and tag collection
type Store struct {
	mu    sync.RWMutex
	tasks []models.Task
	tags  []models.Tag

	// counters rather than flags so overlapping actions do not clear each other
	loadingAll    int
	loadingChange int
}

// New creates an empty store
func New() *Store {
	return &Store{
		tasks: []models.Task{},
		tags:  []models.Tag{},
	}
}

// ReplaceAll swaps in a full task list, sorted by id ascending
func (s *Store) ReplaceAll(tasks []models.Task) {
	sorted := make([]models.Task, len(tasks))
	for i, t := range tasks {
		sorted[i] = t.Clone()
	}
	slices.SortStableFunc(sorted, func(a, b models.Task) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = sorted
}

// Insert appends a newly created task. Order is restored by the next ReplaceAll.
func (s *Store) Insert(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task.Clone())
}

// Patch merges the set fields of p into the task with p.ID.
// It reports whether a task was found; a miss is not an error.
func (s *Store) Patch(p TaskPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(p.ID)
	if i < 0 {
		return false
	}
	s.tasks[i] = applyPatch(s.tasks[i], p)
	return true
}

// Evict removes the task with the given id if present
func (s *Store) Evict(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	return true
}

// ReplaceTags swaps in a full tag list
func (s *Store) ReplaceTags(tags []models.Tag) {
	cp := make([]models.Tag, len(tags))
	copy(cp, tags)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = cp
}

// Task returns a copy of the task with the given id
func (s *Store) Task(id int64) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.Task{}, false
	}
	return s.tasks[i].Clone(), true
}

// ResolveTags maps tag ids to the loaded tags. Ids that are not loaded resolve
// to models.FallbackTag. The result is unique by tag id and never nil.
func (s *Store) ResolveTags(ids []int64) []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return resolveTags(s.tags, ids)
}

func resolveTags(loaded []models.Tag, ids []int64) []models.Tag {
	resolved := make([]models.Tag, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		tag := models.FallbackTag()
		for _, candidate := range loaded {
			if candidate.ID == id {
				tag = candidate
				break
			}
		}
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		resolved = append(resolved, tag)
	}
	return resolved
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		tasks[i] = t.Clone()
	}
	tags := make([]models.Tag, len(s.tags))
	copy(tags, s.tags)

	return Snapshot{
		Tasks:         tasks,
		Tags:          tags,
		LoadingAll:    s.loadingAll > 0,
		LoadingChange: s.loadingChange > 0,
	}
}

// LoadingAll reports whether a bulk refresh is in flight
func (s *Store) LoadingAll() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingAll > 0
}

// LoadingChange reports whether a single-task mutation is in flight
func (s *Store) LoadingChange() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingChange > 0
}

// BeginLoadingAll raises the loadingAll flag until the returned func is called
func (s *Store) BeginLoadingAll() (done func()) {
	return s.begin(&s.loadingAll)
}

// BeginLoadingChange raises the loadingChange flag until the returned func is called
func (s *Store) BeginLoadingChange() (done func()) {
	return s.begin(&s.loadingChange)
}

func (s *Store) begin(counter *int) func() {
	s.mu.Lock()
	*counter++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			*counter--
			s.mu.Unlock()
		})
	}
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.tasks, func(t models.Task) bool { return t.ID == id })
}

func applyPatch(t models.Task, p TaskPatch) models.Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Tags != nil {
		tags := make([]models.Tag, len(*p.Tags))
		copy(tags, *p.Tags)
		t.Tags = tags
	}
	if p.CompletionDate != nil {
		t.CompletionDate = *p.CompletionDate
	}
	if p.Repeat != nil {
		t.Repeat = *p.Repeat
	}
	if p.RepeatType != nil {
		t.RepeatType = *p.RepeatType
	}
	return t
}
