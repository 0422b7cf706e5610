// Package remotetest provides an in-memory stand-in for the remote task API.
package remotetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/gorilla/mux"
)

// Token is the bearer credential the fake server accepts
const Token = "test-token"

// Server is a fake remote API backed by maps
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	tasks      map[int64]models.Task
	tags       map[int64]models.Tag
	nextTask   int64
	nextTag    int64
	calls      map[string]int
	failures   map[string]int
	now        func() time.Time
	onDoneHook func(task models.Task) []models.Task
}

// NewServer starts a fake API. Call Close when done.
func NewServer() *Server {
	s := &Server{
		tasks:    make(map[int64]models.Task),
		tags:     make(map[int64]models.Tag),
		nextTask: 1,
		nextTag:  1,
		calls:    make(map[string]int),
		failures: make(map[string]int),
		now:      func() time.Time { return time.Now().UTC() },
	}

	r := mux.NewRouter()
	r.Use(s.authenticate)
	r.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet).Name("list_tasks")
	r.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost).Name("create_task")
	r.HandleFunc("/tasks", s.updateTask).Methods(http.MethodPut).Name("update_task")
	r.HandleFunc("/tasks/{id:[0-9]+}", s.deleteTask).Methods(http.MethodDelete).Name("delete_task")
	r.HandleFunc("/tasks/{id:[0-9]+}/done", s.markDone).Methods(http.MethodPost).Name("mark_done")
	r.HandleFunc("/tasks/{id:[0-9]+}/undone", s.markUndone).Methods(http.MethodPost).Name("mark_undone")
	r.HandleFunc("/tags", s.listTags).Methods(http.MethodGet).Name("list_tags")
	r.HandleFunc("/tags", s.createTag).Methods(http.MethodPost).Name("create_tag")
	r.HandleFunc("/tags", s.updateTag).Methods(http.MethodPut).Name("update_tag")
	r.HandleFunc("/tags/{id:[0-9]+}", s.deleteTag).Methods(http.MethodDelete).Name("delete_tag")

	s.Server = httptest.NewServer(r)
	return s
}

// SeedTask stores a task as-is, keeping its id
func (s *Server) SeedTask(task models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
	if task.ID >= s.nextTask {
		s.nextTask = task.ID + 1
	}
}

// SeedTag stores a tag as-is, keeping its id
func (s *Server) SeedTag(tag models.Tag) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[tag.ID] = tag
	if tag.ID >= s.nextTag {
		s.nextTag = tag.ID + 1
	}
}

// FailNext makes the next n calls to the named route answer 500
func (s *Server) FailNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] += n
}

// OnDone lets a test add follow-up tasks when a task is marked done,
// e.g. the next occurrence of a repeating task
func (s *Server) OnDone(hook func(task models.Task) []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDoneHook = hook
}

// Calls returns how often the named route was hit
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Task returns the server-side copy of a task
func (s *Server) Task(id int64) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t.Clone(), ok
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := ""
		if current := mux.CurrentRoute(r); current != nil {
			route = current.GetName()
		}

		s.mu.Lock()
		s.calls[route]++
		fail := s.failures[route] > 0
		if fail {
			s.failures[route]--
		}
		s.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+Token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if fail {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listTasks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	tasks := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t.Clone())
	}
	s.mu.Unlock()
	writeJSON(w, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var draft models.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	id := s.nextTask
	s.nextTask++
	task := draft.Task(id, s.tagsFor(draft.TagIDs))
	task.CreatedAt = models.NewTimestamp(s.now())
	task.UpdatedAt = task.CreatedAt
	s.tasks[id] = task
	s.mu.Unlock()

	writeJSON(w, id)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var update models.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tasks[update.ID]
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	task := update.Task(update.ID, s.tagsFor(update.TagIDs))
	task.CompletionDate = current.CompletionDate
	task.CreatedAt = current.CreatedAt
	task.UpdatedAt = models.NewTimestamp(s.now())
	s.tasks[update.ID] = task
	writeJSON(w, true)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	delete(s.tasks, id)
	writeJSON(w, true)
}

func (s *Server) markDone(w http.ResponseWriter, r *http.Request) {
	s.setCompletion(w, pathID(r), true)
}

func (s *Server) markUndone(w http.ResponseWriter, r *http.Request) {
	s.setCompletion(w, pathID(r), false)
}

func (s *Server) setCompletion(w http.ResponseWriter, id int64, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if done {
		task.CompletionDate = models.NewTimestamp(s.now())
	} else {
		task.CompletionDate = models.Timestamp{}
	}
	task.UpdatedAt = models.NewTimestamp(s.now())
	s.tasks[id] = task

	if done && s.onDoneHook != nil {
		for _, extra := range s.onDoneHook(task.Clone()) {
			if extra.ID == 0 {
				extra.ID = s.nextTask
			}
			if extra.ID >= s.nextTask {
				s.nextTask = extra.ID + 1
			}
			s.tasks[extra.ID] = extra
		}
	}
	writeJSON(w, true)
}

func (s *Server) listTags(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	tags := make([]models.Tag, 0, len(s.tags))
	for _, t := range s.tags {
		tags = append(tags, t)
	}
	s.mu.Unlock()
	writeJSON(w, tags)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var draft models.TagDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	id := s.nextTag
	s.nextTag++
	s.tags[id] = models.Tag{ID: id, Name: draft.Name, BgColor: draft.BgColor, TextColor: draft.TextColor}
	s.mu.Unlock()
	writeJSON(w, true)
}

func (s *Server) updateTag(w http.ResponseWriter, r *http.Request) {
	var update models.TagUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tags[update.ID]; !ok {
		http.Error(w, "tag not found", http.StatusNotFound)
		return
	}
	s.tags[update.ID] = models.Tag{ID: update.ID, Name: update.Name, BgColor: update.BgColor, TextColor: update.TextColor}
	writeJSON(w, true)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tags[id]; !ok {
		http.Error(w, "tag not found", http.StatusNotFound)
		return
	}
	delete(s.tags, id)
	writeJSON(w, true)
}

// tagsFor must be called with s.mu held
func (s *Server) tagsFor(ids []int64) []models.Tag {
	tags := make([]models.Tag, 0, len(ids))
	for _, id := range ids {
		if tag, ok := s.tags[id]; ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(strings.TrimSpace(mux.Vars(r)["id"]), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
