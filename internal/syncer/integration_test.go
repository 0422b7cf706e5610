package syncer

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/benvon/smart-todo-sync/internal/cache"
	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/recurrence"
	"github.com/benvon/smart-todo-sync/internal/remote"
	"github.com/benvon/smart-todo-sync/internal/remote/remotetest"
	"github.com/benvon/smart-todo-sync/internal/store"
)

func TestController_AgainstFakeAPI(t *testing.T) {
	t.Parallel()

	srv := remotetest.NewServer()
	defer srv.Close()

	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	srv.SeedTag(models.Tag{ID: 1, Name: "health"})
	srv.SeedTask(models.Task{
		ID:         7,
		Title:      "stretch",
		EndDate:    models.NewTimestamp(end),
		Repeat:     "D3",
		RepeatType: models.RepeatTypeCompletionDate,
	})
	// the server schedules the next occurrence itself when a repeating task is completed
	srv.OnDone(func(done models.Task) []models.Task {
		if !done.Repeats() {
			return nil
		}
		next, ok, err := recurrence.ForTask(done)
		if err != nil || !ok {
			return nil
		}
		follow := done.Clone()
		follow.ID = 0
		follow.CompletionDate = models.Timestamp{}
		follow.EndDate = models.NewTimestamp(next)
		return []models.Task{follow}
	})

	client := remote.New(remote.Options{BaseURL: srv.URL, AuthToken: remotetest.Token})
	st := store.New()
	notifier := &recordingNotifier{}
	c := New(client, st, notifier, nil)
	ctx := context.Background()

	if err := c.RefreshTags(ctx); err != nil {
		t.Fatalf("RefreshTags() error = %v", err)
	}
	if err := c.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}

	created, err := c.Create(ctx, models.Draft{Title: "buy milk", TagIDs: []int64{1}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.Tags[0].Name != "health" {
		t.Errorf("created tags = %+v", created.Tags)
	}

	if err := c.MarkDone(ctx, 7); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}

	snap := st.Snapshot()
	if len(snap.Tasks) != 3 {
		t.Fatalf("tasks = %+v, want original, created and next occurrence", snap.Tasks)
	}
	var next models.Task
	for _, task := range snap.Tasks {
		if task.ID != 7 && task.Title == "stretch" {
			next = task
		}
	}
	if next.IsDone() || !next.EndDate.IsSet() {
		t.Errorf("next occurrence = %+v", next)
	}
	if srv.Calls("list_tasks") != 2 {
		t.Errorf("list_tasks calls = %d, want 2", srv.Calls("list_tasks"))
	}

	if err := c.CreateTag(ctx, models.TagDraft{Name: "errands"}); err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if got := len(st.Snapshot().Tags); got != 2 {
		t.Errorf("tags = %d, want 2", got)
	}
}

// nextOccurrence mirrors the server scheduling the follow-up of a repeating task
func nextOccurrence(done models.Task) []models.Task {
	if !done.Repeats() {
		return nil
	}
	next, ok, err := recurrence.ForTask(done)
	if err != nil || !ok {
		return nil
	}
	follow := done.Clone()
	follow.ID = 0
	follow.CompletionDate = models.Timestamp{}
	follow.EndDate = models.NewTimestamp(next)
	return []models.Task{follow}
}

func TestController_RefreshAfterWriteSkipsOfflineCache(t *testing.T) {
	t.Parallel()

	srv := remotetest.NewServer()
	defer srv.Close()

	srv.SeedTask(models.Task{
		ID:         7,
		Title:      "stretch",
		EndDate:    models.NewTimestamp(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Repeat:     "D3",
		RepeatType: models.RepeatTypeCompletionDate,
	})
	srv.OnDone(nextOccurrence)

	offline := cache.NewTransport(http.DefaultTransport, cache.NewMemoryStore(), nil)
	client := remote.New(remote.Options{BaseURL: srv.URL, AuthToken: remotetest.Token, Transport: offline})
	st := store.New()
	c := New(client, st, nil, nil)
	ctx := context.Background()

	// the first list and tag reads populate the offline copy
	if err := c.RefreshAll(ctx); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	if err := c.RefreshTags(ctx); err != nil {
		t.Fatalf("RefreshTags() error = %v", err)
	}
	offline.Wait()

	if err := c.MarkDone(ctx, 7); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}
	if got, _ := st.Task(7); !got.IsDone() {
		t.Errorf("completion replaced by the stored list: %+v", got)
	}
	if got := len(st.Snapshot().Tasks); got != 2 {
		t.Errorf("tasks = %d, want the task and its next occurrence", got)
	}

	if err := c.CreateTag(ctx, models.TagDraft{Name: "errands"}); err != nil {
		t.Fatalf("CreateTag() error = %v", err)
	}
	if got := len(st.Snapshot().Tags); got != 1 {
		t.Errorf("tags = %d, want the created tag", got)
	}
	offline.Wait()
}
