// Package syncer runs task actions against the remote API and folds the
// confirmed results into the local store.
//
// Every action follows the same order: validate, call the remote, apply the
// store primitive only if the call succeeded, then notify. A failed call
// leaves the store untouched.
package syncer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/benvon/smart-todo-sync/internal/apperrors"
	"github.com/benvon/smart-todo-sync/internal/cache"
	"github.com/benvon/smart-todo-sync/internal/logger"
	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/store"
	"github.com/benvon/smart-todo-sync/internal/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/benvon/smart-todo-sync/internal/syncer"

// Remote is the subset of the remote API the controller calls
type Remote interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, draft models.Draft) (int64, error)
	UpdateTask(ctx context.Context, update models.Update) error
	DeleteTask(ctx context.Context, id int64) error
	MarkDone(ctx context.Context, id int64) error
	MarkUndone(ctx context.Context, id int64) error

	ListTags(ctx context.Context) ([]models.Tag, error)
	CreateTag(ctx context.Context, draft models.TagDraft) error
	UpdateTag(ctx context.Context, update models.TagUpdate) error
	DeleteTag(ctx context.Context, id int64) error
}

// Notifier shows a message to the user. Implementations must not fail the caller.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Option configures a Controller
type Option func(*Controller)

// WithClock overrides the time source used for completion dates
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithTracer overrides the tracer used for action spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = tracer
	}
}

// Controller coordinates remote calls and store updates
type Controller struct {
	remote   Remote
	store    *store.Store
	notifier Notifier
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates a controller that owns mutations of st
func New(remote Remote, st *store.Store, notifier Notifier, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		remote:   remote,
		store:    st,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the store the controller writes to
func (c *Controller) Store() *store.Store {
	return c.store
}

// RefreshAll replaces every local task with the remote list
func (c *Controller) RefreshAll(ctx context.Context) (err error) {
	ctx, end := c.startSpan(ctx, "RefreshAll")
	defer func() { end(err) }()

	done := c.store.BeginLoadingAll()
	defer done()

	tasks, err := c.remote.ListTasks(ctx)
	if err != nil {
		c.logger.Error("tasks_refresh_failed", zap.Error(err))
		return fmt.Errorf("failed to refresh tasks: %w", err)
	}

	c.store.ReplaceAll(tasks)
	c.logger.Debug("tasks_refreshed", zap.Int("count", len(tasks)))
	return nil
}

// Create adds a task remotely and inserts it locally with the assigned id
func (c *Controller) Create(ctx context.Context, draft models.Draft) (task models.Task, err error) {
	ctx, end := c.startSpan(ctx, "Create")
	defer func() { end(err) }()

	if err := validation.ValidateDraft(draft); err != nil {
		return models.Task{}, err
	}

	done := c.store.BeginLoadingChange()
	defer done()

	id, err := c.remote.CreateTask(ctx, draft)
	if err != nil {
		c.logger.Error("task_create_failed", zap.Error(err))
		return models.Task{}, fmt.Errorf("failed to create task: %w", err)
	}

	task = draft.Task(id, c.store.ResolveTags(draft.TagIDs))
	c.store.Insert(task)

	c.logger.Info("task_created",
		zap.Int64("task_id", id),
		zap.String("title", logger.SanitizeTitle(task.Title)))
	c.notify(ctx, "Added "+task.Title)
	return task, nil
}

// Edit replaces a task's editable fields remotely and patches the local copy
func (c *Controller) Edit(ctx context.Context, update models.Update) (err error) {
	ctx, end := c.startSpan(ctx, "Edit", attribute.Int64("task.id", update.ID))
	defer func() { end(err) }()

	if err := validation.ValidateUpdate(update); err != nil {
		return err
	}

	done := c.store.BeginLoadingChange()
	defer done()

	if err := c.remote.UpdateTask(ctx, update); err != nil {
		c.logger.Error("task_update_failed", zap.Int64("task_id", update.ID), zap.Error(err))
		return fmt.Errorf("failed to update task %d: %w", update.ID, err)
	}

	tags := c.store.ResolveTags(update.TagIDs)
	patch := store.TaskPatch{
		ID:          update.ID,
		Title:       &update.Title,
		Description: &update.Description,
		StartDate:   &update.StartDate,
		EndDate:     &update.EndDate,
		Priority:    &update.Priority,
		Tags:        &tags,
		Repeat:      &update.Repeat,
		RepeatType:  &update.RepeatType,
	}
	if !c.store.Patch(patch) {
		c.logger.Debug("task_update_not_loaded", zap.Int64("task_id", update.ID))
	}

	c.logger.Info("task_updated", zap.Int64("task_id", update.ID))
	c.notify(ctx, "Updated "+update.Title)
	return nil
}

// Remove deletes a task remotely and evicts it locally
func (c *Controller) Remove(ctx context.Context, id int64) (err error) {
	ctx, end := c.startSpan(ctx, "Remove", attribute.Int64("task.id", id))
	defer func() { end(err) }()

	done := c.store.BeginLoadingChange()
	defer done()

	if err := c.remote.DeleteTask(ctx, id); err != nil {
		c.logger.Error("task_delete_failed", zap.Int64("task_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}

	c.store.Evict(id)
	c.logger.Info("task_deleted", zap.Int64("task_id", id))
	c.notify(ctx, "Deleted "+strconv.FormatInt(id, 10))
	return nil
}

// MarkDone completes a loaded task. A repeating task triggers a full refresh
// afterwards so the next occurrence created remotely shows up. That refresh
// skips the offline cache: a stored list from before the completion would
// otherwise replace the confirmed completion.
func (c *Controller) MarkDone(ctx context.Context, id int64) (err error) {
	ctx, end := c.startSpan(ctx, "MarkDone", attribute.Int64("task.id", id))
	defer func() { end(err) }()

	task, ok := c.store.Task(id)
	if !ok {
		return fmt.Errorf("%w: %d", apperrors.ErrTaskNotFoundLocally, id)
	}

	if err := c.markDone(ctx, id); err != nil {
		return err
	}

	var refreshErr error
	if task.Repeats() {
		refreshErr = c.RefreshAll(cache.Bypass(ctx))
	}

	c.notify(ctx, "Marked as Done "+strconv.FormatInt(id, 10))
	if refreshErr != nil {
		return fmt.Errorf("task %d marked done but refresh failed: %w", id, refreshErr)
	}
	return nil
}

func (c *Controller) markDone(ctx context.Context, id int64) error {
	done := c.store.BeginLoadingChange()
	defer done()

	if err := c.remote.MarkDone(ctx, id); err != nil {
		c.logger.Error("task_mark_done_failed", zap.Int64("task_id", id), zap.Error(err))
		return fmt.Errorf("failed to mark task %d done: %w", id, err)
	}

	completed := models.NewTimestamp(c.now().UTC())
	c.store.Patch(store.TaskPatch{ID: id, CompletionDate: &completed})
	c.logger.Info("task_marked_done", zap.Int64("task_id", id))
	return nil
}

// MarkUndone clears a loaded task's completion date
func (c *Controller) MarkUndone(ctx context.Context, id int64) (err error) {
	ctx, end := c.startSpan(ctx, "MarkUndone", attribute.Int64("task.id", id))
	defer func() { end(err) }()

	if _, ok := c.store.Task(id); !ok {
		return fmt.Errorf("%w: %d", apperrors.ErrTaskNotFoundLocally, id)
	}

	done := c.store.BeginLoadingChange()
	defer done()

	if err := c.remote.MarkUndone(ctx, id); err != nil {
		c.logger.Error("task_mark_undone_failed", zap.Int64("task_id", id), zap.Error(err))
		return fmt.Errorf("failed to mark task %d undone: %w", id, err)
	}

	cleared := models.Timestamp{}
	c.store.Patch(store.TaskPatch{ID: id, CompletionDate: &cleared})
	c.logger.Info("task_marked_undone", zap.Int64("task_id", id))
	c.notify(ctx, "Marked as UnDone "+strconv.FormatInt(id, 10))
	return nil
}

func (c *Controller) notify(ctx context.Context, text string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(ctx, text)
}

// startSpan opens a span named syncer.<action> and returns a func that ends it
func (c *Controller) startSpan(ctx context.Context, action string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := c.tracer.Start(ctx, "syncer."+action, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
