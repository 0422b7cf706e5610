package syncer

import (
	"context"
	"fmt"

	"github.com/benvon/smart-todo-sync/internal/cache"
	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RefreshTags replaces the loaded tags with the remote list
func (c *Controller) RefreshTags(ctx context.Context) (err error) {
	ctx, end := c.startSpan(ctx, "RefreshTags")
	defer func() { end(err) }()

	done := c.store.BeginLoadingAll()
	defer done()

	tags, err := c.remote.ListTags(ctx)
	if err != nil {
		c.logger.Error("tags_refresh_failed", zap.Error(err))
		return fmt.Errorf("failed to refresh tags: %w", err)
	}

	c.store.ReplaceTags(tags)
	c.logger.Debug("tags_refreshed", zap.Int("count", len(tags)))
	return nil
}

// CreateTag adds a tag remotely, then re-reads the tag list past the offline cache.
// The remote only confirms with a boolean, so there is no id to insert.
func (c *Controller) CreateTag(ctx context.Context, draft models.TagDraft) (err error) {
	ctx, end := c.startSpan(ctx, "CreateTag")
	defer func() { end(err) }()

	if err := validation.ValidateTagDraft(draft); err != nil {
		return err
	}

	if err := c.changeTags(ctx, "tag_create_failed", func(ctx context.Context) error {
		return c.remote.CreateTag(ctx, draft)
	}); err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}

	c.logger.Info("tag_created", zap.String("name", draft.Name))
	return c.RefreshTags(cache.Bypass(ctx))
}

// UpdateTag edits a tag remotely, then re-reads the tag list
func (c *Controller) UpdateTag(ctx context.Context, update models.TagUpdate) (err error) {
	ctx, end := c.startSpan(ctx, "UpdateTag", attribute.Int64("tag.id", update.ID))
	defer func() { end(err) }()

	if err := validation.ValidateTagUpdate(update); err != nil {
		return err
	}

	if err := c.changeTags(ctx, "tag_update_failed", func(ctx context.Context) error {
		return c.remote.UpdateTag(ctx, update)
	}); err != nil {
		return fmt.Errorf("failed to update tag %d: %w", update.ID, err)
	}

	c.logger.Info("tag_updated", zap.Int64("tag_id", update.ID))
	return c.RefreshTags(cache.Bypass(ctx))
}

// RemoveTag deletes a tag remotely, then re-reads the tag list.
// Tasks keep their tag snapshots until the next task refresh.
func (c *Controller) RemoveTag(ctx context.Context, id int64) (err error) {
	ctx, end := c.startSpan(ctx, "RemoveTag", attribute.Int64("tag.id", id))
	defer func() { end(err) }()

	if err := c.changeTags(ctx, "tag_delete_failed", func(ctx context.Context) error {
		return c.remote.DeleteTag(ctx, id)
	}); err != nil {
		return fmt.Errorf("failed to delete tag %d: %w", id, err)
	}

	c.logger.Info("tag_deleted", zap.Int64("tag_id", id))
	return c.RefreshTags(cache.Bypass(ctx))
}

func (c *Controller) changeTags(ctx context.Context, event string, call func(context.Context) error) error {
	done := c.store.BeginLoadingChange()
	defer done()

	if err := call(ctx); err != nil {
		c.logger.Error(event, zap.Error(err))
		return err
	}
	return nil
}
