// Package persist keeps the last loaded tasks and tags on disk between CLI runs.
package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/benvon/smart-todo-sync/internal/models"
	"github.com/benvon/smart-todo-sync/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// taskRecord stores one task as its wire JSON
type taskRecord struct {
	ID   int64 `gorm:"primaryKey;autoIncrement:false"`
	Data []byte
}

func (taskRecord) TableName() string { return "tasks" }

type tagRecord struct {
	ID   int64 `gorm:"primaryKey;autoIncrement:false"`
	Data []byte
}

func (tagRecord) TableName() string { return "tags" }

// State is the persisted part of a store snapshot
type State struct {
	Tasks []models.Task
	Tags  []models.Tag
}

// Store saves and loads State in a sqlite database
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at dsn and migrates it
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	if err := db.AutoMigrate(&taskRecord{}, &tagRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save replaces everything stored with the tasks and tags of snap
func (s *Store) Save(ctx context.Context, snap store.Snapshot) error {
	tasks := make([]taskRecord, 0, len(snap.Tasks))
	for _, task := range snap.Tasks {
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to encode task %d: %w", task.ID, err)
		}
		tasks = append(tasks, taskRecord{ID: task.ID, Data: data})
	}

	tags := make([]tagRecord, 0, len(snap.Tags))
	for _, tag := range snap.Tags {
		data, err := json.Marshal(tag)
		if err != nil {
			return fmt.Errorf("failed to encode tag %d: %w", tag.ID, err)
		}
		tags = append(tags, tagRecord{ID: tag.ID, Data: data})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&taskRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&tagRecord{}).Error; err != nil {
			return err
		}
		if len(tasks) > 0 {
			if err := tx.Create(&tasks).Error; err != nil {
				return err
			}
		}
		if len(tags) > 0 {
			if err := tx.Create(&tags).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Load returns the saved tasks and tags, both ordered by id
func (s *Store) Load(ctx context.Context) (State, error) {
	var taskRows []taskRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&taskRows).Error; err != nil {
		return State{}, fmt.Errorf("failed to load tasks: %w", err)
	}
	var tagRows []tagRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&tagRows).Error; err != nil {
		return State{}, fmt.Errorf("failed to load tags: %w", err)
	}

	state := State{
		Tasks: make([]models.Task, 0, len(taskRows)),
		Tags:  make([]models.Tag, 0, len(tagRows)),
	}
	for _, row := range taskRows {
		var task models.Task
		if err := json.Unmarshal(row.Data, &task); err != nil {
			return State{}, fmt.Errorf("failed to decode task %d: %w", row.ID, err)
		}
		state.Tasks = append(state.Tasks, task)
	}
	for _, row := range tagRows {
		var tag models.Tag
		if err := json.Unmarshal(row.Data, &tag); err != nil {
			return State{}, fmt.Errorf("failed to decode tag %d: %w", row.ID, err)
		}
		state.Tags = append(state.Tags, tag)
	}
	return state, nil
}

// Restore loads the saved state into st
func (s *Store) Restore(ctx context.Context, st *store.Store) error {
	state, err := s.Load(ctx)
	if err != nil {
		return err
	}
	st.ReplaceTags(state.Tags)
	st.ReplaceAll(state.Tasks)
	return nil
}
