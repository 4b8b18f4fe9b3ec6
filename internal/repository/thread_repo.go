package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/schoolchat-api/internal/models"
)

// ThreadRepository persists chat thread records.
type ThreadRepository interface {
	Create(ctx context.Context, thread *models.ChatThread) error
	Get(ctx context.Context, threadID string) (models.ChatThread, error)
	ActiveBySchool(ctx context.Context, schoolID string) (models.ChatThread, error)
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository constructs a thread repository backed by GORM.
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

func (r *threadRepository) Create(ctx context.Context, thread *models.ChatThread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *threadRepository) Get(ctx context.Context, threadID string) (models.ChatThread, error) {
	var thread models.ChatThread
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).First(&thread).Error
	if err != nil {
		return models.ChatThread{}, err
	}
	return thread, nil
}

func (r *threadRepository) ActiveBySchool(ctx context.Context, schoolID string) (models.ChatThread, error) {
	var thread models.ChatThread
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND is_active = ?", schoolID, true).
		Order("created_at DESC").
		First(&thread).Error
	if err != nil {
		return models.ChatThread{}, err
	}
	return thread, nil
}
