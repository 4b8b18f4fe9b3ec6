package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/schoolchat-api/internal/models"
)

// MessageRepository persists message metadata. Message rows are append-only
// except for the single documented verified-status mutation, which must go
// through UpdateVerifiedStatus so that content can never be overwritten.
type MessageRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	Get(ctx context.Context, messageID string) (models.ChatMessage, error)
	ListByThread(ctx context.Context, threadID string) ([]models.ChatMessage, error)
	ListByIDs(ctx context.Context, messageIDs []string) ([]models.ChatMessage, error)
	UpdateVerifiedStatus(ctx context.Context, messageID string, status models.VerifiedStatus) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) Get(ctx context.Context, messageID string) (models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&message).Error
	if err != nil {
		return models.ChatMessage{}, err
	}
	return message, nil
}

func (r *messageRepository) ListByThread(ctx context.Context, threadID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Order("message_id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) ListByIDs(ctx context.Context, messageIDs []string) ([]models.ChatMessage, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).Where("message_id IN ?", messageIDs).Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// UpdateVerifiedStatus applies a read-modify-write on the one mutable field.
func (r *messageRepository) UpdateVerifiedStatus(ctx context.Context, messageID string, status models.VerifiedStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("message_id = ?", messageID).
		Update("verified_status", status).Error
}
