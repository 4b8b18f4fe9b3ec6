package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/schoolchat-api/internal/models"
)

// ModerationRepository persists append-only moderation flags.
type ModerationRepository interface {
	Create(ctx context.Context, flag *models.ModerationFlag) error
	ListByMessageIDs(ctx context.Context, messageIDs []string) ([]models.ModerationFlag, error)
	ListBySeverity(ctx context.Context, severity models.ModerationSeverity, limit int) ([]models.ModerationFlag, error)
}

type moderationRepository struct {
	db *gorm.DB
}

// NewModerationRepository constructs a moderation repository backed by GORM.
func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &moderationRepository{db: db}
}

func (r *moderationRepository) Create(ctx context.Context, flag *models.ModerationFlag) error {
	return r.db.WithContext(ctx).Create(flag).Error
}

func (r *moderationRepository) ListByMessageIDs(ctx context.Context, messageIDs []string) ([]models.ModerationFlag, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var flags []models.ModerationFlag
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("created_at ASC").
		Find(&flags).Error
	if err != nil {
		return nil, err
	}
	return flags, nil
}

func (r *moderationRepository) ListBySeverity(ctx context.Context, severity models.ModerationSeverity, limit int) ([]models.ModerationFlag, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var flags []models.ModerationFlag
	err := r.db.WithContext(ctx).
		Where("severity = ?", severity).
		Order("created_at DESC").
		Limit(limit).
		Find(&flags).Error
	if err != nil {
		return nil, err
	}
	return flags, nil
}
