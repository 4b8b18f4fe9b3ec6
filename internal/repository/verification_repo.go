package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/schoolchat-api/internal/models"
)

// VerificationRepository persists append-only verification records.
type VerificationRepository interface {
	Create(ctx context.Context, verification *models.AIVerification) error
	ListByMessageIDs(ctx context.Context, messageIDs []string) ([]models.AIVerification, error)
	ListByResult(ctx context.Context, result models.VerificationResult, limit int) ([]models.AIVerification, error)
}

type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository constructs a verification repository backed by GORM.
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, verification *models.AIVerification) error {
	return r.db.WithContext(ctx).Create(verification).Error
}

func (r *verificationRepository) ListByMessageIDs(ctx context.Context, messageIDs []string) ([]models.AIVerification, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	var verifications []models.AIVerification
	err := r.db.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("created_at ASC").
		Find(&verifications).Error
	if err != nil {
		return nil, err
	}
	return verifications, nil
}

func (r *verificationRepository) ListByResult(ctx context.Context, result models.VerificationResult, limit int) ([]models.AIVerification, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var verifications []models.AIVerification
	err := r.db.WithContext(ctx).
		Where("outcome = ? AND result = ?", models.OutcomeSuccess, result).
		Order("created_at DESC").
		Limit(limit).
		Find(&verifications).Error
	if err != nil {
		return nil, err
	}
	return verifications, nil
}
