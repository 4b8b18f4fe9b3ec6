package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/schoolchat-api/internal/models"
)

// UserRepository persists platform users. Users are immutable after first
// creation except for the transport identity, which may be refreshed.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	Get(ctx context.Context, userID string) (models.User, error)
	ListBySchool(ctx context.Context, schoolID string) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"transport_user_id", "updated_at"}),
	}).Create(user).Error
}

func (r *userRepository) Get(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("user_id ASC").Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
