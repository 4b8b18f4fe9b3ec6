package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/schoolchat-api/internal/models"
)

// RuleRepository reads the official rule set. Rules are owned by an
// administrative process; the chat system only seeds and reads them.
type RuleRepository interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.OfficialRule, error)
	UpsertBatch(ctx context.Context, rules []models.OfficialRule) (int64, error)
}

type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository constructs a rule repository backed by GORM.
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.OfficialRule, error) {
	var rules []models.OfficialRule
	err := r.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("rule_id ASC").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) UpsertBatch(ctx context.Context, rules []models.OfficialRule) (int64, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rule_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "content", "category", "language", "last_updated"}),
	}).Create(&rules)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
