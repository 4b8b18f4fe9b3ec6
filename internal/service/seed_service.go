package service

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/schoolchat-api/internal/models"
	"github.com/noah-isme/schoolchat-api/internal/repository"
)

// SeedService loads the demo rule set. It is token-gated and meant for demo
// and test environments; production rule management happens elsewhere.
type SeedService interface {
	SeedRules(ctx context.Context, token string) (int64, error)
}

type seedService struct {
	rules   repository.RuleRepository
	enabled bool
	token   string
	logger  zerolog.Logger
}

// NewSeedService constructs the seed service.
func NewSeedService(rules repository.RuleRepository, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		rules:   rules,
		enabled: enabled,
		token:   token,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedRules(ctx context.Context, token string) (int64, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if s.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return 0, ErrSeedUnauthorized
	}

	count, err := s.rules.UpsertBatch(ctx, demoRules())
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("rules", count).Msg("demo rules seeded")
	return count, nil
}

func demoRules() []models.OfficialRule {
	now := time.Now().UTC()
	return []models.OfficialRule{
		{
			RuleID:      "attendance-001",
			SchoolID:    "demo-school",
			Language:    "en",
			Title:       "Attendance Check-in",
			Content:     "Students must check in by 8:15 AM and report absences to the office.",
			Category:    models.CategoryAttendance,
			LastUpdated: now,
		},
		{
			RuleID:      "behavior-002",
			SchoolID:    "demo-school",
			Language:    "en",
			Title:       "Respectful Conduct",
			Content:     "Bullying, harassment, or discriminatory language is prohibited on all channels.",
			Category:    models.CategoryBehavior,
			LastUpdated: now,
		},
		{
			RuleID:      "exams-003",
			SchoolID:    "demo-school",
			Language:    "en",
			Title:       "Exam Materials",
			Content:     "Personal electronic devices must be stored away during exams unless accommodations apply.",
			Category:    models.CategoryExams,
			LastUpdated: now,
		},
		{
			RuleID:      "administrative-004",
			SchoolID:    "demo-school",
			Language:    "en",
			Title:       "ID Badges",
			Content:     "Students must carry their school ID badge at all times on campus.",
			Category:    models.CategoryAdministrative,
			LastUpdated: now,
		},
	}
}
