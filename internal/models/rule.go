package models

import "time"

// RuleCategory groups official rules by administrative area.
type RuleCategory string

const (
	CategoryAttendance     RuleCategory = "attendance"
	CategoryBehavior       RuleCategory = "behavior"
	CategoryExams          RuleCategory = "exams"
	CategoryAdministrative RuleCategory = "administrative"
)

// OfficialRule is a school regulation entry. Rules are seeded by an
// administrative process and read-only from the chat system's perspective.
type OfficialRule struct {
	RuleID      string       `gorm:"primaryKey;size:64" json:"ruleId"`
	SchoolID    string       `gorm:"size:64;index;not null" json:"schoolId"`
	Language    string       `gorm:"size:8;default:en" json:"language"`
	Title       string       `gorm:"size:255;not null" json:"title"`
	Content     string       `gorm:"type:text" json:"content"`
	Category    RuleCategory `gorm:"size:32;not null" json:"category"`
	LastUpdated time.Time    `json:"lastUpdated"`
}
