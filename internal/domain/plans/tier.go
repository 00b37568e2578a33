package plans

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Plan codes (single source of truth)
const (
	CodeMonthly = "monthly"
	CodeAnnual  = "annual"
)

// IsValidCode reports whether code names a purchasable subscription plan.
func IsValidCode(code string) bool {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case CodeMonthly, CodeAnnual:
		return true
	}
	return false
}

// PeriodEnd returns the end of a subscription period for the plan starting at start.
func PeriodEnd(p *Plan, start time.Time) time.Time {
	if p != nil && p.Code == CodeAnnual {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

// Seed upserts the plan catalogue with the configured prices.
func Seed(db *gorm.DB, monthlyPrice, annualPrice int64) error {
	catalogue := []Plan{
		{Code: CodeMonthly, Name: "Monthly", Price: monthlyPrice, Interval: "month"},
		{Code: CodeAnnual, Name: "Annual", Price: annualPrice, Interval: "year"},
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "interval"}),
	}).Create(&catalogue).Error
}
