package database

import (
	"fmt"

	"marketplace-payments/internal/domain/billing"
	"marketplace-payments/internal/domain/disputes"
	"marketplace-payments/internal/domain/escrow"
	"marketplace-payments/internal/domain/payouts"
	"marketplace-payments/internal/domain/plans"
	"marketplace-payments/internal/domain/projects"
	"marketplace-payments/internal/domain/users"
	"marketplace-payments/internal/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the Postgres connection and migrates the schema. The returned
// handle is injected into every service; nothing reads it from a global.
func InitDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("✅ Connected and migrated successfully")
	return db, nil
}

// Migrate auto-migrates all models. Shared with the test database setup.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// catalogue
		&users.User{},
		&plans.Plan{},

		// marketplace
		&projects.Project{},
		&projects.Application{},
		&disputes.Dispute{},

		// money
		&billing.GatewayTransaction{},
		&escrow.Hold{},
		&payouts.PayoutOrder{},
		&payouts.CommissionInvoice{},
	); err != nil {
		return fmt.Errorf("AutoMigrate error: %w", err)
	}
	return nil
}
