// Package testutil holds the in-memory database and collaborator fakes used
// by the service tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"marketplace-payments/database"
	"marketplace-payments/internal/domain/plans"
	"marketplace-payments/internal/domain/projects"
	"marketplace-payments/internal/domain/users"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq int64

// NewDB returns a migrated in-memory SQLite database private to the test.
// A single connection keeps every statement on the same in-memory schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name, atomic.AddInt64(&dbSeq, 1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := plans.Seed(db, 9990, 99900); err != nil {
		t.Fatalf("seed plans: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email, accountClass string) users.User {
	t.Helper()
	u := users.User{Name: "Test", Lastname: "User", Email: email, Role: "user", AccountClass: accountClass}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateProject(t *testing.T, db *gorm.DB, ownerID uint, budget int64, state string) projects.Project {
	t.Helper()
	p := projects.Project{OwnerID: ownerID, Title: "Landing page", Budget: budget, State: state}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func AcceptFreelancer(t *testing.T, db *gorm.DB, projectID, freelancerID uint) projects.Application {
	t.Helper()
	a := projects.Application{ProjectID: projectID, FreelancerID: freelancerID, Status: projects.ApplicationAccepted}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create application: %v", err)
	}
	return a
}
