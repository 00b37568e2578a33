package escrow_test

import (
	"errors"
	"testing"

	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/escrow"
	"marketplace-payments/internal/domain/projects"
	"marketplace-payments/internal/testutil"

	"gorm.io/gorm"
)

func TestRetainAndRelease(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com", "personal")
	p := testutil.CreateProject(t, db, owner.ID, 100000, projects.StatePublished)
	m := escrow.NewManager()

	var hold *escrow.Hold
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		hold, err = m.Retain(tx, p.ID, 100000, "tok_1")
		return err
	})
	if err != nil {
		t.Fatalf("Retain: %v", err)
	}
	if hold.Status != escrow.StatusRetained {
		t.Fatalf("expected RETAINED, got %s", hold.Status)
	}

	if err := db.Transaction(func(tx *gorm.DB) error { return m.Release(tx, hold.ID) }); err != nil {
		t.Fatalf("Release: %v", err)
	}

	var stored escrow.Hold
	db.First(&stored, hold.ID)
	if stored.Status != escrow.StatusReleased {
		t.Fatalf("expected RELEASED, got %s", stored.Status)
	}

	err = db.Transaction(func(tx *gorm.DB) error { return m.Refund(tx, hold.ID) })
	if !errors.Is(err, apperr.ErrNoActiveHold) {
		t.Fatalf("expected ErrNoActiveHold after terminal transition, got %v", err)
	}
}

func TestRetainRejectsSecondActiveHold(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com", "personal")
	p := testutil.CreateProject(t, db, owner.ID, 5000, projects.StatePublished)
	m := escrow.NewManager()

	if err := db.Transaction(func(tx *gorm.DB) error {
		_, err := m.Retain(tx, p.ID, 5000, "tok_1")
		return err
	}); err != nil {
		t.Fatalf("first Retain: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := m.Retain(tx, p.ID, 5000, "tok_2")
		return err
	})
	if !errors.Is(err, apperr.ErrDuplicateActiveHold) {
		t.Fatalf("expected ErrDuplicateActiveHold, got %v", err)
	}

	var count int64
	db.Model(&escrow.Hold{}).Where("project_id = ? AND status = ?", p.ID, escrow.StatusRetained).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one RETAINED hold, got %d", count)
	}
}

func TestRetainAllowedAfterPreviousHoldClosed(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com", "personal")
	p := testutil.CreateProject(t, db, owner.ID, 5000, projects.StatePublished)
	m := escrow.NewManager()

	err := db.Transaction(func(tx *gorm.DB) error {
		h, err := m.Retain(tx, p.ID, 5000, "tok_1")
		if err != nil {
			return err
		}
		if err := m.Refund(tx, h.ID); err != nil {
			return err
		}
		_, err = m.Retain(tx, p.ID, 7000, "tok_2")
		return err
	})
	if err != nil {
		t.Fatalf("retain after refund: %v", err)
	}

	var total int64
	db.Model(&escrow.Hold{}).Where("project_id = ?", p.ID).Count(&total)
	if total != 2 {
		t.Fatalf("historical holds must be kept, got %d rows", total)
	}
}

func TestRetainRollsBackWithEnclosingTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	owner := testutil.CreateUser(t, db, "owner@example.com", "personal")
	p := testutil.CreateProject(t, db, owner.ID, 5000, projects.StatePublished)
	m := escrow.NewManager()

	boom := errors.New("later step failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := m.Retain(tx, p.ID, 5000, "tok_1"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}

	var count int64
	db.Model(&escrow.Hold{}).Count(&count)
	if count != 0 {
		t.Fatalf("hold must roll back with the caller's transaction, found %d", count)
	}
}

func TestActiveForProjectMissing(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := escrow.NewManager().ActiveForProject(db, 42)
	if !errors.Is(err, apperr.ErrNoActiveHold) {
		t.Fatalf("expected ErrNoActiveHold, got %v", err)
	}
}

func TestRetainValidatesInput(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := escrow.NewManager().Retain(db, 1, 0, "tok")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
