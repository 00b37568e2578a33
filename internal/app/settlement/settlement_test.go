package settlement_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"marketplace-payments/internal/app/settlement"
	"marketplace-payments/internal/apperr"
	"marketplace-payments/internal/domain/disputes"
	"marketplace-payments/internal/domain/escrow"
	"marketplace-payments/internal/domain/payouts"
	"marketplace-payments/internal/domain/projects"
	calc "marketplace-payments/internal/domain/settlement"
	"marketplace-payments/internal/domain/users"
	"marketplace-payments/internal/testutil"

	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	gen      *testutil.MemoryGenerator
	notifier *testutil.RecordingNotifier
	release  *settlement.ReleaseService
	disputes *settlement.DisputeService
	docs     *settlement.DocumentIssuer

	owner      users.User
	freelancer users.User
	project    projects.Project
	hold       *escrow.Hold
}

func newFixture(t *testing.T, amount int64, accountClass string) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		gen:      testutil.NewMemoryGenerator(),
		notifier: &testutil.RecordingNotifier{},
	}
	mgr := escrow.NewManager()
	f.docs = settlement.NewDocumentIssuer(db, f.gen)
	f.release = settlement.NewReleaseService(db, mgr, calc.Calculator{}, f.docs, f.notifier)
	f.disputes = settlement.NewDisputeService(db, mgr, calc.Calculator{}, f.docs, f.notifier)

	f.owner = testutil.CreateUser(t, db, "owner@example.com", accountClass)
	f.freelancer = testutil.CreateUser(t, db, "freelancer@example.com", users.AccountPersonal)
	f.project = testutil.CreateProject(t, db, f.owner.ID, amount, projects.StatePublished)
	testutil.AcceptFreelancer(t, db, f.project.ID, f.freelancer.ID)

	hold, err := mgr.Retain(db, f.project.ID, amount, "tok_fixture")
	if err != nil {
		t.Fatalf("retain: %v", err)
	}
	f.hold = hold
	return f
}

func (f *fixture) openDispute(t *testing.T) disputes.Dispute {
	t.Helper()
	d := disputes.Dispute{
		ProjectID:  f.project.ID,
		ReporterID: f.owner.ID,
		ReportedID: f.freelancer.ID,
		Reason:     "deliverable missing",
		Status:     disputes.StatusPending,
	}
	if err := f.db.Create(&d).Error; err != nil {
		t.Fatalf("create dispute: %v", err)
	}
	return d
}

func (f *fixture) payouts(t *testing.T) []payouts.PayoutOrder {
	t.Helper()
	var rows []payouts.PayoutOrder
	if err := f.db.Where("project_id = ?", f.project.ID).Order("id").Find(&rows).Error; err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	return rows
}

func (f *fixture) invoices(t *testing.T) []payouts.CommissionInvoice {
	t.Helper()
	var rows []payouts.CommissionInvoice
	if err := f.db.Where("project_id = ?", f.project.ID).Find(&rows).Error; err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	return rows
}

func (f *fixture) holdStatus(t *testing.T) escrow.Status {
	t.Helper()
	var h escrow.Hold
	if err := f.db.Take(&h, f.hold.ID).Error; err != nil {
		t.Fatalf("load hold: %v", err)
	}
	return h.Status
}

func (f *fixture) projectState(t *testing.T) string {
	t.Helper()
	var p projects.Project
	if err := f.db.Take(&p, f.project.ID).Error; err != nil {
		t.Fatalf("load project: %v", err)
	}
	return p.State
}

func TestReleasePaysFreelancerMinusCommission(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)

	res, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if res.Commission != 5000 || res.WorkerPayout != 95000 {
		t.Fatalf("unexpected split: %+v", res)
	}
	if res.PayoutDocumentRef == nil || res.InvoiceDocumentRef == nil {
		t.Fatalf("expected document references, got %+v", res)
	}

	orders := f.payouts(t)
	if len(orders) != 1 || orders[0].BeneficiaryID != f.freelancer.ID || orders[0].Amount != 95000 ||
		orders[0].Purpose != payouts.PurposeWorkerFee || orders[0].Status != payouts.StatusPending {
		t.Fatalf("unexpected payout orders: %+v", orders)
	}
	inv := f.invoices(t)
	if len(inv) != 1 || inv[0].Amount != 5000 {
		t.Fatalf("unexpected invoices: %+v", inv)
	}
	if got := f.holdStatus(t); got != escrow.StatusReleased {
		t.Fatalf("expected RELEASED hold, got %s", got)
	}
	if got := f.projectState(t); got != projects.StateFinalized {
		t.Fatalf("expected finalized project, got %s", got)
	}
	if ev := f.notifier.Events(f.freelancer.ID); len(ev) != 1 || ev[0] != "payout.created" {
		t.Fatalf("unexpected freelancer notifications: %v", ev)
	}
}

func TestReleaseRequiresOwner(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)

	_, err := f.release.Release(context.Background(), f.freelancer.ID, f.project.ID)
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(f.payouts(t)) != 0 || f.holdStatus(t) != escrow.StatusRetained {
		t.Fatalf("unauthorized release changed state")
	}
}

func TestReleaseRequiresAcceptedFreelancer(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)
	if err := f.db.Model(&projects.Application{}).Where("project_id = ?", f.project.ID).
		Update("status", projects.ApplicationRejected).Error; err != nil {
		t.Fatalf("reject application: %v", err)
	}

	_, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID)
	if !errors.Is(err, apperr.ErrNoAcceptedFreelancer) {
		t.Fatalf("expected ErrNoAcceptedFreelancer, got %v", err)
	}
}

func TestReleaseTwiceFailsWithoutDuplicatePayout(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)

	if _, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID); err != nil {
		t.Fatalf("first release: %v", err)
	}
	_, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID)
	if !errors.Is(err, apperr.ErrNoFundsRetained) {
		t.Fatalf("expected ErrNoFundsRetained, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("expected conflict kind, got %s", apperr.KindOf(err))
	}
	if n := len(f.payouts(t)); n != 1 {
		t.Fatalf("expected one payout order, got %d", n)
	}
}

func TestConcurrentReleasesPayOnce(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID)
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
				return
			}
			if !errors.Is(err, apperr.ErrNoFundsRetained) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 {
		t.Fatalf("expected exactly one successful release, got %d", ok)
	}
	if n := len(f.payouts(t)); n != 1 {
		t.Fatalf("expected one payout order, got %d", n)
	}
}

func TestReleaseBusinessOwnerNeedsReceipt(t *testing.T) {
	f := newFixture(t, 100000, users.AccountBusiness)

	_, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID)
	if !errors.Is(err, apperr.ErrReceiptRequired) {
		t.Fatalf("expected ErrReceiptRequired, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindPending {
		t.Fatalf("receipt requirement must be a pending signal, got %s", apperr.KindOf(err))
	}
	if f.holdStatus(t) != escrow.StatusRetained || len(f.payouts(t)) != 0 {
		t.Fatalf("pending release changed state")
	}

	if err := f.release.AttachTaxReceipt(context.Background(), f.freelancer.ID, f.project.ID, "receipt-1"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized attaching as non-owner, got %v", err)
	}
	if err := f.release.AttachTaxReceipt(context.Background(), f.owner.ID, f.project.ID, "receipt-1"); err != nil {
		t.Fatalf("attach receipt: %v", err)
	}
	if _, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID); err != nil {
		t.Fatalf("release after receipt: %v", err)
	}
}

func TestReleaseSurvivesDocumentFailure(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)
	f.gen.Fail = true

	res, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if res.PayoutDocumentRef != nil || res.InvoiceDocumentRef != nil {
		t.Fatalf("expected no document refs, got %+v", res)
	}
	if f.holdStatus(t) != escrow.StatusReleased {
		t.Fatalf("document failure must not roll back the release")
	}

	f.gen.Fail = false
	n, err := f.docs.Backfill(context.Background(), 10)
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 documents issued, got %d", n)
	}
	if orders := f.payouts(t); orders[0].DocumentRef == nil {
		t.Fatalf("payout order still has no document")
	}
	if n, _ := f.docs.RegenerateForProject(context.Background(), f.project.ID); n != 0 {
		t.Fatalf("nothing should be left to regenerate, got %d", n)
	}
}

func TestResolveWorkerWins(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)
	d := f.openDispute(t)

	res, err := f.disputes.Resolve(context.Background(), 99, d.ID, disputes.PolicyWorkerWins)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Status != disputes.StatusResolvedPayment || res.Split.Commission != 5000 || res.Split.WorkerPayout != 95000 {
		t.Fatalf("unexpected result: %+v", res)
	}
	orders := f.payouts(t)
	if len(orders) != 1 || orders[0].BeneficiaryID != f.freelancer.ID || orders[0].Source != payouts.SourceDispute {
		t.Fatalf("unexpected payout orders: %+v", orders)
	}
	if len(f.invoices(t)) != 1 {
		t.Fatalf("worker-favoured resolution must invoice the commission")
	}
	if f.holdStatus(t) != escrow.StatusReleased || f.projectState(t) != projects.StateCancelled {
		t.Fatalf("unexpected hold/project state")
	}

	var stored disputes.Dispute
	if err := f.db.Take(&stored, d.ID).Error; err != nil {
		t.Fatalf("load dispute: %v", err)
	}
	if stored.ResolvedAt == nil || stored.ResolvedBy == nil || *stored.ResolvedBy != 99 {
		t.Fatalf("resolution not recorded: %+v", stored)
	}
}

func TestResolveSplitGivesOddUnitToClient(t *testing.T) {
	f := newFixture(t, 100001, users.AccountPersonal)
	d := f.openDispute(t)

	res, err := f.disputes.Resolve(context.Background(), 1, d.ID, disputes.PolicySplit)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Status != disputes.StatusResolvedRefund || res.Split.Commission != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	orders := f.payouts(t)
	if len(orders) != 2 {
		t.Fatalf("expected two payout orders, got %d", len(orders))
	}
	byPurpose := map[string]payouts.PayoutOrder{}
	for _, o := range orders {
		byPurpose[o.Purpose] = o
	}
	worker, client := byPurpose[payouts.PurposeWorkerFee], byPurpose[payouts.PurposeClientRefund]
	if worker.Amount != 50000 || worker.BeneficiaryID != f.freelancer.ID {
		t.Fatalf("unexpected worker payout: %+v", worker)
	}
	if client.Amount != 50001 || client.BeneficiaryID != f.owner.ID {
		t.Fatalf("unexpected client refund: %+v", client)
	}
	if len(f.invoices(t)) != 0 {
		t.Fatalf("split resolution is commission free")
	}
}

func TestConcurrentReleaseAndResolveSettleOnce(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)
	d := f.openDispute(t)

	var wg sync.WaitGroup
	var releaseErr, resolveErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, releaseErr = f.release.Release(context.Background(), f.owner.ID, f.project.ID)
	}()
	go func() {
		defer wg.Done()
		_, resolveErr = f.disputes.Resolve(context.Background(), 1, d.ID, disputes.PolicySplit)
	}()
	wg.Wait()

	switch {
	case releaseErr == nil && resolveErr == nil:
		t.Fatalf("both release and resolve settled the same hold")
	case releaseErr == nil:
		if !errors.Is(resolveErr, apperr.ErrDisputeNotFoundOrSettled) {
			t.Fatalf("resolve after release: expected conflict, got %v", resolveErr)
		}
		if n := len(f.payouts(t)); n != 1 {
			t.Fatalf("expected the release payout only, got %d", n)
		}
	case resolveErr == nil:
		if !errors.Is(releaseErr, apperr.ErrNoFundsRetained) {
			t.Fatalf("release after resolve: expected conflict, got %v", releaseErr)
		}
		if n := len(f.payouts(t)); n != 2 {
			t.Fatalf("expected the two split payouts only, got %d", n)
		}
	default:
		t.Fatalf("neither settled: release=%v resolve=%v", releaseErr, resolveErr)
	}
	if got := f.holdStatus(t); got != escrow.StatusReleased {
		t.Fatalf("expected released hold, got %s", got)
	}
}

func TestResolveTwiceConflicts(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)
	d := f.openDispute(t)

	if _, err := f.disputes.Resolve(context.Background(), 1, d.ID, disputes.PolicySplit); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	_, err := f.disputes.Resolve(context.Background(), 1, d.ID, disputes.PolicyWorkerWins)
	if !errors.Is(err, apperr.ErrDisputeNotFoundOrSettled) {
		t.Fatalf("expected ErrDisputeNotFoundOrSettled, got %v", err)
	}
	if n := len(f.payouts(t)); n != 2 {
		t.Fatalf("second resolve created payouts, have %d", n)
	}
}

func TestResolveWithoutRetainedFunds(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)
	if _, err := f.release.Release(context.Background(), f.owner.ID, f.project.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	d := f.openDispute(t)

	_, err := f.disputes.Resolve(context.Background(), 1, d.ID, disputes.PolicyWorkerWins)
	if !errors.Is(err, apperr.ErrDisputeNotFoundOrSettled) {
		t.Fatalf("expected ErrDisputeNotFoundOrSettled, got %v", err)
	}

	var stored disputes.Dispute
	if err := f.db.Take(&stored, d.ID).Error; err != nil {
		t.Fatalf("load dispute: %v", err)
	}
	if stored.Status != disputes.StatusPending {
		t.Fatalf("failed resolution changed dispute status to %s", stored.Status)
	}
}

func TestResolveRejectsUnknownPolicy(t *testing.T) {
	f := newFixture(t, 100000, users.AccountPersonal)
	d := f.openDispute(t)

	if _, err := f.disputes.Resolve(context.Background(), 1, d.ID, "client_wins"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
