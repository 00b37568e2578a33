package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestStandardReleaseScenario(t *testing.T) {
	var c Calculator
	got, err := c.StandardRelease(100000)
	if err != nil {
		t.Fatalf("StandardRelease: %v", err)
	}
	if got.Commission != 5000 || got.WorkerPayout != 95000 || got.ClientRefund != 0 {
		t.Fatalf("unexpected split: %+v", got)
	}
}

func TestStandardReleaseConservesAmount(t *testing.T) {
	var c Calculator
	for a := int64(0); a <= 2000; a++ {
		got, err := c.StandardRelease(a)
		if err != nil {
			t.Fatalf("StandardRelease(%d): %v", a, err)
		}
		if got.Commission+got.WorkerPayout != a {
			t.Fatalf("amount %d not conserved: %+v", a, got)
		}
	}
}

func TestCommissionRoundsHalfUp(t *testing.T) {
	var c Calculator
	// 10 * 0.05 = 0.5 -> 1; 29 * 0.05 = 1.45 -> 1; 30 * 0.05 = 1.5 -> 2
	cases := map[int64]int64{10: 1, 9: 0, 29: 1, 30: 2, 0: 0}
	for amount, want := range cases {
		if got := c.Commission(amount); got != want {
			t.Fatalf("Commission(%d) = %d, want %d", amount, got, want)
		}
	}
}

func TestCustomRate(t *testing.T) {
	c := NewCalculator(decimal.RequireFromString("0.10"))
	got, _ := c.StandardRelease(1005)
	if got.Commission != 101 || got.WorkerPayout != 904 {
		t.Fatalf("unexpected split: %+v", got)
	}
}

func TestZeroRateChargesNoCommission(t *testing.T) {
	c := NewCalculator(decimal.Zero)
	got, _ := c.StandardRelease(100000)
	if got.Commission != 0 || got.WorkerPayout != 100000 {
		t.Fatalf("unexpected split: %+v", got)
	}
}

func TestDisputeFavorWorkerMatchesStandard(t *testing.T) {
	var c Calculator
	a, _ := c.StandardRelease(77777)
	b, _ := c.DisputeFavorWorker(77777)
	if a != b {
		t.Fatalf("favor worker %+v differs from standard %+v", b, a)
	}
}

func TestDisputeSplitOddAmount(t *testing.T) {
	var c Calculator
	got, err := c.DisputeSplit(100001)
	if err != nil {
		t.Fatalf("DisputeSplit: %v", err)
	}
	if got.WorkerPayout != 50000 || got.ClientRefund != 50001 || got.Commission != 0 {
		t.Fatalf("unexpected split: %+v", got)
	}
}

func TestDisputeSplitHalves(t *testing.T) {
	var c Calculator
	for a := int64(0); a <= 500; a++ {
		got, _ := c.DisputeSplit(a)
		diff := got.ClientRefund - got.WorkerPayout
		if diff < 0 || diff > 1 || got.WorkerPayout+got.ClientRefund != a || got.Commission != 0 {
			t.Fatalf("bad split for %d: %+v", a, got)
		}
	}
}

func TestNegativeAmountRejected(t *testing.T) {
	var c Calculator
	if _, err := c.StandardRelease(-1); err == nil {
		t.Fatal("expected error for negative amount")
	}
	if _, err := c.DisputeSplit(-1); err == nil {
		t.Fatal("expected error for negative amount")
	}
}
