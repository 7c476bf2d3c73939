package pnl

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func specAccounts() []AccountNode {
	return []AccountNode{
		{Label: "A"},
		{Label: "B", ParentLabel: "A"},
		{Label: "C", ParentLabel: "A", OperationalExcluded: true},
	}
}

func TestComputeRollupsDisplayMode(t *testing.T) {
	accounts := specAccounts()
	raw := map[string]decimal.Decimal{"A": d(0), "B": d(10), "C": d(5)}

	got := ComputeRollups(raw, AccountIndex(accounts), BuildChildrenMap(accounts), ModeDisplay)

	want := map[string]int64{"A": 15, "B": 10, "C": 5}
	for label, expected := range want {
		if !got[label].Equal(d(expected)) {
			t.Fatalf("display rollup %s = %s, want %d", label, got[label], expected)
		}
	}
}

func TestComputeRollupsOperationalModeExcludesButComputes(t *testing.T) {
	accounts := specAccounts()
	raw := map[string]decimal.Decimal{"A": d(0), "B": d(10), "C": d(5)}

	got := ComputeRollups(raw, AccountIndex(accounts), BuildChildrenMap(accounts), ModeOperational)

	if !got["A"].Equal(d(10)) {
		t.Fatalf("operational rollup A = %s, want 10", got["A"])
	}
	// C is excluded from A's sum but its own subtree is still computed.
	if !got["C"].Equal(d(5)) {
		t.Fatalf("operational rollup C = %s, want 5", got["C"])
	}
}

func TestComputeRollupsDisplayExcludedAppliesInBothModes(t *testing.T) {
	accounts := []AccountNode{
		{Label: "P"},
		{Label: "Hidden", ParentLabel: "P", DisplayExcluded: true},
		{Label: "Shown", ParentLabel: "P"},
	}
	raw := map[string]decimal.Decimal{"Hidden": d(7), "Shown": d(3)}

	for _, mode := range []Mode{ModeDisplay, ModeOperational} {
		got := ComputeRollups(raw, AccountIndex(accounts), BuildChildrenMap(accounts), mode)
		if !got["P"].Equal(d(3)) {
			t.Fatalf("mode %d: rollup P = %s, want 3", mode, got["P"])
		}
		if !got["Hidden"].Equal(d(7)) {
			t.Fatalf("mode %d: rollup Hidden = %s, want 7", mode, got["Hidden"])
		}
	}
}

func TestComputeRollupsDeepTree(t *testing.T) {
	accounts := []AccountNode{
		{Label: "Income"},
		{Label: "Revenue", ParentLabel: "Income"},
		{Label: "Rooms", ParentLabel: "Revenue"},
		{Label: "Meals", ParentLabel: "Revenue"},
		{Label: "Expenses", ParentLabel: "Income"},
	}
	raw := map[string]decimal.Decimal{"Rooms": d(100), "Meals": d(40), "Expenses": d(-30)}

	got := ComputeRollups(raw, AccountIndex(accounts), BuildChildrenMap(accounts), ModeDisplay)

	if !got["Revenue"].Equal(d(140)) {
		t.Fatalf("rollup Revenue = %s, want 140", got["Revenue"])
	}
	if !got["Income"].Equal(d(110)) {
		t.Fatalf("rollup Income = %s, want 110", got["Income"])
	}
}

func TestComputeRollupsMissingChildSkipped(t *testing.T) {
	accounts := []AccountNode{{Label: "A"}}
	children := map[string][]string{"A": {"Ghost"}}
	raw := map[string]decimal.Decimal{"A": d(4), "Ghost": d(99)}

	got := ComputeRollups(raw, AccountIndex(accounts), children, ModeDisplay)

	if !got["A"].Equal(d(4)) {
		t.Fatalf("rollup A = %s, want 4 (ghost child skipped)", got["A"])
	}
	if _, ok := got["Ghost"]; ok {
		t.Fatalf("unconfigured label must not appear in the result")
	}
}

func TestComputeRollupsIdempotent(t *testing.T) {
	accounts := specAccounts()
	raw := map[string]decimal.Decimal{"A": d(0), "B": d(10), "C": d(5)}
	index := AccountIndex(accounts)
	children := BuildChildrenMap(accounts)

	first := ComputeRollups(raw, index, children, ModeOperational)
	second := ComputeRollups(raw, index, children, ModeOperational)

	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for label, value := range first {
		if !second[label].Equal(value) {
			t.Fatalf("label %s differs between runs: %s vs %s", label, value, second[label])
		}
	}
}
