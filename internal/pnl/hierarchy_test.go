package pnl

import (
	"errors"
	"testing"
)

func TestBuildChildrenMapEncounterOrder(t *testing.T) {
	accounts := []AccountNode{
		{Label: "Income"},
		{Label: "Rooms", ParentLabel: "Income"},
		{Label: "Meals", ParentLabel: "Income"},
		{Label: "", ParentLabel: "Income"}, // malformed, skipped
		{Label: "Payroll", ParentLabel: "Expenses"},
	}

	children := BuildChildrenMap(accounts)

	got := children["Income"]
	if len(got) != 2 || got[0] != "Rooms" || got[1] != "Meals" {
		t.Fatalf("children of Income = %v, want [Rooms Meals]", got)
	}
	if len(children["Expenses"]) != 1 {
		t.Fatalf("children of Expenses = %v, want [Payroll]", children["Expenses"])
	}
}

func TestDetectCycleCleanForest(t *testing.T) {
	accounts := []AccountNode{
		{Label: "Income"},
		{Label: "Revenue", ParentLabel: "Income"},
		{Label: "Expenses"},
		{Label: "Payroll", ParentLabel: "Expenses"},
	}
	if err := DetectCycle(accounts); err != nil {
		t.Fatalf("DetectCycle() = %v, want nil", err)
	}
}

func TestDetectCycleReportsCycle(t *testing.T) {
	accounts := []AccountNode{
		{Label: "A", ParentLabel: "B"},
		{Label: "B", ParentLabel: "C"},
		{Label: "C", ParentLabel: "A"},
	}
	err := DetectCycle(accounts)
	if !errors.Is(err, ErrHierarchyCycle) {
		t.Fatalf("DetectCycle() = %v, want ErrHierarchyCycle", err)
	}
}

func TestDetectCycleToleratesMissingParent(t *testing.T) {
	accounts := []AccountNode{{Label: "A", ParentLabel: "Nowhere"}}
	if err := DetectCycle(accounts); err != nil {
		t.Fatalf("DetectCycle() = %v, want nil for dangling parent", err)
	}
}
