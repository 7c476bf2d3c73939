package pnl

import "github.com/shopspring/decimal"

// ComputeRollups aggregates raw per-account totals up the account hierarchy.
// Every label present in accounts gets an entry in the result. A child is
// always recursed into so its own subtree lands in the memo table, but its
// value is added to the parent only when the mode's exclusion flags allow it.
// Labels referenced by the children map but missing from accounts contribute
// zero and are skipped.
//
// The function is pure: identical inputs yield an identical map regardless of
// visitation order.
func ComputeRollups(raw map[string]decimal.Decimal, accounts map[string]AccountNode, children map[string][]string, mode Mode) map[string]decimal.Decimal {
	memo := make(map[string]decimal.Decimal, len(accounts))
	var visit func(label string) decimal.Decimal
	visit = func(label string) decimal.Decimal {
		if cached, ok := memo[label]; ok {
			return cached
		}
		total := raw[label]
		for _, childLabel := range children[label] {
			child, ok := accounts[childLabel]
			if !ok {
				continue
			}
			value := visit(childLabel)
			if excludedIn(child, mode) {
				continue
			}
			total = total.Add(value)
		}
		memo[label] = total
		return total
	}
	for label := range accounts {
		visit(label)
	}
	return memo
}

func excludedIn(node AccountNode, mode Mode) bool {
	if mode == ModeOperational {
		return node.OperationalExcluded || node.DisplayExcluded
	}
	return node.DisplayExcluded
}
