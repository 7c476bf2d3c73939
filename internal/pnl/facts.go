package pnl

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FactSet is an in-memory slice of warehouse facts for one period. Sub-group
// aggregates are produced by filtering a set that was fetched once, never by
// issuing another warehouse query.
type FactSet struct {
	Facts []TransactionFact
}

// CustomerIDSet builds a membership set from entities, for in-memory fact
// filtering.
func CustomerIDSet(entities []Entity) map[string]struct{} {
	ids := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		ids[e.ID] = struct{}{}
	}
	return ids
}

// FilterCustomers returns the subset of facts belonging to the given
// customers. The receiver is not modified.
func (fs FactSet) FilterCustomers(ids map[string]struct{}) FactSet {
	filtered := make([]TransactionFact, 0, len(fs.Facts))
	for _, fact := range fs.Facts {
		if _, ok := ids[fact.CustomerID]; ok {
			filtered = append(filtered, fact)
		}
	}
	return FactSet{Facts: filtered}
}

// RawTotals sums fact values per account label for one scenario. Facts whose
// account label is not configured are folded into a synthetic
// "Unknown Account <id>" label so a bad mapping degrades one row instead of
// failing the whole report.
func (fs FactSet) RawTotals(scenario Scenario, accounts map[string]AccountNode) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, fact := range fs.Facts {
		if fact.Scenario != scenario {
			continue
		}
		label := fact.AccountLabel
		if _, ok := accounts[label]; !ok {
			label = UnknownAccountLabel(fact.AccountLabel)
		}
		totals[label] = totals[label].Add(fact.Value)
	}
	return totals
}

// UnknownAccountLabel names the synthetic bucket for facts referencing an
// unconfigured account.
func UnknownAccountLabel(id string) string {
	return fmt.Sprintf("Unknown Account %s", id)
}
