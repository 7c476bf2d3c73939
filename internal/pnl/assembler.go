package pnl

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Assembler composes the multi-level report bottom-up. It is pure: all facts
// are supplied as in-memory sets fetched up-front by the caller, and every
// nested aggregate is produced by filtering those sets, never by a new fetch.
type Assembler struct {
	accounts map[string]AccountNode
	children map[string][]string
	mode     Mode
}

// NewAssembler prepares an assembler over the configured account hierarchy.
func NewAssembler(accounts []AccountNode, mode Mode) *Assembler {
	return &Assembler{
		accounts: AccountIndex(accounts),
		children: BuildChildrenMap(accounts),
		mode:     mode,
	}
}

// RegionScope carries a region and the entities the warehouse reports under
// it.
type RegionScope struct {
	Region   Region
	Entities []Entity
}

// Selection describes the node the report was requested for.
type Selection struct {
	Level     Level
	Name      string
	Regions   []RegionScope // populated for subsidiary-level requests
	Districts []District    // district configuration, used for tag regrouping
	Members   []Entity      // member entities for region/district/facility requests
}

// AssembleResult reports whether the selected node survived pruning.
type AssembleResult struct {
	Kept bool
	Node ReportNode
}

// ValueSets bundles the four independent rollup results of a node.
type ValueSets struct {
	MonthActual map[string]decimal.Decimal
	MonthBudget map[string]decimal.Decimal
	YTDActual   map[string]decimal.Decimal
	YTDBudget   map[string]decimal.Decimal
}

// Assemble builds the report subtree for the selection. The summary sets feed
// the selected node's own row; the descendant sets feed every nested
// aggregate via in-memory filtering. Facility-level selections may come back
// pruned; container levels are always kept.
func (a *Assembler) Assemble(sel Selection, summaryMonth, summaryYTD, month, ytd FactSet) (AssembleResult, error) {
	switch sel.Level {
	case LevelFacility:
		if len(sel.Members) == 0 {
			return AssembleResult{}, fmt.Errorf("assemble facility %q: %w", sel.Name, ErrNoEntities)
		}
		node, kept := a.Facility(sel.Members[0], month, ytd)
		return AssembleResult{Kept: kept, Node: node}, nil
	case LevelDistrict:
		node := a.District(sel.Name, sel.Members, month, ytd)
		a.applyValues(&node, a.computeValues(summaryMonth, summaryYTD))
		return AssembleResult{Kept: true, Node: node}, nil
	case LevelRegion:
		node := a.Region(sel.Name, sel.Members, sel.Districts, month, ytd)
		a.applyValues(&node, a.computeValues(summaryMonth, summaryYTD))
		return AssembleResult{Kept: true, Node: node}, nil
	case LevelSubsidiary:
		node := a.Subsidiary(sel.Name, sel.Regions, sel.Districts, month, ytd)
		a.applyValues(&node, a.computeValues(summaryMonth, summaryYTD))
		return AssembleResult{Kept: true, Node: node}, nil
	default:
		return AssembleResult{}, fmt.Errorf("assemble: unsupported level %q", sel.Level)
	}
}

// Facility builds a leaf node. A facility whose rolled-up Income for the
// actuals month is effectively zero is pruned: the second return value is
// false and the node must not appear in output.
func (a *Assembler) Facility(e Entity, month, ytd FactSet) (ReportNode, bool) {
	ids := map[string]struct{}{e.ID: {}}
	values := a.computeValues(month.FilterCustomers(ids), ytd.FilterCustomers(ids))
	income := values.MonthActual[IncomeLabel]
	if income.Abs().LessThan(Epsilon) {
		return ReportNode{}, false
	}
	node := ReportNode{Level: LevelFacility, EntityName: e.Label}
	a.applyValues(&node, values)
	return node, true
}

// District builds a district (or tag-group) node over its member entities.
// The node is kept even when every facility child was pruned; its facility
// count reflects only the children that survived, which is known after they
// are processed.
func (a *Assembler) District(name string, members []Entity, month, ytd FactSet) ReportNode {
	ids := CustomerIDSet(members)
	districtMonth := month.FilterCustomers(ids)
	districtYTD := ytd.FilterCustomers(ids)

	node := ReportNode{Level: LevelDistrict, EntityName: name}
	a.applyValues(&node, a.computeValues(districtMonth, districtYTD))

	for _, member := range members {
		child, kept := a.Facility(member, districtMonth, districtYTD)
		if !kept {
			continue
		}
		node.Counts.Facilities++
		node.Children = append(node.Children, child)
	}
	return node
}

// Region builds a region node. Its member entities are regrouped by district
// tags, so districts sharing a tag set appear as one consolidated district
// line. Header counts are summed after the children are built.
func (a *Assembler) Region(name string, members []Entity, districts []District, month, ytd FactSet) ReportNode {
	ids := CustomerIDSet(members)
	regionMonth := month.FilterCustomers(ids)
	regionYTD := ytd.FilterCustomers(ids)

	node := ReportNode{Level: LevelRegion, EntityName: name}
	a.applyValues(&node, a.computeValues(regionMonth, regionYTD))

	for _, group := range GroupCustomersByDistrictTags(members, districts) {
		child := a.District(group.Label, group.Members, regionMonth, regionYTD)
		node.Counts.Districts++
		node.Counts.Facilities += child.Counts.Facilities
		node.Children = append(node.Children, child)
	}
	return node
}

// Subsidiary builds the top node over its region scopes.
func (a *Assembler) Subsidiary(name string, regions []RegionScope, districts []District, month, ytd FactSet) ReportNode {
	node := ReportNode{Level: LevelSubsidiary, EntityName: name}

	var all []Entity
	for _, rs := range regions {
		all = append(all, rs.Entities...)
	}
	ids := CustomerIDSet(all)
	a.applyValues(&node, a.computeValues(month.FilterCustomers(ids), ytd.FilterCustomers(ids)))

	for _, rs := range regions {
		child := a.Region(rs.Region.Label, rs.Entities, districts, month, ytd)
		node.Counts.Regions++
		node.Counts.Districts += child.Counts.Districts
		node.Counts.Facilities += child.Counts.Facilities
		node.Children = append(node.Children, child)
	}
	return node
}

// computeValues runs the four independent rollups: actuals and budget for the
// month set, actuals and budget for the YTD set. The sets are never mixed.
func (a *Assembler) computeValues(month, ytd FactSet) ValueSets {
	return ValueSets{
		MonthActual: a.rollup(month.RawTotals(ScenarioActuals, a.accounts)),
		MonthBudget: a.rollup(month.RawTotals(ScenarioBudget, a.accounts)),
		YTDActual:   a.rollup(ytd.RawTotals(ScenarioActuals, a.accounts)),
		YTDBudget:   a.rollup(ytd.RawTotals(ScenarioBudget, a.accounts)),
	}
}

// rollup aggregates raw totals and carries synthetic unknown-account labels
// through to the result so they stay visible in output rows.
func (a *Assembler) rollup(raw map[string]decimal.Decimal) map[string]decimal.Decimal {
	result := ComputeRollups(raw, a.accounts, a.children, a.mode)
	for label, value := range raw {
		if _, ok := a.accounts[label]; !ok {
			result[label] = value
		}
	}
	return result
}

func (a *Assembler) applyValues(node *ReportNode, values ValueSets) {
	node.MonthActual = values.MonthActual
	node.MonthBudget = values.MonthBudget
	node.YTDActual = values.YTDActual
	node.YTDBudget = values.YTDBudget
}
