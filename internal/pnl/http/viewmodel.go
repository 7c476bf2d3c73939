package http

import (
	"sort"

	"github.com/helios-fin/helios-pnl/internal/pnl"
)

// ReportView is the JSON/CSV-friendly projection of an assembled report.
// All amounts are pre-formatted strings; the raw decimals stay internal.
type ReportView struct {
	Level     string   `json:"level"`
	Key       string   `json:"key"`
	Period    string   `json:"period"`
	Generated string   `json:"generated"`
	Root      NodeView `json:"root"`
}

// NodeView renders one report node with its composed header. Counts are
// final: they were filled in after the children were processed, so no
// placeholder pass is needed.
type NodeView struct {
	Level      string     `json:"level"`
	Name       string     `json:"name"`
	Regions    int        `json:"regions,omitempty"`
	Districts  int        `json:"districts,omitempty"`
	Facilities int        `json:"facilities"`
	Rows       []RowView  `json:"rows"`
	Children   []NodeView `json:"children,omitempty"`
}

// RowView is a single account line with the four value columns and their
// percentage-of-income companions.
type RowView struct {
	Label          string `json:"label"`
	DoubleLines    bool   `json:"doubleLines,omitempty"`
	MonthActual    string `json:"monthActual"`
	MonthActualPct string `json:"monthActualPct"`
	MonthBudget    string `json:"monthBudget"`
	MonthBudgetPct string `json:"monthBudgetPct"`
	YTDActual      string `json:"ytdActual"`
	YTDActualPct   string `json:"ytdActualPct"`
	YTDBudget      string `json:"ytdBudget"`
	YTDBudgetPct   string `json:"ytdBudgetPct"`
}

// NewReportView projects the report onto formatted rows, laid out in account
// configuration order with display-excluded accounts omitted.
func NewReportView(report pnl.Report, accounts []pnl.AccountNode, formatter *pnl.Formatter) ReportView {
	return ReportView{
		Level:     string(report.Level),
		Key:       report.Key,
		Period:    report.Period.Format("2006-01"),
		Generated: report.Generated.Format("2006-01-02T15:04:05Z07:00"),
		Root:      newNodeView(report.Root, accounts, formatter),
	}
}

func newNodeView(node pnl.ReportNode, accounts []pnl.AccountNode, formatter *pnl.Formatter) NodeView {
	view := NodeView{
		Level:      string(node.Level),
		Name:       node.EntityName,
		Regions:    node.Counts.Regions,
		Districts:  node.Counts.Districts,
		Facilities: node.Counts.Facilities,
		Rows:       buildRows(node, accounts, formatter),
	}
	for _, child := range node.Children {
		view.Children = append(view.Children, newNodeView(child, accounts, formatter))
	}
	return view
}

func buildRows(node pnl.ReportNode, accounts []pnl.AccountNode, formatter *pnl.Formatter) []RowView {
	incomeMA := node.MonthActual[pnl.IncomeLabel]
	incomeMB := node.MonthBudget[pnl.IncomeLabel]
	incomeYA := node.YTDActual[pnl.IncomeLabel]
	incomeYB := node.YTDBudget[pnl.IncomeLabel]

	row := func(label string, doubleLines bool) RowView {
		return RowView{
			Label:          label,
			DoubleLines:    doubleLines,
			MonthActual:    formatter.Amount(node.MonthActual[label]),
			MonthActualPct: formatter.Percent(node.MonthActual[label], incomeMA),
			MonthBudget:    formatter.Amount(node.MonthBudget[label]),
			MonthBudgetPct: formatter.Percent(node.MonthBudget[label], incomeMB),
			YTDActual:      formatter.Amount(node.YTDActual[label]),
			YTDActualPct:   formatter.Percent(node.YTDActual[label], incomeYA),
			YTDBudget:      formatter.Amount(node.YTDBudget[label]),
			YTDBudgetPct:   formatter.Percent(node.YTDBudget[label], incomeYB),
		}
	}

	rows := make([]RowView, 0, len(accounts))
	known := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		known[account.Label] = struct{}{}
		if account.DisplayExcluded {
			continue
		}
		rows = append(rows, row(account.Label, account.DoubleLines))
	}

	// Synthetic unknown-account rows trail the configured ones, sorted for
	// reproducible output.
	var extras []string
	for label := range node.MonthActual {
		if _, ok := known[label]; !ok {
			extras = append(extras, label)
		}
	}
	for label := range node.YTDActual {
		if _, ok := known[label]; ok {
			continue
		}
		if _, seen := node.MonthActual[label]; !seen {
			extras = append(extras, label)
		}
	}
	sort.Strings(extras)
	for _, label := range extras {
		rows = append(rows, row(label, false))
	}
	return rows
}
