package pnl

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Scenario distinguishes recorded actuals from planned budget figures.
type Scenario string

const (
	ScenarioActuals Scenario = "ACTUALS"
	ScenarioBudget  Scenario = "BUDGET"
)

// Mode selects which exclusion flags apply during rollup.
type Mode int

const (
	// ModeDisplay honours only the display exclusion flag.
	ModeDisplay Mode = iota
	// ModeOperational additionally excludes operationally-excluded accounts.
	ModeOperational
)

// Level identifies a node's position in the organisational hierarchy.
type Level string

const (
	LevelSubsidiary Level = "SUBSIDIARY"
	LevelRegion     Level = "REGION"
	LevelDistrict   Level = "DISTRICT"
	LevelFacility   Level = "FACILITY"
)

// IncomeLabel is the account whose rolled-up total drives facility pruning
// and percentage denominators.
const IncomeLabel = "Income"

// Epsilon is the magnitude below which an amount is considered zero for
// pruning and dash rendering.
var Epsilon = decimal.New(1, -4)

// AccountNode is one entry of the configured account hierarchy.
type AccountNode struct {
	Label               string
	ParentLabel         string
	DisplayExcluded     bool
	OperationalExcluded bool
	DoubleLines         bool
}

// TransactionFact is a raw warehouse fact attributed to an account and a
// customer for one scenario. Month and YTD facts are fetched separately and
// never merged.
type TransactionFact struct {
	AccountLabel string
	CustomerID   string
	RegionID     string
	SubsidiaryID string
	Scenario     Scenario
	Value        decimal.Decimal
}

// Entity is a facility/customer record in the organisational hierarchy.
type Entity struct {
	ID               string
	Label            string
	ParentDistrictID string
	CensusCode       string
	StartDate        *time.Time
}

// District groups entities and carries the tags used for dynamic regrouping.
type District struct {
	ID                string
	Label             string
	Tags              []string
	ReportingExcluded bool
}

// Region groups districts under a subsidiary.
type Region struct {
	ID           string
	Label        string
	SubsidiaryID string
}

// Subsidiary is the top of the organisational hierarchy.
type Subsidiary struct {
	ID    string
	Label string
}

// TagGroup is a derived reporting unit: all entities whose parent districts
// share an identical sorted tag set. It is never persisted.
type TagGroup struct {
	Key     string
	Label   string
	Members []Entity
}

// ChildCounts summarises how many descendants survived assembly.
type ChildCounts struct {
	Regions    int
	Districts  int
	Facilities int
}

// ReportNode is one assembled node of the multi-level report, carrying the
// four rolled-up value sets keyed by account label.
type ReportNode struct {
	Level       Level
	EntityName  string
	MonthActual map[string]decimal.Decimal
	MonthBudget map[string]decimal.Decimal
	YTDActual   map[string]decimal.Decimal
	YTDBudget   map[string]decimal.Decimal
	Counts      ChildCounts
	Children    []ReportNode
}

// Report is the finished output for one request.
type Report struct {
	Level     Level
	Key       string
	Period    time.Time
	Generated time.Time
	Root      ReportNode
}

var (
	// ErrNoEntities indicates the selector resolved to zero member entities.
	// Distinct from zero revenue, which prunes silently.
	ErrNoEntities = errors.New("pnl: selector resolved to no entities")
	// ErrSelectorNotFound indicates the requested hierarchy key is unknown.
	ErrSelectorNotFound = errors.New("pnl: selector not found")
	// ErrReportingExcluded indicates the district is flagged out of standalone
	// reporting. Its entities still contribute to tag-based groups.
	ErrReportingExcluded = errors.New("pnl: district excluded from standalone reporting")
	// ErrHierarchyCycle indicates the account parent graph is cyclic.
	ErrHierarchyCycle = errors.New("pnl: account hierarchy contains a cycle")
)
