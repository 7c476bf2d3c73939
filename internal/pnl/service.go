package pnl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// FactFilter scopes a warehouse fact query. Exactly one of the fields is set
// per query.
type FactFilter struct {
	CustomerIDs  []string
	RegionID     string
	SubsidiaryID string
}

// Warehouse is the analytics collaborator the service consumes. Fact fetches
// are the expensive calls: the service issues exactly four per report.
type Warehouse interface {
	FetchFacts(ctx context.Context, filter FactFilter, period time.Time, ytd bool) ([]TransactionFact, error)
	FetchEntitiesInRegion(ctx context.Context, regionID string) ([]Entity, error)
	FetchEntitiesInSubsidiary(ctx context.Context, subsidiaryID string) ([]Entity, error)
}

// ConfigStore supplies the hierarchy configuration documents, loaded once per
// request and treated as immutable for its duration.
type ConfigStore interface {
	AccountHierarchy(ctx context.Context) ([]AccountNode, error)
	Districts(ctx context.Context) ([]District, error)
	Regions(ctx context.Context) ([]Region, error)
	Subsidiaries(ctx context.Context) ([]Subsidiary, error)
	Entities(ctx context.Context) ([]Entity, error)
}

// ReportRequest identifies the node and period a report is built for.
type ReportRequest struct {
	Level  Level
	Key    string
	Period time.Time
	Mode   Mode
}

// BuildResult pairs the assembled report with the keep/prune outcome for the
// selected node.
type BuildResult struct {
	Kept   bool
	Report Report
}

// Service orchestrates configuration loading, the bounded fact fetches and
// report assembly. Collaborators are injected; the service holds no request
// state.
type Service struct {
	logger    *slog.Logger
	warehouse Warehouse
	config    ConfigStore
}

// NewService wires the reporting service.
func NewService(logger *slog.Logger, warehouse Warehouse, config ConfigStore) *Service {
	return &Service{logger: logger, warehouse: warehouse, config: config}
}

// BuildReport produces the multi-level report for the request. It issues two
// fact fetches for the selected node's summary row and two for the union of
// all descendant customers; every nested aggregate filters those four sets in
// memory.
func (s *Service) BuildReport(ctx context.Context, req ReportRequest) (BuildResult, error) {
	accounts, err := s.config.AccountHierarchy(ctx)
	if err != nil {
		return BuildResult{}, fmt.Errorf("pnl: load account hierarchy: %w", err)
	}
	if err := DetectCycle(accounts); err != nil {
		return BuildResult{}, err
	}

	sel, summaryFilter, err := s.resolveSelection(ctx, req)
	if err != nil {
		return BuildResult{}, err
	}

	memberIDs := selectionCustomerIDs(sel)
	if len(memberIDs) == 0 {
		return BuildResult{}, fmt.Errorf("%w: %s %q", ErrNoEntities, req.Level, req.Key)
	}
	descendantFilter := FactFilter{CustomerIDs: memberIDs}

	var summaryMonth, summaryYTD, month, ytd FactSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.fetch(gctx, summaryFilter, req.Period, false, &summaryMonth) })
	g.Go(func() error { return s.fetch(gctx, summaryFilter, req.Period, true, &summaryYTD) })
	g.Go(func() error { return s.fetch(gctx, descendantFilter, req.Period, false, &month) })
	g.Go(func() error { return s.fetch(gctx, descendantFilter, req.Period, true, &ytd) })
	if err := g.Wait(); err != nil {
		return BuildResult{}, err
	}

	assembler := NewAssembler(accounts, req.Mode)
	result, err := assembler.Assemble(sel, summaryMonth, summaryYTD, month, ytd)
	if err != nil {
		return BuildResult{}, err
	}

	s.logger.Info("report assembled",
		slog.String("level", string(req.Level)),
		slog.String("key", req.Key),
		slog.Int("facilities", result.Node.Counts.Facilities),
		slog.Bool("kept", result.Kept),
	)

	return BuildResult{
		Kept: result.Kept,
		Report: Report{
			Level:     req.Level,
			Key:       req.Key,
			Period:    req.Period,
			Generated: time.Now().UTC(),
			Root:      result.Node,
		},
	}, nil
}

func (s *Service) fetch(ctx context.Context, filter FactFilter, period time.Time, ytd bool, dest *FactSet) error {
	facts, err := s.warehouse.FetchFacts(ctx, filter, period, ytd)
	if err != nil {
		return fmt.Errorf("pnl: fetch facts (ytd=%t): %w", ytd, err)
	}
	dest.Facts = facts
	return nil
}

func (s *Service) resolveSelection(ctx context.Context, req ReportRequest) (Selection, FactFilter, error) {
	switch req.Level {
	case LevelSubsidiary:
		return s.resolveSubsidiary(ctx, req.Key)
	case LevelRegion:
		return s.resolveRegion(ctx, req.Key)
	case LevelDistrict:
		return s.resolveDistrict(ctx, req.Key)
	case LevelFacility:
		return s.resolveFacility(ctx, req.Key)
	default:
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: unsupported level %q", req.Level)
	}
}

func (s *Service) resolveSubsidiary(ctx context.Context, key string) (Selection, FactFilter, error) {
	subsidiaries, err := s.config.Subsidiaries(ctx)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: load subsidiaries: %w", err)
	}
	var subsidiary *Subsidiary
	for i := range subsidiaries {
		if subsidiaries[i].ID == key {
			subsidiary = &subsidiaries[i]
			break
		}
	}
	if subsidiary == nil {
		return Selection{}, FactFilter{}, fmt.Errorf("%w: subsidiary %q", ErrSelectorNotFound, key)
	}

	regions, err := s.config.Regions(ctx)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: load regions: %w", err)
	}
	districts, err := s.config.Districts(ctx)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: load districts: %w", err)
	}

	var scopes []RegionScope
	for _, region := range regions {
		if region.SubsidiaryID != subsidiary.ID {
			continue
		}
		entities, err := s.warehouse.FetchEntitiesInRegion(ctx, region.ID)
		if err != nil {
			return Selection{}, FactFilter{}, fmt.Errorf("pnl: fetch entities for region %q: %w", region.ID, err)
		}
		scopes = append(scopes, RegionScope{Region: region, Entities: entities})
	}

	sel := Selection{
		Level:     LevelSubsidiary,
		Name:      subsidiary.Label,
		Regions:   scopes,
		Districts: districts,
	}
	return sel, FactFilter{SubsidiaryID: subsidiary.ID}, nil
}

func (s *Service) resolveRegion(ctx context.Context, key string) (Selection, FactFilter, error) {
	regions, err := s.config.Regions(ctx)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: load regions: %w", err)
	}
	var region *Region
	for i := range regions {
		if regions[i].ID == key {
			region = &regions[i]
			break
		}
	}
	if region == nil {
		return Selection{}, FactFilter{}, fmt.Errorf("%w: region %q", ErrSelectorNotFound, key)
	}
	districts, err := s.config.Districts(ctx)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: load districts: %w", err)
	}
	entities, err := s.warehouse.FetchEntitiesInRegion(ctx, region.ID)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: fetch entities for region %q: %w", region.ID, err)
	}
	sel := Selection{
		Level:     LevelRegion,
		Name:      region.Label,
		Districts: districts,
		Members:   entities,
	}
	return sel, FactFilter{RegionID: region.ID}, nil
}

// resolveDistrict accepts either a concrete district id or a tag-group key.
// A concrete district flagged ReportingExcluded gets no standalone report;
// its entities still roll into tag groups reached through regions or
// subsidiaries.
func (s *Service) resolveDistrict(ctx context.Context, key string) (Selection, FactFilter, error) {
	districts, err := s.config.Districts(ctx)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: load districts: %w", err)
	}
	entities, err := s.config.Entities(ctx)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: load entities: %w", err)
	}

	for _, district := range districts {
		if district.ID != key {
			continue
		}
		if district.ReportingExcluded {
			return Selection{}, FactFilter{}, fmt.Errorf("%w: district %q", ErrReportingExcluded, key)
		}
		var members []Entity
		for _, e := range entities {
			if e.ParentDistrictID == district.ID {
				members = append(members, e)
			}
		}
		sel := Selection{Level: LevelDistrict, Name: district.Label, Members: members}
		return sel, FactFilter{CustomerIDs: entityIDs(members)}, nil
	}

	for _, group := range GroupCustomersByDistrictTags(entities, districts) {
		if group.Key != key && group.Label != key {
			continue
		}
		sel := Selection{Level: LevelDistrict, Name: group.Label, Members: group.Members}
		return sel, FactFilter{CustomerIDs: entityIDs(group.Members)}, nil
	}

	return Selection{}, FactFilter{}, fmt.Errorf("%w: district %q", ErrSelectorNotFound, key)
}

func (s *Service) resolveFacility(ctx context.Context, key string) (Selection, FactFilter, error) {
	entities, err := s.config.Entities(ctx)
	if err != nil {
		return Selection{}, FactFilter{}, fmt.Errorf("pnl: load entities: %w", err)
	}
	for _, e := range entities {
		if e.ID == key {
			sel := Selection{Level: LevelFacility, Name: e.Label, Members: []Entity{e}}
			return sel, FactFilter{CustomerIDs: []string{e.ID}}, nil
		}
	}
	return Selection{}, FactFilter{}, fmt.Errorf("%w: facility %q", ErrSelectorNotFound, key)
}

func selectionCustomerIDs(sel Selection) []string {
	if sel.Level == LevelSubsidiary {
		var ids []string
		for _, rs := range sel.Regions {
			ids = append(ids, entityIDs(rs.Entities)...)
		}
		return ids
	}
	return entityIDs(sel.Members)
}

func entityIDs(entities []Entity) []string {
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.ID)
	}
	return ids
}
