// Package configstore loads the hierarchy configuration documents the
// reporting core consumes: the account tree, the district/customer org
// hierarchy, regions and subsidiaries. Documents are read once per request
// and treated as immutable.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-fin/helios-pnl/internal/pnl"
)

// Document names in the config_documents table.
const (
	docAccountHierarchy = "account_hierarchy"
	docOrgHierarchy     = "org_hierarchy"
	docRegions          = "regions"
	docSubsidiaries     = "subsidiaries"
)

// ErrDocumentMissing indicates a required configuration document is absent.
var ErrDocumentMissing = errors.New("configstore: document missing")

// Store reads configuration documents from Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a store over the shared pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type accountDoc struct {
	Label               string  `json:"label"`
	Parent              *string `json:"parent"`
	DisplayExcluded     bool    `json:"displayExcluded"`
	OperationalExcluded bool    `json:"operationalExcluded"`
	DoubleLines         bool    `json:"doubleLines"`
}

type orgDoc struct {
	ID                string          `json:"id"`
	Label             string          `json:"label"`
	IsDistrict        bool            `json:"isDistrict"`
	ParentDistrictID  string          `json:"parentDistrictId"`
	Tags              json.RawMessage `json:"tags"`
	ReportingExcluded bool            `json:"reportingExcluded"`
	CensusCode        string          `json:"censusCode"`
	StartDate         *time.Time      `json:"startDate"`
}

type regionDoc struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	SubsidiaryID string `json:"subsidiaryId"`
}

type subsidiaryDoc struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AccountHierarchy loads and validates the account tree. A cyclic parent
// graph is a configuration error reported here, before any aggregation runs.
func (s *Store) AccountHierarchy(ctx context.Context) ([]pnl.AccountNode, error) {
	body, err := s.loadDocument(ctx, docAccountHierarchy)
	if err != nil {
		return nil, err
	}
	accounts, err := parseAccounts(body)
	if err != nil {
		return nil, fmt.Errorf("configstore: %s: %w", docAccountHierarchy, err)
	}
	if err := pnl.DetectCycle(accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// Districts returns the district entries of the org hierarchy document.
func (s *Store) Districts(ctx context.Context) ([]pnl.District, error) {
	docs, err := s.orgDocs(ctx)
	if err != nil {
		return nil, err
	}
	var districts []pnl.District
	for _, doc := range docs {
		if !doc.IsDistrict {
			continue
		}
		districts = append(districts, pnl.District{
			ID:                doc.ID,
			Label:             doc.Label,
			Tags:              decodeTags(doc.Tags),
			ReportingExcluded: doc.ReportingExcluded,
		})
	}
	return districts, nil
}

// Entities returns the facility entries of the org hierarchy document.
func (s *Store) Entities(ctx context.Context) ([]pnl.Entity, error) {
	docs, err := s.orgDocs(ctx)
	if err != nil {
		return nil, err
	}
	var entities []pnl.Entity
	for _, doc := range docs {
		if doc.IsDistrict {
			continue
		}
		entities = append(entities, pnl.Entity{
			ID:               doc.ID,
			Label:            doc.Label,
			ParentDistrictID: doc.ParentDistrictID,
			CensusCode:       doc.CensusCode,
			StartDate:        doc.StartDate,
		})
	}
	return entities, nil
}

// Regions loads the region documents.
func (s *Store) Regions(ctx context.Context) ([]pnl.Region, error) {
	body, err := s.loadDocument(ctx, docRegions)
	if err != nil {
		return nil, err
	}
	var docs []regionDoc
	if err := json.Unmarshal(body, &docs); err != nil {
		return nil, fmt.Errorf("configstore: %s: %w", docRegions, err)
	}
	regions := make([]pnl.Region, 0, len(docs))
	for _, doc := range docs {
		regions = append(regions, pnl.Region{ID: doc.ID, Label: doc.Label, SubsidiaryID: doc.SubsidiaryID})
	}
	return regions, nil
}

// Subsidiaries loads the subsidiary documents.
func (s *Store) Subsidiaries(ctx context.Context) ([]pnl.Subsidiary, error) {
	body, err := s.loadDocument(ctx, docSubsidiaries)
	if err != nil {
		return nil, err
	}
	var docs []subsidiaryDoc
	if err := json.Unmarshal(body, &docs); err != nil {
		return nil, fmt.Errorf("configstore: %s: %w", docSubsidiaries, err)
	}
	subsidiaries := make([]pnl.Subsidiary, 0, len(docs))
	for _, doc := range docs {
		subsidiaries = append(subsidiaries, pnl.Subsidiary{ID: doc.ID, Label: doc.Label})
	}
	return subsidiaries, nil
}

// CensusRecord is display-only side data for a facility. It never feeds
// aggregation math.
type CensusRecord struct {
	Code        string
	Residents   int
	EffectiveAt time.Time
}

// Census looks up the latest census figure for the facility code. A missing
// record is not an error: the figure is optional metadata.
func (s *Store) Census(ctx context.Context, code string) (*CensusRecord, error) {
	const query = `
SELECT code, residents, effective_at
FROM facility_census
WHERE code = $1
ORDER BY effective_at DESC
LIMIT 1`
	var rec CensusRecord
	err := s.pool.QueryRow(ctx, query, code).Scan(&rec.Code, &rec.Residents, &rec.EffectiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("configstore: census %q: %w", code, err)
	}
	return &rec, nil
}

func (s *Store) orgDocs(ctx context.Context) ([]orgDoc, error) {
	body, err := s.loadDocument(ctx, docOrgHierarchy)
	if err != nil {
		return nil, err
	}
	var docs []orgDoc
	if err := json.Unmarshal(body, &docs); err != nil {
		return nil, fmt.Errorf("configstore: %s: %w", docOrgHierarchy, err)
	}
	return docs, nil
}

func (s *Store) loadDocument(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM config_documents WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentMissing, name)
	}
	if err != nil {
		return nil, fmt.Errorf("configstore: load %s: %w", name, err)
	}
	return body, nil
}

func parseAccounts(body []byte) ([]pnl.AccountNode, error) {
	var docs []accountDoc
	if err := json.Unmarshal(body, &docs); err != nil {
		return nil, err
	}
	accounts := make([]pnl.AccountNode, 0, len(docs))
	for _, doc := range docs {
		node := pnl.AccountNode{
			Label:               doc.Label,
			DisplayExcluded:     doc.DisplayExcluded,
			OperationalExcluded: doc.OperationalExcluded,
			DoubleLines:         doc.DoubleLines,
		}
		if doc.Parent != nil {
			node.ParentLabel = *doc.Parent
		}
		accounts = append(accounts, node)
	}
	return accounts, nil
}

// decodeTags tolerates malformed tag fields: anything that is not a JSON
// string array is treated as no tags, which triggers the district-label
// fallback downstream.
func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil
	}
	return tags
}
