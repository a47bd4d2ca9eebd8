// Package catalog holds the closed vocabularies offered by the UI selectors:
// data sources, period granularities and their calendar units.
package catalog

import (
	"context"
	"fmt"

	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/labels"
	"github.com/irfndi/foresight-go/internal/period"
)

// SourceDef describes one data source.
type SourceDef struct {
	Label   string   `json:"label"`
	ID      string   `json:"id"`
	Periods []string `json:"periods,omitempty"`
}

// PeriodDef describes one granularity: its display label, the fetch-facing
// identifier and the calendar unit used to step dates.
type PeriodDef struct {
	Label string `json:"label"`
	ID    string `json:"id"`
	Unit  string `json:"unit"`
}

// Catalog is the validated, immutable set of registries built at startup.
type Catalog struct {
	Sources *labels.Registry
	Periods *labels.Registry
	Adapter *period.Adapter

	support map[string]map[string]struct{}
}

// Source is a read model of the catalog for the API.
type Source struct {
	Label   string   `json:"label"`
	Periods []string `json:"periods"`
}

// Build validates the definitions and assembles the registries. Any
// violation is reported as labels.ErrRegistryIntegrity.
func Build(sources []SourceDef, periods []PeriodDef) (*Catalog, error) {
	sourceEntries := make([]labels.Entry, len(sources))
	for i, s := range sources {
		sourceEntries[i] = labels.Entry{Label: s.Label, ID: s.ID}
	}
	sourceReg, err := labels.New("sources", sourceEntries)
	if err != nil {
		return nil, err
	}

	periodEntries := make([]labels.Entry, len(periods))
	unitEntries := make([]labels.Entry, len(periods))
	for i, p := range periods {
		periodEntries[i] = labels.Entry{Label: p.Label, ID: p.ID}
		unitEntries[i] = labels.Entry{Label: p.Unit, ID: p.ID}
	}
	periodReg, err := labels.New("periods", periodEntries)
	if err != nil {
		return nil, err
	}
	unitReg, err := labels.New("period_units", unitEntries)
	if err != nil {
		return nil, err
	}
	adapter, err := period.NewAdapter(unitReg)
	if err != nil {
		return nil, err
	}
	if err := adapter.Validate(periodReg.IDs()); err != nil {
		return nil, err
	}

	if sourceReg.Len() == 0 {
		return nil, &labels.IntegrityError{Registry: "sources", Index: 0, Reason: "no data sources configured"}
	}
	if periodReg.Len() == 0 {
		return nil, &labels.IntegrityError{Registry: "periods", Index: 0, Reason: "no periods configured"}
	}

	support := make(map[string]map[string]struct{}, len(sources))
	for i, s := range sources {
		if len(s.Periods) == 0 {
			continue
		}
		allowed := make(map[string]struct{}, len(s.Periods))
		for _, p := range s.Periods {
			if !periodReg.HasID(p) {
				return nil, &labels.IntegrityError{
					Registry: "sources",
					Index:    i,
					Reason:   fmt.Sprintf("source %q lists unknown period %q", s.ID, p),
				}
			}
			allowed[p] = struct{}{}
		}
		support[s.ID] = allowed
	}

	return &Catalog{
		Sources: sourceReg,
		Periods: periodReg,
		Adapter: adapter,
		support: support,
	}, nil
}

// Supports reports whether the source can be fetched at the granularity.
func (c *Catalog) Supports(sourceID, periodID string) bool {
	if !c.Sources.HasID(sourceID) || !c.Periods.HasID(periodID) {
		return false
	}
	allowed, restricted := c.support[sourceID]
	if !restricted {
		return true
	}
	_, ok := allowed[periodID]
	return ok
}

// SourceList returns sources with the period labels each one supports.
func (c *Catalog) SourceList() []Source {
	out := make([]Source, 0, c.Sources.Len())
	for _, e := range c.Sources.Entries() {
		src := Source{Label: e.Label, Periods: []string{}}
		for _, p := range c.Periods.Entries() {
			if c.Supports(e.ID, p.ID) {
				src.Periods = append(src.Periods, p.Label)
			}
		}
		out = append(out, src)
	}
	return out
}

// Repository loads catalog definitions from persistent storage.
type Repository interface {
	ListSources(ctx context.Context) ([]SourceDef, error)
	ListPeriods(ctx context.Context) ([]PeriodDef, error)
}

// FromConfig converts the configured catalog into definitions.
func FromConfig(cfg config.CatalogConfig) ([]SourceDef, []PeriodDef) {
	sources := make([]SourceDef, len(cfg.Sources))
	for i, s := range cfg.Sources {
		sources[i] = SourceDef{Label: s.Label, ID: s.ID, Periods: s.Periods}
	}
	periods := make([]PeriodDef, len(cfg.Periods))
	for i, p := range cfg.Periods {
		periods[i] = PeriodDef{Label: p.Label, ID: p.ID, Unit: p.Unit}
	}
	return sources, periods
}

// Load builds the catalog from repo when one is given, otherwise from config.
func Load(ctx context.Context, cfg config.CatalogConfig, repo Repository) (*Catalog, error) {
	if repo == nil {
		return Build(FromConfig(cfg))
	}

	sources, err := repo.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load data sources: %w", err)
	}
	periods, err := repo.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load periods: %w", err)
	}
	return Build(sources, periods)
}
