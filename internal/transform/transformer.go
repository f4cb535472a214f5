package transform

import (
	"log/slog"

	"crimestats/internal/config"
	"crimestats/internal/infrastructure"
)

// Options holds the column vocabulary and stage parameters of a run
type Options struct {
	DedupeSubset      []string
	MissingStrategy   MissingStrategy
	DateColumns       []string
	DateLayouts       []string
	CrimeColumn       string
	CategoryColumn    string
	RegionColumn      string
	OccurrencesColumn string
	VictimsColumn     string
	PopulationColumn  string
	RateColumn        string
	Taxonomy          []Category
}

// DefaultOptions returns the canonical column names and the default taxonomy
func DefaultOptions() Options {
	return Options{
		MissingStrategy:   StrategyDrop,
		DateColumns:       []string{config.ColumnDate},
		DateLayouts:       DefaultDateLayouts,
		CrimeColumn:       config.ColumnCrimeType,
		CategoryColumn:    config.ColumnCategory,
		RegionColumn:      config.ColumnRegion,
		OccurrencesColumn: config.ColumnOccurrences,
		VictimsColumn:     config.ColumnVictims,
		PopulationColumn:  config.ColumnPopulation,
		RateColumn:        config.ColumnRate,
		Taxonomy:          DefaultTaxonomy,
	}
}

// OptionsFromConfig builds Options from the pipeline configuration
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	opts := DefaultOptions()
	opts.DedupeSubset = cfg.DedupeSubset
	if cfg.MissingStrategy != "" {
		opts.MissingStrategy = MissingStrategy(cfg.MissingStrategy)
	}
	if cfg.DateColumns != nil {
		opts.DateColumns = cfg.DateColumns
	}
	if cfg.CrimeColumn != "" {
		opts.CrimeColumn = cfg.CrimeColumn
	}
	if cfg.RegionColumn != "" {
		opts.RegionColumn = cfg.RegionColumn
	}
	if cfg.OccurrencesColumn != "" {
		opts.OccurrencesColumn = cfg.OccurrencesColumn
	}
	if cfg.VictimsColumn != "" {
		opts.VictimsColumn = cfg.VictimsColumn
	}
	if cfg.PopulationColumn != "" {
		opts.PopulationColumn = cfg.PopulationColumn
	}
	return opts
}

// Transformer runs the transform stages with a run-scoped logger
type Transformer struct {
	logger *slog.Logger
	opts   Options
}

// NewTransformer creates a transformer. A nil logger falls back to slog.Default().
func NewTransformer(logger *slog.Logger, opts Options) *Transformer {
	if opts.Taxonomy == nil {
		opts.Taxonomy = DefaultTaxonomy
	}
	if opts.DateLayouts == nil {
		opts.DateLayouts = DefaultDateLayouts
	}
	if opts.CategoryColumn == "" {
		opts.CategoryColumn = config.ColumnCategory
	}
	if opts.RateColumn == "" {
		opts.RateColumn = config.ColumnRate
	}
	return &Transformer{
		logger: infrastructure.WithComponent(logger, "transform"),
		opts:   opts,
	}
}

// Options returns the options the transformer was built with
func (t *Transformer) Options() Options {
	return t.opts
}
