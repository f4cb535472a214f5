package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"crimestats/internal/config"
	"crimestats/internal/dataset"
	"crimestats/internal/extract"
	"crimestats/internal/infrastructure"
	"crimestats/internal/loader"
	"crimestats/internal/transform"
)

// processingMetadata is written to metadata.json after a run
type processingMetadata struct {
	RunID           string                      `json:"run_id"`
	Version         string                      `json:"versao"`
	ProcessedAt     time.Time                   `json:"data_processamento"`
	SourceFile      string                      `json:"arquivo_origem"`
	PopulationFile  string                      `json:"arquivo_populacao,omitempty"`
	RawRecords      int                         `json:"registros_originais"`
	CleanRecords    int                         `json:"registros_processados"`
	RegionalRecords int                         `json:"registros_regionais,omitempty"`
	MissingStrategy string                      `json:"estrategia_valores_ausentes"`
	Validation      transform.ValidationSummary `json:"validacao"`
	Stages          []transform.StageResult     `json:"etapas"`
	Outputs         []string                    `json:"saidas"`
}

// etl wires extractor, transformer and loader for one run
type etl struct {
	cfg         *config.Config
	paths       *config.Paths
	logger      *slog.Logger
	extractor   *extract.Extractor
	transformer *transform.Transformer
	loader      *loader.Loader
	telemetry   *infrastructure.Telemetry
}

func newETL(cfg *config.Config, paths *config.Paths, logger *slog.Logger, telemetry *infrastructure.Telemetry) *etl {
	return &etl{
		cfg:         cfg,
		paths:       paths,
		logger:      logger,
		extractor:   extract.NewExtractor(logger, telemetry),
		transformer: transform.NewTransformer(logger, transform.OptionsFromConfig(cfg.Pipeline)),
		loader:      loader.NewLoader(logger, telemetry, loader.OptionsFromConfig(cfg.Load)),
		telemetry:   telemetry,
	}
}

// Run extracts, transforms and loads. It fails when extraction fails, when
// a pipeline stage fails or when no configured output could be written.
func (e *etl) Run(ctx context.Context) error {
	ctx, span := e.telemetry.StartSpan(ctx, "etl.run")
	defer span.End()

	extractOpts := extract.OptionsFromConfig(e.cfg.Extract)
	raw, err := e.extractor.ExtractLocalFile(ctx, e.paths.InputFile, extractOpts)
	if err != nil {
		return fmt.Errorf("extract %s: %w", e.paths.InputFile, err)
	}

	cleaned, report, err := transform.NewPipeline(e.logger, e.telemetry, e.transformer.DefaultStages()...).Run(ctx, raw)
	if err != nil {
		return err
	}
	summary := e.transformer.Validate(ctx, cleaned)
	stages := report.Stages

	var regional *dataset.Table
	if e.paths.PopulationFile != "" {
		population, err := e.loadPopulation(ctx, extractOpts)
		if err != nil {
			return err
		}
		var regionalReport *transform.RunReport
		regional, regionalReport, err = transform.NewPipeline(e.logger, e.telemetry, e.transformer.RegionalStages(population)...).Run(ctx, cleaned)
		if err != nil {
			return err
		}
		stages = append(stages, regionalReport.Stages...)
	}

	outputs, failed := e.writeOutputs(ctx, cleaned, regional)
	if attempted := len(outputs) + failed; attempted > 0 && len(outputs) == 0 {
		return fmt.Errorf("all %d outputs failed", attempted)
	}

	if e.cfg.Load.Summary {
		if err := e.loader.CreateSummaryReport(ctx, cleaned, e.paths.OutputDir); err == nil {
			outputs = append(outputs, e.paths.SummaryReportPath())
		}
	}

	if e.cfg.Load.Metadata {
		meta := processingMetadata{
			RunID:           infrastructure.RunIDFromContext(ctx),
			Version:         config.AppVersion,
			ProcessedAt:     time.Now().UTC(),
			SourceFile:      e.paths.InputFile,
			PopulationFile:  e.paths.PopulationFile,
			RawRecords:      raw.NumRows(),
			CleanRecords:    cleaned.NumRows(),
			MissingStrategy: string(e.transformer.Options().MissingStrategy),
			Validation:      summary,
			Stages:          stages,
			Outputs:         outputs,
		}
		if regional != nil {
			meta.RegionalRecords = regional.NumRows()
		}
		// metadata failures are logged by the loader and do not fail the run
		_ = e.loader.SaveMetadata(ctx, meta, e.paths.MetadataPath())
	}

	e.logger.InfoContext(ctx, "ETL run completed",
		slog.Int("raw_records", raw.NumRows()),
		slog.Int("clean_records", cleaned.NumRows()),
		slog.Int("outputs", len(outputs)),
		slog.Int("failed_outputs", failed))
	return nil
}

// loadPopulation reads the population reference and normalizes its column
// names so the region key matches the cleaned dataset.
func (e *etl) loadPopulation(ctx context.Context, opts extract.Options) (*dataset.Table, error) {
	population, err := e.extractor.ExtractLocalFile(ctx, e.paths.PopulationFile, opts)
	if err != nil {
		return nil, fmt.Errorf("extract population %s: %w", e.paths.PopulationFile, err)
	}
	return e.transformer.CleanColumnNames(ctx, population)
}

// writeOutputs writes the cleaned and regional datasets in every configured
// format. It returns the destinations written and the number of failures.
func (e *etl) writeOutputs(ctx context.Context, cleaned, regional *dataset.Table) ([]string, int) {
	var written []string
	failed := 0

	save := func(table *dataset.Table, baseName, tableName string) {
		for _, format := range e.cfg.Load.Formats {
			var dest string
			var err error
			switch format {
			case config.FormatCSV:
				dest = e.paths.DatasetPath(baseName, format)
				err = e.loader.SaveCSV(ctx, table, dest)
			case config.FormatParquet:
				dest = e.paths.DatasetPath(baseName, format)
				err = e.loader.SaveParquet(ctx, table, dest)
			case config.FormatExcel:
				dest = e.paths.DatasetPath(baseName, format)
				err = e.loader.SaveExcel(ctx, table, dest)
			case config.FormatSQL:
				dest = tableName
				err = e.loader.SaveDatabase(ctx, table, tableName, e.cfg.Load.DatabaseDSN, loader.IfExists(e.cfg.Load.IfExists))
			default:
				continue
			}
			if err != nil {
				failed++
				continue
			}
			written = append(written, dest)
		}
	}

	save(cleaned, config.CleanDataBaseName, e.cfg.Load.Table)
	if regional != nil {
		save(regional, config.RegionalBaseName, e.cfg.Load.Table+"_regional")
	}
	return written, failed
}
