package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "crimestats/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Extract   ExtractConfig   `yaml:"extract" envconfig:"EXTRACT"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Load      LoadConfig      `yaml:"load" envconfig:"LOAD"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level     string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output    string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath  string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
	AddSource bool   `yaml:"add_source" envconfig:"ADD_SOURCE"`
}

// PathsConfig contains input and output locations
type PathsConfig struct {
	InputFile      string `yaml:"input_file" envconfig:"INPUT_FILE"`
	PopulationFile string `yaml:"population_file" envconfig:"POPULATION_FILE"`
	OutputDir      string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	LogsDir        string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// ExtractConfig holds parsing options for source files
type ExtractConfig struct {
	Delimiter  string   `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`
	Encoding   string   `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=utf-8 utf8 latin1 iso-8859-1"`
	Sheet      string   `yaml:"sheet" envconfig:"SHEET"`
	HeaderRow  int      `yaml:"header_row" envconfig:"HEADER_ROW" validate:"min=0"`
	Decimal    string   `yaml:"decimal" envconfig:"DECIMAL" validate:"len=1"`
	Thousands  string   `yaml:"thousands" envconfig:"THOUSANDS" validate:"max=1"`
	NullValues []string `yaml:"null_values" envconfig:"NULL_VALUES"`
}

// PipelineConfig selects the transform behavior and the canonical column names
type PipelineConfig struct {
	// MissingStrategy is not restricted here: unknown strategies are a
	// logged no-op in the transform stage.
	MissingStrategy   string   `yaml:"missing_strategy" envconfig:"MISSING_STRATEGY"`
	DedupeSubset      []string `yaml:"dedupe_subset" envconfig:"DEDUPE_SUBSET"`
	DateColumns       []string `yaml:"date_columns" envconfig:"DATE_COLUMNS"`
	CrimeColumn       string   `yaml:"crime_column" envconfig:"CRIME_COLUMN" validate:"required"`
	RegionColumn      string   `yaml:"region_column" envconfig:"REGION_COLUMN" validate:"required"`
	OccurrencesColumn string   `yaml:"occurrences_column" envconfig:"OCCURRENCES_COLUMN" validate:"required"`
	VictimsColumn     string   `yaml:"victims_column" envconfig:"VICTIMS_COLUMN" validate:"required"`
	PopulationColumn  string   `yaml:"population_column" envconfig:"POPULATION_COLUMN" validate:"required"`
}

// LoadConfig selects output formats and writer options
type LoadConfig struct {
	Formats     []string `yaml:"formats" envconfig:"FORMATS" validate:"dive,oneof=csv parquet excel sql"`
	CSVBOM      bool     `yaml:"csv_bom" envconfig:"CSV_BOM"`
	ExcelSheet  string   `yaml:"excel_sheet" envconfig:"EXCEL_SHEET" validate:"required"`
	DatabaseDSN string   `yaml:"database_dsn" envconfig:"DATABASE_DSN"`
	Table       string   `yaml:"table" envconfig:"TABLE" validate:"required"`
	IfExists    string   `yaml:"if_exists" envconfig:"IF_EXISTS" validate:"oneof=fail replace append"`
	Summary     bool     `yaml:"summary" envconfig:"SUMMARY"`
	Metadata    bool     `yaml:"metadata" envconfig:"METADATA"`
}

// TelemetryConfig contains tracing and metrics configuration
type TelemetryConfig struct {
	ServiceName     string  `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter   string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	SampleRatio     float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"min=0,max=1"`
	MetricsTextfile string  `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// HasFormat reports whether the named output format is enabled
func (c LoadConfig) HasFormat(format string) bool {
	for _, f := range c.Formats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// Load builds the configuration from defaults, an optional YAML file and
// CRIMESTATS_* environment variables, in increasing order of precedence.
// An empty path searches the default locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("failed to load config from %s", path), err)
		}
	}

	// Only variables that are set override; Default() carries the defaults.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize lowercases enumerated values so validation is case-insensitive
func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.Extract.Encoding = strings.ToLower(c.Extract.Encoding)
	c.Pipeline.MissingStrategy = strings.ToLower(strings.TrimSpace(c.Pipeline.MissingStrategy))
	c.Load.IfExists = strings.ToLower(c.Load.IfExists)
	c.Telemetry.TraceExporter = strings.ToLower(c.Telemetry.TraceExporter)
	for i, f := range c.Load.Formats {
		c.Load.Formats[i] = strings.ToLower(strings.TrimSpace(f))
	}
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}

	if c.Load.HasFormat(FormatSQL) && c.Load.DatabaseDSN == "" {
		return apperrors.NewConfigError("sql output requires load.database_dsn", nil)
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"crimestats.yaml",
		"configs/crimestats.yaml",
		"../configs/crimestats.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/crimestats.log",
		},
		Paths: PathsConfig{
			InputFile: DefaultInputFile,
			OutputDir: DefaultOutputDir,
			LogsDir:   DefaultLogsDir,
		},
		Extract: ExtractConfig{
			Delimiter:  ";",
			Encoding:   "utf-8",
			HeaderRow:  0,
			Decimal:    ".",
			NullValues: []string{"", "NA", "N/A", "NaN", "null", "-"},
		},
		Pipeline: PipelineConfig{
			MissingStrategy:   "drop",
			DateColumns:       []string{ColumnDate},
			CrimeColumn:       ColumnCrimeType,
			RegionColumn:      ColumnRegion,
			OccurrencesColumn: ColumnOccurrences,
			VictimsColumn:     ColumnVictims,
			PopulationColumn:  ColumnPopulation,
		},
		Load: LoadConfig{
			Formats:    []string{FormatCSV, FormatParquet},
			CSVBOM:     true,
			ExcelSheet: DefaultExcelSheet,
			Table:      DefaultTable,
			IfExists:   "replace",
			Summary:    true,
			Metadata:   true,
		},
		Telemetry: TelemetryConfig{
			ServiceName:     AppName,
			TraceExporter:   "none",
			SampleRatio:     1.0,
			MetricsTextfile: MetricsTextfile,
		},
	}
}
