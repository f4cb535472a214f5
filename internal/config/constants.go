package config

// Application constants
const (
	AppName    = "crimestats"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces environment variables, e.g. CRIMESTATS_LOGGING_LEVEL
	EnvPrefix = "CRIMESTATS"

	// File Paths (relative to the working directory)
	DefaultInputFile  = "data/raw/dados_ssp.csv"
	DefaultOutputDir  = "data/processed"
	DefaultLogsDir    = "logs"
	DefaultExcelSheet = "Dados"
	DefaultTable      = "crimes"
)

// Canonical column names produced by the column normalizer
const (
	ColumnCrimeType   = "tipo_crime"
	ColumnCategory    = "categoria_crime"
	ColumnRegion      = "municipio"
	ColumnOccurrences = "ocorrencias"
	ColumnVictims     = "vitimas"
	ColumnPopulation  = "populacao"
	ColumnRate        = "taxa_criminalidade"
	ColumnDate        = "data"
)

// Output formats
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatExcel   = "excel"
	FormatSQL     = "sql"
)

// Well-known output file names
const (
	CleanDataBaseName  = "dados_criminais"
	RegionalBaseName   = "dados_regionais"
	SummaryReportFile  = "summary_report.json"
	MetadataFile       = "metadata.json"
	MetricsTextfile    = "crimestats.prom"
	RatePerInhabitants = 100000
)
