// Package config provides configuration management for the crimestats ETL.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML file (crimestats.yaml, configs/crimestats.yaml or an explicit path)
//	3. Default values from Default() (lowest priority)
//
// Defaults live in Default() rather than in `default` struct tags so that a
// value from the YAML file is not reset by envconfig when the matching
// variable is unset.
//
// # Environment Variables
//
// All environment variables follow the pattern CRIMESTATS_<SECTION>_<FIELD>:
//
//	CRIMESTATS_LOGGING_LEVEL=debug
//	CRIMESTATS_PATHS_OUTPUT_DIR=data/processed
//	CRIMESTATS_PIPELINE_MISSING_STRATEGY=fill_median
//	CRIMESTATS_LOAD_FORMATS=csv,parquet,excel
//	CRIMESTATS_LOAD_DATABASE_DSN=file:crimes.db
//
// # Validation
//
// Load validates the result with go-playground/validator struct tags and a
// few cross-field rules (sql output needs a DSN). Errors are CONFIG AppErrors.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	paths, err := config.ResolvePaths(cfg.Paths)
package config
