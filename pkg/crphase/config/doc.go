/*
Package config loads crphase settings from files, the environment, and flags.

# Overview

Raw configuration is a map[string]any. Maps come from YAML or JSON files,
from CRPHASE_* environment variables, or from code, and are combined with
Merge. Bind decodes the result into Settings with mapstructure and
validates it with go-playground/validator.

	raw, err := config.FromFile("crphase.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	settings, err := config.Bind(config.Merge(raw, config.FromEnv(os.Environ())))

Load does the same in one call.

# Environment

	CRPHASE_PHASE         checkpoint phase name
	CRPHASE_DEBUG         presence enables diagnostic logging
	CRPHASE_LOG_LEVEL     debug, info, warn, error
	CRPHASE_LOG_FORMAT    text or json
	CRPHASE_JOURNAL_PATH  SQLite journal file
	CRPHASE_METRICS       true to record OTel metrics
	CRPHASE_TRACING       true to record OTel spans

# Errors

Bind returns *BindError whose Stage is "decode" for type or unknown-key
problems and "validate" for out-of-range values. An unrecognized phase name
is not an error: it selects INACTIVE.
*/
package config
