// Package config provides centralized configuration management for RosterKit.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A .env file in the working directory (never overrides real env vars)
//	3. Configuration files (YAML)
//	4. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern ROSTERKIT_* for namespacing:
//
//	ROSTERKIT_SERVER_PORT=8080
//	ROSTERKIT_LOGGING_LEVEL=info
//	ROSTERKIT_REPORT_THEME=dark
//	ROSTERKIT_AUDIT_ENABLED=true
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	sourcePath := paths.GetInputPath("employee_data.csv")
//	chartPath := paths.AgeDistributionPNG
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Required fields are present
//	- Values are within acceptable ranges
//	- File paths are accessible
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
