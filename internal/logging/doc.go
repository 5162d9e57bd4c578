// Package logging provides structured logging for the tagreg tools.
//
// This package wraps zap with convenience functions for the logging
// patterns used across the registry and CLI. Because resolutions run
// inside builds (often from generated code or build scripts), the
// logger is silent unless explicitly enabled.
//
// # Configuration
//
// Verbosity is controlled by the TAGREG_LOG_LEVEL environment variable
// ("debug", "info", "warn", "error"). When unset, all logging calls hit
// a nop logger and produce no output.
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Debug("tag resolved",
//	    zap.String("namespace", "type-tag"),
//	    zap.String("key", "example.com/geo.Point"),
//	    zap.Bool("minted", false),
//	)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap
// logger handles synchronization automatically.
package logging
