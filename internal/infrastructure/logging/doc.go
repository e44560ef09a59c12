// Package logging wraps log/slog for the gardend daemon.
//
// A single Logger is built at startup from the logging section of
// config.yaml and threaded through the application; components derive
// child loggers with With to tag their lines:
//
//	log := logging.New(cfg.Logging, version)
//	log.With("component", "api").Info("listening", "addr", addr)
//
// JSON output is the default so journald-collected logs stay parseable;
// text format is for running gardend interactively.
//
// Node serials and device IDs are fine to log. Wi-Fi credentials and
// password hashes are not, even at debug level.
package logging
