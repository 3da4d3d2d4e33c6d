// Package logging provides the companion's structured logger, a thin layer
// over log/slog.
//
// Entries are JSON by default (text with format: text) and always carry
// service and version. After the board identifier is resolved the
// composition root derives a logger with ForBoard, and each component gets
// its own tag through Component. Attributes named password, secret or
// influxdb_token are redacted before they reach the output.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	log := logging.New(cfg.Logging, version).ForBoard(token)
//	log.Component("gpio").Info("pin registered", "pin", "GPIO_34")
package logging
