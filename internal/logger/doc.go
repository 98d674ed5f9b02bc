// Package logger provides a simple, thread-safe logging facility.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, optional scope, and message.
// The scope names where the entry came from, typically the target address
// or the workload being run.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Benchmark starting")
//	logger.Info("127.0.0.1:6379", "Connected")
//	logger.Error("PUT", "Run aborted: %v", err)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stdout, logger.LevelDebug)
//	l.Debug("GET", "Debug message")
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// ParseLevel converts the names used in config files and flags.
//
// # Thread Safety
//
// All logging operations are protected by a mutex and safe for concurrent use.
package logger
