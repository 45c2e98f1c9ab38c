package logconfig

import (
	logger "github.com/sirupsen/logrus"
)

// Verbose colored output with caller info, for local debugging.
func ConfigDebugLogger() {
	logger.SetReportCaller(true)
	logger.SetLevel(logger.DebugLevel)
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

// The server default: info level, readable terminal output.
func ConfigInfoLogger() {
	logger.SetReportCaller(false)
	logger.SetLevel(logger.InfoLevel)
	logger.SetFormatter(&logger.TextFormatter{
		ForceColors:            true,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

// JSON output for log collectors.
func ConfigProductionLogger() {
	logger.SetLevel(logger.InfoLevel)
	logger.SetFormatter(&logger.JSONFormatter{})
}
