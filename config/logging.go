package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

// LogFilePath returns the path to the backend log file.
func LogFilePath() string {
	if Current.Logger.File != "" {
		return Current.Logger.File
	}
	return filepath.Join("logs", "sitesafe-api.log")
}

// InitLogging configures logrus level and format and tees output to the log file.
func InitLogging() (*os.File, io.Writer) {
	level, err := log.ParseLevel(strings.ToLower(Current.Logger.Level))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(Current.Logger.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	logPath := filepath.Dir(LogFilePath())
	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		log.Warnf("Failed to create logs directory: %v", err)
	}

	logFile, err := os.OpenFile(LogFilePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Warnf("Failed to open log file: %v", err)
		LogWriter = os.Stdout
		log.SetOutput(LogWriter)
		return nil, LogWriter
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(LogWriter)
	return logFile, LogWriter
}
