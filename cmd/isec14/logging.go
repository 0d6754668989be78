package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func configureLogger(debug bool, format string) error {
	logger.Out = os.Stderr
	if debug {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetReportCaller(true)
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetReportCaller(false)
	}
	switch format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.TimeOnly,
		})
	default:
		return fmt.Errorf("unknown log format %q (text, json)", format)
	}
	return nil
}
