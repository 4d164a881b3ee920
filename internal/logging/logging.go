// Package logging configures the process-wide logrus logger.
package logging

import (
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fleetorbit/fleetorbit-api/internal/config"
)

// Setup applies the configured level and output. With a log file configured,
// output goes through lumberjack rotation; otherwise it stays on stdout.
func Setup(cfg config.Config) {
	level, errParse := log.ParseLevel(cfg.Log.Level)
	if errParse != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if cfg.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
			Compress:   true,
		})
	}
}
