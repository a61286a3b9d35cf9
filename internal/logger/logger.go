package logger

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"ghee-storefront/internal/config"
)

// New builds the process logger from LOG_LEVEL / LOG_FORMAT.
func New(cfg config.Log, environment string) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "text") {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	logger.AddHook(&staticFieldsHook{fields: log.Fields{"environment": environment}})
	return logger
}

type staticFieldsHook struct {
	fields log.Fields
}

func (h *staticFieldsHook) Levels() []log.Level {
	return log.AllLevels
}

func (h *staticFieldsHook) Fire(entry *log.Entry) error {
	for k, v := range h.fields {
		if _, ok := entry.Data[k]; !ok {
			entry.Data[k] = v
		}
	}
	return nil
}

// Component returns an entry tagged with the component name.
func Component(logger log.FieldLogger, name string) *log.Entry {
	return logger.WithField("component", name)
}

// Discard is a logger for tests.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
