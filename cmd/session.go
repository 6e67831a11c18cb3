package cmd

import (
	"io"

	"github.com/josephlewis42/flowsh/core/config"
	"github.com/josephlewis42/flowsh/core/logger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openEvents starts a logging session in the configured event log. A nil
// logger is returned when event logging is off.
func openEvents(configuration *config.Configuration) (*logger.SessionLogger, io.Closer, error) {
	if !configuration.LogEvents {
		return nil, nopCloser{}, nil
	}

	fd, err := configuration.OpenEventLog()
	if err != nil {
		return nil, nil, err
	}

	return logger.NewJsonLinesLogRecorder(fd).NewSession(), fd, nil
}
