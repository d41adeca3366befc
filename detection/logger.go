package detection

import (
	"fmt"
	"log/slog"
	"strings"
)

// restyLogger routes resty's printf-style logging into slog.
type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
