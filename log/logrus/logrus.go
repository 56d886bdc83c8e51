// Package logrus adapts a logrus entry to omnikv.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/omnikv"
)

var _ omnikv.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every entry with component=omnikv.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "omnikv")}
}

func (l LogrusLogger) Debug(msg string, f omnikv.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f omnikv.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f omnikv.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f omnikv.Fields) { l.with(f).Error(msg) }

// with moves an "err" field to logrus' error key.
func (l LogrusLogger) with(f omnikv.Fields) *logrus.Entry {
	e := l.E
	if len(f) == 0 {
		return e
	}
	rest := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		rest[k] = v
	}
	return e.WithFields(rest)
}
