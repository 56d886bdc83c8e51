// Package zerolog adapts a zerolog.Logger to omnikv.Logger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/omnikv"
)

var _ omnikv.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

// New adds component=omnikv to every event.
func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "omnikv").Logger()}
}

func (z Logger) Debug(msg string, f omnikv.Fields) { send(z.L.Debug(), msg, f) }
func (z Logger) Info(msg string, f omnikv.Fields)  { send(z.L.Info(), msg, f) }
func (z Logger) Warn(msg string, f omnikv.Fields)  { send(z.L.Warn(), msg, f) }
func (z Logger) Error(msg string, f omnikv.Fields) { send(z.L.Error(), msg, f) }

// send is a no-op for events below the logger level (e is nil then).
func send(e *zerolog.Event, msg string, f omnikv.Fields) {
	if e == nil {
		return
	}
	for k, v := range f {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
