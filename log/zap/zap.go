// Package zap adapts a *zap.Logger to omnikv.Logger.
package zap

import (
	"slices"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/omnikv"
)

var _ omnikv.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger "omnikv" so store events are easy to filter.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l.Named("omnikv")} }

func (z ZapLogger) Debug(msg string, f omnikv.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f omnikv.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f omnikv.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f omnikv.Fields) { z.L.Error(msg, zf(f)...) }

// zf converts fields in key order; errors become zap.NamedError.
func zf(f omnikv.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
