package log

import (
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalAdapter routes Temporal SDK, workflow and activity logs into zerolog.
// Key/value pairs become JSON fields; a dangling key is logged as "extra".
type TemporalAdapter struct {
	logger zerolog.Logger
}

var _ log.Logger = (*TemporalAdapter)(nil)

func NewTemporalAdapter(logger zerolog.Logger) *TemporalAdapter {
	return &TemporalAdapter{logger: logger.With().Str("component", "temporal").Logger()}
}

func (t *TemporalAdapter) Debug(msg string, keyvals ...interface{}) { t.emit(zerolog.DebugLevel, msg, keyvals) }
func (t *TemporalAdapter) Info(msg string, keyvals ...interface{}) { t.emit(zerolog.InfoLevel, msg, keyvals) }
func (t *TemporalAdapter) Warn(msg string, keyvals ...interface{}) { t.emit(zerolog.WarnLevel, msg, keyvals) }
func (t *TemporalAdapter) Error(msg string, keyvals ...interface{}) { t.emit(zerolog.ErrorLevel, msg, keyvals) }

func (t *TemporalAdapter) With(keyvals ...interface{}) log.Logger {
	return &TemporalAdapter{logger: t.logger.With().Fields(pairs(keyvals)).Logger()}
}

func (t *TemporalAdapter) emit(level zerolog.Level, msg string, keyvals []interface{}) {
	t.logger.WithLevel(level).Fields(pairs(keyvals)).Msg(msg)
}

func pairs(keyvals []interface{}) []interface{} {
	if len(keyvals)%2 == 0 {
		return keyvals
	}
	out := make([]interface{}, 0, len(keyvals)+1)
	out = append(out, keyvals[:len(keyvals)-1]...)
	return append(out, "extra", keyvals[len(keyvals)-1])
}
