package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// levelCore overrides the level of the core it wraps, so one logger can be
// quieter (or louder) than the shared atomic level.
type levelCore struct {
	zapcore.Core

	minimum zapcore.Level
}

func (c *levelCore) Enabled(l zapcore.Level) bool {
	return c.minimum.Enabled(l)
}

//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

//nolint:ireturn,nolintlint // zapcore.Core is what zap expects back.
func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), minimum: c.minimum}
}

// WithLevel pins the minimum level of a logger, e.g. error-only for --quiet.
//
//nolint:ireturn,nolintlint // zap.Option is what zap expects back.
func WithLevel(minimum zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &levelCore{Core: core, minimum: minimum}
	})
}
