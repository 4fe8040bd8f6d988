package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"
)

// slowQuery is the threshold above which statements are logged as warnings.
const slowQuery = 200 * time.Millisecond

// gormLogger routes GORM's logging into zerolog.
type gormLogger struct {
	log   zerolog.Logger
	level logger.LogLevel
}

func newGormLogger(l zerolog.Logger) *gormLogger {
	return &gormLogger{log: l, level: logger.Warn}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	n := *l
	n.level = level
	return &n
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Info {
		l.log.Info().Interface("data", data).Msg(msg)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Warn {
		l.log.Warn().Interface("data", data).Msg(msg)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= logger.Error {
		l.log.Error().Interface("data", data).Msg(msg)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && err != logger.ErrRecordNotFound && l.level >= logger.Error:
		l.log.Error().Err(err).Str("sql", sql).Int64("rows", rows).Dur("took", elapsed).Msg("store query failed")
	case elapsed > slowQuery && l.level >= logger.Warn:
		l.log.Warn().Str("sql", sql).Int64("rows", rows).Dur("took", elapsed).Msg("slow store query")
	case l.level == logger.Info:
		l.log.Debug().Str("sql", sql).Int64("rows", rows).Dur("took", elapsed).Msg("store query")
	}
}
