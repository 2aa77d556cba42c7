package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func TestGormLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM entity_mappings", 1 }

	t.Run("query traces carry the sync identifiers from context", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Info)

		ctx, _ := WithStoreID(context.Background(), zap.NewNop(), "shop-42")
		ctx, _ = WithOrderID(ctx, zap.NewNop(), "9001")
		gl.Trace(ctx, time.Now(), query, nil)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "query", entry.Message)
		assert.Equal(t, "shop-42", entry.ContextMap()["store_id"])
		assert.Equal(t, "9001", entry.ContextMap()["order_id"])
	})

	t.Run("slow queries log at warn with the threshold", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Nanosecond))

		begin := time.Now().Add(-time.Millisecond)
		gl.Trace(context.Background(), begin, query, nil)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Equal(t, "slow query", entry.Message)
	})

	t.Run("record-not-found errors are suppressed by default", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("other query errors log at error", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Error)

		gl.Trace(context.Background(), time.Now(), query, assert.AnError)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "query failed", logs.All()[0].Message)
	})

	t.Run("silent level drops everything", func(t *testing.T) {
		gl, logs := observedGormLogger(gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), query, assert.AnError)

		assert.Equal(t, 0, logs.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
}
