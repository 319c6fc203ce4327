package logger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogThrottler_DefaultInterval(t *testing.T) {
	throttler := NewLogThrottler(zap.NewNop(), 0)

	require.NotNil(t, throttler)
	assert.Equal(t, DefaultThrottleInterval, throttler.interval)
}

func TestLogThrottler_Warn_FirstCallLogsWarn(t *testing.T) {
	// Given: a new throttler with observer
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Minute)

	// When: first call with a key
	throttler.Warn("skipped-document", "document skipped", zap.String("collection", "orders"))

	// Then: should log as WARN without a suppressed counter
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "orders", entry.ContextMap()["collection"])
	assert.NotContains(t, entry.ContextMap(), "suppressed")
}

func TestLogThrottler_Warn_SubsequentCallsLogDebug(t *testing.T) {
	// Given: a throttler with a long interval
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	// When: multiple calls with the same key
	throttler.Warn("key", "first")
	throttler.Warn("key", "second")
	throttler.Warn("key", "third")

	// Then: first is WARN, rest are DEBUG and counted
	require.Equal(t, 3, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[2].Level)
	assert.Equal(t, int64(2), throttler.Suppressed("key"))
}

func TestLogThrottler_Warn_ReportsSuppressedCount(t *testing.T) {
	// Given: a throttler whose token refills quickly
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), 20*time.Millisecond)

	// When: two demoted calls happen before the next allowed WARN
	throttler.Warn("key", "msg")
	throttler.Warn("key", "msg")
	throttler.Warn("key", "msg")
	time.Sleep(50 * time.Millisecond)
	throttler.Warn("key", "msg")

	// Then: the second WARN carries the suppressed count and resets it
	require.Equal(t, 4, logs.Len())
	last := logs.All()[3]
	assert.Equal(t, zapcore.WarnLevel, last.Level)
	assert.Equal(t, int64(2), last.ContextMap()["suppressed"])
	assert.Zero(t, throttler.Suppressed("key"))
}

func TestLogThrottler_Warn_DifferentKeysAreIndependent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	throttler.Warn("key-1", "message")
	throttler.Warn("key-2", "message")
	throttler.Warn("key-3", "message")

	require.Equal(t, 3, logs.Len())
	for i, entry := range logs.All() {
		assert.Equal(t, zapcore.WarnLevel, entry.Level, "entry %d should be WARN", i)
	}
}

func TestLogThrottler_ConcurrentAccess(t *testing.T) {
	// Given: a throttler
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	// When: concurrent access from multiple goroutines
	var wg sync.WaitGroup
	const goroutines, calls = 50, 10
	for i := range goroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for range calls {
				throttler.Warn("shared-key", "concurrent message", zap.Int("goroutine", id))
			}
		}(i)
	}
	wg.Wait()

	// Then: exactly one WARN got through
	require.Equal(t, goroutines*calls, logs.Len())
	warnCount := logs.FilterLevelExact(zapcore.WarnLevel).Len()
	assert.Equal(t, 1, warnCount)
	assert.Equal(t, int64(goroutines*calls-1), throttler.Suppressed("shared-key"))
}

func TestLogThrottler_Suppressed_UnknownKey(t *testing.T) {
	throttler := NewLogThrottler(zap.NewNop(), time.Minute)

	assert.Zero(t, throttler.Suppressed("never-used"))
}
