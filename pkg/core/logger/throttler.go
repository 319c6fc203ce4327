package logger

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultThrottleInterval is used when NewLogThrottler gets a zero interval.
const DefaultThrottleInterval = time.Minute

// LogThrottler rate-limits repeated warnings per key. Each instance keeps
// its own limiters, so components throttle independently.
type LogThrottler struct {
	log      *zap.Logger
	interval time.Duration
	keys     sync.Map // map[string]*throttleKey
}

type throttleKey struct {
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewLogThrottler creates a LogThrottler that lets one WARN per key through
// every interval.
func NewLogThrottler(log *zap.Logger, interval time.Duration) *LogThrottler {
	if interval == 0 {
		interval = DefaultThrottleInterval
	}
	return &LogThrottler{
		log:      log,
		interval: interval,
	}
}

// Warn logs as WARN once per interval per key and as DEBUG otherwise.
// The WARN entry carries how many entries were demoted since the last one.
func (t *LogThrottler) Warn(key string, msg string, fields ...zap.Field) {
	k := t.get(key)
	if !k.limiter.Allow() {
		k.suppressed.Add(1)
		t.log.Debug(msg, fields...)
		return
	}
	if n := k.suppressed.Swap(0); n > 0 {
		fields = append(fields, zap.Int64("suppressed", n))
	}
	t.log.Warn(msg, fields...)
}

// Suppressed returns how many entries for key were demoted since the last WARN.
func (t *LogThrottler) Suppressed(key string) int64 {
	if k, ok := t.keys.Load(key); ok {
		return k.(*throttleKey).suppressed.Load()
	}
	return 0
}

func (t *LogThrottler) get(key string) *throttleKey {
	if k, ok := t.keys.Load(key); ok {
		return k.(*throttleKey)
	}
	k := &throttleKey{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
	actual, _ := t.keys.LoadOrStore(key, k)
	return actual.(*throttleKey)
}
