// Package logger wraps a process-wide zap logger behind the small API used by
// repositories, middleware and services. Call sites never hold a logger.
package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// slowCall is the threshold above which LogDuration reports at info level.
const slowCall = 100 * time.Millisecond

var (
	mu     sync.RWMutex
	base   *zap.Logger
	sugar  *zap.SugaredLogger
	prefix string
	once   sync.Once
)

func initDefault() {
	Init(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV") == "production")
}

// Init replaces the process logger. level is one of debug, info, warn, error;
// production selects the JSON encoder, otherwise a console encoder is used.
func Init(level string, production bool) {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug", "trace":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if production {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))

	mu.Lock()
	defer mu.Unlock()
	base = z
	if prefix != "" {
		z = z.Named(prefix)
	}
	sugar = z.Sugar()
}

func current() *zap.SugaredLogger {
	once.Do(func() {
		mu.RLock()
		ready := sugar != nil
		mu.RUnlock()
		if !ready {
			initDefault()
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// SetPrefix names the logger after the running service ("api", "migrate").
func SetPrefix(p string) {
	current()
	mu.Lock()
	defer mu.Unlock()
	prefix = p
	sugar = base.Named(p).Sugar()
}

// Sync flushes buffered entries; call it before the process exits.
func Sync() {
	_ = current().Sync()
}

func Info(v ...any) { current().Info(v...) }
func Infof(format string, v ...any) { current().Infof(format, v...) }
func Debugf(format string, v ...any) { current().Debugf(format, v...) }
func Errorf(format string, v ...any) { current().Errorf(format, v...) }
func Infow(msg string, kv ...any) { current().Infow(msg, kv...) }
func Errorw(msg string, kv ...any) { current().Errorw(msg, kv...) }
func Debugw(msg string, kv ...any) { current().Debugw(msg, kv...) }

// MaskSessionID keeps only the first four characters of a session id for logs.
func MaskSessionID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}

// LogDuration reports how long fn took. Calls slower than 100ms are logged at
// info; everything else only at debug.
func LogDuration(fn string, start time.Time) {
	elapsed := time.Since(start)
	l := current()
	if elapsed >= slowCall {
		l.Infow("slow call", "fn", fn, "duration_ms", elapsed.Milliseconds())
		return
	}
	l.Debugw("call", "fn", fn, "duration_ms", elapsed.Milliseconds())
}

// DeferLogDuration is meant for defer: defer logger.DeferLogDuration("chat.Create", time.Now())().
func DeferLogDuration(fn string, start time.Time) func() {
	return func() { LogDuration(fn, start) }
}
