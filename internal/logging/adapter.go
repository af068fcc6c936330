package logging

import (
	"log/slog"
	"strings"
)

// Logger is the small logging surface the HTTP and metrics servers depend
// on. Arguments are alternating key-value pairs, as with slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// secretKeys are argument keys whose string values are masked.
var secretKeys = []string{"token", "secret", "code", "gsessionid", "password"}

// SlogAdapter implements Logger on an slog.Logger. String values under keys
// that look like credentials are passed through SanitizeToken.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger; nil means slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, maskArgs(args)...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, maskArgs(args)...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, maskArgs(args)...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, maskArgs(args)...) }

// With returns an adapter that adds args to every record.
func (a *SlogAdapter) With(args ...any) *SlogAdapter {
	return &SlogAdapter{logger: a.logger.With(maskArgs(args)...)}
}

// Logger returns the underlying slog.Logger.
func (a *SlogAdapter) Logger() *slog.Logger {
	return a.logger
}

// DefaultLogger returns an adapter over slog.Default().
func DefaultLogger() *SlogAdapter {
	return NewSlogAdapter(slog.Default())
}

// maskArgs copies args, replacing string values of secret keys. slog.Attr
// arguments are checked the same way.
func maskArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}
	out := make([]any, len(args))
	copy(out, args)

	for i := 0; i < len(out); i++ {
		switch v := out[i].(type) {
		case slog.Attr:
			if isSecretKey(v.Key) && v.Value.Kind() == slog.KindString {
				out[i] = slog.String(v.Key, SanitizeToken(v.Value.String()))
			}
		case string:
			if i+1 >= len(out) {
				return out
			}
			if s, ok := out[i+1].(string); ok && isSecretKey(v) {
				out[i+1] = SanitizeToken(s)
			}
			i++
		}
	}
	return out
}

func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range secretKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
