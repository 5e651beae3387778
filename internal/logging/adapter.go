package logging

import (
	"log/slog"
	"regexp"
)

// Logger is the small logging interface taken by API clients.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// emailPattern also matches URL-encoded addresses as found in request URLs.
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+(?:@|%40)[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// SlogAdapter implements Logger on top of slog. Email addresses in string
// and error values are replaced with their anonymized form.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps logger, or slog.Default() when logger is nil.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// DefaultLogger returns an adapter for slog.Default().
func DefaultLogger() *SlogAdapter {
	return NewSlogAdapter(nil)
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, redactArgs(args)...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, redactArgs(args)...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, redactArgs(args)...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, redactArgs(args)...) }

// Logger returns the wrapped slog.Logger.
func (a *SlogAdapter) Logger() *slog.Logger {
	return a.logger
}

// RedactEmails replaces every email address in s with AnonymizeEmail of it.
func RedactEmails(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, AnonymizeEmail)
}

func redactArgs(args []any) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case string:
			out[i] = RedactEmails(v)
		case error:
			out[i] = RedactEmails(v.Error())
		case slog.Attr:
			if v.Value.Kind() == slog.KindString {
				v = slog.String(v.Key, RedactEmails(v.Value.String()))
			}
			out[i] = v
		default:
			out[i] = arg
		}
	}
	return out
}
