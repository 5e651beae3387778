package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Attribute keys shared by every calchat component.
const (
	KeyComponent  = "component"
	KeySession    = "session_id"
	KeyModel      = "model"
	KeyTool       = "tool"
	KeyUserHash   = "user_hash"
	KeyTimezone   = "timezone"
	KeyBookingUID = "booking_uid"
	KeyError      = "error"
)

// NewLogger returns a text slog.Logger writing to w.
// Debug enables debug level output.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithComponent tags every record of logger with the component that wrote it,
// e.g. "chat", "agent" or "booking".
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String(KeyComponent, component))
}

// WithSession tags every record of logger with a chat session id.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With(Session(sessionID))
}

func Session(sessionID string) slog.Attr {
	return slog.String(KeySession, sessionID)
}

func Model(model string) slog.Attr {
	return slog.String(KeyModel, model)
}

func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Timezone returns the IANA name a booking operation resolved to.
func Timezone(zone string) slog.Attr {
	return slog.String(KeyTimezone, zone)
}

func BookingUID(uid string) slog.Attr {
	return slog.String(KeyBookingUID, uid)
}

// Err returns an error attribute. A nil error yields an empty group, which
// slog drops, so Err(maybeNil) is always safe to pass.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an attendee email so log lines can be correlated
// without carrying the address. Case and surrounding space are ignored.
func AnonymizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(sum[:8])
}

// UserHash returns the anonymized attendee attribute.
//
//	logger.Info("cancelling booking", logging.UserHash(email))
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken describes a secret by its length only.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
