// Package logging provides structured logging utilities for calchat.
//
// It centralizes the attribute names and PII handling used across the
// booking client, the agent loop and the chat server, all built on log/slog.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithComponent(slog.Default(), "booking")
//	logger.Info("cancelling booking",
//	    logging.UserHash(email),
//	    logging.Timezone(zone.String()))
//
// Attendee emails are hashed before they reach general logs. API keys are
// never logged, only their length via SanitizeToken.
package logging
