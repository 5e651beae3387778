package common

import (
	"context"
	"strings"
)

// Origins of a tool call.
const (
	OriginMCP  = "mcp"
	OriginChat = "chat"
)

type originKey struct{}

// ContextWithOrigin marks ctx with the surface issuing a tool call.
func ContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, origin)
}

// OriginFromContext returns the call origin, OriginMCP when unset.
func OriginFromContext(ctx context.Context) string {
	if origin, ok := ctx.Value(originKey{}).(string); ok && origin != "" {
		return origin
	}
	return OriginMCP
}

// GetAttendeeFromArgs extracts the attendee email a booking tool acts on.
// Returns "" for tools without a user_email argument.
func GetAttendeeFromArgs(args map[string]interface{}) string {
	if email, ok := args["user_email"].(string); ok {
		return strings.TrimSpace(email)
	}
	return ""
}

// StringArg returns a trimmed string argument, "" when missing or not a string.
func StringArg(args map[string]interface{}, name string) string {
	if v, ok := args[name].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
