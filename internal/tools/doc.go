// Package tools holds the Registry that serves the booking tools both to
// MCP clients and to the chat agent.
package tools
