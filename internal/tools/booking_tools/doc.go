// Package booking_tools provides the MCP tools that let a language model
// list, create, cancel and reschedule Cal.com bookings and look up free slots.
//
// The same tool definitions back the /mcp endpoint, the stdio transport and
// the built-in chat agent.
package booking_tools
