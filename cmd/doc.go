// Package cmd implements the command-line interface for calchat.
//
// This package provides the following commands:
//   - serve: Start the chat server with the MCP endpoint, or MCP over stdio
//   - chat: Chat with the booking assistant in the terminal
//   - tools: List the booking tools or call one directly
//   - generate-docs: Generate markdown documentation for the booking tools
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
//
// Configuration is resolved by viper from flags, environment variables and
// an optional calchat.yaml, in that order.
package cmd
