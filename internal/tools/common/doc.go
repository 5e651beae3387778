// Package common provides shared helpers for the booking tool handlers:
// argument extraction, call origin tracking and the instrumented handler
// wrapper that records metrics, spans and audit logs.
package common
