// Package booking implements the booking operations the chat agent can run
// against the scheduling API.
//
// Each operation on Service turns validated arguments into one or more
// calcom.Client calls and renders the outcome as a short text message meant
// to be read by the language model and relayed to the user. Failures are
// returned as errors so the tool layer can mark them as error results.
//
// Times are handled in the user's IANA timezone. API times are UTC; naive
// ISO 8601 inputs are interpreted in the user's zone before conversion.
package booking
