package instrumentation

import "strings"

// ExtractUserDomain reduces an attendee email to its lower-cased domain for
// metric labels and anonymized logs. Anything that is not an address maps
// to "unknown".
func ExtractUserDomain(email string) string {
	_, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return "unknown"
	}
	return strings.ToLower(domain)
}

// Booking operations, used as the operation label of tool and Cal.com
// metrics and spans.
const (
	OperationList       = "list"
	OperationSlots      = "slots"
	OperationCreate     = "create"
	OperationCancel     = "cancel"
	OperationReschedule = "reschedule"
)
