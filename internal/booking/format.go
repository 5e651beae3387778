package booking

import "time"

// FormatType selects a display layout.
type FormatType string

const (
	FormatTimeOnly FormatType = "time_only"
	FormatDateTime FormatType = "date_time"
	FormatFriendly FormatType = "friendly"
)

var formatLayouts = map[FormatType]string{
	FormatTimeOnly: "15:04",
	FormatDateTime: "2006-01-02 15:04",
	FormatFriendly: "January 02, 2006 at 03:04 PM",
}

// Format renders t for display. Unknown format types fall back to date_time.
func Format(t time.Time, ft FormatType) string {
	layout, ok := formatLayouts[ft]
	if !ok {
		layout = formatLayouts[FormatDateTime]
	}
	return t.Format(layout)
}
