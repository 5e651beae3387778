package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calchat/internal/booking"
	"github.com/teemow/calchat/internal/server"
	"github.com/teemow/calchat/internal/tools"
	"github.com/teemow/calchat/internal/tools/booking_tools"
)

func TestParseToolArgs(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: map[string]any{}},
		{
			name:  "pairs",
			pairs: []string{"user_email=jane@example.com", " date =2030-01-02"},
			want:  map[string]any{"user_email": "jane@example.com", "date": "2030-01-02"},
		},
		{
			name:  "value with equals sign",
			pairs: []string{"title=a=b"},
			want:  map[string]any{"title": "a=b"},
		},
		{name: "empty value", pairs: []string{"title="}, want: map[string]any{"title": ""}},
		{name: "missing separator", pairs: []string{"title"}, wantErr: true},
		{name: "missing key", pairs: []string{"=value"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToolArgs(tt.pairs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListTools(t *testing.T) {
	sc, err := server.NewServerContext(booking.NewService(nil, 0, nil))
	require.NoError(t, err)
	defer func() { _ = sc.Shutdown() }()

	var out bytes.Buffer
	listTools(&out, tools.NewRegistry(booking_tools.Tools(sc)...))

	lines := strings.Split(out.String(), "\n")
	var names []string
	for _, line := range lines {
		if line != "" && !strings.HasPrefix(line, " ") {
			names = append(names, line)
		}
	}
	assert.Equal(t, []string{"cancel_booking", "create_booking", "get_available_slots", "list_bookings", "reschedule_booking"}, names)
}

func TestGenerateDocs(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runGenerateDocs(&out, ""))

	md := out.String()
	assert.True(t, strings.HasPrefix(md, "# Booking Tools Reference"))
	assert.Contains(t, md, "- [Booking Change Tools](#booking-change-tools)")
	assert.Contains(t, md, "- [Lookup Tools](#lookup-tools)")
	for _, name := range []string{"list_bookings", "get_available_slots", "create_booking", "cancel_booking", "reschedule_booking"} {
		assert.Contains(t, md, "### "+name+"\n")
	}
	assert.Contains(t, md, "- `user_email` (required): ")
	assert.Contains(t, md, "- `user_timezone` (optional): ")
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := map[string]string{
		"list_bookings":       "Lookup Tools",
		"get_available_slots": "Lookup Tools",
		"create_booking":      "Booking Change Tools",
		"cancel_booking":      "Booking Change Tools",
		"reschedule_booking":  "Booking Change Tools",
		"whatever":            "Other",
	}
	for name, want := range tests {
		assert.Equal(t, want, getCategoryFromToolName(name), name)
	}
}
