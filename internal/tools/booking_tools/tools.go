package booking_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calchat/internal/instrumentation"
	"github.com/teemow/calchat/internal/server"
	"github.com/teemow/calchat/internal/tools/common"
)

const timezoneDescription = "User's IANA timezone, e.g. 'America/New_York' or 'Europe/London' (default: UTC)"

// Tools returns the booking tools bound to sc.
func Tools(sc *server.ServerContext) []mcpserver.ServerTool {
	listBookingsTool := mcp.NewTool("list_bookings",
		mcp.WithDescription("List the upcoming accepted bookings of an attendee"),
		mcp.WithString("user_email",
			mcp.Required(),
			mcp.Description("Email address of the attendee"),
		),
		mcp.WithString("user_timezone",
			mcp.Description(timezoneDescription),
		),
	)

	slotsTool := mcp.NewTool("get_available_slots",
		mcp.WithDescription("Get the available time slots for a specific date"),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date in YYYY-MM-DD format"),
		),
		mcp.WithString("user_timezone",
			mcp.Description(timezoneDescription),
		),
	)

	createTool := mcp.NewTool("create_booking",
		mcp.WithDescription("Book a new meeting. Check availability with get_available_slots first."),
		mcp.WithString("start_time_iso",
			mcp.Required(),
			mcp.Description("Start time in ISO 8601 format, e.g. '2025-01-15T14:00:00'. Times without an offset are read in user_timezone."),
		),
		mcp.WithString("user_name",
			mcp.Required(),
			mcp.Description("Name of the attendee"),
		),
		mcp.WithString("user_email",
			mcp.Required(),
			mcp.Description("Email address of the attendee"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Meeting title"),
		),
		mcp.WithString("user_timezone",
			mcp.Description(timezoneDescription),
		),
	)

	cancelTool := mcp.NewTool("cancel_booking",
		mcp.WithDescription("Cancel the attendee's booking that starts at the given date and time"),
		mcp.WithString("user_email",
			mcp.Required(),
			mcp.Description("Email address of the attendee"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Date of the booking in YYYY-MM-DD format"),
		),
		mcp.WithString("time",
			mcp.Required(),
			mcp.Description("Start time of the booking in HH:MM format (24-hour)"),
		),
		mcp.WithString("user_timezone",
			mcp.Description(timezoneDescription),
		),
	)

	rescheduleTool := mcp.NewTool("reschedule_booking",
		mcp.WithDescription("Move the attendee's booking at the given date and time to a new start time"),
		mcp.WithString("user_email",
			mcp.Required(),
			mcp.Description("Email address of the attendee"),
		),
		mcp.WithString("current_date",
			mcp.Required(),
			mcp.Description("Current date of the booking in YYYY-MM-DD format"),
		),
		mcp.WithString("current_time",
			mcp.Required(),
			mcp.Description("Current start time of the booking in HH:MM format (24-hour)"),
		),
		mcp.WithString("new_start_time_iso",
			mcp.Required(),
			mcp.Description("New start time in ISO 8601 format"),
		),
		mcp.WithString("user_timezone",
			mcp.Description(timezoneDescription),
		),
	)

	svc := instrumentation.ServiceCalcom
	return []mcpserver.ServerTool{
		{
			Tool:    listBookingsTool,
			Handler: common.InstrumentedToolHandlerWithService("list_bookings", svc, instrumentation.OperationList, sc, bind(handleListBookings, sc)),
		},
		{
			Tool:    slotsTool,
			Handler: common.InstrumentedToolHandlerWithService("get_available_slots", svc, instrumentation.OperationSlots, sc, bind(handleGetAvailableSlots, sc)),
		},
		{
			Tool:    createTool,
			Handler: common.InstrumentedToolHandlerWithService("create_booking", svc, instrumentation.OperationCreate, sc, bind(handleCreateBooking, sc)),
		},
		{
			Tool:    cancelTool,
			Handler: common.InstrumentedToolHandlerWithService("cancel_booking", svc, instrumentation.OperationCancel, sc, bind(handleCancelBooking, sc)),
		},
		{
			Tool:    rescheduleTool,
			Handler: common.InstrumentedToolHandlerWithService("reschedule_booking", svc, instrumentation.OperationReschedule, sc, bind(handleRescheduleBooking, sc)),
		},
	}
}

// RegisterBookingTools registers all booking tools with the MCP server
func RegisterBookingTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil {
		return fmt.Errorf("mcp server is required")
	}
	for _, t := range Tools(sc) {
		s.AddTool(t.Tool, t.Handler)
	}
	return nil
}

type handlerFunc func(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error)

func bind(h handlerFunc, sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return h(ctx, request, sc)
	}
}
