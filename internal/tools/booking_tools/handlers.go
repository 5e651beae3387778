package booking_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/calchat/internal/server"
	"github.com/teemow/calchat/internal/tools/common"
)

// requireArgs returns the named string arguments, or an error result naming
// the first one that is missing.
func requireArgs(args map[string]interface{}, names ...string) ([]string, *mcp.CallToolResult) {
	values := make([]string, len(names))
	for i, name := range names {
		v := common.StringArg(args, name)
		if v == "" {
			return nil, mcp.NewToolResultError(fmt.Sprintf("%s is required", name))
		}
		values[i] = v
	}
	return values, nil
}

func timezoneArg(args map[string]interface{}) string {
	if tz := common.StringArg(args, "user_timezone"); tz != "" {
		return tz
	}
	return "UTC"
}

func textResult(text string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func handleListBookings(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	values, errResult := requireArgs(args, "user_email")
	if errResult != nil {
		return errResult, nil
	}

	return textResult(sc.Bookings().ListBookings(ctx, values[0], timezoneArg(args)))
}

func handleGetAvailableSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	values, errResult := requireArgs(args, "date")
	if errResult != nil {
		return errResult, nil
	}

	return textResult(sc.Bookings().AvailableSlots(ctx, values[0], timezoneArg(args)))
}

func handleCreateBooking(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	values, errResult := requireArgs(args, "start_time_iso", "user_name", "user_email", "title")
	if errResult != nil {
		return errResult, nil
	}

	return textResult(sc.Bookings().CreateBooking(ctx, values[0], values[1], values[2], values[3], timezoneArg(args)))
}

func handleCancelBooking(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	values, errResult := requireArgs(args, "user_email", "date", "time")
	if errResult != nil {
		return errResult, nil
	}

	return textResult(sc.Bookings().CancelBooking(ctx, values[0], values[1], values[2], timezoneArg(args)))
}

func handleRescheduleBooking(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	values, errResult := requireArgs(args, "user_email", "current_date", "current_time", "new_start_time_iso")
	if errResult != nil {
		return errResult, nil
	}

	return textResult(sc.Bookings().RescheduleBooking(ctx, values[0], values[1], values[2], values[3], timezoneArg(args)))
}
