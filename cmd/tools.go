package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/calchat/internal/booking"
	"github.com/teemow/calchat/internal/server"
	"github.com/teemow/calchat/internal/tools"
	"github.com/teemow/calchat/internal/tools/booking_tools"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or call the booking tools",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsCallCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the booking tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := server.NewServerContext(booking.NewService(nil, 0, nil))
			if err != nil {
				return fmt.Errorf("failed to create server context: %w", err)
			}
			defer func() {
				_ = sc.Shutdown()
			}()

			listTools(cmd.OutOrStdout(), tools.NewRegistry(booking_tools.Tools(sc)...))
			return nil
		},
	}
}

func listTools(out io.Writer, registry *tools.Registry) {
	for _, name := range registry.SortedNames() {
		tool, _ := registry.Get(name)
		fmt.Fprintf(out, "%s\n    %s\n", name, tool.Tool.Description)
	}
}

func newToolsCallCmd() *cobra.Command {
	var rawArgs []string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Call a booking tool directly",
		Long: `Call a single booking tool and print its result, without a language model.

Example:
  calchat tools call list_bookings --arg user_email=jane@example.com --arg user_timezone=Europe/Berlin`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseToolArgs(rawArgs)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(false); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			text, isError, err := a.registry.Invoke(ctx, args[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			if isError {
				return fmt.Errorf("tool %s reported an error", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	return cmd
}

// parseToolArgs turns key=value pairs into tool arguments.
func parseToolArgs(pairs []string) (map[string]any, error) {
	args := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q (expected key=value)", pair)
		}
		args[key] = value
	}
	return args, nil
}
