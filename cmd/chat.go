package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/calchat/internal/llm"
	"github.com/teemow/calchat/internal/logging"
	"github.com/teemow/calchat/internal/server"
)

const chatPrompt = "> "

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the booking assistant in the terminal",
		Long: `Start an interactive chat with the booking assistant.

History is kept for the lifetime of the process. Type "exit" or send EOF
(Ctrl-D) to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(true); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			chatAgent, err := a.newAgent()
			if err != nil {
				return err
			}

			return runChat(ctx, chatAgent, cmd.InOrStdin(), cmd.OutOrStdout(), func(err error) {
				a.logger.Error("chat turn failed", logging.Err(err))
			})
		},
	}

	addAgentFlags(cmd.Flags())
	return cmd
}

// runChat reads one message per line from in and writes the replies to out.
// onError is called for failed turns; the loop continues after a failure.
func runChat(ctx context.Context, chatAgent server.ChatAgent, in io.Reader, out io.Writer, onError func(error)) error {
	scanner := bufio.NewScanner(in)
	var history []llm.Message

	fmt.Fprintln(out, `Booking assistant ready. Type "exit" to quit.`)
	for {
		fmt.Fprint(out, chatPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			return nil
		}

		result, err := chatAgent.Run(ctx, history, input)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if onError != nil {
				onError(err)
			}
			fmt.Fprintln(out, server.ReplyFailure)
			continue
		}

		history = result.Messages
		fmt.Fprintln(out, result.Reply)
	}
}
