// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/librarian/internal/render"
	"github.com/pdiddy/librarian/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Talk to the archive guide",
	Long: `Chat sends a message to the backend's conversational guide and prints
its reply. Replies that point at a shastra or pravachan include the
normalized resource and open it in the playground.

Without arguments chat reads one message per line from stdin until EOF or
"exit".`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	loop, _, stop, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer stop()

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		return chatTurn(cmd, loop, out, strings.Join(args, " "))
	}

	render.Message(out, session.Message{Role: session.RoleBot, Text: session.Greeting})
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			break
		}
		if line == "" {
			continue
		}
		if err := chatTurn(cmd, loop, out, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func chatTurn(cmd *cobra.Command, loop *session.Loop, out io.Writer, message string) error {
	res, err := loop.Chat(cmd.Context(), message)
	if errors.Is(err, session.ErrEmptyQuery) {
		return fmt.Errorf("message is empty")
	}
	if err != nil {
		return err
	}
	tr := res.State.Transcript
	if len(tr) > 0 {
		render.Message(out, tr[len(tr)-1])
	}
	if pg := res.State.Playground; pg.IsOpen() {
		fmt.Fprintf(stderr(), "%s: %s\n", pg.ActiveTitle, pg.ActiveURL)
	}
	return nil
}
