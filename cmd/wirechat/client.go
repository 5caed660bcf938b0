package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/wirechat/internal/platform/tui"
)

var (
	flagAddr string
	flagName string
)

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Connect to a chat server from the terminal",
	Long: `Open a terminal chat session against a wirechat server.

Inside the session:
  /name <new>      - change display name
  /msg <id> <text> - direct message a user by id
  /quit            - leave

Examples:
  wirechat client
  wirechat client --addr chat.example.org:7667 --name Anna`,
	RunE: runClient,
}

func init() {
	clientCmd.Flags().StringVar(&flagAddr, "addr", "localhost:7667", "Server address (host:port)")
	clientCmd.Flags().StringVar(&flagName, "name", "", "Display name (default: $USER)")
}

func runClient(_ *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("the chat client needs an interactive terminal")
	}

	name := flagName
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "guest"
	}

	model, err := tui.NewClientModel(tui.ClientConfig{Addr: flagAddr, Name: name})
	if err != nil {
		return err
	}

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
