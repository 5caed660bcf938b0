// wirechat is a small real-time chatroom: one server process speaking a
// compact binary protocol over TCP (optionally bridged to WebSocket),
// and a terminal client.
//
// Usage:
//
//	wirechat serve            - Start the chat server
//	wirechat client           - Connect to a server from the terminal
//
// Global flags:
//
//	--config <path>  - Explicit config file (default: search order)
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagConfig string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wirechat",
	Short: "wirechat - tiny binary-protocol chatroom",
	Long: `wirechat is a small real-time text chatroom. The server tracks
identities, fans messages out to everyone, and replays recent history
to newcomers; the client is a terminal UI.

Examples:
  wirechat serve
  wirechat serve --listen :7667 --ws :7668 --motd "welcome"
  wirechat client --addr localhost:7667 --name Anna`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default: ~/.wirechat/config.yaml, ./configs/server.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(clientCmd)
}
