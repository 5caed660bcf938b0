package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat/internal/chat"
	"github.com/vovakirdan/wirechat/internal/config"
	"github.com/vovakirdan/wirechat/internal/transport"
)

var (
	flagListen string
	flagWS     string
	flagMOTD   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Start the chat server on the configured TCP address.

Configuration comes from --config, ~/.wirechat/config.yaml, or
./configs/server.yaml, in that order; flags override the file.
Setting --ws additionally serves the same protocol to WebSocket
clients at /ws on that address.

Examples:
  wirechat serve
  wirechat serve --listen :7667
  wirechat serve --ws :7668 --motd "be kind"`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "TCP listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagWS, "ws", "", "WebSocket listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagMOTD, "motd", "", "Message of the day (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagListen != "" {
		cfg.Server.Listen = flagListen
	}
	if flagWS != "" {
		cfg.Server.WSListen = flagWS
	}
	if flagMOTD != "" {
		cfg.Server.MOTD = flagMOTD
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "wirechat",
	})

	tcp, err := transport.NewTCPAcceptor(cfg.Server.Listen, logger)
	if err != nil {
		return err
	}
	defer tcp.Close()
	logger.Info("listening", "tcp", tcp.Addr())

	acceptors := []transport.Acceptor{tcp}
	if cfg.Server.WSListen != "" {
		ws, err := transport.NewWSAcceptor(cfg.Server.WSListen, logger)
		if err != nil {
			return err
		}
		defer ws.Close()
		logger.Info("listening", "websocket", fmt.Sprintf("ws://%s/ws", ws.Addr()))
		acceptors = append(acceptors, ws)
	}

	server := chat.New(cfg.Server, logger, acceptors...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
