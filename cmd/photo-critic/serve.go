package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/photo-critic/internal/cli"
	"github.com/fpang/photo-critic/internal/logging"
	"github.com/fpang/photo-critic/internal/server"
)

var (
	addrFlag        string
	maxSessionsFlag int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the critique workflow as a local JSON API",
	Long: `Serve starts an HTTP server exposing sessions that each hold one critique
workflow and one comparison viewer. Sessions live in memory only.

Examples:
  photo-critic serve
  photo-critic serve --addr 127.0.0.1:9090`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&addrFlag, "addr", "", "Listen address (default from config)")
	serveCmd.Flags().IntVar(&maxSessionsFlag, "max-sessions", 64, "Maximum live sessions; the oldest is evicted")
}

func runServe(cmd *cobra.Command, args []string) {
	defer setupLogging("server", false)()

	addr := cfg.Addr
	if cmd.Flags().Changed("addr") {
		addr = addrFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, client := cli.InitGeminiClient(cfg)
	logStartup("serve", func(sl *logging.StartupLogger) {
		sl.Config("addr", addr).Config("maxSessions", strconv.Itoa(maxSessionsFlag))
	})

	srv := server.New(client, client,
		server.WithContext(ctx),
		server.WithMaxUpload(int64(cfg.MaxUploadMB)<<20),
		server.WithMaxSessions(maxSessionsFlag),
	)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
	log.Info().Msg("Server stopped")
}
