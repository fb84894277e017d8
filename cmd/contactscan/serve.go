package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/server"
)

// defaultListenAddr matches the port of the original upload service.
const defaultListenAddr = ":5000"

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the spreadsheet upload web service",
		Long: `Serve starts an HTTP server with a small upload page.

  GET  /          upload form
  GET  /healthz   liveness check
  POST /process   multipart field "file" (.csv or .xlsx); the response is
                  the same file with an Emails column appended

Crawl flags apply to every upload.

Examples:
  contactscan serve
  contactscan serve --addr 127.0.0.1:8080 --render=false`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addCrawlFlags(cmd)
	addHistoryFlags(cmd)

	cmd.Flags().String("addr", defaultListenAddr, "Listen address")
	cmd.Flags().Int64("max-upload-size", server.DefaultMaxUploadSize,
		"Maximum upload size in bytes")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}
	if err := readHistoryFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	maxUpload, err := cmd.Flags().GetInt64("max-upload-size")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}

	env, err := newCrawlEnv(cfg, logger)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return err
	}
	defer env.Close()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithMaxUploadSize(maxUpload),
	}
	if db != nil {
		defer db.Close()
		opts = append(opts, server.WithResultSaver(db))
	}

	srv := server.New(env.dispatcher, opts...)
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}
