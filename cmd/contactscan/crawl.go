package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/pipeline"
)

// addCrawlFlags registers the flags shared by every command that crawls.
func addCrawlFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.DurationP("timeout", "t", model.DefaultTimeout,
		"Connection timeout for each request")
	flags.IntP("max-subpages", "s", model.DefaultMaxSubpages,
		"Maximum number of subpages visited per site (homepage not counted)")
	flags.IntP("max-retries", "r", model.DefaultMaxRetries,
		"Retries after a failed page fetch")
	flags.Duration("delay-min", model.DefaultDelayMin,
		"Minimum politeness delay before each subpage")
	flags.Duration("delay-max", model.DefaultDelayMax,
		"Maximum politeness delay before each subpage")
	flags.IntP("workers", "w", 0,
		"Number of sites crawled concurrently (0 = size from batch and CPU count)")
	flags.String("user-agent", model.DefaultUserAgent,
		"User-Agent header sent with every request")
	flags.Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	flags.Bool("respect-robots", false,
		"Skip subpages disallowed by robots.txt")

	flags.Bool("render", true,
		"Render pages in headless Chrome before extracting (falls back to plain HTTP when Chrome is missing; --render=false forces HTTP)")
	flags.Duration("render-wait", model.DefaultRenderWait,
		"Network idle time to wait for when rendering")
	flags.Duration("render-timeout", model.DefaultRenderTimeout,
		"Hard limit for rendering a single page")
	flags.String("proxy", "",
		"Route HTTP requests through a SOCKS5 proxy (host:port)")

	flags.StringP("config", "c", "",
		"Site configuration file (default: .contactscan in current or home directory, then config.yaml in the XDG config directory)")
}

// buildCrawlConfig reads the crawl flags into a new Config and loads the
// site configuration file.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.MaxSubpages, err = flags.GetInt("max-subpages"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = flags.GetInt("max-retries"); err != nil {
		return nil, err
	}
	if cfg.DelayMin, err = flags.GetDuration("delay-min"); err != nil {
		return nil, err
	}
	if cfg.DelayMax, err = flags.GetDuration("delay-max"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.Render, err = flags.GetBool("render"); err != nil {
		return nil, err
	}
	if cfg.RenderWait, err = flags.GetDuration("render-wait"); err != nil {
		return nil, err
	}
	if cfg.RenderTimeout, err = flags.GetDuration("render-timeout"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	cfg.Verbose, _ = flags.GetBool("verbose")
	cfg.LogJSON, _ = flags.GetBool("log-json")
	cfg.LogEmails, _ = flags.GetBool("log-emails")

	if err := cfg.LoadSiteConfigs(); err != nil {
		return nil, fmt.Errorf("failed to load site configuration: %w", err)
	}

	return cfg, nil
}

// crawlEnv is the machinery one command invocation crawls with.
type crawlEnv struct {
	dispatcher *pipeline.Dispatcher
	closers    []func() error
}

// Close releases the renderer.
func (e *crawlEnv) Close() {
	for _, c := range e.closers {
		_ = c()
	}
}

// crawlBrowser is a browser the crawl env owns and closes.
type crawlBrowser interface {
	pipeline.Browser
	Close() error
}

// launchRodBrowser starts headless Chrome behind the optional proxy.
func launchRodBrowser(proxy string) (crawlBrowser, error) {
	browser, err := fetch.NewRodBrowser(fetch.WithBrowserProxy(proxy))
	if err != nil {
		return nil, err
	}
	return browser, nil
}

// newCrawlEnv builds the dispatcher for cfg. With cfg.Render one headless
// browser is started and every job renders in its own session of it.
func newCrawlEnv(cfg *config.Config, logger *slog.Logger) (*crawlEnv, error) {
	return buildCrawlEnv(cfg, logger, launchRodBrowser)
}

// buildCrawlEnv is newCrawlEnv with the browser launcher injected. When
// no browser is installed the crawl falls back to plain HTTP.
func buildCrawlEnv(
	cfg *config.Config,
	logger *slog.Logger,
	launch func(proxy string) (crawlBrowser, error),
) (*crawlEnv, error) {
	env := &crawlEnv{}

	siteOpts := []pipeline.SiteOption{
		pipeline.WithSiteLogger(logger),
		pipeline.WithProxyAddress(cfg.ProxyAddress),
		pipeline.WithMaxBodySize(cfg.MaxBodySize),
	}

	if cfg.Render {
		logger.Info("starting headless browser")
		browser, err := launch(cfg.ProxyAddress)
		switch {
		case errors.Is(err, fetch.ErrBrowserUnavailable):
			logger.Warn("headless browser unavailable, fetching pages without rendering",
				"error", err,
			)
		case err != nil:
			return nil, err
		default:
			env.closers = append(env.closers, browser.Close)
			siteOpts = append(siteOpts, pipeline.WithBrowser(browser))
		}
	}

	factory := pipeline.NewSiteFactory(cfg.JobFor, siteOpts...)
	env.dispatcher = pipeline.NewDispatcher(factory.New,
		pipeline.WithBatchLogger(logger),
		pipeline.WithConcurrency(cfg.Workers),
	)

	return env, nil
}

// openHistory opens the result database when saving is enabled.
// It returns nil when cfg.SaveToDB is false.
func openHistory(cfg *config.Config, logger *slog.Logger) (*database.ResultDB, error) {
	if !cfg.SaveToDB {
		return nil, nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database opened", "path", db.Path())
	return db, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// addHistoryFlags registers the flags controlling the result database.
func addHistoryFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("save", true, "Save results to the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")
}

// readHistoryFlags copies the history flags into cfg.
func readHistoryFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.SaveToDB, err = cmd.Flags().GetBool("save"); err != nil {
		return err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return err
	}
	return nil
}
