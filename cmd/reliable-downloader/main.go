package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vertextoedge/reliable-downloader/internal/adapter/filesystem"
	"github.com/vertextoedge/reliable-downloader/internal/adapter/httpclient"
	"github.com/vertextoedge/reliable-downloader/internal/adapter/progresslog"
	"github.com/vertextoedge/reliable-downloader/internal/adapter/sqlite"
	"github.com/vertextoedge/reliable-downloader/internal/config"
	"github.com/vertextoedge/reliable-downloader/internal/logger"
	"github.com/vertextoedge/reliable-downloader/internal/port"
	"github.com/vertextoedge/reliable-downloader/internal/service/downloader"
	"github.com/vertextoedge/reliable-downloader/internal/service/policy"
	"github.com/vertextoedge/reliable-downloader/internal/service/reference"
	"github.com/vertextoedge/reliable-downloader/internal/service/verifier"
)

const version = "0.1.0"

// Exit codes
const (
	exitOK = iota
	exitSetup
	exitNotDownloaded
	exitIntegrity
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	flags := pflag.NewFlagSet("reliable-downloader", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitSetup
	}
	configPath, _ := flags.GetString("config")

	// Load configuration
	cfg, err := config.Load(configPath, flags)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitSetup
	}

	// Initialize logger
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitSetup
	}
	defer log.Sync()

	log.Info("starting reliable-downloader",
		zap.String("version", version),
		zap.String("url", cfg.Download.URL),
		zap.String("path", cfg.Download.LocalPath))

	journal, err := openJournal(cfg, log)
	if err != nil {
		log.Error("failed to open journal", zap.Error(err), zap.String("path", cfg.Database.Path))
		return exitSetup
	}
	defer func() {
		if journal == nil {
			return
		}
		if err := multierr.Append(logStats(journal, log), journal.Close()); err != nil {
			log.Warn("failed to close journal", zap.Error(err))
		}
	}()

	fsManager := filesystem.NewManager()

	client := httpclient.NewClient(&httpclient.ClientConfig{
		SkipTLSVerify:         cfg.HTTP.SkipTLSVerify,
		ResponseHeaderTimeout: cfg.HTTP.GetResponseHeaderTimeout(),
		BufferSize:            cfg.Policy.BufferSizeBytes,
		UserAgent:             cfg.HTTP.UserAgent,
	}, log.Named("http"))

	if cfg.Download.Probe {
		probe(ctx, client, cfg.Download.URL, log)
	}

	ref := reference.New(ctx, fsManager, cfg.Download.ReferencePath, log.Named("reference"))
	policyCfg := cfg.PolicyConfig()

	opts := []downloader.Option{downloader.WithSpaceChecker(fsManager)}
	var verifications port.VerificationRepository
	if journal != nil {
		opts = append(opts, downloader.WithJournal(journal))
		verifications = journal
	}

	engine := downloader.New(policyCfg,
		client,
		fsManager,
		ref,
		policy.NewProvider(policyCfg, log),
		log.Named("downloader"),
		opts...,
	)

	sink := progresslog.New(log.Named("progress"), cfg.Progress.GetLogInterval())
	if !engine.Download(ctx, cfg.Target(), sink) {
		log.Info("nothing downloaded", zap.String("path", cfg.Download.LocalPath))
		return exitNotDownloaded
	}

	info := ref.Reference()
	if !info.Known {
		log.Warn("skipping integrity check", zap.Error(ref.Err()))
		return exitOK
	}

	ok, err := verifier.New(fsManager, verifications, log.Named("verifier")).
		Verify(ctx, cfg.Download.LocalPath, info.ExpectedHash)
	if err != nil {
		log.Error("integrity check failed to run", zap.Error(err))
		return exitIntegrity
	}
	if !ok {
		return exitIntegrity
	}
	return exitOK
}

// openJournal opens the sqlite journal and prunes old rows. It returns nil
// when no database path is configured.
func openJournal(cfg *config.Config, log *zap.Logger) (port.Journal, error) {
	if cfg.Database.Path == "" {
		return nil, nil
	}

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-cfg.Database.GetRetention())
	removed, err := store.PruneBefore(cutoff)
	if err != nil {
		log.Warn("failed to prune journal", zap.Error(err))
	} else if removed > 0 {
		log.Info("pruned journal", zap.Int("rows", removed), zap.Time("before", cutoff))
	}

	return store, nil
}

func logStats(journal port.Journal, log *zap.Logger) error {
	stats, err := journal.Stats()
	if err != nil {
		return err
	}
	log.Debug("journal stats",
		zap.Int("attempts", stats.Attempts),
		zap.Int("completed", stats.Completed),
		zap.Int("failed", stats.Failed),
		zap.Int("verifications", stats.Verifications),
		zap.Int("failed_verifications", stats.FailedVerifying))
	return nil
}

// probe logs what the server reports about the resource before downloading
func probe(ctx context.Context, transport port.Transport, url string, log *zap.Logger) {
	resp, err := transport.FetchHeaders(ctx, url)
	if err != nil {
		log.Warn("probe failed", zap.Error(err))
		return
	}
	defer resp.Close()

	log.Info("probed remote resource",
		zap.Int("status_code", resp.StatusCode),
		zap.Int64("content_length", resp.ContentLength),
		zap.String("accept_ranges", resp.Header.Get("Accept-Ranges")))
}
