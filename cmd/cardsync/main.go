package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/imlich/cardsync/internal/calendar"
	"github.com/imlich/cardsync/internal/config"
	"github.com/imlich/cardsync/internal/credential"
	"github.com/imlich/cardsync/internal/server"
	"github.com/imlich/cardsync/internal/source"
	"github.com/imlich/cardsync/internal/store"
	"github.com/imlich/cardsync/internal/sync"
)

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
// os.Exit() does not run defers, so we must return an integer code first.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
// Returns config.ExitCodeSuccess on success, config.ExitCodeError on failure.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	settingsPath := flag.String(config.FlagConfig, config.DefaultSettingsPath(), config.FlagDescConfig)
	once := flag.Bool(config.FlagOnce, false, config.FlagDescOnce)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	// We configure structured logging (slog) early to capture startup issues.
	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	// Create a root context that cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, *settingsPath, *once); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run wires the settings, cache, CardDAV sources, and the feed server, then
// drives the periodic sync loop until the context is cancelled.
func run(ctx context.Context, settingsPath string, once bool) error {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	if len(settings.Accounts) == 0 {
		return errors.New(config.ErrNoAccounts)
	}

	if err := os.MkdirAll(filepath.Dir(settings.Database), config.DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	st, err := store.Open(settings.Database)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	defer func() { _ = st.Close() }()

	photos := source.NewPhotoFetcher()
	syncers := make([]*sync.Syncer, 0, len(settings.Accounts))
	for _, acct := range settings.Accounts {
		if acct.URL == "" {
			return errors.New(config.ErrAccountURLEmpty)
		}

		// A missing keyring entry means an unauthenticated (or test) server.
		password, err := credential.Password(acct.Username)
		if err != nil && !errors.Is(err, credential.ErrNotFound) {
			return err
		}

		src, err := source.NewCardDAVSource(acct.URL, acct.Username, password)
		if err != nil {
			return err
		}
		syncers = append(syncers, sync.New(acct.Name, src, st, photos))
	}

	generator := &calendar.Generator{
		Clock:           calendar.RealClock{},
		Store:           st,
		ReminderTrigger: settings.Calendar.Reminder,
	}

	// The feed server only makes sense for the long-running mode.
	var feed *server.FeedServer
	serverDone := make(chan error, config.ChannelBufferSize)
	if settings.Calendar.Enabled && !once {
		feed = server.NewFeedServer(settings.Calendar.Port)
		go func() { serverDone <- feed.Start(ctx) }()
	}

	pass := func() {
		slog.Info(config.MsgSyncStarted, config.LogKeyComponent, config.CompMain)
		for _, s := range syncers {
			if _, err := s.Run(ctx); err != nil {
				slog.Error(config.MsgSyncFailed,
					config.LogKeyComponent, config.CompMain,
					config.LogKeyError, err,
				)
			}
		}
		if feed != nil {
			ics, _, _, err := generator.Generate(ctx)
			if err != nil {
				slog.Error(config.ErrICalEncode,
					config.LogKeyComponent, config.CompMain,
					config.LogKeyError, err,
				)
				return
			}
			feed.Update(ics)
		}
	}

	pass()
	if once {
		return nil
	}

	interval := settings.Sync.IntervalMin
	if interval <= config.DisabledInterval {
		// No periodic loop; keep serving the feed until shutdown.
		if feed != nil {
			return <-serverDone
		}
		<-ctx.Done()
		return nil
	}

	slog.Info(config.MsgWorkerStart,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyInterval, interval,
	)

	ticker := time.NewTicker(time.Duration(interval) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info(config.MsgWorkerStop, config.LogKeyComponent, config.CompMain)
			if feed != nil {
				return <-serverDone
			}
			return nil
		case err := <-serverDone:
			return err
		case <-ticker.C:
			pass()
		}
	}
}

// printVersion outputs the build information to stdout and exits.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	// 1. Always write to Stdout.
	writers = append(writers, os.Stdout)

	// 2. Attempt to set up a file writer in the user's cache directory.
	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)

	// Ensure the directory exists with restricted permissions (700).
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
