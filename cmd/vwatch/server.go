package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
	"github.com/tinytelemetry/vwatch/internal/duckdb"
	"github.com/tinytelemetry/vwatch/internal/gateway"
	"github.com/tinytelemetry/vwatch/internal/httpserver"
	"github.com/tinytelemetry/vwatch/internal/localstore"
	"github.com/tinytelemetry/vwatch/internal/refresh"
	"github.com/tinytelemetry/vwatch/internal/socketrpc"
	"github.com/tinytelemetry/vwatch/internal/store"
	"golang.org/x/sync/errgroup"
)

// runServer starts the dashboard service: store, gateway, scheduler, history
// and the HTTP and socket front ends.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()
	log := logrus.WithField("component", "vwatch")

	local, err := localstore.Open(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to open local storage: %w", err)
	}
	if err := seedToken(local, cfg.VercelToken); err != nil {
		return fmt.Errorf("failed to seed token: %w", err)
	}

	state := store.New(
		store.WithTimeRangeFiltering(cfg.FilterByTimeRange),
		store.WithSettings(cfg.initialSettings()),
	)
	defer state.Close()

	gwOpts := []gateway.Option{
		gateway.WithLogger(logrus.WithField("component", "gateway")),
		gateway.OnUnauthorized(func() {
			log.Warn("api rejected the saved token; it was cleared, log in again from vwatch-tui")
		}),
	}
	if cfg.Seed != 0 {
		gwOpts = append(gwOpts, gateway.WithRand(rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))))
	}
	gw, err := gateway.New(gateway.Config{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.APITimeout,
		ProjectURLs: cfg.ProjectURLs,
		MockData:    cfg.MockData,
	}, local, gwOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	loader := refresh.NewLoader(state, gw, logrus.WithField("component", "refresh"))
	scheduler := refresh.NewScheduler(loader, state, logrus.StandardLogger())
	defer scheduler.Stop()

	// History is optional: the dashboard works on the latest batch alone.
	var recorder *duckdb.Recorder
	apiOpts := []httpserver.Option{
		httpserver.WithRefresher(loader),
		httpserver.WithLogger(logrus.WithField("component", "httpserver")),
	}
	deps := socketrpc.Deps{
		State:     state,
		Refresher: loader,
		Auth:      gw,
		Projects:  local,
	}
	if cfg.HistoryEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
		history, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB: %w", err)
		}
		defer history.Close()

		retentionCleaner := duckdb.NewRetentionCleaner(history, duckdb.RetentionConfig{
			RetentionDays: cfg.HistoryRetention,
		})
		if retentionCleaner != nil {
			defer retentionCleaner.Stop()
		}

		recorder = duckdb.NewRecorder(history, state, logrus.StandardLogger())
		apiOpts = append(apiOpts, httpserver.WithHistory(history))
		deps.History = history
	}

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, state, apiOpts...)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	// Socket RPC server for the TUI.
	sockServer := socketrpc.NewServer(cfg.SocketPath, deps)
	if err := sockServer.Start(); err != nil {
		log.WithError(err).Warn("failed to start socket server")
	} else {
		defer sockServer.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	printStartupBanner(cfg, gw.MockMode(), gw.HasToken())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return scheduler.Run(gctx) })
	if recorder != nil {
		g.Go(func() error { return recorder.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("errgroup exited with error")
	}

	cancel()
	scheduler.Stop()
	signal.Stop(sigCh)
	return nil
}

// seedToken stores the configured token when none has been saved yet. A
// token saved through the login flow wins over config.
func seedToken(local *localstore.Store, token string) error {
	token = strings.TrimSpace(token)
	if token == "" || local.Token() != "" {
		return nil
	}
	return local.SetToken(token)
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})

	home, err := os.UserHomeDir()
	if err != nil {
		logrus.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "vwatch")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logrus.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "vwatch.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		logrus.SetOutput(os.Stderr)
		return func() {}
	}

	logrus.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, mock, hasToken bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦  ╦╦ ╦╔═╗╔╦╗╔═╗╦ ╦
    ╚╗╔╝║║║╠═╣ ║ ║  ╠═╣
     ╚╝ ╚╩╝╩ ╩ ╩ ╚═╝╩ ╩`)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	row := func(on bool, label, value string) string {
		marker := dot
		if on {
			marker = check
		}
		return fmt.Sprintf("    %s  %-14s %s", marker, label, value)
	}

	lines = append(lines, bold.Render("    Gateway"), "")
	if cfg.APIEnabled {
		lines = append(lines, row(true, "HTTP API", cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, row(false, "HTTP API", dim.Render("disabled")))
	}
	lines = append(lines, row(true, "Unix Socket", cyan.Render(shortenPath(cfg.SocketPath))), "")

	lines = append(lines, bold.Render("    Projects"), "")
	switch {
	case len(cfg.ProjectURLs) > 0:
		lines = append(lines, row(true, "Source", dim.Render(fmt.Sprintf("%d configured URLs", len(cfg.ProjectURLs)))))
	case mock:
		lines = append(lines, row(true, "Source", yellow.Render("mock data")))
	default:
		lines = append(lines, row(true, "Source", dim.Render(cfg.APIBaseURL)))
	}
	if hasToken {
		lines = append(lines, row(true, "Token", dim.Render("saved")))
	} else {
		lines = append(lines, row(false, "Token", dim.Render("none (log in from vwatch-tui)")))
	}
	lines = append(lines, row(true, "Refresh", dim.Render(fmt.Sprintf("every %ds", cfg.RefreshInterval))), "")

	lines = append(lines, bold.Render("    Storage"), "")
	lines = append(lines, row(true, "Local Store", dim.Render(shortenPath(cfg.StoragePath))))
	if cfg.HistoryEnabled {
		lines = append(lines, row(true, "History", dim.Render(shortenPath(cfg.DBPath))))
	} else {
		lines = append(lines, row(false, "History", dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, row(true, "Config File", dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, row(false, "Config File", dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
