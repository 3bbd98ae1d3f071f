package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/tinytelemetry/vwatch/internal/socketrpc"
	"github.com/tinytelemetry/vwatch/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var socketPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/vwatch/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "override socket path to connect to vwatch service")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("vwatch CLI - Dashboard Client\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	// Log output would corrupt the alternate screen.
	logrus.SetOutput(io.Discard)

	client, err := socketrpc.Dial(cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("cannot connect to vwatch service at %s: %w\nIs the vwatch service running? Start it with: vwatch", cfg.SocketPath, err)
	}
	defer client.Close()

	hasToken, err := client.HasToken()
	if err != nil {
		return fmt.Errorf("querying vwatch service: %w", err)
	}

	login := tui.NewLoginPage(client)
	dashboard := tui.NewDashboardPage(client, cfg.UpdateInterval)
	settings := tui.NewSettingsPage(client)
	config := tui.NewConfigPage(client)

	var app *tui.App
	if hasToken {
		app = tui.NewApp(dashboard, login, settings, config)
	} else {
		app = tui.NewApp(login, dashboard, settings, config)
	}

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
