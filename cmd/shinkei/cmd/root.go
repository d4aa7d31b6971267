// Package cmd contains all CLI commands for shinkei.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/f3rmion/shinkei/internal/api"
	"github.com/f3rmion/shinkei/internal/audio"
	"github.com/f3rmion/shinkei/internal/config"
	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LogFileName is written inside the config directory while the TUI runs.
const LogFileName = "shinkei.log"

var cfgDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shinkei",
	Short: "神経 - study Chinese flashcards from the terminal",
	Long: `shinkei is a terminal client for the 神経 flashcard server.

It lists decks, runs study sessions that send your ratings to the server,
and adds cards with AI field suggestions and generated pronunciation audio.

Running 'shinkei' without arguments launches the interactive TUI.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default is $HOME/.config/shinkei)")
	rootCmd.PersistentFlags().String("server", "", "backend URL (default is http://localhost:5000)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")

	viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in ENV variables and resolves the config directory.
func initConfig() {
	if cfgDir != "" {
		viper.Set("config_dir", cfgDir)
	} else {
		dir, err := config.GetConfigDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}
		viper.Set("config_dir", dir)
	}

	viper.SetEnvPrefix("SHINKEI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	return viper.GetString("config_dir")
}

// loadConfig reads config.yaml from the config directory and applies flag
// and SHINKEI_* environment overrides.
func loadConfig() (config.Config, error) {
	return config.Load(filepath.Join(getConfigDir(), config.FileName), viper.GetViper())
}

// newLogger creates the process logger. Only warnings are shown unless
// --verbose is set.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// setup loads configuration and builds the backend client.
func setup(cmd *cobra.Command) (config.Config, *api.Client, *slog.Logger, error) {
	logger := newLogger(cmd.ErrOrStderr())
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	client, err := api.New(cfg.ServerURL, cfg.Timeout, logger)
	if err != nil {
		return cfg, nil, nil, err
	}
	logger.Debug("using server", slog.String("url", client.BaseURL()))
	return cfg, client, logger, nil
}

// newPlayer returns the configured audio player, or nil when none is usable.
func newPlayer(cfg config.Config, logger *slog.Logger) audio.Player {
	p, err := audio.NewExecPlayer(cfg.Audio.Player, logger)
	if err != nil {
		logger.Warn("audio playback disabled", slog.Any("error", err))
		return nil
	}
	return p
}

// openLogFile redirects logging to the config directory so it does not
// draw over the TUI.
func openLogFile() (*os.File, error) {
	dir := getConfigDir()
	if err := config.EnsureConfigDir(dir); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// runTUI launches the TUI application.
func runTUI(cmd *cobra.Command, args []string) error {
	return runTUIWith(tui.Options{})
}

func runTUIWith(opts tui.Options) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logOut := io.Discard
	if f, err := openLogFile(); err == nil {
		defer f.Close()
		logOut = f
	}
	logger := newLogger(logOut).With(slog.String("component", "tui"))

	client, err := api.New(cfg.ServerURL, cfg.Timeout, logger)
	if err != nil {
		return err
	}

	opts.Backend = client
	opts.Player = newPlayer(cfg, logger)
	opts.PollInterval = cfg.Audio.PollInterval
	opts.Logger = logger
	if opts.StudyDeck == nil {
		opts.StudyLimit = cfg.StudyLimit
	}
	return tui.Run(opts)
}

// consoleNotifier prints notifications for command-line use.
func consoleNotifier(w io.Writer) notify.Notifier {
	return notify.Func(func(level notify.Level, msg string) {
		prefix := map[notify.Level]string{
			notify.LevelInfo:    "·",
			notify.LevelSuccess: "✓",
			notify.LevelWarning: "!",
			notify.LevelError:   "✗",
		}[level]
		fmt.Fprintf(w, "%s %s\n", prefix, msg)
	})
}
