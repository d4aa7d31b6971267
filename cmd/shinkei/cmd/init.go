package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/f3rmion/shinkei/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize shinkei configuration",
	Long: `Initialize shinkei configuration in your config directory.

This writes config.yaml with the default server URL, request timeout,
study session size and audio settings. Edit it to point shinkei at your
flashcard server or to choose an audio player.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "overwrite existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	configDir := getConfigDir()
	path := filepath.Join(configDir, config.FileName)

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s\nUse --force to overwrite", path)
	}

	if err := config.EnsureConfigDir(configDir); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil && !force {
		return err
	}
	if err != nil {
		cfg = config.Default()
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n\n", path)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Set server_url if your server is not at %s\n", cfg.ServerURL)
	fmt.Fprintln(out, "  2. Run 'shinkei decks' to check the connection")
	fmt.Fprintln(out, "  3. Run 'shinkei' to start studying")
	return nil
}
