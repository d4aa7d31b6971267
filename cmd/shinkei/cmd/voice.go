package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/f3rmion/shinkei/internal/audio"
	"github.com/f3rmion/shinkei/internal/config"
	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/spf13/cobra"
)

var voiceCmd = &cobra.Command{
	Use:   "voice <text>",
	Short: "Generate pronunciation audio",
	Long: `Ask the server to synthesize speech for text.

The audio is saved with --out and played with --play. Without either flag
only the format and duration are printed.

Examples:
  shinkei voice hello --play
  shinkei voice "thank you" --out thanks`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVoice,
}

var (
	voiceOut  string
	voicePlay bool
)

func init() {
	rootCmd.AddCommand(voiceCmd)
	voiceCmd.Flags().StringVarP(&voiceOut, "out", "o", "", "write audio to file (extension added when missing)")
	voiceCmd.Flags().BoolVarP(&voicePlay, "play", "p", false, "play the audio")
}

func runVoice(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		notify.Report(consoleNotifier(cmd.ErrOrStderr()), audio.ErrEmptyText)
		return audio.ErrEmptyText
	}

	cfg, client, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	payload, err := client.GenerateVoice(ctx, text)
	if err != nil {
		return err
	}
	data, err := audio.DecodePayload(payload)
	if err != nil {
		return err
	}

	format := audio.SniffFormat(data)
	if format == audio.FormatUnknown {
		format = audio.Format(cfg.Audio.Format)
	}
	out := cmd.OutOrStdout()
	if d, err := audio.ProbeDuration(data); err == nil {
		fmt.Fprintf(out, "%s, %s\n", format, audio.FormatTime(d))
	} else {
		fmt.Fprintf(out, "%s, %d bytes\n", format, len(data))
	}

	if voiceOut != "" {
		path := voiceOut
		if filepath.Ext(path) == "" {
			path += format.Ext()
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing audio: %w", err)
		}
		fmt.Fprintf(out, "Saved %s\n", path)
	}

	if !voicePlay {
		return nil
	}
	player := newPlayer(cfg, logger)
	if player == nil {
		return fmt.Errorf("no audio player available, set audio.player in %s", filepath.Join(getConfigDir(), config.FileName))
	}
	unit, err := player.Open(data)
	if err != nil {
		return err
	}
	defer unit.Close()

	if err := unit.Play(); err != nil {
		return err
	}
	select {
	case <-unit.Done():
	case <-ctx.Done():
	}
	return nil
}
