package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/f3rmion/shinkei/internal/anki"
	"github.com/f3rmion/shinkei/internal/pinyin"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.apkg>",
	Short: "Import cards from an Anki package",
	Long: `Import notes from an Anki package (.apkg) into a deck.

Fields are matched by name (Hanzi, Pinyin, English, Meaning, ...). Notes
without Chinese characters or without a meaning are skipped. Missing pinyin
is generated from the characters, and [sound:...] audio is kept.

Examples:
  shinkei import hsk1.apkg --deck "HSK 1" --dry-run
  shinkei import hsk1.apkg --deck 3`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importDeck   string
	importDryRun bool
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importDeck, "deck", "d", "", "target deck ID or name (required)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "show what would be imported")
	importCmd.MarkFlagRequired("deck")
}

func runImport(cmd *cobra.Command, args []string) error {
	pkg, err := anki.OpenPackage(args[0])
	if err != nil {
		return fmt.Errorf("opening package: %w", err)
	}
	defer pkg.Close()

	out := cmd.OutOrStdout()
	fmt.Fprint(out, pkg.Summary())

	drafts, skipped := pkg.Drafts()
	for _, s := range skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "! skipping note %d: %s\n", s.NoteID, s.Reason)
	}

	parser := pinyin.NewParser()
	for i := range drafts {
		if strings.TrimSpace(drafts[i].Pinyin) == "" {
			drafts[i].Pinyin = parser.Pinyin(drafts[i].Hanzi)
		}
	}

	if importDryRun {
		rows := make([][]string, 0, len(drafts))
		for _, d := range drafts {
			audio := ""
			if d.AudioBase64 != "" {
				audio = "yes"
			}
			rows = append(rows, []string{clip(d.Hanzi, 12), clip(d.Pinyin, 20), clip(d.English, 36), audio})
		}
		fmt.Fprintln(out)
		printTable(out, []string{"HANZI", "PINYIN", "ENGLISH", "AUDIO"}, rows)
		fmt.Fprintf(out, "\n%d cards would be imported, %d notes skipped\n", len(drafts), len(skipped))
		return nil
	}

	_, client, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	deck, err := findDeck(ctx, client, importDeck)
	if err != nil {
		return err
	}

	added, failed := 0, 0
	for _, d := range drafts {
		if ctx.Err() != nil {
			break
		}
		if _, err := client.AddCard(ctx, deck.ID, d); err != nil {
			logger.Warn("adding card failed", slog.String("hanzi", d.Hanzi), slog.Any("error", err))
			failed++
			continue
		}
		added++
	}

	fmt.Fprintf(out, "\nImported %d cards into %s", added, deck.Name)
	if failed > 0 {
		fmt.Fprintf(out, " (%d failed)", failed)
	}
	fmt.Fprintf(out, ", %d notes skipped\n", len(skipped))
	return ctx.Err()
}
