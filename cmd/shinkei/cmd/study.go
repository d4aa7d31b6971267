package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/f3rmion/shinkei/internal/notify"
	"github.com/f3rmion/shinkei/internal/study"
	"github.com/f3rmion/shinkei/internal/tui"
	"github.com/spf13/cobra"
)

var studyCmd = &cobra.Command{
	Use:   "study <deck>",
	Short: "Study a deck",
	Long: `Start a study session for a deck, given by ID or by name.

By default only due cards are studied, up to study_limit from the config.
Use --all to go through every card in the deck.

The session runs in the TUI unless --plain is given. In plain mode each line
you enter is a command:
  (empty)   flip the card
  1-4       rate again/hard/good/easy
  q         finish the session`,
	Args: cobra.ExactArgs(1),
	RunE: runStudy,
}

var (
	studyAll   bool
	studyPlain bool
	studyLimit int
)

func init() {
	rootCmd.AddCommand(studyCmd)
	studyCmd.Flags().BoolVarP(&studyAll, "all", "a", false, "study every card, not only due ones")
	studyCmd.Flags().BoolVar(&studyPlain, "plain", false, "line-based session without the TUI")
	studyCmd.Flags().IntVar(&studyLimit, "limit", 0, "maximum cards in the session (default from config)")
}

func runStudy(cmd *cobra.Command, args []string) error {
	cfg, client, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	deck, err := findDeck(ctx, client, args[0])
	if err != nil {
		return err
	}

	limit := cfg.StudyLimit
	if cmd.Flags().Changed("limit") {
		limit = studyLimit
	}

	if !studyPlain {
		return runTUIWith(tui.Options{StudyDeck: &deck, StudyLimit: limit, StudyAll: studyAll})
	}

	cards, err := client.ListDeckCards(ctx, deck.ID)
	if err != nil {
		return err
	}
	if !studyAll {
		cards = study.DueCards(cards, time.Now(), limit)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Studying %s\n", deck.Name)
	session := study.NewSession(client, consoleNotifier(cmd.ErrOrStderr()), study.NewTextView(out),
		study.WithLogger(logger))
	session.Initialize(cards)
	if len(cards) == 0 {
		fmt.Fprintln(out, "No cards to study.")
		return nil
	}
	return studyLoop(cmd, session, cmd.InOrStdin())
}

// studyLoop reads one command per line until the session completes or input ends.
func studyLoop(cmd *cobra.Command, session *study.Session, in io.Reader) error {
	notifier := consoleNotifier(cmd.ErrOrStderr())
	scanner := bufio.NewScanner(in)

	for session.State() == study.StateActive {
		if !scanner.Scan() {
			session.Finish()
			return scanner.Err()
		}

		switch line := strings.ToLower(strings.TrimSpace(scanner.Text())); line {
		case "", "f", "flip":
			session.Flip()
		case "q", "quit", "finish":
			session.Finish()
		default:
			rating, err := study.ParseRating(line)
			if err != nil {
				notify.Warn(notifier, "Unknown command %q", line)
				continue
			}
			if err := session.Rate(cmd.Context(), rating); err != nil && cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
		}
	}
	return nil
}
