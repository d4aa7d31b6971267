package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/f3rmion/shinkei/internal/api"
	"github.com/f3rmion/shinkei/internal/pinyin"
	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/suggest"
	"github.com/spf13/cobra"
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "List, add and delete cards",
}

var cardsListCmd = &cobra.Command{
	Use:   "list <deck>",
	Short: "List the cards in a deck",
	Long: `List the cards in a deck. The deck is given by ID or by name.

Examples:
  shinkei cards list 3
  shinkei cards list "HSK 1"`,
	Args: cobra.ExactArgs(1),
	RunE: runCardsList,
}

var cardsAddCmd = &cobra.Command{
	Use:   "add <deck>",
	Short: "Add a card to a deck",
	Long: `Add a card to a deck.

Hanzi and English are required. Pinyin is filled in from the hanzi when
omitted. With --suggest the server's AI fills the remaining fields, and with
--voice a pronunciation is generated and stored with the card.

Examples:
  shinkei cards add 3 --hanzi 你好 --english hello
  shinkei cards add "HSK 1" --hanzi 苹果 --english apple --suggest --voice`,
	Args: cobra.ExactArgs(1),
	RunE: runCardsAdd,
}

var cardsDeleteCmd = &cobra.Command{
	Use:   "delete <card-id>",
	Short: "Delete a card",
	Args:  cobra.ExactArgs(1),
	RunE:  runCardsDelete,
}

var (
	cardDraft   shinkei.CardDraft
	cardSuggest bool
	cardVoice   bool
	cardYes     bool
)

func init() {
	rootCmd.AddCommand(cardsCmd)
	cardsCmd.AddCommand(cardsListCmd, cardsAddCmd, cardsDeleteCmd)

	f := cardsAddCmd.Flags()
	f.StringVar(&cardDraft.Hanzi, "hanzi", "", "simplified characters (required)")
	f.StringVar(&cardDraft.English, "english", "", "English meaning (required)")
	f.StringVar(&cardDraft.Pinyin, "pinyin", "", "pinyin with tone marks")
	f.StringVar(&cardDraft.Traditional, "traditional", "", "traditional characters")
	f.StringVar(&cardDraft.PartOfSpeech, "pos", "", "part of speech ("+strings.Join(shinkei.PartsOfSpeech, ", ")+")")
	f.StringVar(&cardDraft.MeasureWord, "measure-word", "", "measure word")
	f.StringVar(&cardDraft.ExampleSentence, "example", "", "example sentence")
	f.StringVar(&cardDraft.Notes, "notes", "", "notes")
	f.BoolVar(&cardSuggest, "suggest", false, "fill empty fields with AI suggestions")
	f.BoolVar(&cardVoice, "voice", false, "generate pronunciation audio")

	cardsDeleteCmd.Flags().BoolVarP(&cardYes, "yes", "y", false, "skip confirmation")
}

func runCardsList(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	deck, err := findDeck(ctx, client, args[0])
	if err != nil {
		return err
	}
	cards, err := client.ListDeckCards(ctx, deck.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, deckSummary(deck, cards))
	if len(cards) == 0 {
		return nil
	}
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(cards))
	for _, c := range cards {
		next := "-"
		if c.NextReview != nil && *c.NextReview != "" {
			next = clip(*c.NextReview, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			clip(c.Hanzi, 12),
			clip(c.Pinyin, 20),
			clip(c.English, 36),
			strconv.Itoa(c.Level()),
			next,
		})
	}
	printTable(out, []string{"ID", "HANZI", "PINYIN", "ENGLISH", "LEVEL", "NEXT"}, rows)
	return nil
}

func runCardsAdd(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	notifier := consoleNotifier(cmd.ErrOrStderr())

	deck, err := findDeck(ctx, client, args[0])
	if err != nil {
		return err
	}

	draft := cardDraft
	if draft.PartOfSpeech != "" && !shinkei.IsPartOfSpeech(draft.PartOfSpeech) {
		return fmt.Errorf("unknown part of speech %q", draft.PartOfSpeech)
	}

	if cardSuggest {
		if _, err := suggest.Fill(ctx, client, &draft, notifier); err != nil && !errors.Is(err, api.ErrNoSuggestions) {
			return err
		}
	}
	if strings.TrimSpace(draft.Pinyin) == "" {
		draft.Pinyin = pinyin.NewParser().Pinyin(draft.Hanzi)
	}
	if missing := draft.Missing(); len(missing) > 0 {
		return fmt.Errorf("please fill in: %s", strings.Join(missing, ", "))
	}

	if cardVoice {
		payload, err := client.GenerateVoice(ctx, draft.English)
		if err != nil {
			return err
		}
		draft.AudioBase64 = payload
		fmt.Fprintln(cmd.ErrOrStderr(), "✓ Audio generated")
	}

	id, err := client.AddCard(ctx, deck.ID, draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Card added successfully! (ID %d: %s %s = %s)\n",
		id, draft.Hanzi, draft.Pinyin, draft.English)
	return nil
}

func runCardsDelete(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid card ID %q", args[0])
	}

	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}

	if !cardYes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete card %d?", id)) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
		return nil
	}

	if err := client.DeleteCard(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Card deleted successfully!")
	return nil
}
