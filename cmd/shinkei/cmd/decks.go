package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/study"
	"github.com/spf13/cobra"
)

var decksCmd = &cobra.Command{
	Use:   "decks",
	Short: "List decks on the server",
	Long: `List all decks with their card count, category and level.

Use 'shinkei decks create' to add a new deck.`,
	Args: cobra.NoArgs,
	RunE: runDecksList,
}

var decksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new deck",
	Long: `Create a new deck on the server.

Examples:
  shinkei decks create --name "HSK 1"
  shinkei decks create --name Food --category Topic --level beginner`,
	Args: cobra.NoArgs,
	RunE: runDecksCreate,
}

var (
	deckName        string
	deckDescription string
	deckCategory    string
	deckLevel       string
)

func init() {
	rootCmd.AddCommand(decksCmd)
	decksCmd.AddCommand(decksCreateCmd)

	decksCreateCmd.Flags().StringVarP(&deckName, "name", "n", "", "deck name (required)")
	decksCreateCmd.Flags().StringVarP(&deckDescription, "description", "d", "", "deck description")
	decksCreateCmd.Flags().StringVarP(&deckCategory, "category", "c", "", "deck category (default \"Custom\")")
	decksCreateCmd.Flags().StringVarP(&deckLevel, "level", "l", "", "deck level")
	decksCreateCmd.MarkFlagRequired("name")
}

func runDecksList(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}

	decks, err := client.ListDecks(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(decks) == 0 {
		fmt.Fprintln(out, "No decks yet. Create one with 'shinkei decks create --name NAME'.")
		return nil
	}

	rows := make([][]string, 0, len(decks))
	for _, d := range decks {
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			clip(d.Name, 32),
			strconv.Itoa(d.CardCount),
			d.Category,
			string(d.Level),
			d.Created(),
		})
	}
	printTable(out, []string{"ID", "NAME", "CARDS", "CATEGORY", "LEVEL", "CREATED"}, rows)
	return nil
}

func runDecksCreate(cmd *cobra.Command, args []string) error {
	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}

	draft := shinkei.NewDeckDraft(deckName, deckDescription, deckCategory, deckLevel)
	if draft.Name == "" {
		return fmt.Errorf("please enter a deck name")
	}

	id, err := client.CreateDeck(cmd.Context(), draft)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deck created successfully! (ID %d)\n", id)
	return nil
}

// deckSummary describes a deck's review state in one line.
func deckSummary(deck shinkei.Deck, cards []shinkei.Card) string {
	s := study.Stats(cards, time.Now())
	return fmt.Sprintf("%s: %d cards, %d due, %d mastered (%.1f%%)",
		deck.Name, s.CardCount, s.DueCount, s.Mastered, s.MasteryRate)
}
