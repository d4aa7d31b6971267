package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/f3rmion/shinkei/internal/api"
	"github.com/f3rmion/shinkei/internal/shinkei"
	"github.com/f3rmion/shinkei/internal/suggest"
	"github.com/spf13/cobra"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [english]",
	Short: "Ask the AI to suggest card fields",
	Long: `Ask the server's AI to suggest card fields for an English term.

The term is given as arguments or with --english. Without --field every
suggestable field is requested.

Examples:
  shinkei enhance apple
  shinkei enhance --english "ice cream" --field measure_word
  shinkei enhance "to study" --field hanzi --field example_sentence`,
	RunE: runEnhance,
}

var (
	enhanceEnglish string
	enhanceFields  []string
)

func init() {
	rootCmd.AddCommand(enhanceCmd)
	enhanceCmd.Flags().StringVarP(&enhanceEnglish, "english", "e", "", "English term")
	enhanceCmd.Flags().StringSliceVarP(&enhanceFields, "field", "f", nil,
		"field to suggest ("+strings.Join(shinkei.SuggestableFields, ", ")+")")
}

func runEnhance(cmd *cobra.Command, args []string) error {
	for _, f := range enhanceFields {
		if !slices.Contains(shinkei.SuggestableFields, f) {
			return fmt.Errorf("cannot suggest field %q", f)
		}
	}

	_, client, _, err := setup(cmd)
	if err != nil {
		return err
	}

	english := enhanceEnglish
	if english == "" {
		english = strings.Join(args, " ")
	}
	suggestions, err := suggest.Fetch(cmd.Context(), client, english, enhanceFields...)
	if errors.Is(err, api.ErrNoSuggestions) {
		fmt.Fprintln(cmd.OutOrStdout(), "No AI suggestions available")
		return nil
	}
	if err != nil {
		return err
	}

	fields := enhanceFields
	if len(fields) == 0 {
		fields = shinkei.SuggestableFields
	}
	var rows [][]string
	for _, f := range fields {
		if v, ok := suggest.Normalize(f, suggestions[f]); ok {
			rows = append(rows, []string{f, v})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No AI suggestions available")
		return nil
	}
	printTable(cmd.OutOrStdout(), []string{"FIELD", "SUGGESTION"}, rows)
	return nil
}
