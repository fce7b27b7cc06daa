package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-deck/pkg/deck"
	"github.com/benjaminschreck/go-deck/pkg/deck/gamma"
)

func newThemesCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "themes [query]",
		Short: "List the themes available for generated pages",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := gamma.New(gamma.Config{Logger: deck.GetLogger()})
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}
			themes, err := client.ListThemes(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(themes) == 0 {
				fmt.Fprintln(out, "No themes found")
				return nil
			}
			rows := make([][]string, 0, len(themes))
			for _, t := range themes {
				rows = append(rows, []string{t.ID, t.Name, t.Type, strings.Join(t.ToneKeywords, ", ")})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Type", "Tone"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of themes")
	return cmd
}
