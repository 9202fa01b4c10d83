package cli

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/spf13/cobra"
)

func newDueCmd(cfg *config.Config, logger *slog.Logger, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the cards that are due",
		Long:  "List the cards of the deck that are due for review, in file order. Cards without a state are always due.",
		RunE: func(cmd *cobra.Command, args []string) error {
			now, err := opts.clock()
			if err != nil {
				return err
			}
			eng, err := newEngine(cfg, logger, now, now.UnixNano())
			if err != nil {
				return err
			}
			deck, err := LoadDeckFile(opts.deckPath)
			if err != nil {
				return err
			}

			due := eng.sched.GetDueCards(deck.Cards, now)

			if opts.jsonOut {
				if due == nil {
					due = []domain.Card{}
				}
				return writeJSON(cmd.OutOrStdout(), due)
			}
			return printCards(cmd, due)
		},
	}
	return cmd
}

func printCards(cmd *cobra.Command, cards []domain.Card) error {
	if len(cards) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cards.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAGE\tSTABILITY\tDIFFICULTY\tDUE")
	for _, c := range cards {
		var stability, difficulty float64
		if c.State != nil {
			stability, difficulty = c.State.Stability, c.State.Difficulty
		}
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%s\n", c.ID, stageOf(c.State), stability, difficulty, formatDue(c.State))
	}
	return w.Flush()
}
