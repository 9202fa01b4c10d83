package cli

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/session"
	"github.com/spf13/cobra"
)

func newPlanCmd(cfg *config.Config, logger *slog.Logger, opts *options) *cobra.Command {
	var (
		learnedToday int
		seed         int64
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the queue a study session would start with",
		Long: `Partition the deck into due reviews, new cards and cards not yet due and
print the resulting session queue: overdue reviews first, then a shuffled
selection of new cards within the daily quota. The deck file is not changed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if learnedToday < 0 {
				return fmt.Errorf("--learned-today cannot be negative")
			}
			now, err := opts.clock()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = now.UnixNano()
			}
			eng, err := newEngine(cfg, logger, now, seed)
			if err != nil {
				return err
			}
			deck, err := LoadDeckFile(opts.deckPath)
			if err != nil {
				return err
			}

			plan, err := eng.policy.Plan(cmd.Context(), deck.Cards, learnedToday, now)
			if err != nil {
				return err
			}

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), planView(plan))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reviews: %d\n", plan.Reviews)
			fmt.Fprintf(out, "New: %d\n", plan.New)
			if plan.Browsing {
				fmt.Fprintln(out, "No new cards left; browsing upcoming cards.")
			}
			return printCards(cmd, plan.Queue)
		},
	}

	cmd.Flags().IntVar(&learnedToday, "learned-today", 0, "New cards already learned today")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Seed for shuffling new cards (default: time based)")

	return cmd
}

type planJSON struct {
	Queue    []string `json:"queue"`
	Reviews  int      `json:"reviews"`
	New      int      `json:"new"`
	Browsing bool     `json:"browsing"`
	NewQuota int      `json:"new_quota"`
}

func planView(p session.Plan) planJSON {
	ids := make([]string, 0, len(p.Queue))
	for _, c := range p.Queue {
		ids = append(ids, c.ID.String())
	}
	return planJSON{
		Queue:    ids,
		Reviews:  p.Reviews,
		New:      p.New,
		Browsing: p.Browsing,
		NewQuota: p.NewQuota,
	}
}
