package cli

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/spf13/cobra"
)

func newReviewCmd(cfg *config.Config, logger *slog.Logger, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review <card-id> <forgot|hard|easy>",
		Short: "Record a review",
		Long:  "Rate one card, write its new state back to the deck file and print the result.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid card id: %w", err)
			}
			rating, err := domain.ParseRating(args[1])
			if err != nil {
				return err
			}

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

			card, idx, ok := deck.Card(id)
			if !ok {
				return fmt.Errorf("card not found: %s", id)
			}

			result, err := eng.sched.ProcessReview(cmd.Context(), card, rating)
			if err != nil {
				return err
			}

			deck.Cards[idx] = result.Card
			if err := SaveDeckFile(opts.deckPath, deck); err != nil {
				return err
			}

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			state := result.Card.State
			last, _ := state.LastReview()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Card: %s\n", id)
			fmt.Fprintf(out, "Rating: %s\n", rating)
			fmt.Fprintf(out, "New card: %t\n", result.IsNewCard)
			fmt.Fprintf(out, "Difficulty: %.4f\n", state.Difficulty)
			fmt.Fprintf(out, "Stability: %.4f\n", state.Stability)
			fmt.Fprintf(out, "Interval: %d days\n", last.IntervalDays)
			fmt.Fprintf(out, "Stage: %d\n", state.Stage)
			fmt.Fprintf(out, "Due: %s\n", formatDue(state))
			return nil
		},
	}
	return cmd
}
