package cli

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/spf13/cobra"
)

func newInitCmd(cfg *config.Config, logger *slog.Logger, opts *options) *cobra.Command {
	var (
		add    int
		deckID string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or repair a deck file",
		Long: `Attach an initial state to every card that has none and repair
malformed states. With --add, append that many new cards. When the deck file
does not exist it is created; --deck-id sets its id.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if add < 0 {
				return fmt.Errorf("--add cannot be negative")
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
				if !isNotExist(err) {
					return err
				}
				deck = &DeckFile{DeckID: uuid.New()}
				if deckID != "" {
					if deck.DeckID, err = uuid.Parse(deckID); err != nil {
						return fmt.Errorf("invalid --deck-id: %w", err)
					}
				}
			}

			for i := 0; i < add; i++ {
				deck.Cards = append(deck.Cards, domain.NewCard(deck.DeckID))
			}

			for i, card := range deck.Cards {
				initialized, err := eng.sched.InitializeCard(cmd.Context(), card)
				if err != nil {
					return fmt.Errorf("card %d: %w", i, err)
				}
				deck.Cards[i] = initialized
			}

			if err := SaveDeckFile(opts.deckPath, deck); err != nil {
				return err
			}

			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), deck)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deck %s: %d cards initialized\n", deck.DeckID, len(deck.Cards))
			return nil
		},
	}

	cmd.Flags().IntVar(&add, "add", 0, "Number of new cards to append")
	cmd.Flags().StringVar(&deckID, "deck-id", "", "Deck id for a new deck file (default: random)")

	return cmd
}
