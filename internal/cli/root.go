// Package cli implements srsctl, a command line harness that runs the
// scheduling engine over deck files instead of a database.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
	"github.com/phrazzld/scry-scheduler/internal/service/scheduler"
	"github.com/phrazzld/scry-scheduler/internal/session"
	"github.com/spf13/cobra"
)

// options are the flags shared by every subcommand.
type options struct {
	deckPath string
	now      string
	jsonOut  bool
}

// clock returns the time the command runs at: --now when given, otherwise
// the wall clock in UTC.
func (o *options) clock() (time.Time, error) {
	if o.now == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, o.now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --now %q: expected RFC3339", o.now)
	}
	return t.UTC(), nil
}

// engine bundles the scheduler and session policy built from configuration.
type engine struct {
	sched  scheduler.Scheduler
	policy *session.Policy
	now    time.Time
}

func newEngine(cfg *config.Config, logger *slog.Logger, now time.Time, seed int64) (*engine, error) {
	params, err := srs.NewParams(srs.ParamsConfig{
		Weights:         cfg.SRS.Weights,
		MaxIntervalDays: cfg.SRS.MaxIntervalDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create SRS parameters: %w", err)
	}

	clock := func() time.Time { return now }
	sched := scheduler.NewScheduler(srs.NewServiceWithParams(params), logger, scheduler.WithClock(clock))

	// Each invocation is a fresh process, so nothing is ever cached across runs
	cache := session.NewCache[uuid.UUID, domain.Card](cfg.Session.CacheTTL, clock)
	policy, err := session.NewPolicy(session.ConfigFromSettings(cfg.Session), sched, cache, rand.New(rand.NewSource(seed)),
		session.WithClock(clock), session.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create session policy: %w", err)
	}

	return &engine{sched: sched, policy: policy, now: now}, nil
}

// NewRootCmd creates the root command for srsctl.
func NewRootCmd(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	if logger == nil {
		logger = slog.Default()
	}
	opts := &options{}

	root := &cobra.Command{
		Use:   "srsctl",
		Short: "Schedule spaced-repetition reviews over deck files",
		Long: `Run the scheduling engine against a JSON or YAML deck file.

srsctl can:
- Initialize and repair card states
- List the cards that are due
- Record a review and write the new state back
- Show the queue a study session would start with`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.deckPath, "deck", "f", "deck.json", "Deck file (.json, .yaml or .yml)")
	root.PersistentFlags().StringVar(&opts.now, "now", "", "Evaluate at this RFC3339 time instead of the current time")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print JSON instead of a table")

	root.AddCommand(newInitCmd(cfg, logger, opts))
	root.AddCommand(newDueCmd(cfg, logger, opts))
	root.AddCommand(newReviewCmd(cfg, logger, opts))
	root.AddCommand(newPlanCmd(cfg, logger, opts))

	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDue(state *domain.CardState) string {
	if state == nil || state.DueAt == nil {
		return "now"
	}
	return state.DueAt.Format(time.RFC3339)
}

func stageOf(state *domain.CardState) domain.Stage {
	if state == nil {
		return domain.StageLearning
	}
	return state.Stage
}
