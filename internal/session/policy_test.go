package session

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
	"github.com/phrazzld/scry-scheduler/internal/service/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	deckID   = uuid.MustParse("7f9c2ef4-4a8e-4c38-9b43-8f6a1c6b2d10")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func schedulerAt(now time.Time) scheduler.Scheduler {
	return scheduler.NewScheduler(srs.NewDefaultService(), discardLogger(),
		scheduler.WithClock(func() time.Time { return now }))
}

func newTestPolicy(t *testing.T, cfg Config, seed int64) *Policy {
	t.Helper()
	cache := NewCache[uuid.UUID, domain.Card](time.Hour, func() time.Time { return fixedNow })
	p, err := NewPolicy(cfg, schedulerAt(fixedNow), cache, rand.New(rand.NewSource(seed)),
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(discardLogger()))
	require.NoError(t, err)
	return p
}

func newCards(n int) []domain.Card {
	cards := make([]domain.Card, n)
	for i := range cards {
		cards[i] = domain.NewCard(deckID)
	}
	return cards
}

// reviewedCard returns a card rated EASY once at the given time, due four
// days later and no longer new.
func reviewedCard(t *testing.T, at time.Time) domain.Card {
	t.Helper()
	result, err := schedulerAt(at).ProcessReview(context.Background(), domain.NewCard(deckID), domain.RatingEasy)
	require.NoError(t, err)
	return result.Card
}

func ids(cards []domain.Card) []uuid.UUID {
	out := make([]uuid.UUID, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero new quota", mutate: func(c *Config) { c.DailyNewWordsQuota = 0 }},
		{name: "no review capacity", mutate: func(c *Config) { c.MaxReviewWordsPerSession = 0 }, wantErr: true},
		{name: "negative quota", mutate: func(c *Config) { c.DailyNewWordsQuota = -1 }, wantErr: true},
		{name: "zero streak", mutate: func(c *Config) { c.MasteryStreak = 0 }, wantErr: true},
		{name: "inverted easy window", mutate: func(c *Config) { c.EasyWindow = Window{Min: 3, Max: 1} }, wantErr: true},
		{name: "negative fail window", mutate: func(c *Config) { c.FailWindow = Window{Min: -1, Max: 1} }, wantErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	got := ConfigFromSettings(config.SessionConfig{
		MaxReviewWordsPerSession: 30,
		DailyNewWordsQuota:       10,
		MasteryStreak:            3,
		EasyWindowMin:            1,
		EasyWindowMax:            3,
		FailWindowMin:            1,
		FailWindowMax:            2,
	})

	assert.Equal(t, DefaultConfig(), got)
}

func TestNewPolicy(t *testing.T) {
	t.Parallel()

	cache := NewCache[uuid.UUID, domain.Card](time.Minute, nil)

	_, err := NewPolicy(DefaultConfig(), nil, cache, nil)
	assert.Error(t, err)

	_, err = NewPolicy(DefaultConfig(), schedulerAt(fixedNow), nil, nil)
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.MasteryStreak = 0
	_, err = NewPolicy(bad, schedulerAt(fixedNow), cache, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err := NewPolicy(DefaultConfig(), schedulerAt(fixedNow), cache, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), p.Config())
}

func TestPlanNewCardQuota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("five new cards with a quota of two", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.DailyNewWordsQuota = 2
		p := newTestPolicy(t, cfg, 1)

		cards := newCards(5)
		plan, err := p.Plan(ctx, cards, 0, fixedNow)
		require.NoError(t, err)
		assert.Len(t, plan.Queue, 2)
		assert.Equal(t, 2, plan.New)
		assert.Equal(t, 0, plan.Reviews)
		assert.False(t, plan.Browsing)
		assert.ElementsMatch(t, ids(cards[:2]), ids(plan.Queue), "the first candidates are taken, then shuffled")
	})

	testCases := []struct {
		name         string
		newCards     int
		quota        int
		learnedToday int
		want         int
	}{
		{name: "quota partly used", newCards: 5, quota: 10, learnedToday: 9, want: 1},
		{name: "quota exhausted", newCards: 5, quota: 10, learnedToday: 10, want: 0},
		{name: "learned beyond quota", newCards: 5, quota: 10, learnedToday: 14, want: 0},
		{name: "fewer cards than quota", newCards: 3, quota: 10, learnedToday: 0, want: 3},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			cfg.DailyNewWordsQuota = tc.quota
			p := newTestPolicy(t, cfg, 1)

			plan, err := p.Plan(ctx, newCards(tc.newCards), tc.learnedToday, fixedNow)
			require.NoError(t, err)
			assert.Len(t, plan.Queue, tc.want)
			assert.LessOrEqual(t, plan.New, max(0, tc.quota-tc.learnedToday))
		})
	}
}

func TestPlanOrdersDueReviewsByDueDate(t *testing.T) {
	t.Parallel()
	p := newTestPolicy(t, DefaultConfig(), 1)

	dueYesterday := reviewedCard(t, fixedNow.AddDate(0, 0, -5))
	dueLastWeek := reviewedCard(t, fixedNow.AddDate(0, 0, -11))
	dueNow := reviewedCard(t, fixedNow.AddDate(0, 0, -4))
	dueMonthAgo := reviewedCard(t, fixedNow.AddDate(0, 0, -34))
	notDue := reviewedCard(t, fixedNow.AddDate(0, 0, -1))
	fresh := newCards(2)

	cards := []domain.Card{dueYesterday, fresh[0], dueLastWeek, notDue, dueNow, fresh[1], dueMonthAgo}
	plan, err := p.Plan(context.Background(), cards, 0, fixedNow)
	require.NoError(t, err)

	assert.Equal(t, 4, plan.Reviews)
	assert.Equal(t, 2, plan.New)
	assert.Equal(t,
		[]uuid.UUID{dueMonthAgo.ID, dueLastWeek.ID, dueYesterday.ID, dueNow.ID},
		ids(plan.Queue[:4]))
	assert.ElementsMatch(t, ids(fresh), ids(plan.Queue[4:]))
	assert.NotContains(t, ids(plan.Queue), notDue.ID)
}

func TestPlanReviewCapacity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	due := []domain.Card{
		reviewedCard(t, fixedNow.AddDate(0, 0, -6)),
		reviewedCard(t, fixedNow.AddDate(0, 0, -5)),
		reviewedCard(t, fixedNow.AddDate(0, 0, -4)),
	}
	cards := append(append([]domain.Card{}, due...), newCards(5)...)

	t.Run("reviews fill the session", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.MaxReviewWordsPerSession = 2
		plan, err := newTestPolicy(t, cfg, 1).Plan(ctx, cards, 0, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, ids(due[:2]), ids(plan.Queue))
		assert.Equal(t, 0, plan.New)
	})

	t.Run("new cards fill the remaining capacity", func(t *testing.T) {
		t.Parallel()
		cfg := DefaultConfig()
		cfg.MaxReviewWordsPerSession = 5
		plan, err := newTestPolicy(t, cfg, 1).Plan(ctx, cards, 0, fixedNow)
		require.NoError(t, err)
		assert.Len(t, plan.Queue, 5)
		assert.Equal(t, 3, plan.Reviews)
		assert.Equal(t, 2, plan.New)
	})
}

func TestPlanBrowsesUpcomingCardsWhenNothingIsNew(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.DailyNewWordsQuota = 1
	p := newTestPolicy(t, cfg, 1)

	upcoming := []domain.Card{
		reviewedCard(t, fixedNow.AddDate(0, 0, -1)),
		reviewedCard(t, fixedNow.AddDate(0, 0, -2)),
		reviewedCard(t, fixedNow),
	}
	due := reviewedCard(t, fixedNow.AddDate(0, 0, -10))

	plan, err := p.Plan(context.Background(), append([]domain.Card{due}, upcoming...), 50, fixedNow)
	require.NoError(t, err)

	assert.True(t, plan.Browsing)
	assert.Equal(t, -1, plan.NewQuota)
	assert.Equal(t, due.ID, plan.Queue[0].ID)
	assert.ElementsMatch(t, ids(upcoming), ids(plan.Queue[1:]), "the daily quota does not apply")
}

func TestPlanRejectsCardsWithoutIdentity(t *testing.T) {
	t.Parallel()
	p := newTestPolicy(t, DefaultConfig(), 1)

	_, err := p.Plan(context.Background(), []domain.Card{{DeckID: deckID}}, 0, fixedNow)
	assert.ErrorIs(t, err, domain.ErrInvalidCard)
}

func TestPlanPrefersRecentlyRatedCards(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: fixedNow}
	cache := NewCache[uuid.UUID, domain.Card](10*time.Minute, clock.Now)
	p, err := NewPolicy(DefaultConfig(), schedulerAt(fixedNow), cache, rand.New(rand.NewSource(1)),
		WithClock(clock.Now), WithLogger(discardLogger()))
	require.NoError(t, err)

	// Storage still returns the card as new; the cache knows it was just reviewed
	stale := domain.NewCard(deckID)
	rated, err := schedulerAt(fixedNow).ProcessReview(context.Background(), stale, domain.RatingEasy)
	require.NoError(t, err)
	p.Remember(rated.Card)

	plan, err := p.Plan(context.Background(), []domain.Card{stale}, 0, fixedNow)
	require.NoError(t, err)
	assert.True(t, plan.Browsing, "the reviewed card is neither new nor due")
	require.Len(t, plan.Queue, 1)
	assert.Equal(t, rated.Card.State, plan.Queue[0].State)

	// Once storage has the newer state the cached copy is ignored
	later, err := schedulerAt(fixedNow.Add(time.Hour)).ProcessReview(context.Background(), rated.Card, domain.RatingHard)
	require.NoError(t, err)
	plan, err = p.Plan(context.Background(), []domain.Card{later.Card}, 0, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, later.Card.State, plan.Queue[0].State)

	// Expired entries fall back to storage
	clock.Advance(10 * time.Minute)
	plan, err = p.Plan(context.Background(), []domain.Card{stale}, 0, fixedNow)
	require.NoError(t, err)
	assert.False(t, plan.Browsing)
	assert.True(t, plan.Queue[0].State.LastReviewAt == nil)

	p.Remember(rated.Card)
	p.Forget(rated.Card.ID)
	plan, err = p.Plan(context.Background(), []domain.Card{stale}, 0, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.New)
}
