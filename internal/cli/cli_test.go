package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reviewTime = "2025-03-01T09:00:00Z"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "error"},
		SRS:    config.SRSConfig{MaxIntervalDays: 365},
		Session: config.SessionConfig{
			MaxReviewWordsPerSession: 30,
			DailyNewWordsQuota:       10,
			MasteryStreak:            3,
			EasyWindowMin:            1,
			EasyWindowMax:            3,
			FailWindowMin:            1,
			FailWindowMax:            2,
			CacheTTL:                 time.Minute,
			Timezone:                 "UTC",
		},
	}
}

// run executes srsctl with args and returns what it printed on stdout.
func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newDeck(t *testing.T, name string, cards int) (string, *DeckFile) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	_, err := run(t, testConfig(), "init", "-f", path, "--add", strconv.Itoa(cards), "--now", reviewTime)
	require.NoError(t, err)
	deck, err := LoadDeckFile(path)
	require.NoError(t, err)
	return path, deck
}

func TestInitCreatesDeck(t *testing.T) {
	path, deck := newDeck(t, "deck.json", 3)

	assert.NotEqual(t, uuid.Nil, deck.DeckID)
	require.Len(t, deck.Cards, 3)
	for _, c := range deck.Cards {
		require.NotNil(t, c.State, "init attaches a state to every card")
		assert.Equal(t, deck.DeckID, c.DeckID)
		assert.Empty(t, c.State.Reviews)
		assert.Nil(t, c.State.DueAt)
	}

	// Running init again is a no-op apart from appended cards
	_, err := run(t, testConfig(), "init", "-f", path, "--add", "1")
	require.NoError(t, err)
	again, err := LoadDeckFile(path)
	require.NoError(t, err)
	require.Len(t, again.Cards, 4)
	assert.Equal(t, deck.Cards, again.Cards[:3])
}

func TestInitWithDeckID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.json")
	id := uuid.New()

	_, err := run(t, testConfig(), "init", "-f", path, "--deck-id", id.String())
	require.NoError(t, err)

	deck, err := LoadDeckFile(path)
	require.NoError(t, err)
	assert.Equal(t, id, deck.DeckID)
	assert.Empty(t, deck.Cards)

	_, err = run(t, testConfig(), "init", "-f", filepath.Join(t.TempDir(), "x.json"), "--deck-id", "nope")
	assert.Error(t, err)
}

func TestReviewWritesState(t *testing.T) {
	for _, name := range []string{"deck.json", "deck.yaml"} {
		t.Run(name, func(t *testing.T) {
			path, deck := newDeck(t, name, 2)
			id := deck.Cards[0].ID

			out, err := run(t, testConfig(), "review", id.String(), "easy", "-f", path, "--now", reviewTime, "--json")
			require.NoError(t, err)

			var result struct {
				Card      domain.Card `json:"card"`
				IsNewCard bool        `json:"is_new_card"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &result))
			assert.True(t, result.IsNewCard)
			assert.InDelta(t, 4.1386, result.Card.State.Stability, 1e-9)
			assert.InDelta(t, 5.1443, result.Card.State.Difficulty, 1e-9)

			saved, err := LoadDeckFile(path)
			require.NoError(t, err)
			card, _, ok := saved.Card(id)
			require.True(t, ok)
			require.Len(t, card.State.Reviews, 1)
			assert.Equal(t, 4, card.State.Reviews[0].IntervalDays)
			want := time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC)
			assert.True(t, card.State.DueAt.Equal(want), "due %s, want %s", card.State.DueAt, want)
			assert.Equal(t, domain.StageKnown, card.State.Stage)
		})
	}
}

func TestReviewErrors(t *testing.T) {
	path, deck := newDeck(t, "deck.json", 1)
	id := deck.Cards[0].ID.String()

	testCases := []struct {
		name string
		args []string
	}{
		{name: "invalid rating", args: []string{"review", id, "4"}},
		{name: "unknown rating name", args: []string{"review", id, "perfect"}},
		{name: "invalid card id", args: []string{"review", "card-1", "easy"}},
		{name: "unknown card", args: []string{"review", uuid.NewString(), "easy"}},
		{name: "bad clock", args: []string{"review", id, "easy", "--now", "yesterday"}},
		{name: "missing args", args: []string{"review", id}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, testConfig(), append(tc.args, "-f", path)...)
			assert.Error(t, err)
		})
	}

	saved, err := LoadDeckFile(path)
	require.NoError(t, err)
	assert.Empty(t, saved.Cards[0].State.Reviews, "failed reviews must not change the deck")
}

func TestDue(t *testing.T) {
	path, deck := newDeck(t, "deck.json", 3)
	reviewed := deck.Cards[1].ID

	_, err := run(t, testConfig(), "review", reviewed.String(), "easy", "-f", path, "--now", reviewTime)
	require.NoError(t, err)

	testCases := []struct {
		name string
		now  string
		want []uuid.UUID
	}{
		{name: "before due date", now: "2025-03-02T09:00:00Z", want: []uuid.UUID{deck.Cards[0].ID, deck.Cards[2].ID}},
		{name: "at due date", now: "2025-03-05T09:00:00Z", want: []uuid.UUID{deck.Cards[0].ID, reviewed, deck.Cards[2].ID}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := run(t, testConfig(), "due", "-f", path, "--now", tc.now, "--json")
			require.NoError(t, err)

			var due []domain.Card
			require.NoError(t, json.Unmarshal([]byte(out), &due))
			got := make([]uuid.UUID, len(due))
			for i, c := range due {
				got[i] = c.ID
			}
			assert.Equal(t, tc.want, got, "due cards keep file order")
		})
	}

	out, err := run(t, testConfig(), "due", "-f", path, "--now", "2025-03-02T09:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "STAGE")
	assert.Contains(t, out, deck.Cards[0].ID.String())
	assert.NotContains(t, out, reviewed.String())
}

func TestPlanRespectsDailyQuota(t *testing.T) {
	path, _ := newDeck(t, "deck.json", 5)
	cfg := testConfig()
	cfg.Session.DailyNewWordsQuota = 2

	out, err := run(t, cfg, "plan", "-f", path, "--now", reviewTime, "--seed", "1", "--json")
	require.NoError(t, err)

	var plan planJSON
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Len(t, plan.Queue, 2)
	assert.Equal(t, 2, plan.New)
	assert.Equal(t, 0, plan.Reviews)
	assert.False(t, plan.Browsing)

	out, err = run(t, cfg, "plan", "-f", path, "--now", reviewTime, "--learned-today", "2", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	assert.Empty(t, plan.Queue, "quota already used up today")

	_, err = run(t, cfg, "plan", "-f", path, "--learned-today", "-1")
	assert.Error(t, err)
}

func TestPlanIsDeterministicWithSeed(t *testing.T) {
	path, _ := newDeck(t, "deck.yml", 6)

	first, err := run(t, testConfig(), "plan", "-f", path, "--now", reviewTime, "--seed", "42", "--json")
	require.NoError(t, err)
	second, err := run(t, testConfig(), "plan", "-f", path, "--now", reviewTime, "--seed", "42", "--json")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLoadDeckFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDeckFile(filepath.Join(dir, "missing.json"))
	assert.True(t, isNotExist(err))

	noID := filepath.Join(dir, "noid.json")
	require.NoError(t, SaveDeckFile(noID, &DeckFile{}))
	_, err = LoadDeckFile(noID)
	assert.Error(t, err)
}
