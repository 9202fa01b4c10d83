package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 0, LogLevel: "debug"},
		Database: config.DatabaseConfig{URL: "postgres://localhost/scry_test"},
		SRS:      config.SRSConfig{MaxIntervalDays: 365},
		Session: config.SessionConfig{
			MaxReviewWordsPerSession: 30,
			DailyNewWordsQuota:       10,
			MasteryStreak:            3,
			EasyWindowMin:            1,
			EasyWindowMax:            3,
			FailWindowMin:            1,
			FailWindowMax:            2,
			CacheTTL:                 time.Hour,
			Timezone:                 "UTC",
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewApplication_InvalidWeights(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.SRS.Weights = []float64{1, 2, 3}

	_, err = newApplication(cfg, discardLogger(), db)
	assert.Error(t, err)
}

func TestNewApplication_InvalidSessionConfig(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.Session.MasteryStreak = 0

	_, err = newApplication(cfg, discardLogger(), db)
	assert.ErrorIs(t, err, session.ErrInvalidConfig)
}

func TestRouter(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	app, err := newApplication(testConfig(), discardLogger(), db)
	require.NoError(t, err)
	router := app.setupRouter()

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	})

	t.Run("invalid path id never reaches storage", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/decks/"+uuid.NewString()+"/nothing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	app, err := newApplication(testConfig(), discardLogger(), db)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, app.Run(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
