package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/virtualdyno/internal/dyno"
	"codeberg.org/mutker/virtualdyno/internal/errors"
	"codeberg.org/mutker/virtualdyno/internal/logger"
	"codeberg.org/mutker/virtualdyno/internal/store"
	"codeberg.org/mutker/virtualdyno/internal/telemetry"
)

func newTestRepository(t *testing.T) store.RunRepository {
	t.Helper()

	require.NoError(t, logger.Init("error"))

	cfg := store.Config{
		DBPath:  filepath.Join(t.TempDir(), "runs.db"),
		Enabled: true,
	}

	repo, err := store.NewRepository(cfg, logger.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func sampleRun(id, version string) *dyno.Run {
	return &dyno.Run{
		ID:             id,
		VehicleVersion: version,
		Source:         telemetry.SourceSimulated,
		Status:         dyno.StatusAccepted,
		TorqueCurve: []dyno.CurvePoint{
			{RPM: 3050, Value: 240},
			{RPM: 3150, Value: 252},
		},
		PowerCurve: []dyno.CurvePoint{
			{RPM: 3050, Value: 76500},
			{RPM: 3150, Value: 83100},
		},
		PeakTorqueNm:  252,
		PeakTorqueRPM: 3150,
		PeakPowerW:    83100,
		PeakPowerRPM:  3150,
		Confidence: dyno.Score{
			Value:  85,
			Rating: dyno.RatingHigh,
		},
		PullCount:   1,
		DataQuality: 0.96,
	}
}

func TestStoreAndGetRoundtrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := sampleRun("run-1", "v1")
	require.NoError(t, repo.Store(ctx, run))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Status, got.Status)
	assert.Equal(t, run.Source, got.Source)
	assert.Equal(t, run.TorqueCurve, got.TorqueCurve)
	assert.Equal(t, run.PowerCurve, got.PowerCurve)
	assert.InDelta(t, run.Confidence.Value, got.Confidence.Value, 1e-9)
	assert.InDelta(t, run.DataQuality, got.DataQuality, 1e-9)
}

func TestGetUnknownRun(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "no-such-run")
	require.Error(t, err)
	assert.Equal(t, errors.ErrRunNotFound, errors.CodeOf(err))
}

func TestStoreRejectsDuplicateID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, sampleRun("run-1", "v1")))
	assert.Error(t, repo.Store(ctx, sampleRun("run-1", "v1")), "runs are immutable, same ID cannot be stored twice")
}

func TestListByVehicleVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, sampleRun("run-1", "v1")))
	require.NoError(t, repo.Store(ctx, sampleRun("run-2", "v1")))
	require.NoError(t, repo.Store(ctx, sampleRun("run-3", "v2")))

	summaries, err := repo.ListByVehicleVersion(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	for _, s := range summaries {
		assert.Equal(t, "v1", s.VehicleVersion)
		assert.Equal(t, string(dyno.StatusAccepted), s.Status)
		assert.InDelta(t, 85, s.Confidence, 1e-9)
		assert.InDelta(t, 252, s.PeakTorqueNm, 1e-9)
		assert.NotEmpty(t, s.CreatedAt)
	}

	empty, err := repo.ListByVehicleVersion(ctx, "v9")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestNewRepositoryRequiresPath(t *testing.T) {
	_, err := store.NewRepository(store.Config{}, logger.NewLogger())
	require.Error(t, err)
	assert.Equal(t, store.ErrInvalidDBPath, errors.CodeOf(err))
}
