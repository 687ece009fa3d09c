package artifacts

import (
	"context"
	"os"
	"testing"
	"time"

	"pathpioneer/gbm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyModel(t *testing.T) *gbm.Model {
	t.Helper()
	p := gbm.DefaultParams()
	p.NEstimators = 5
	m, err := gbm.Train(context.Background(),
		[][]float64{{1, 0}, {2, 1}, {3, 0}, {4, 1}},
		[]float64{10, 20, 30, 40},
		[]string{"a", "b"}, p, nil)
	require.NoError(t, err)
	return m
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	meta := Metadata{
		FeatureCols:  []string{"a", "b"},
		ColMap:       map[string]string{"Speed": "speed"},
		LocationHash: "xxhash64-mod-1000000",
		ModelVersion: "gbm-test",
		MAE:          1.25,
		TrainRows:    3,
		TestRows:     1,
		TrainedAt:    time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, Save(dir, tinyModel(t), meta))

	model, got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, model.Features())
	assert.Equal(t, meta, *got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files must not be left behind")
}

func TestLoadMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Load(dir)
	assert.ErrorIs(t, err, ErrNotTrained)

	// model present, metadata absent
	require.NoError(t, Save(dir, tinyModel(t), Metadata{FeatureCols: []string{"a", "b"}}))
	require.NoError(t, os.Remove(MetaPath(dir)))
	_, _, err = Load(dir)
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.ErrorContains(t, err, "run training first")
}

func TestLoadRejectsEmptyFeatureCols(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, tinyModel(t), Metadata{}))
	_, _, err := Load(dir)
	assert.ErrorContains(t, err, "feature_cols")
}
