package training

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"pathpioneer/artifacts"
	"pathpioneer/features"
	"pathpioneer/gbm"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	ds  *Dataset
	err error
}

func (s stubSource) Load(context.Context) (*Dataset, error) { return s.ds, s.err }
func (s stubSource) Describe() string                       { return "stub" }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testParams() gbm.Params {
	p := gbm.DefaultParams()
	p.NEstimators = 30
	p.LearningRate = 0.2
	p.MaxDepth = 3
	p.Jobs = 2
	return p
}

// syntheticDataset has 4 locations x 25 hourly readings with a daily cycle.
func syntheticDataset() *Dataset {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	base := map[string]float64{
		"Silk Board Junction": 15,
		"Hebbal Flyover":      25,
		"KR Puram":            20,
		"M G Road":            30,
	}
	ds := &Dataset{}
	for loc, b := range base {
		for i := 0; i < 25; i++ {
			ts := start.Add(time.Duration(i) * time.Hour)
			ds.Records = append(ds.Records, features.RawRecord{
				Timestamp:  ts.Format("2006-01-02 15:04:05"),
				LocationID: loc,
				Speed:      b + 5*math.Sin(2*math.Pi*float64(ts.Hour())/24),
			})
		}
	}
	return ds
}

func TestTrainerRunWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	colmap := map[string]string{"DateTime": "timestamp"}
	tr := NewTrainer(stubSource{ds: syntheticDataset()}, Options{
		ArtifactsDir: dir,
		TestFraction: 0.2,
		Params:       testParams(),
		ColumnMap:    colmap,
	}, quietLogger())
	fixed := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	report, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80, report.TrainRows)
	assert.Equal(t, 20, report.TestRows)
	assert.Equal(t, 4, report.Locations)
	assert.Less(t, report.MAE, 10.0)
	assert.Contains(t, report.ModelVersion, "gbm-")

	model, meta, err := artifacts.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, features.Columns, meta.FeatureCols)
	assert.Equal(t, features.Columns, model.Features())
	assert.Equal(t, features.LocationHashScheme, meta.LocationHash)
	assert.Equal(t, colmap, meta.ColMap)
	assert.Equal(t, report.ModelVersion, meta.ModelVersion)
	assert.True(t, fixed.Equal(meta.TrainedAt))
	assert.Equal(t, map[string]int{features.ColLag1: 1}, model.Params.Monotone)
}

func TestTrainerRunNeedsTwoRows(t *testing.T) {
	ds := &Dataset{Records: []features.RawRecord{{Timestamp: "2024-01-15 08:00", LocationID: "x", Speed: 20}}}
	tr := NewTrainer(stubSource{ds: ds}, Options{ArtifactsDir: t.TempDir(), TestFraction: 0.2, Params: testParams()}, quietLogger())
	_, err := tr.Run(context.Background())
	assert.ErrorContains(t, err, "at least 2")
}

func TestTrainerRunPropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	tr := NewTrainer(stubSource{err: boom}, Options{ArtifactsDir: t.TempDir(), Params: testParams()}, quietLogger())
	_, err := tr.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestTrainerRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	tr := NewTrainer(stubSource{ds: syntheticDataset()}, Options{ArtifactsDir: dir, TestFraction: 0.2, Params: testParams()}, quietLogger())
	_, err := tr.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, _, err = artifacts.Load(dir)
	assert.ErrorIs(t, err, artifacts.ErrNotTrained)
}

func TestChronologicalSplit(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	var rows []features.Row
	// interleave two locations so input order is not time order
	for i := 0; i < 5; i++ {
		for _, loc := range []string{"b", "a"} {
			rows = append(rows, features.Row{Observation: features.Observation{
				Timestamp:  start.Add(time.Duration(9-i) * time.Hour),
				LocationID: loc,
				Speed:      float64(i),
			}})
		}
	}

	train, test := ChronologicalSplit(rows, 0.2)
	require.Len(t, train, 8)
	require.Len(t, test, 2)
	for _, tr := range train {
		for _, te := range test {
			assert.False(t, te.Timestamp.Before(tr.Timestamp))
		}
	}
	// ties keep input order
	assert.Equal(t, "b", test[0].LocationID)
	assert.Equal(t, "a", test[1].LocationID)

	train, test = ChronologicalSplit(rows[:3], 0.2)
	assert.Len(t, train, 2)
	assert.Len(t, test, 1)

	train, test = ChronologicalSplit(rows[:2], 0.9)
	assert.Len(t, train, 1)
	assert.Len(t, test, 1)
}
