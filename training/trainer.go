package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"pathpioneer/artifacts"
	"pathpioneer/features"
	"pathpioneer/gbm"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const progressEvery = 100

type Options struct {
	ArtifactsDir string
	TestFraction float64
	Params       gbm.Params
	// ColumnMap is recorded in the metadata for reference.
	ColumnMap map[string]string
}

// Report summarises a finished run.
type Report struct {
	ModelVersion      string
	TrainRows         int
	TestRows          int
	MAE               float64
	Locations         int
	DroppedTimestamps int
	DroppedSpeeds     int
}

type Trainer struct {
	source Source
	opts   Options
	logger *logrus.Logger
	now    func() time.Time
}

func NewTrainer(source Source, opts Options, logger *logrus.Logger) *Trainer {
	return &Trainer{source: source, opts: opts, logger: logger, now: time.Now}
}

// Run loads the source, builds features, fits on the earliest rows, scores
// the latest ones and writes both artifacts.
func (t *Trainer) Run(ctx context.Context) (*Report, error) {
	ds, err := t.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	t.logger.WithFields(logrus.Fields{
		"source":         t.source.Describe(),
		"records":        len(ds.Records),
		"dropped_speeds": ds.DroppedSpeeds,
	}).Info("dataset loaded")

	built := features.Build(ds.Records)
	if len(built.Rows) < 2 {
		return nil, fmt.Errorf("need at least 2 usable rows to train, got %d", len(built.Rows))
	}
	features.WithLocationHash(built.Rows)
	t.logger.WithFields(logrus.Fields{
		"rows":               len(built.Rows),
		"locations":          built.Locations,
		"dropped_timestamps": built.DroppedTimestamps,
	}).Info("features built")

	train, test := ChronologicalSplit(built.Rows, t.opts.TestFraction)
	Xtr, ytr, err := matrix(train, features.Columns)
	if err != nil {
		return nil, err
	}
	Xte, yte, err := matrix(test, features.Columns)
	if err != nil {
		return nil, err
	}

	params := t.opts.Params
	if params.Monotone == nil {
		params.Monotone = map[string]int{features.ColLag1: 1}
	}

	model, err := gbm.Train(ctx, Xtr, ytr, features.Columns, params, func(round int, rmse float64) {
		if round%progressEvery == 0 || round == params.NEstimators {
			t.logger.WithFields(logrus.Fields{
				"round": round,
				"rmse":  rmse,
			}).Info("boosting")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	preds, err := model.PredictBatch(Xte)
	if err != nil {
		return nil, fmt.Errorf("score test split: %w", err)
	}
	mae := gbm.MeanAbsoluteError(preds, yte)

	report := &Report{
		ModelVersion:      "gbm-" + uuid.NewString(),
		TrainRows:         len(train),
		TestRows:          len(test),
		MAE:               mae,
		Locations:         built.Locations,
		DroppedTimestamps: built.DroppedTimestamps,
		DroppedSpeeds:     ds.DroppedSpeeds,
	}

	meta := artifacts.Metadata{
		FeatureCols:  features.Columns,
		ColMap:       t.opts.ColumnMap,
		LocationHash: features.LocationHashScheme,
		ModelVersion: report.ModelVersion,
		MAE:          mae,
		TrainRows:    report.TrainRows,
		TestRows:     report.TestRows,
		TrainedAt:    t.now().UTC().Truncate(time.Second),
	}
	if err := artifacts.Save(t.opts.ArtifactsDir, model, meta); err != nil {
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"mae_kmph":      fmt.Sprintf("%.3f", mae),
		"model_version": report.ModelVersion,
		"model":         artifacts.ModelPath(t.opts.ArtifactsDir),
		"meta":          artifacts.MetaPath(t.opts.ArtifactsDir),
	}).Info("artifacts saved")
	return report, nil
}

// ChronologicalSplit orders rows by timestamp (ties keep their order) and
// holds out the latest ceil(testFraction*n) of them. Both halves are
// non-empty when len(rows) >= 2.
func ChronologicalSplit(rows []features.Row, testFraction float64) (train, test []features.Row) {
	ordered := make([]features.Row, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	n := len(ordered)
	if n < 2 {
		return ordered, nil
	}
	nTest := int(math.Ceil(testFraction * float64(n)))
	nTest = min(max(nTest, 1), n-1)
	return ordered[:n-nTest], ordered[n-nTest:]
}

func matrix(rows []features.Row, cols []string) ([][]float64, []float64, error) {
	if len(rows) == 0 {
		return nil, nil, errors.New("empty split")
	}
	X := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i := range rows {
		vec, err := rows[i].Vector(cols)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d (%s): %w", i, rows[i].LocationID, err)
		}
		X[i] = vec
		y[i] = rows[i].Speed
	}
	return X, y, nil
}
