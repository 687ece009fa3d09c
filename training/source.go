package training

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"pathpioneer/config"
	"pathpioneer/features"
	"pathpioneer/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Source loads the raw observations to train on.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
	Describe() string
}

type CSVSource struct {
	Path      string
	ColumnMap map[string]string
}

func (s CSVSource) Describe() string { return "csv:" + s.Path }

func (s CSVSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("missing dataset: %s: put your CSV at this path or set TRAIN_DATA_PATH", s.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f, s.ColumnMap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return ds, nil
}

// PostgresSource reads the traffic_raw table.
type PostgresSource struct {
	DB *gorm.DB
}

func (s PostgresSource) Describe() string { return "postgres:traffic_raw" }

func (s PostgresSource) Load(ctx context.Context) (*Dataset, error) {
	var rows []models.TrafficRaw
	if err := s.DB.WithContext(ctx).Order("ts ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query traffic_raw: %w", err)
	}
	return &Dataset{Records: recordsFromTraffic(rows)}, nil
}

func recordsFromTraffic(rows []models.TrafficRaw) []features.RawRecord {
	out := make([]features.RawRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	return out
}

// OpenPostgres connects and pings the training database.
func OpenPostgres(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db handle: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// NewSource picks the configured training source. The returned close func
// releases any connection it opened.
func NewSource(cfg *config.Config) (Source, func() error, error) {
	switch cfg.Training.Source {
	case config.SourcePostgres:
		db, err := OpenPostgres(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		return PostgresSource{DB: db}, sqlDB.Close, nil
	default:
		return CSVSource{Path: cfg.Training.DataPath, ColumnMap: cfg.Training.ColumnMap}, func() error { return nil }, nil
	}
}
