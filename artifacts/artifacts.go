package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"pathpioneer/gbm"
)

const (
	ModelFile = "model.json"
	MetaFile  = "feature_meta.json"
)

// ErrNotTrained is returned when either artifact is absent.
var ErrNotTrained = errors.New("trained artifacts not found: run training first: go run ./cmd/train")

// Metadata is written next to the model so inference can rebuild rows in
// the exact column order used at training time.
type Metadata struct {
	FeatureCols  []string          `json:"feature_cols"`
	ColMap       map[string]string `json:"colmap"`
	LocationHash string            `json:"location_hash"`
	ModelVersion string            `json:"model_version"`
	MAE          float64           `json:"mae_kmph"`
	TrainRows    int               `json:"train_rows"`
	TestRows     int               `json:"test_rows"`
	TrainedAt    time.Time         `json:"trained_at"`
}

func ModelPath(dir string) string { return filepath.Join(dir, ModelFile) }
func MetaPath(dir string) string  { return filepath.Join(dir, MetaFile) }

// Save writes both artifacts into dir, creating it if needed. Each file is
// written to a temporary name first and renamed into place.
func Save(dir string, model *gbm.Model, meta Metadata) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifacts dir: %w", err)
	}

	if err := writeAtomic(ModelPath(dir), func(f *os.File) error {
		return model.Save(f)
	}); err != nil {
		return fmt.Errorf("write model: %w", err)
	}

	if err := writeAtomic(MetaPath(dir), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Load reads both artifacts from dir. A missing file yields ErrNotTrained.
func Load(dir string) (*gbm.Model, *Metadata, error) {
	for _, p := range []string{ModelPath(dir), MetaPath(dir)} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, nil, fmt.Errorf("%w (missing %s)", ErrNotTrained, p)
			}
			return nil, nil, fmt.Errorf("stat %s: %w", p, err)
		}
	}

	mf, err := os.Open(ModelPath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("open model: %w", err)
	}
	defer mf.Close()

	model, err := gbm.Load(mf)
	if err != nil {
		return nil, nil, fmt.Errorf("load model: %w", err)
	}

	raw, err := os.ReadFile(MetaPath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(meta.FeatureCols) == 0 {
		return nil, nil, errors.New("metadata has no feature_cols")
	}

	return model, &meta, nil
}

func writeAtomic(path string, write func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
