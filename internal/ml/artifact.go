package ml

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/loanwise/loanwise/internal/features"
)

// Artifact file names inside the artifact directory.
const (
	ScalerFile     = "scaler.bin"
	ClassifierFile = "classifier.bin"
	ReportFile     = "report.json"
)

const (
	artifactMagic  = "loanwise-artifact"
	artifactFormat = 1
)

var (
	// ErrArtifactMissing means no usable artifact files were found.
	ErrArtifactMissing = errors.New("model artifact missing")
	// ErrArtifactCorrupt means artifact files exist but cannot be used.
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
)

// Metrics is the held-out evaluation of a training run.
type Metrics struct {
	ROCAUC         float64              `json:"roc_auc"`
	Classification ClassificationReport `json:"classification_report"`
	TrainRows      int                  `json:"train_rows"`
	TestRows       int                  `json:"test_rows"`
}

// Report is the human-readable summary written next to the binary files.
type Report struct {
	Version   string       `json:"version"`
	Features  []string     `json:"features"`
	TrainedAt time.Time    `json:"trained_at"`
	Params    ForestParams `json:"params"`
	Metrics   Metrics      `json:"metrics"`
}

// Artifact is a matched preprocessing and classifier pair from one run.
type Artifact struct {
	Version    string
	Features   []string
	TrainedAt  time.Time
	Imputer    *features.Imputer
	Scaler     *StandardScaler
	Classifier *RandomForest
	Metrics    Metrics
}

type header struct {
	Magic     string
	Format    int
	Version   string
	Features  []string
	TrainedAt time.Time
}

type scalerPayload struct {
	Header  header
	Imputer features.Imputer
	Scaler  StandardScaler
}

type classifierPayload struct {
	Header     header
	Classifier RandomForest
	Metrics    Metrics
}

// PredictProba imputes, scales and scores v.
func (a *Artifact) PredictProba(v features.Vector) float64 {
	v = a.Imputer.Transform(v)
	v = a.Scaler.Transform(v)
	return a.Classifier.PredictProba(v[:])
}

// Report returns the summary for this artifact.
func (a *Artifact) Report() Report {
	return Report{
		Version:   a.Version,
		Features:  a.Features,
		TrainedAt: a.TrainedAt,
		Params:    a.Classifier.Params,
		Metrics:   a.Metrics,
	}
}

func (a *Artifact) header() header {
	return header{
		Magic:     artifactMagic,
		Format:    artifactFormat,
		Version:   a.Version,
		Features:  a.Features,
		TrainedAt: a.TrainedAt,
	}
}

// Save writes the artifact into dir. Every file is written to a temporary
// name first; nothing is renamed into place unless all writes succeed.
func (a *Artifact) Save(dir string) error {
	if a.Imputer == nil || a.Scaler == nil || a.Classifier == nil {
		return errors.New("artifact is incomplete")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	h := a.header()
	writes := []struct {
		name  string
		write func(io.Writer) error
	}{
		{ScalerFile, func(w io.Writer) error {
			return gob.NewEncoder(w).Encode(scalerPayload{Header: h, Imputer: *a.Imputer, Scaler: *a.Scaler})
		}},
		{ClassifierFile, func(w io.Writer) error {
			return gob.NewEncoder(w).Encode(classifierPayload{Header: h, Classifier: *a.Classifier, Metrics: a.Metrics})
		}},
		{ReportFile, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(a.Report())
		}},
	}

	temps := make([]string, 0, len(writes))
	cleanup := func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}

	for _, wr := range writes {
		tmp, err := writeTemp(dir, wr.name, wr.write)
		if err != nil {
			cleanup()
			return fmt.Errorf("write %s: %w", wr.name, err)
		}
		temps = append(temps, tmp)
	}

	for i, wr := range writes {
		if err := os.Rename(temps[i], filepath.Join(dir, wr.name)); err != nil {
			cleanup()
			return fmt.Errorf("rename %s: %w", wr.name, err)
		}
	}
	return nil
}

func writeTemp(dir, name string, write func(io.Writer) error) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Load reads and validates the artifact pair stored in dir.
func Load(dir string) (*Artifact, error) {
	var sp scalerPayload
	if err := decodeFile(filepath.Join(dir, ScalerFile), &sp); err != nil {
		return nil, err
	}
	var cp classifierPayload
	if err := decodeFile(filepath.Join(dir, ClassifierFile), &cp); err != nil {
		return nil, err
	}

	if err := checkHeader(sp.Header); err != nil {
		return nil, fmt.Errorf("%s: %w", ScalerFile, err)
	}
	if err := checkHeader(cp.Header); err != nil {
		return nil, fmt.Errorf("%s: %w", ClassifierFile, err)
	}
	if sp.Header.Version != cp.Header.Version {
		return nil, fmt.Errorf("%w: scaler version %q does not match classifier version %q",
			ErrArtifactCorrupt, sp.Header.Version, cp.Header.Version)
	}
	if cp.Classifier.NumFeatures != features.NumFeatures || len(cp.Classifier.Trees) == 0 {
		return nil, fmt.Errorf("%w: classifier expects %d features with %d trees",
			ErrArtifactCorrupt, cp.Classifier.NumFeatures, len(cp.Classifier.Trees))
	}
	for i := range cp.Classifier.Trees {
		if err := cp.Classifier.Trees[i].check(cp.Classifier.NumFeatures); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrArtifactCorrupt, i, err)
		}
	}
	for i, s := range sp.Scaler.Scale {
		if s == 0 {
			return nil, fmt.Errorf("%w: zero scale for %s", ErrArtifactCorrupt, features.Names[i])
		}
	}

	return &Artifact{
		Version:    sp.Header.Version,
		Features:   sp.Header.Features,
		TrainedAt:  sp.Header.TrainedAt,
		Imputer:    &sp.Imputer,
		Scaler:     &sp.Scaler,
		Classifier: &cp.Classifier,
		Metrics:    cp.Metrics,
	}, nil
}

// ReadReport reads report.json from dir.
func ReadReport(dir string) (Report, error) {
	var r Report
	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if errors.Is(err, fs.ErrNotExist) {
		return r, fmt.Errorf("%w: %s", ErrArtifactMissing, ReportFile)
	}
	if err != nil {
		return r, fmt.Errorf("read %s: %w", ReportFile, err)
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, ReportFile, err)
	}
	return r, nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, filepath.Base(path), err)
	}
	return nil
}

func checkHeader(h header) error {
	if h.Magic != artifactMagic {
		return fmt.Errorf("%w: unrecognized file", ErrArtifactCorrupt)
	}
	if h.Format != artifactFormat {
		return fmt.Errorf("%w: format %d, want %d", ErrArtifactCorrupt, h.Format, artifactFormat)
	}
	if h.Version == "" {
		return fmt.Errorf("%w: empty version", ErrArtifactCorrupt)
	}
	if !features.MatchesOrder(h.Features) {
		return fmt.Errorf("%w: feature order %v does not match %v", ErrArtifactCorrupt, h.Features, features.NameList())
	}
	return nil
}
