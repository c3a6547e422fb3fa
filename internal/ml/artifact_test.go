package ml

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loanwise/loanwise/internal/features"
)

func testArtifact(t *testing.T, version string) *Artifact {
	t.Helper()

	rows, labels := syntheticData(120, 3)
	imp, err := features.FitImputer(rows)
	require.NoError(t, err)
	scaler, err := FitScaler(rows)
	require.NoError(t, err)

	params := DefaultForestParams()
	params.NumTrees = 5
	params.MaxDepth = 4
	forest, err := FitForest(context.Background(), scaler.TransformAll(rows), labels, params)
	require.NoError(t, err)

	return &Artifact{
		Version:    version,
		Features:   features.NameList(),
		TrainedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Imputer:    imp,
		Scaler:     scaler,
		Classifier: forest,
		Metrics:    Metrics{ROCAUC: 0.9, TrainRows: 96, TestRows: 24},
	}
}

func TestArtifact_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := testArtifact(t, "01HXAMPLEVERSION000000000A")
	require.NoError(t, a.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, a.Version, loaded.Version)
	assert.Equal(t, a.Features, loaded.Features)
	assert.True(t, a.TrainedAt.Equal(loaded.TrainedAt))
	assert.Equal(t, a.Metrics, loaded.Metrics)

	v := features.Derive(12000, 45000, 690, 4)
	assert.Equal(t, a.PredictProba(v), loaded.PredictProba(v))

	report, err := ReadReport(dir)
	require.NoError(t, err)
	assert.Equal(t, a.Version, report.Version)
	assert.Equal(t, 5, report.Params.NumTrees)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrArtifactMissing)

	_, err = ReadReport(t.TempDir())
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestLoad_RejectsMismatchedVersions(t *testing.T) {
	t.Parallel()

	dirA, dirB := t.TempDir(), t.TempDir()
	require.NoError(t, testArtifact(t, "01HVERSIONA000000000000000").Save(dirA))
	require.NoError(t, testArtifact(t, "01HVERSIONB000000000000000").Save(dirB))

	data, err := os.ReadFile(filepath.Join(dirB, ClassifierFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dirA, ClassifierFile), data, 0o644))

	_, err = Load(dirA)
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
	assert.Contains(t, err.Error(), "does not match")
}

func TestLoad_RejectsFeatureOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := testArtifact(t, "01HORDER000000000000000000")
	a.Features = []string{"annual_income", "loan_amount", "credit_score", "employment_length", "debt_to_income_ratio"}
	require.NoError(t, a.Save(dir))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestLoad_RejectsGarbage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, testArtifact(t, "01HGARBAGE0000000000000000").Save(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ScalerFile), []byte("not a gob"), 0o644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, ErrArtifactCorrupt)
}

func TestLoad_RejectsMalformedTrees(t *testing.T) {
	t.Parallel()

	split := func(feature, left, right int) Node {
		return Node{Feature: feature, Threshold: 0, Left: left, Right: right}
	}
	leaf := func(p float64) Node { return Node{Leaf: true, Prob: p} }

	tests := []struct {
		name  string
		nodes []Node
	}{
		{"empty", nil},
		{"child points back to root", []Node{split(0, 0, 1), leaf(0.5)}},
		{"child past the end", []Node{split(0, 1, 9), leaf(0.5)}},
		{"feature out of range", []Node{split(features.NumFeatures, 1, 2), leaf(0.1), leaf(0.9)}},
		{"negative feature", []Node{split(-1, 1, 2), leaf(0.1), leaf(0.9)}},
		{"probability above one", []Node{split(0, 1, 2), leaf(0.1), leaf(1.5)}},
		{"nan probability", []Node{leaf(math.NaN())}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			a := testArtifact(t, "01HTAMPERED000000000000000")
			a.Classifier.Trees[len(a.Classifier.Trees)-1] = Tree{Nodes: tt.nodes}
			require.NoError(t, a.Save(dir))

			_, err := Load(dir)
			require.ErrorIs(t, err, ErrArtifactCorrupt)
			assert.Contains(t, err.Error(), "tree 4")
		})
	}
}

func TestSave_Incomplete(t *testing.T) {
	t.Parallel()

	a := &Artifact{Version: "x"}
	assert.Error(t, a.Save(t.TempDir()))
}
