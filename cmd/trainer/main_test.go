package main

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDataset(t *testing.T, dir string, n int) string {
	t.Helper()

	rng := rand.New(rand.NewSource(11))
	var b strings.Builder
	b.WriteString("loan_amnt,annual_inc,fico_range_high,emp_length,loan_status\n")
	for i := 0; i < n; i++ {
		loan := 1000 + rng.Intn(30000)
		income := 10000 + rng.Intn(120000)
		status := "Fully Paid"
		if float64(income)/float64(loan) < 3 {
			status = "Charged Off"
		}
		fmt.Fprintf(&b, "%d,%d,%d,%d years,%s\n", loan, income, 600+rng.Intn(250), rng.Intn(10), status)
	}

	path := filepath.Join(dir, "loans.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTrainThenInspect(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir, 150)
	out := filepath.Join(dir, "models")

	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs([]string{"train", "--data", data, "--out", out, "--trees", "5"})
	if err := root.Execute(); err != nil {
		t.Fatalf("train: %v (stderr: %s)", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ROC AUC Score") {
		t.Errorf("train output missing AUC: %s", stdout.String())
	}

	stdout.Reset()
	root = newRootCmd(&stdout, &stderr)
	root.SetArgs([]string{"inspect", "--artifacts", out})
	if err := root.Execute(); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(stdout.String(), "Trees:         5") {
		t.Errorf("inspect output missing tree count: %s", stdout.String())
	}
}

func TestTrain_MissingDataFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs([]string{"train"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing --data")
	}
}

func TestTrain_BadDatasetExitCode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(path, []byte("loan_amnt,loan_status\n1,Fully Paid\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs([]string{"train", "--data", path, "--out", filepath.Join(dir, "models")})

	err := root.Execute()
	var ee *exitErr
	if !errors.As(err, &ee) {
		t.Fatalf("expected exitErr, got %T: %v", err, err)
	}
	if ee.code != 2 {
		t.Errorf("expected exit code 2, got %d", ee.code)
	}
}

func TestInspect_MissingArtifact(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs([]string{"inspect", "--artifacts", t.TempDir()})

	err := root.Execute()
	var ee *exitErr
	if !errors.As(err, &ee) {
		t.Fatalf("expected exitErr, got %T: %v", err, err)
	}
	if !strings.Contains(ee.msg, "missing") {
		t.Errorf("expected missing artifact message, got %q", ee.msg)
	}
}
