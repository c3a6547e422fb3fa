package trainer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/loanwise/loanwise/internal/features"
)

// Source column names in the historical loan export.
const (
	ColLoanAmount  = "loan_amnt"
	ColAnnualInc   = "annual_inc"
	ColCreditScore = "fico_range_high"
	ColEmpLength   = "emp_length"
	ColLoanStatus  = "loan_status"
)

// Outcome labels.
const (
	StatusFullyPaid  = "Fully Paid"
	StatusChargedOff = "Charged Off"
)

var (
	ErrMissingColumn = errors.New("required column missing")
	ErrUnknownLabel  = errors.New("unknown loan status")
	ErrEmptyDataset  = errors.New("dataset has no rows")
)

var requiredColumns = []string{ColLoanAmount, ColAnnualInc, ColCreditScore, ColEmpLength, ColLoanStatus}

// Dataset is the labelled feature matrix before imputation.
type Dataset struct {
	Rows   []features.Vector
	Labels []int
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.Rows) }

// Subset returns the samples at idx.
func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{
		Rows:   make([]features.Vector, len(idx)),
		Labels: make([]int, len(idx)),
	}
	for i, j := range idx {
		out.Rows[i] = d.Rows[j]
		out.Labels[i] = d.Labels[j]
	}
	return out
}

// ReadCSV parses a loan export. Extra columns are ignored. Empty numeric
// cells become missing values; any other parse failure is an error.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	pos := make(map[string]int, len(head))
	for i, name := range head {
		pos[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	ds := &Dataset{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(col string) string {
			i := pos[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		label, err := parseLabel(cell(ColLoanStatus))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		loan, err := parseNumber(cell(ColLoanAmount))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColLoanAmount, err)
		}
		income, err := parseNumber(cell(ColAnnualInc))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColAnnualInc, err)
		}
		score, err := parseNumber(cell(ColCreditScore))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColCreditScore, err)
		}
		tenure, _ := features.ParseEmploymentLength(cell(ColEmpLength))

		ds.Rows = append(ds.Rows, features.Derive(loan, income, score, tenure))
		ds.Labels = append(ds.Labels, label)
	}

	if ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return ds, nil
}

func parseLabel(s string) (int, error) {
	switch s {
	case StatusFullyPaid:
		return 0, nil
	case StatusChargedOff:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) {
		return math.NaN(), nil
	}
	return v, nil
}
