package ml

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ErrSingleClass is returned when ROC AUC is requested for labels that
// contain only one class.
var ErrSingleClass = errors.New("roc auc needs both classes present")

// ClassMetrics holds per-class precision, recall and F1.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// ClassificationReport summarizes binary predictions on a held-out split.
type ClassificationReport struct {
	Classes     [2]ClassMetrics `json:"classes"`
	Accuracy    float64         `json:"accuracy"`
	MacroAvg    ClassMetrics    `json:"macro_avg"`
	WeightedAvg ClassMetrics    `json:"weighted_avg"`
}

// Classify builds a report from true and predicted labels.
func Classify(yTrue, yPred []int) (ClassificationReport, error) {
	if len(yTrue) != len(yPred) {
		return ClassificationReport{}, fmt.Errorf("label count %d does not match prediction count %d", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return ClassificationReport{}, ErrNoSamples
	}

	var confusion [2][2]int
	for i := range yTrue {
		confusion[yTrue[i]][yPred[i]]++
	}

	var r ClassificationReport
	correct := 0
	for c := 0; c < 2; c++ {
		tp := confusion[c][c]
		fp := confusion[1-c][c]
		fn := confusion[c][1-c]
		correct += tp

		m := ClassMetrics{Support: tp + fn}
		m.Precision = ratio(tp, tp+fp)
		m.Recall = ratio(tp, tp+fn)
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes[c] = m
	}

	total := len(yTrue)
	r.Accuracy = float64(correct) / float64(total)
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	for _, m := range r.Classes {
		r.MacroAvg.Precision += m.Precision / 2
		r.MacroAvg.Recall += m.Recall / 2
		r.MacroAvg.F1 += m.F1 / 2

		w := float64(m.Support) / float64(total)
		r.WeightedAvg.Precision += m.Precision * w
		r.WeightedAvg.Recall += m.Recall * w
		r.WeightedAvg.F1 += m.F1 * w
	}
	return r, nil
}

// String renders the report as a fixed-width table.
func (r ClassificationReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for c, m := range r.Classes {
		fmt.Fprintf(&b, "%14d %10.2f %10.2f %10.2f %10d\n", c, m.Precision, m.Recall, m.F1, m.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%14s %10.2f %10.2f %10.2f %10d\n", "macro avg", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%14s %10.2f %10.2f %10.2f %10d\n", "weighted avg", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)
	return b.String()
}

// ROCAUC returns the area under the ROC curve for positive-class scores.
func ROCAUC(yTrue []int, scores []float64) (float64, error) {
	if len(yTrue) != len(scores) {
		return 0, fmt.Errorf("label count %d does not match score count %d", len(yTrue), len(scores))
	}
	pos := 0
	for _, y := range yTrue {
		pos += y
	}
	if pos == 0 || pos == len(yTrue) {
		return 0, ErrSingleClass
	}

	y := make([]float64, len(scores))
	copy(y, scores)
	classes := make([]bool, len(yTrue))
	for i, l := range yTrue {
		classes[i] = l == 1
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
