// Package metrics は分類モデルの評価指標を提供します。
// ラベルは文字列のまま扱い、出力は scikit-learn の classification_report と同じ形式です。
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred []string) (float64, error) {
	if err := checkLabels("Accuracy", yTrue, yPred); err != nil {
		return 0, err
	}

	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// ClassMetrics は1クラス分の評価値
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report は classification_report の結果
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Total       int            `json:"support"`
}

// ClassificationReport はクラスごとの precision / recall / f1-score / support と、
// accuracy、macro 平均、support 加重平均を計算する。
// ラベルは yTrue と yPred の和集合を昇順に並べたもの。
// 分母が0になる指標は0とし、UndefinedMetricWarning を発行する。
func ClassificationReport(yTrue, yPred []string) (*Report, error) {
	cm, labels, err := ConfusionMatrix(yTrue, yPred, nil)
	if err != nil {
		return nil, err
	}

	k := len(labels)
	report := &Report{Classes: make([]ClassMetrics, k), Total: len(yTrue)}

	trace := 0.0
	for i := 0; i < k; i++ {
		tp := cm.At(i, i)
		trace += tp
		predicted := mat.Sum(cm.ColView(i))
		actual := mat.Sum(cm.RowView(i))

		c := ClassMetrics{Label: labels[i], Support: int(actual)}
		if predicted == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("precision",
				fmt.Sprintf("no predicted samples for label %q", labels[i]), 0))
		} else {
			c.Precision = tp / predicted
		}
		if actual == 0 {
			errors.Warn(errors.NewUndefinedMetricWarning("recall",
				fmt.Sprintf("no true samples for label %q", labels[i]), 0))
		} else {
			c.Recall = tp / actual
		}
		c.F1 = errors.SafeDivide(2*c.Precision*c.Recall, c.Precision+c.Recall)
		report.Classes[i] = c
	}
	report.Accuracy = trace / float64(len(yTrue))

	report.MacroAvg = ClassMetrics{Label: "macro avg", Support: report.Total}
	report.WeightedAvg = ClassMetrics{Label: "weighted avg", Support: report.Total}
	for _, c := range report.Classes {
		report.MacroAvg.Precision += c.Precision / float64(k)
		report.MacroAvg.Recall += c.Recall / float64(k)
		report.MacroAvg.F1 += c.F1 / float64(k)

		w := float64(c.Support) / float64(report.Total)
		report.WeightedAvg.Precision += c.Precision * w
		report.WeightedAvg.Recall += c.Recall * w
		report.WeightedAvg.F1 += c.F1 * w
	}
	return report, nil
}

// String は scikit-learn と同じレイアウト（小数2桁）で出力する
func (r *Report) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}

	var b strings.Builder
	row := func(c ClassMetrics) {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}

	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		row(c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

// ConfusionMatrix は混同行列を返す。行が正解ラベル、列が予測ラベル。
// labels が nil の場合は yTrue と yPred の和集合を昇順で使う。
func ConfusionMatrix(yTrue, yPred []string, labels []string) (*mat.Dense, []string, error) {
	if err := checkLabels("ConfusionMatrix", yTrue, yPred); err != nil {
		return nil, nil, err
	}
	if labels == nil {
		labels = UniqueLabels(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, nil, errors.NewValueError("ConfusionMatrix", "labels must not be empty")
	}

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := range yTrue {
		t, okT := index[yTrue[i]]
		p, okP := index[yPred[i]]
		if !okT || !okP {
			continue
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, labels, nil
}

// UniqueLabels は複数のラベル列の和集合を昇順で返す
func UniqueLabels(ys ...[]string) []string {
	seen := make(map[string]struct{})
	for _, y := range ys {
		for _, l := range y {
			seen[l] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func checkLabels(op string, yTrue, yPred []string) error {
	if len(yTrue) == 0 {
		return errors.NewValueError(op, "empty label vector")
	}
	if len(yTrue) != len(yPred) {
		return errors.NewDimensionError(op, len(yTrue), len(yPred), 0)
	}
	return nil
}
