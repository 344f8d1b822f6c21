package preprocessing

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/bodyperf/core/model"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
)

// LabelEncoder はscikit-learn互換のラベルエンコーダ
// 文字列ラベルを辞書順に並べ、0..n_classes-1 の整数に対応付ける。
// 例えば {"Male", "Female"} は Female=0, Male=1 になる。
type LabelEncoder struct {
	model.BaseEstimator

	// ClassLabels は学習したラベル（昇順）
	ClassLabels []string
}

// NewLabelEncoder は新しいLabelEncoderを作成する
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit はラベルの一覧を学習する
func (e *LabelEncoder) Fit(labels []string) error {
	if len(labels) == 0 {
		return errors.NewModelError("LabelEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	seen := make(map[string]struct{}, 8)
	classes := make([]string, 0, 8)
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		classes = append(classes, l)
	}
	sort.Strings(classes)

	e.ClassLabels = classes
	e.SetFitted()
	return nil
}

// Transform はラベルを整数に変換する。学習時に見ていないラベルはエラー。
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	out := make([]int, len(labels))
	for i, l := range labels {
		code := sort.SearchStrings(e.ClassLabels, l)
		if code >= len(e.ClassLabels) || e.ClassLabels[code] != l {
			return nil, errors.Wrapf(errors.ErrUnknownLabel, "LabelEncoder.Transform: %q (known: %v)", l, e.ClassLabels)
		}
		out[i] = code
	}
	return out, nil
}

// FitTransform は学習と変換を同時に行う
func (e *LabelEncoder) FitTransform(labels []string) ([]int, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform は整数をラベルに戻す
func (e *LabelEncoder) InverseTransform(codes []int) ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}

	out := make([]string, len(codes))
	for i, c := range codes {
		if c < 0 || c >= len(e.ClassLabels) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform",
				fmt.Sprintf("code %d out of range [0, %d)", c, len(e.ClassLabels)))
		}
		out[i] = e.ClassLabels[c]
	}
	return out, nil
}

// Classes は学習したラベルを昇順で返す
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.ClassLabels...)
}

// String はエンコーダの文字列表現を返す
func (e *LabelEncoder) String() string {
	if !e.IsFitted() {
		return "LabelEncoder()"
	}
	return fmt.Sprintf("LabelEncoder(classes=%v)", e.ClassLabels)
}

var _ model.LabelTransformer = (*LabelEncoder)(nil)
