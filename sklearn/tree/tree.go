// Package tree implements CART decision trees compatible with
// scikit-learn's DecisionTreeClassifier.
package tree

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/bodyperf/core/model"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// leafFeature marks a node without a split.
const leafFeature = -1

// Node is one node of a fitted tree. Nodes are stored in a flat slice with
// the root at index 0 so that a fitted tree can be gob encoded.
type Node struct {
	Feature   int     // split feature, leafFeature for leaves
	Threshold float64 // x[Feature] <= Threshold goes left
	Left      int
	Right     int
	NSamples  int
	Impurity  float64
	Value     []float64 // class distribution at the node, aligned with ClassLabels
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Feature == leafFeature
}

// DecisionTreeClassifier is a CART classifier using the best-split strategy.
type DecisionTreeClassifier struct {
	// Hyperparameters
	criterion           string  // "gini" or "entropy"
	maxDepth            int     // 0 means unlimited
	minSamplesSplit     int     // minimum samples required to split an internal node
	minSamplesLeaf      int     // minimum samples required in each leaf
	maxFeatures         int     // features examined per split, 0 means all
	minImpurityDecrease float64 // a split must decrease impurity by more than this
	randomState         int64   // seed for feature subsampling

	// Fitted structure - Public for gob encoding
	State       *model.StateManager
	Nodes       []Node
	ClassLabels []int
	Importances []float64
	Depth       int
}

// Option is a functional option for DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity criterion ("gini" or "entropy").
func WithCriterion(c string) Option {
	return func(t *DecisionTreeClassifier) { t.criterion = c }
}

// WithMaxDepth sets the maximum depth. 0 grows the tree until leaves are pure.
func WithMaxDepth(d int) Option {
	return func(t *DecisionTreeClassifier) { t.maxDepth = d }
}

// WithMinSamplesSplit sets the minimum number of samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are examined per split.
func WithMaxFeatures(k int) Option {
	return func(t *DecisionTreeClassifier) { t.maxFeatures = k }
}

// WithMinImpurityDecrease sets the minimum impurity decrease of a split.
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.minImpurityDecrease = v }
}

// WithRandomState sets the seed used for feature subsampling.
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.randomState = seed }
}

// NewDecisionTreeClassifier creates a classifier with scikit-learn defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	t := &DecisionTreeClassifier{
		State:           model.NewStateManager(),
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Dataset is a column-major copy of a feature matrix. An ensemble builds it
// once and shares it between all of its trees.
type Dataset struct {
	cols [][]float64
	rows int
}

// NewDataset copies X into column-major storage.
func NewDataset(X mat.Matrix) *Dataset {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := 0; j < c; j++ {
		cols[j] = mat.Col(nil, j, X)
	}
	return &Dataset{cols: cols, rows: r}
}

// Dims returns the number of rows and features.
func (d *Dataset) Dims() (int, int) {
	return d.rows, len(d.cols)
}

// Fit builds the tree from X (n×p) and y (n×1 integer class labels).
func (t *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return errors.NewModelError("DecisionTreeClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("DecisionTreeClassifier.Fit",
			fmt.Sprintf("y must be a column vector, got shape (%d, %d)", yRows, yCols))
	}

	classes, codes, err := EncodeTargets(y)
	if err != nil {
		return err
	}

	samples := make([]int, nSamples)
	for i := range samples {
		samples[i] = i
	}
	return t.FitDataset(NewDataset(X), codes, classes, samples)
}

// EncodeTargets extracts the sorted unique integer classes of y and maps
// every row to its class index.
func EncodeTargets(y mat.Matrix) (classes []int, codes []int, err error) {
	rows, _ := y.Dims()
	seen := make(map[int]struct{})
	raw := make([]int, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, nil, errors.NewValueError("EncodeTargets",
				fmt.Sprintf("class labels must be integers, got %v at row %d", v, i))
		}
		raw[i] = int(v)
		seen[raw[i]] = struct{}{}
	}

	classes = make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	codes = make([]int, rows)
	for i, v := range raw {
		codes[i] = index[v]
	}
	return classes, codes, nil
}

// FitDataset builds the tree from the rows of ds listed in samples.
// y holds class indices into classes for every row of ds. Rows may repeat in
// samples, which is how bootstrap replicas are expressed.
func (t *DecisionTreeClassifier) FitDataset(ds *Dataset, y []int, classes []int, samples []int) error {
	if err := t.validateParams(); err != nil {
		return err
	}
	rows, nFeatures := ds.Dims()
	if len(y) != rows {
		return errors.NewDimensionError("DecisionTreeClassifier.FitDataset", rows, len(y), 0)
	}
	if len(samples) == 0 || len(classes) == 0 {
		return errors.NewModelError("DecisionTreeClassifier.FitDataset", "empty data", errors.ErrEmptyData)
	}

	t.State.Reset()
	t.Nodes = t.Nodes[:0]
	t.ClassLabels = append([]int(nil), classes...)
	t.Depth = 0

	features := make([]int, nFeatures)
	for j := range features {
		features[j] = j
	}

	b := &builder{
		t:           t,
		ds:          ds,
		y:           y,
		nClasses:    len(classes),
		rnd:         rand.New(rand.NewSource(t.randomState)),
		impurity:    impurityFunc(t.criterion),
		features:    features,
		importances: make([]float64, nFeatures),
		scratch:     make([]int, len(samples)),
	}
	b.build(append([]int(nil), samples...), 0)

	total := 0.0
	for _, v := range b.importances {
		total += v
	}
	if total > 0 {
		for j := range b.importances {
			b.importances[j] /= total
		}
	}
	t.Importances = b.importances

	t.State.MarkFitted(nFeatures, len(samples), len(classes))
	return nil
}

func (t *DecisionTreeClassifier) validateParams() error {
	switch {
	case t.criterion != "gini" && t.criterion != "entropy":
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", t.criterion)
	case t.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be >= 0", t.maxDepth)
	case t.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.minSamplesSplit)
	case t.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.minSamplesLeaf)
	case t.maxFeatures < 0:
		return errors.NewValidationError("max_features", "must be >= 0", t.maxFeatures)
	}
	return nil
}

// builder holds the working state of one Fit call.
type builder struct {
	t           *DecisionTreeClassifier
	ds          *Dataset
	y           []int
	nClasses    int
	rnd         *rand.Rand
	impurity    func(counts []float64, n float64) float64
	features    []int
	importances []float64
	scratch     []int
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	impLeft   float64
	impRight  float64
}

func (b *builder) build(samples []int, depth int) int {
	t := b.t
	counts := make([]float64, b.nClasses)
	for _, s := range samples {
		counts[b.y[s]]++
	}
	n := float64(len(samples))
	imp := b.impurity(counts, n)

	value := make([]float64, b.nClasses)
	for k, c := range counts {
		value[k] = c / n
	}

	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Feature:  leafFeature,
		Left:     -1,
		Right:    -1,
		NSamples: len(samples),
		Impurity: imp,
		Value:    value,
	})
	if depth > t.Depth {
		t.Depth = depth
	}

	if imp <= 1e-12 ||
		len(samples) < t.minSamplesSplit ||
		len(samples) < 2*t.minSamplesLeaf ||
		(t.maxDepth > 0 && depth >= t.maxDepth) {
		return idx
	}

	best, ok := b.bestSplit(samples, counts, imp)
	if !ok || best.gain+1e-12 < t.minImpurityDecrease {
		return idx
	}

	col := b.ds.cols[best.feature]
	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, s := range samples {
		if col[s] <= best.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	nl, nr := float64(len(left)), float64(len(right))
	b.importances[best.feature] += n*imp - nl*best.impLeft - nr*best.impRight

	leftIdx := b.build(left, depth+1)
	rightIdx := b.build(right, depth+1)

	node := &t.Nodes[idx]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = leftIdx
	node.Right = rightIdx
	return idx
}

// bestSplit examines up to maxFeatures non-constant features in random
// order and returns the split with the largest impurity decrease.
func (b *builder) bestSplit(samples []int, parent []float64, parentImp float64) (split, bool) {
	t := b.t
	nFeatures := len(b.features)
	mtry := t.maxFeatures
	if mtry <= 0 || mtry > nFeatures {
		mtry = nFeatures
	}

	// Fisher-Yates
	for i := nFeatures - 1; i > 0; i-- {
		j := b.rnd.Intn(i + 1)
		b.features[i], b.features[j] = b.features[j], b.features[i]
	}

	n := len(samples)
	nf := float64(n)
	sorted := b.scratch[:n]
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)

	best := split{gain: math.Inf(-1)}
	found := false
	visited := 0

	for _, f := range b.features {
		if visited >= mtry && found {
			break
		}
		col := b.ds.cols[f]
		copy(sorted, samples)
		sort.Slice(sorted, func(i, j int) bool { return col[sorted[i]] < col[sorted[j]] })
		if col[sorted[0]] == col[sorted[n-1]] {
			continue
		}
		visited++

		for k := range leftCounts {
			leftCounts[k] = 0
		}
		for i := 0; i < n-1; i++ {
			leftCounts[b.y[sorted[i]]]++
			v, next := col[sorted[i]], col[sorted[i+1]]
			if v == next {
				continue
			}
			nl := i + 1
			if nl < t.minSamplesLeaf || n-nl < t.minSamplesLeaf {
				continue
			}
			for k := range rightCounts {
				rightCounts[k] = parent[k] - leftCounts[k]
			}
			fl, fr := float64(nl), float64(n-nl)
			impL := b.impurity(leftCounts, fl)
			impR := b.impurity(rightCounts, fr)
			gain := parentImp - (fl/nf)*impL - (fr/nf)*impR
			if gain > best.gain {
				thr := v + (next-v)/2
				if thr == next {
					thr = v
				}
				best = split{feature: f, threshold: thr, gain: gain, impLeft: impL, impRight: impR}
				found = true
			}
		}
	}
	return best, found
}

func impurityFunc(criterion string) func([]float64, float64) float64 {
	if criterion == "entropy" {
		return entropy
	}
	return gini
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func entropy(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := c / n
		res -= p * math.Log2(p)
	}
	return res
}

// PredictProbaRow returns the class distribution of the leaf reached by x.
// The returned slice belongs to the tree and must not be modified.
func (t *DecisionTreeClassifier) PredictProbaRow(x []float64) []float64 {
	node := &t.Nodes[0]
	for !node.IsLeaf() {
		if x[node.Feature] <= node.Threshold {
			node = &t.Nodes[node.Left]
		} else {
			node = &t.Nodes[node.Right]
		}
	}
	return node.Value
}

// PredictProba returns class probabilities (n × n_classes) in Classes() order.
func (t *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := t.State.CheckInput("DecisionTreeClassifier", "PredictProba", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, len(t.ClassLabels), nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.SetRow(i, t.PredictProbaRow(row))
	}
	return out, nil
}

// Predict returns the predicted class label of each row as an n×1 matrix.
func (t *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.State.CheckInput("DecisionTreeClassifier", "Predict", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, float64(t.ClassLabels[argmax(t.PredictProbaRow(row))]))
	}
	return out, nil
}

// Score returns the mean accuracy on the given data. It returns 0 if
// prediction fails.
func (t *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := t.Predict(X)
	if err != nil {
		return 0
	}
	r, _ := y.Dims()
	if r == 0 {
		return 0
	}
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r)
}

// IsFitted reports whether the tree has been fitted.
func (t *DecisionTreeClassifier) IsFitted() bool {
	return t.State.IsFitted()
}

// Classes returns the class labels seen during fitting.
func (t *DecisionTreeClassifier) Classes() []int {
	return append([]int(nil), t.ClassLabels...)
}

// GetFeatureImportances returns the normalized total impurity decrease per feature.
func (t *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return append([]float64(nil), t.Importances...)
}

// GetDepth returns the depth of the fitted tree (a single leaf has depth 0).
func (t *DecisionTreeClassifier) GetDepth() int {
	return t.Depth
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (t *DecisionTreeClassifier) GetNLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// GetParams returns the hyperparameters.
func (t *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             t.criterion,
		"max_depth":             t.maxDepth,
		"min_samples_split":     t.minSamplesSplit,
		"min_samples_leaf":      t.minSamplesLeaf,
		"max_features":          t.maxFeatures,
		"min_impurity_decrease": t.minImpurityDecrease,
		"random_state":          t.randomState,
	}
}

// SetParams updates hyperparameters. Unknown keys and wrong types are errors.
func (t *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			t.criterion, ok = value.(string)
		case "max_depth":
			t.maxDepth, ok = value.(int)
		case "min_samples_split":
			t.minSamplesSplit, ok = value.(int)
		case "min_samples_leaf":
			t.minSamplesLeaf, ok = value.(int)
		case "max_features":
			t.maxFeatures, ok = value.(int)
		case "min_impurity_decrease":
			t.minImpurityDecrease, ok = value.(float64)
		case "random_state":
			t.randomState, ok = value.(int64)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return t.validateParams()
}

// String returns a short description of the tree.
func (t *DecisionTreeClassifier) String() string {
	if !t.IsFitted() {
		return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d)", t.criterion, t.maxDepth)
	}
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d, depth=%d, n_leaves=%d)",
		t.criterion, t.maxDepth, t.Depth, t.GetNLeaves())
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
