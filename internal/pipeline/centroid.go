package pipeline

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
)

// CentroidClassifier assigns each tensor to the class whose mean training
// tensor is nearest in Euclidean distance.
//
// Fit is closed-form, so LearningRate, Epochs and BatchSize are recorded but
// not used. Class probabilities are inverse-square distance weights.
type CentroidClassifier struct {
	spec      ModelSpec
	dim       int
	centroids *mat.Dense
	present   []bool
}

// NewCentroidClassifier is the Builder for the "centroid" architecture.
func NewCentroidClassifier(spec ModelSpec) (Classifier, error) {
	if spec.NumClasses <= 0 {
		return nil, fmt.Errorf("centroid classifier needs at least one class, got %d", spec.NumClasses)
	}
	dim := spec.InputShape[0] * spec.InputShape[1] * spec.InputShape[2]
	if spec.InputShape[0] <= 0 || spec.InputShape[1] <= 0 || spec.InputShape[2] != dataset.Channels {
		return nil, fmt.Errorf("invalid input shape %v", spec.InputShape)
	}
	return &CentroidClassifier{spec: spec, dim: dim}, nil
}

// Centroids returns the fitted class means, one row per class, or nil
// before Fit.
func (c *CentroidClassifier) Centroids() *mat.Dense { return c.centroids }

// Fit computes one mean tensor per class. A class with no training samples
// is never predicted.
func (c *CentroidClassifier) Fit(ctx context.Context, train, validation *dataset.Dataset) (History, error) {
	if train == nil || train.Len() == 0 {
		return History{}, fmt.Errorf("centroid fit: %w", dataset.ErrEmptyDataset)
	}

	sums := mat.NewDense(c.spec.NumClasses, c.dim, nil)
	counts := make([]int, c.spec.NumClasses)
	for i, t := range train.Images {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return History{}, err
			}
		}
		x, err := c.features(t)
		if err != nil {
			return History{}, err
		}
		label := train.Labels[i]
		if label < 0 || label >= c.spec.NumClasses {
			return History{}, fmt.Errorf("label %d outside [0,%d)", label, c.spec.NumClasses)
		}
		floats.Add(sums.RawRowView(label), x)
		counts[label]++
	}

	c.present = make([]bool, c.spec.NumClasses)
	for k, n := range counts {
		if n > 0 {
			floats.Scale(1/float64(n), sums.RawRowView(k))
			c.present[k] = true
		}
	}
	c.centroids = sums

	var h History
	trainMetrics, err := c.Evaluate(ctx, train)
	if err != nil {
		return History{}, err
	}
	h.TrainAccuracy = append(h.TrainAccuracy, trainMetrics.Accuracy)
	if validation != nil && validation.Len() > 0 {
		valMetrics, err := c.Evaluate(ctx, validation)
		if err != nil {
			return History{}, err
		}
		h.ValidationAccuracy = append(h.ValidationAccuracy, valMetrics.Accuracy)
	}
	return h, nil
}

// Evaluate returns accuracy, mean cross-entropy and the confusion matrix
// (rows are true labels). An empty dataset yields zero metrics.
func (c *CentroidClassifier) Evaluate(ctx context.Context, ds *dataset.Dataset) (Metrics, error) {
	if c.centroids == nil {
		return Metrics{}, fmt.Errorf("centroid classifier is not fitted")
	}
	m := Metrics{Confusion: make([][]int, c.spec.NumClasses)}
	for k := range m.Confusion {
		m.Confusion[k] = make([]int, c.spec.NumClasses)
	}
	if ds == nil || ds.Len() == 0 {
		return m, nil
	}

	correct := 0
	for i, t := range ds.Images {
		if err := ctx.Err(); err != nil {
			return Metrics{}, err
		}
		probs, err := c.Predict(t)
		if err != nil {
			return Metrics{}, err
		}
		label := ds.Labels[i]
		pred := floats.MaxIdx(probs)
		if pred == label {
			correct++
		}
		m.Confusion[label][pred]++
		m.Loss -= math.Log(math.Max(probs[label], 1e-12))
	}
	m.Loss /= float64(ds.Len())
	m.Accuracy = float64(correct) / float64(ds.Len())
	return m, nil
}

// Predict returns the class probabilities for t.
func (c *CentroidClassifier) Predict(t *dataset.Tensor) ([]float64, error) {
	if c.centroids == nil {
		return nil, fmt.Errorf("centroid classifier is not fitted")
	}
	x, err := c.features(t)
	if err != nil {
		return nil, err
	}

	probs := make([]float64, c.spec.NumClasses)
	for k := range probs {
		if !c.present[k] {
			continue
		}
		d := floats.Distance(x, c.centroids.RawRowView(k), 2)
		probs[k] = 1 / (d*d + 1e-9)
	}
	total := floats.Sum(probs)
	if total == 0 {
		return nil, fmt.Errorf("no fitted classes")
	}
	floats.Scale(1/total, probs)
	return probs, nil
}

func (c *CentroidClassifier) features(t *dataset.Tensor) ([]float64, error) {
	if t == nil || len(t.Data) != c.dim {
		return nil, fmt.Errorf("tensor does not match input shape %v", c.spec.InputShape)
	}
	x := make([]float64, c.dim)
	for i, v := range t.Data {
		x[i] = float64(v)
	}
	return x, nil
}
