package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
)

// Architecture names known to the pipeline.
const (
	ArchitectureCustomCNN = "custom-cnn"
	ArchitectureTransfer  = "transfer"
	ArchitectureCentroid  = "centroid"
)

var (
	// ErrUnknownArchitecture is returned for a name no builder is registered
	// under and that is not reserved.
	ErrUnknownArchitecture = errors.New("unknown architecture")

	// ErrArchitectureUnavailable is returned for a reserved name whose
	// builder has not been registered.
	ErrArchitectureUnavailable = errors.New("architecture not available")
)

var reservedArchitectures = map[string]bool{
	ArchitectureCustomCNN: true,
	ArchitectureTransfer:  true,
}

// ModelSpec is everything a Builder needs to construct a classifier.
type ModelSpec struct {
	Architecture string
	InputShape   [3]int
	NumClasses   int
	LearningRate float64
	Epochs       int
	BatchSize    int
}

// History records per-epoch accuracy reported by Fit.
type History struct {
	TrainAccuracy      []float64
	ValidationAccuracy []float64
}

// Epochs returns the number of epochs actually run.
func (h History) Epochs() int { return len(h.TrainAccuracy) }

// Final returns the last train and validation accuracy, or zeros when no
// epoch ran.
func (h History) Final() (train, validation float64) {
	if n := len(h.TrainAccuracy); n > 0 {
		train = h.TrainAccuracy[n-1]
	}
	if n := len(h.ValidationAccuracy); n > 0 {
		validation = h.ValidationAccuracy[n-1]
	}
	return train, validation
}

// Metrics is the result of evaluating a classifier on a labeled subset.
type Metrics struct {
	Loss      float64 `json:"loss"`
	Accuracy  float64 `json:"accuracy"`
	Confusion [][]int `json:"confusion"`
}

// Classifier is the fit/predict contract every architecture satisfies.
type Classifier interface {
	// Fit trains on train, reporting progress against validation, which
	// may be empty.
	Fit(ctx context.Context, train, validation *dataset.Dataset) (History, error)

	// Evaluate scores the classifier on a labeled dataset.
	Evaluate(ctx context.Context, ds *dataset.Dataset) (Metrics, error)

	// Predict returns one probability per class for a single tensor.
	Predict(t *dataset.Tensor) ([]float64, error)
}

// Builder constructs a classifier for spec.
type Builder func(spec ModelSpec) (Classifier, error)

// Registry maps architecture names to builders. It is safe for concurrent
// use.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// DefaultRegistry returns a registry with the centroid baseline registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.builders[ArchitectureCentroid] = NewCentroidClassifier
	return r
}

// Register adds b under name. Registering a name twice is an error.
func (r *Registry) Register(name string, b Builder) error {
	if name == "" || b == nil {
		return fmt.Errorf("register architecture: name and builder are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[name]; ok {
		return fmt.Errorf("architecture %q already registered", name)
	}
	r.builders[name] = b
	return nil
}

// Lookup returns the builder registered under name.
func (r *Registry) Lookup(name string) (Builder, error) {
	r.mu.RLock()
	b, ok := r.builders[name]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}
	if reservedArchitectures[name] {
		return nil, fmt.Errorf("%w: %q needs an external builder; registered: %v",
			ErrArchitectureUnavailable, name, r.Names())
	}
	return nil, fmt.Errorf("%w: %q; registered: %v", ErrUnknownArchitecture, name, r.Names())
}

// Names returns the registered architecture names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
