// Package pipeline runs the load, split, augment, fit, evaluate and export
// sequence for one certificate classifier.
//
// # Strategies
//
// The model-building step is pluggable. A Builder turns a ModelSpec into a
// Classifier and is registered by architecture name in a Registry. The
// default registry ships the "centroid" nearest-class-mean baseline; the
// "custom-cnn" and "transfer" names are reserved for builders supplied by an
// external deep-learning framework.
//
// # Failure behavior
//
// Corpus-level problems halt the run before any builder is called. An empty
// corpus surfaces as *dataset.EmptyDatasetError, and a class too small to
// populate every subset surfaces as *dataset.StratificationError. Callers
// print the remediation text and exit.
//
// # Usage
//
//	p, err := pipeline.New(opts, pipeline.DefaultRegistry(), export.SidecarExporter{})
//	if err != nil {
//	    return err
//	}
//	result, err := p.Run(ctx)
package pipeline
