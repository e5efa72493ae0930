// Package dataset turns a class-partitioned directory of certificate images
// into aligned, normalized tensors and a stratified train/validation/test
// split.
//
// # Directory Layout
//
// The loader reads the same layout the generator writes:
//
//	<root>/<class>/*.{jpg,jpeg,png}
//
// where <class> is one of authentic, forged, tampered or screenshot. Real
// images placed in those directories are loaded exactly like synthetic ones.
//
// # Tensors
//
// Every decoded image is converted to 3-channel color, resized to the
// configured target size and normalized to [0, 1]. Values are stored as
// float32 in row-major HWC order (height, width, channel).
//
// # Error Handling
//
// Errors fall into three groups:
//   - Per-file decode failures are logged and recorded in Dataset.Skipped;
//     they never abort a scan.
//   - An empty corpus is reported as *EmptyDatasetError, which matches
//     ErrEmptyDataset with errors.Is and carries remediation text.
//   - Classes too small to appear in every split subset are reported as
//     *StratificationError rather than silently dropped.
//
// # Determinism
//
// Scanning returns paths in lexical order and StratifiedSplit is a pure
// function of its labels, fractions and seed, so a fixed seed reproduces
// the same partition.
package dataset
