// Package ocr reads text back from certificate images with Tesseract (via
// gosseract/v2).
//
// It serves one purpose in this repository: auditing a generated corpus.
// AuditSample checks that the certificate ID and title drawn by the
// generator survive the class degradations well enough to be recognized,
// which catches font fallbacks and over-aggressive profiles early.
//
// # Prerequisites
//
// The Tesseract library and language data must be installed:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Available checks the installation once per language and reports the
// reason when OCR cannot run, so callers can skip audits instead of failing.
//
// # Temporary Files
//
// ExtractTextFromImage writes the image (or region) to a temporary PNG for
// Tesseract and removes it before returning, on success and on error.
package ocr
