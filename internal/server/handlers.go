package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
	"github.com/ironsheep/cert-dataset-tools/internal/imaging"
	"github.com/ironsheep/cert-dataset-tools/internal/ocr"
	"github.com/ironsheep/cert-dataset-tools/internal/synth"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dataset_scan", "sample_audit").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Corpus Operations
	case "dataset_generate":
		return s.handleDatasetGenerate(ctx, args)
	case "dataset_scan":
		return s.handleDatasetScan(args)
	case "dataset_split":
		return s.handleDatasetSplit(args)

	// Sample Inspection
	case "image_info":
		return s.handleImageInfo(args)
	case "image_features":
		return s.handleImageFeatures(args)
	case "sample_audit":
		return s.handleSampleAudit(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// corpusArgs are shared by the dataset tools.
type corpusArgs struct {
	Root    string   `json:"root"`
	Classes []string `json:"classes"`
}

// resolve fills unset fields from the server configuration.
func (s *Server) resolve(a corpusArgs) (string, []dataset.Class, error) {
	root := a.Root
	if root == "" {
		root = s.cfg.Root
	}
	if len(a.Classes) == 0 {
		return root, s.cfg.ClassList(), nil
	}
	classes, err := dataset.ParseClasses(a.Classes)
	if err != nil {
		return "", nil, err
	}
	return root, classes, nil
}

// === Corpus Operation Handlers ===

type datasetGenerateArgs struct {
	corpusArgs
	SamplesPerClass int     `json:"samples_per_class"`
	Seed            *uint64 `json:"seed"`
}

func (s *Server) handleDatasetGenerate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a datasetGenerateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	root, classes, err := s.resolve(a.corpusArgs)
	if err != nil {
		return nil, err
	}
	if a.SamplesPerClass == 0 {
		a.SamplesPerClass = s.cfg.Generate.SamplesPerClass
	}
	if a.SamplesPerClass < 1 {
		return nil, fmt.Errorf("samples_per_class must be positive, got %d", a.SamplesPerClass)
	}
	seed := s.cfg.Seed
	if a.Seed != nil {
		seed = *a.Seed
	}
	specs, err := s.cfg.ClassSpecs()
	if err != nil {
		return nil, err
	}

	gen, err := synth.NewGenerator(synth.Options{
		Root:    root,
		Width:   s.cfg.Generate.Width,
		Height:  s.cfg.Generate.Height,
		Seed:    seed,
		Degrade: s.cfg.Generate.Degrade,
		Specs:   specs,
		Logger:  s.logger,
	}, synth.DetectFonts(s.cfg.Generate.FontPath))
	if err != nil {
		return nil, err
	}
	report, err := gen.GenerateAll(ctx, classes, a.SamplesPerClass)
	if err != nil {
		return nil, err
	}
	// Regenerated paths may be cached from an earlier corpus.
	for _, sample := range report.Samples {
		s.cache.Evict(sample.Path)
	}
	return report, nil
}

// ClassScan is the per-class part of a dataset_scan result.
type ClassScan struct {
	Class        dataset.Class `json:"class"`
	Files        int           `json:"files"`
	BelowMinimum bool          `json:"below_minimum"`
}

// ScanResult is returned by dataset_scan.
type ScanResult struct {
	Root        string      `json:"root"`
	Total       int         `json:"total"`
	Classes     []ClassScan `json:"classes"`
	MinPerClass int         `json:"recommended_min_per_class"`
}

func (s *Server) handleDatasetScan(args json.RawMessage) (interface{}, error) {
	var a corpusArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	root, classes, err := s.resolve(a)
	if err != nil {
		return nil, err
	}
	files, err := dataset.ScanClasses(root, classes, s.cfg.Dataset.Extensions, s.logger)
	if err != nil {
		return nil, err
	}

	res := &ScanResult{Root: root, Total: dataset.CountFiles(files), MinPerClass: dataset.MinRecommendedPerClass}
	for _, c := range classes {
		n := len(files[c])
		res.Classes = append(res.Classes, ClassScan{Class: c, Files: n, BelowMinimum: n < dataset.MinRecommendedPerClass})
	}
	return res, nil
}

type datasetSplitArgs struct {
	corpusArgs
	Train        *float64 `json:"train"`
	Validation   *float64 `json:"validation"`
	Test         *float64 `json:"test"`
	Seed         *uint64  `json:"seed"`
	IncludePaths bool     `json:"include_paths"`
}

// SubsetSummary describes one subset of a dataset_split result.
type SubsetSummary struct {
	Size   int                   `json:"size"`
	Counts map[dataset.Class]int `json:"counts"`
	Paths  []string              `json:"paths,omitempty"`
}

// SplitResult is returned by dataset_split.
type SplitResult struct {
	Root       string            `json:"root"`
	Total      int               `json:"total"`
	Fractions  dataset.Fractions `json:"fractions"`
	Seed       uint64            `json:"seed"`
	Train      SubsetSummary     `json:"train"`
	Validation SubsetSummary     `json:"validation"`
	Test       SubsetSummary     `json:"test"`
}

func (s *Server) handleDatasetSplit(args json.RawMessage) (interface{}, error) {
	var a datasetSplitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	root, classes, err := s.resolve(a.corpusArgs)
	if err != nil {
		return nil, err
	}
	fracs := s.cfg.Dataset.Fractions
	if a.Train != nil {
		fracs.Train = *a.Train
	}
	if a.Validation != nil {
		fracs.Validation = *a.Validation
	}
	if a.Test != nil {
		fracs.Test = *a.Test
	}
	seed := s.cfg.Seed
	if a.Seed != nil {
		seed = *a.Seed
	}

	files, err := dataset.ScanClasses(root, classes, s.cfg.Dataset.Extensions, s.logger)
	if err != nil {
		return nil, err
	}
	var paths []string
	var labels []int
	for i, c := range classes {
		for _, p := range files[c] {
			paths = append(paths, p)
			labels = append(labels, i)
		}
	}

	split, err := dataset.StratifiedSplit(labels, fracs, seed)
	if err != nil {
		return nil, err
	}
	summarize := func(idx []int) SubsetSummary {
		sum := SubsetSummary{Size: len(idx), Counts: make(map[dataset.Class]int, len(classes))}
		for _, c := range classes {
			sum.Counts[c] = 0
		}
		for _, i := range idx {
			sum.Counts[classes[labels[i]]]++
			if a.IncludePaths {
				sum.Paths = append(sum.Paths, paths[i])
			}
		}
		sort.Strings(sum.Paths)
		return sum
	}
	return &SplitResult{
		Root:       root,
		Total:      len(labels),
		Fractions:  fracs,
		Seed:       seed,
		Train:      summarize(split.Train),
		Validation: summarize(split.Validation),
		Test:       summarize(split.Test),
	}, nil
}

// === Sample Inspection Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (a imagePathArgs) validate() error {
	if a.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// ImageInfoResult is returned by image_info. The embedded header fields are
// the stored size; Oriented is the size after EXIF orientation is applied.
type ImageInfoResult struct {
	*imaging.ImageInfo
	Oriented *imaging.DimensionsResult `json:"oriented"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	info, err := imaging.LoadImageInfo(a.Path)
	if err != nil {
		return nil, err
	}
	oriented, err := imaging.GetDimensions(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	return &ImageInfoResult{ImageInfo: info, Oriented: oriented}, nil
}

func (s *Server) handleImageFeatures(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.ExtractFeatures(img), nil
}

type sampleAuditArgs struct {
	Path      string  `json:"path"`
	Class     string  `json:"class"`
	Tolerance float64 `json:"tolerance"`
	Language  string  `json:"language"`
}

// AuditReport is returned by sample_audit.
type AuditReport struct {
	Path          string               `json:"path"`
	Class         dataset.Class        `json:"class"`
	CertificateID string               `json:"certificate_id"`
	Border        *imaging.BorderCheck `json:"border"`
	OCR           *ocr.AuditResult     `json:"ocr,omitempty"`

	// Paper is the pixel halfway between the top-left corner and the border.
	Paper *imaging.ColorResult `json:"paper"`

	// OCRSkipped explains why the text read-back did not run.
	OCRSkipped string `json:"ocr_skipped,omitempty"`
}

// Passed reports whether the border matched and, when OCR ran, the text was
// read back.
func (r *AuditReport) Passed() bool {
	return r.Border.Match && (r.OCR == nil || r.OCR.Readable())
}

func (s *Server) handleSampleAudit(args json.RawMessage) (interface{}, error) {
	var a sampleAuditArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.Audit(a.Path, a.Class, a.Tolerance, a.Language)
}

// Audit checks one generated sample. The class defaults to the name of the
// sample's parent directory, tolerance to imaging.DefaultBorderTolerance and
// language to the configured OCR language.
//
// The border check always runs. The OCR read-back runs only when Tesseract
// is available for language; otherwise OCRSkipped carries the reason.
func (s *Server) Audit(path, className string, tolerance float64, language string) (*AuditReport, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if className == "" {
		className = filepath.Base(filepath.Dir(path))
	}
	if tolerance == 0 {
		tolerance = imaging.DefaultBorderTolerance
	}
	if language == "" {
		language = s.cfg.OCR.Language
	}

	class, err := dataset.ParseClass(className)
	if err != nil {
		return nil, err
	}
	specs, err := s.cfg.ClassSpecs()
	if err != nil {
		return nil, err
	}
	spec, ok := specs[class]
	if !ok {
		return nil, fmt.Errorf("no generation spec for class %q", class)
	}
	prefix, seq, err := synth.ParseSampleName(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if prefix != spec.Prefix {
		return nil, fmt.Errorf("sample prefix %q does not match class %s prefix %q", prefix, class, spec.Prefix)
	}

	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	border, err := imaging.CheckBorder(img, synth.BorderInset, synth.BorderWidth, spec.Border, tolerance)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	paper, err := imaging.SampleColor(img, b.Min.X+synth.BorderInset/2, b.Min.Y+synth.BorderInset/2)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		Path:          path,
		Class:         class,
		CertificateID: synth.CertificateID(class, seq),
		Border:        border,
		Paper:         paper,
	}
	if c := ocr.Available(language); !c.Available {
		report.OCRSkipped = c.Reason
		return report, nil
	}
	report.OCR, err = ocr.AuditSample(path, report.CertificateID, synth.Title, language)
	if err != nil {
		return nil, err
	}
	return report, nil
}
