package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/cert-dataset-tools/internal/config"
	"github.com/ironsheep/cert-dataset-tools/internal/imaging"
	"github.com/ironsheep/cert-dataset-tools/internal/ocr"
	"github.com/ironsheep/cert-dataset-tools/internal/synth"
)

// newTestServer returns a server whose corpus root is a fresh temp dir.
func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Root = t.TempDir()
	return New(cfg, quietLogger()), cfg.Root
}

// callTool runs a tools/call request and decodes the text content into out.
// It returns the JSON-RPC error, if any.
func callTool(t *testing.T, s *Server, name string, args interface{}, out interface{}) *MCPError {
	t.Helper()
	paramsJSON, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp.Error
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("unexpected content: %v", content)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
			t.Fatalf("failed to decode tool result: %v", err)
		}
	}
	return nil
}

// writeCorpus writes perClass solid PNGs into each class directory.
func writeCorpus(t *testing.T, root string, classes []string, perClass int) {
	t.Helper()
	for ci, c := range classes {
		dir := filepath.Join(root, c)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < perClass; i++ {
			writeTestImage(t, filepath.Join(dir, fmt.Sprintf("img_%02d.png", i)), 32, 24, color.Gray{Y: uint8(40 * ci)})
		}
	}
}

func writeTestImage(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()
	if strings.HasSuffix(path, ".jpg") {
		err = jpeg.Encode(f, img, nil)
	} else {
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil, quietLogger())
	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`[1,2]`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := New(nil, quietLogger())
	merr := callTool(t, s, "image_crop", map[string]interface{}{}, nil)
	if merr == nil || merr.Code != -32000 {
		t.Fatalf("expected tool failure, got %+v", merr)
	}
	if !strings.Contains(merr.Data.(string), "unknown tool") {
		t.Errorf("Data: got %v", merr.Data)
	}
}

func TestDatasetGenerate(t *testing.T) {
	s, root := newTestServer(t)

	var report synth.Report
	if merr := callTool(t, s, "dataset_generate", map[string]interface{}{
		"classes":           []string{"authentic", "forged"},
		"samples_per_class": 2,
	}, &report); merr != nil {
		t.Fatalf("dataset_generate failed: %+v", merr)
	}

	if len(report.Samples) != 4 {
		t.Fatalf("Samples: got %d, want 4", len(report.Samples))
	}
	if report.Counts["authentic"] != 2 || report.Counts["forged"] != 2 {
		t.Errorf("Counts: got %v", report.Counts)
	}
	if report.Samples[0].CertificateID != "CERT-2024-0001" {
		t.Errorf("first ID: got %s, want CERT-2024-0001", report.Samples[0].CertificateID)
	}
	if _, err := os.Stat(filepath.Join(root, "forged", "fake_0002.jpg")); err != nil {
		t.Errorf("expected generated file: %v", err)
	}
}

func TestDatasetGenerate_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	if merr := callTool(t, s, "dataset_generate", map[string]interface{}{"classes": []string{"genuine"}}, nil); merr == nil {
		t.Error("unknown class should fail")
	}
	if merr := callTool(t, s, "dataset_generate", map[string]interface{}{"samples_per_class": -3}, nil); merr == nil {
		t.Error("negative sample count should fail")
	}
}

func TestDatasetScan(t *testing.T) {
	s, root := newTestServer(t)
	writeCorpus(t, root, []string{"authentic", "forged"}, 3)

	var res ScanResult
	if merr := callTool(t, s, "dataset_scan", map[string]interface{}{}, &res); merr != nil {
		t.Fatalf("dataset_scan failed: %+v", merr)
	}
	if res.Total != 6 {
		t.Errorf("Total: got %d, want 6", res.Total)
	}
	if len(res.Classes) != 4 {
		t.Fatalf("Classes: got %d entries, want 4", len(res.Classes))
	}
	if res.Classes[0].Class != "authentic" || res.Classes[0].Files != 3 || !res.Classes[0].BelowMinimum {
		t.Errorf("authentic entry: got %+v", res.Classes[0])
	}
	if res.Classes[3].Files != 0 {
		t.Errorf("screenshot entry: got %+v", res.Classes[3])
	}
}

func TestDatasetScan_Empty(t *testing.T) {
	s, root := newTestServer(t)
	merr := callTool(t, s, "dataset_scan", map[string]interface{}{"root": root}, nil)
	if merr == nil {
		t.Fatal("empty corpus should fail")
	}
	if !strings.Contains(merr.Data.(string), "no images found") {
		t.Errorf("Data: got %v", merr.Data)
	}
}

func TestDatasetSplit(t *testing.T) {
	s, root := newTestServer(t)
	writeCorpus(t, root, []string{"authentic", "forged", "tampered", "screenshot"}, 10)

	var res SplitResult
	if merr := callTool(t, s, "dataset_split", map[string]interface{}{"include_paths": true}, &res); merr != nil {
		t.Fatalf("dataset_split failed: %+v", merr)
	}
	if res.Total != 40 {
		t.Fatalf("Total: got %d, want 40", res.Total)
	}
	if res.Train.Size != 28 || res.Validation.Size != 6 || res.Test.Size != 6 {
		t.Errorf("sizes: got %d/%d/%d, want 28/6/6", res.Train.Size, res.Validation.Size, res.Test.Size)
	}
	for name, sub := range map[string]SubsetSummary{"train": res.Train, "validation": res.Validation, "test": res.Test} {
		for class, n := range sub.Counts {
			if n == 0 {
				t.Errorf("%s has no %s samples", name, class)
			}
		}
		if len(sub.Paths) != sub.Size {
			t.Errorf("%s: %d paths for %d samples", name, len(sub.Paths), sub.Size)
		}
	}

	seen := make(map[string]bool)
	for _, p := range append(append(res.Train.Paths, res.Validation.Paths...), res.Test.Paths...) {
		if seen[p] {
			t.Errorf("path %s appears in more than one subset", p)
		}
		seen[p] = true
	}
}

func TestDatasetSplit_Errors(t *testing.T) {
	s, root := newTestServer(t)
	writeCorpus(t, root, []string{"authentic", "forged"}, 2)

	if merr := callTool(t, s, "dataset_split", map[string]interface{}{"train": 0.9}, nil); merr == nil {
		t.Error("fractions not summing to 1 should fail")
	}
	merr := callTool(t, s, "dataset_split", map[string]interface{}{"classes": []string{"authentic", "forged"}}, nil)
	if merr == nil {
		t.Fatal("two samples per class cannot fill three subsets")
	}
}

func TestImageInfo(t *testing.T) {
	s, root := newTestServer(t)
	path := filepath.Join(root, "info.png")
	writeTestImage(t, path, 200, 150, color.White)

	var info ImageInfoResult
	if merr := callTool(t, s, "image_info", map[string]interface{}{"path": path}, &info); merr != nil {
		t.Fatalf("image_info failed: %+v", merr)
	}
	if info.ImageInfo == nil || info.Width != 200 || info.Height != 150 || info.Format != "png" {
		t.Errorf("info: got %+v", info.ImageInfo)
	}
	if info.Oriented == nil || info.Oriented.Width != 200 || info.Oriented.Height != 150 {
		t.Errorf("Oriented: got %+v, want 200x150", info.Oriented)
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache Len: got %d, want 1 after oriented decode", s.cache.Len())
	}

	if merr := callTool(t, s, "image_info", map[string]interface{}{}, nil); merr == nil {
		t.Error("missing path should fail")
	}
}

func TestImageFeatures(t *testing.T) {
	s, root := newTestServer(t)
	path := filepath.Join(root, "plain.png")
	writeTestImage(t, path, 141, 100, color.White)

	var f imaging.Features
	if merr := callTool(t, s, "image_features", map[string]interface{}{"path": path}, &f); merr != nil {
		t.Fatalf("image_features failed: %+v", merr)
	}
	if f.Width != 141 || f.TextQuality != 1 || !f.ConsistentCompression {
		t.Errorf("features: got %+v", f)
	}
	if s.cache.Len() != 1 {
		t.Errorf("cache Len: got %d, want 1", s.cache.Len())
	}

	if merr := callTool(t, s, "image_features", map[string]interface{}{"path": "/nonexistent/a.png"}, nil); merr == nil {
		t.Error("missing file should fail")
	}
}

func TestSampleAudit_GeneratedSample(t *testing.T) {
	s, root := newTestServer(t)
	if merr := callTool(t, s, "dataset_generate", map[string]interface{}{
		"classes":           []string{"tampered"},
		"samples_per_class": 1,
	}, nil); merr != nil {
		t.Fatalf("dataset_generate failed: %+v", merr)
	}

	path := filepath.Join(root, "tampered", "edited_0001.jpg")
	var report AuditReport
	if merr := callTool(t, s, "sample_audit", map[string]interface{}{"path": path}, &report); merr != nil {
		t.Fatalf("sample_audit failed: %+v", merr)
	}
	if report.Class != "tampered" {
		t.Errorf("Class: got %s, want tampered (from directory)", report.Class)
	}
	if report.CertificateID != "EDIT-0001" {
		t.Errorf("CertificateID: got %s, want EDIT-0001", report.CertificateID)
	}
	if report.Border == nil || report.Border.Expected != "#323296" {
		t.Fatalf("Border: got %+v", report.Border)
	}
	t.Logf("border distance %.4f match=%v", report.Border.Distance, report.Border.Match)
	if len(report.Border.Bands) != 4 {
		t.Errorf("Border.Bands: got %d, want 4", len(report.Border.Bands))
	}
	if report.Paper == nil || report.Paper.Hex == "" {
		t.Errorf("Paper: got %+v", report.Paper)
	}
	if (report.OCR == nil) == (report.OCRSkipped == "") {
		t.Errorf("exactly one of OCR and OCRSkipped should be set: %+v", report)
	}
}

func TestSampleAudit_Errors(t *testing.T) {
	s, root := newTestServer(t)
	dir := filepath.Join(root, "authentic")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	wrongPrefix := filepath.Join(dir, "fake_0001.jpg")
	writeTestImage(t, wrongPrefix, 100, 100, color.White)
	unknownDir := filepath.Join(root, "misc", "cert_0001.jpg")

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing path", map[string]interface{}{}},
		{"prefix mismatch", map[string]interface{}{"path": wrongPrefix}},
		{"class from unknown directory", map[string]interface{}{"path": unknownDir}},
		{"not a sample name", map[string]interface{}{"path": filepath.Join(dir, "scan.png")}},
		{"missing file", map[string]interface{}{"path": filepath.Join(dir, "cert_0009.jpg")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if merr := callTool(t, s, "sample_audit", tt.args, nil); merr == nil {
				t.Error("expected tool failure")
			}
		})
	}
}

func TestSampleAudit_BorderTooLarge(t *testing.T) {
	s, root := newTestServer(t)
	dir := filepath.Join(root, "authentic")
	os.MkdirAll(dir, 0o755)
	tiny := filepath.Join(dir, "cert_0001.jpg")
	writeTestImage(t, tiny, 40, 40, color.White)

	merr := callTool(t, s, "sample_audit", map[string]interface{}{"path": tiny}, nil)
	if merr == nil || !strings.Contains(merr.Data.(string), "does not fit") {
		t.Errorf("expected border fit error, got %+v", merr)
	}
}

func TestAuditReport_Passed(t *testing.T) {
	match := &imaging.BorderCheck{Match: true}
	tests := []struct {
		name string
		r    AuditReport
		want bool
	}{
		{"border only", AuditReport{Border: match, OCRSkipped: "no tesseract"}, true},
		{"border mismatch", AuditReport{Border: &imaging.BorderCheck{}}, false},
		{"unreadable ID", AuditReport{Border: match, OCR: &ocr.AuditResult{TitleFound: true}}, false},
		{"readable", AuditReport{Border: match, OCR: &ocr.AuditResult{IDFound: true, TitleFound: true}}, true},
	}
	for _, tt := range tests {
		if got := tt.r.Passed(); got != tt.want {
			t.Errorf("%s: Passed() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
