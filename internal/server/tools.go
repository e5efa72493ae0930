package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func rootProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Corpus root directory. Defaults to the configured root.",
	}
}

func classesProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string", "enum": []string{"authentic", "forged", "tampered", "screenshot"}},
		"description": "Classes to include, in label order. Defaults to the configured classes.",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Corpus Operations
		{
			Name:        "dataset_generate",
			Description: "Generate synthetic certificate samples for each class and write them as JPEG files under <root>/<class>/. Numbering continues after existing samples.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"root":    rootProperty(),
					"classes": classesProperty(),
					"samples_per_class": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"description": "Number of new samples per class. Defaults to the configured count.",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Random seed for content and noise. Defaults to the configured seed.",
					},
				},
			},
		},
		{
			Name:        "dataset_scan",
			Description: "Count the image files in each class directory without decoding them. Reports classes below the recommended sample count.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"root":    rootProperty(),
					"classes": classesProperty(),
				},
			},
		},
		{
			Name:        "dataset_split",
			Description: "Compute a stratified train/validation/test split of the corpus files and report subset sizes and per-class counts.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"root":    rootProperty(),
					"classes": classesProperty(),
					"train": map[string]interface{}{
						"type":        "number",
						"description": "Training fraction. The three fractions must sum to 1.",
					},
					"validation": map[string]interface{}{
						"type":        "number",
						"description": "Validation fraction",
					},
					"test": map[string]interface{}{
						"type":        "number",
						"description": "Test fraction",
					},
					"seed": map[string]interface{}{
						"type":        "integer",
						"description": "Shuffle seed. Defaults to the configured seed.",
					},
					"include_paths": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the file paths of every subset. Default false.",
						"default":     false,
					},
				},
			},
		},

		// Sample Inspection
		{
			Name:        "image_info",
			Description: "Report an image's header dimensions, format, color model and file size, plus its EXIF-oriented size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_features",
			Description: "Measure forgery cues on an image: edge consistency, text quality, layout score, compression artifacts and error-level spread.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sample_audit",
			Description: "Check a generated sample: compare its border with the class color and, when Tesseract is installed, read back the certificate ID and title.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"class": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"authentic", "forged", "tampered", "screenshot"},
						"description": "Sample class. Defaults to the name of the parent directory.",
					},
					"tolerance": map[string]interface{}{
						"type":        "number",
						"description": "Largest CIEDE2000 distance accepted for the border color. Default 0.12",
						"default":     0.12,
					},
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language. Defaults to the configured language.",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
