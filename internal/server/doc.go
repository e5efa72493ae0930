// Package server implements an MCP (Model Context Protocol) server that exposes
// the certificate dataset tools to MCP clients.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Corpus Operations:
//   - dataset_generate: Write synthetic samples into the class directories
//   - dataset_scan: Count files per class
//   - dataset_split: Stratified train/validation/test split of the files
//
// Sample Inspection:
//   - image_info: Header metadata of one image
//   - image_features: Forgery cues measured on one image
//   - sample_audit: Border color check and OCR read-back of a generated sample
//
// Arguments left out fall back to the config.Config the server was created
// with, so a client can call dataset_scan with no arguments at all.
//
// # Image Caching
//
// Decoded images are kept in a bounded LRU cache keyed by path. Paths
// rewritten by dataset_generate are evicted.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
