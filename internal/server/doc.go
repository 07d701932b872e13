// Package server implements the MCP (Model Context Protocol) server that
// drives reference image cropping.
//
// The server owns a small in-memory scene: an image store, image empties with
// their crop settings, and the active object. Tools edit that scene the way a
// host application's UI would, and every tool that changes it finishes by
// running the graph-settled sync so newly bound images are adopted as crop
// sources.
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
// Image Data:
//   - image_load: Register an image file (header only, pixels load lazily)
//   - image_list: List images, marking cropped outputs
//   - image_export: Write an image as PNG or return it as base64
//
// Scene Objects:
//   - empty_add: Add an image empty and make it active
//   - object_select: Change the active object
//   - object_set_image: Bind a different image to an object and select it
//
// Crop Settings:
//   - crop_set_params: Set the crop window percentages
//   - crop_set_chroma_key: Enable, disable or retune the chroma key
//   - crop_sample_key_color: Pick the key colour from the source
//   - crop_set_auto_update: Toggle re-cropping on settings changes
//
// Crop Operations:
//   - crop_apply: Crop now
//   - crop_status: Report source, settings and cache state
//
// Crop tools take an optional "object" argument and default to the active
// object.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32602 (malformed tools/call
//     params) or -32601 (unknown method)
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	cfg, err := config.FromEnv("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg, slog.Default())
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
