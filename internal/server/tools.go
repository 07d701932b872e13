package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// objectProperty is the optional target object shared by the crop tools.
var objectProperty = map[string]interface{}{
	"type":        "string",
	"description": "Object name. Defaults to the active object.",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Data
		{
			Name:        "image_load",
			Description: "Load an image file into the image store. Pixels are decoded lazily on first crop.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_list",
			Description: "List images in the store, marking cropped outputs.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"pattern": map[string]interface{}{
						"type":        "string",
						"description": "Only list names matching this glob, where * matches any run of characters (e.g. \"CR_*\")",
					},
				},
			},
		},
		{
			Name:        "image_export",
			Description: "Export an image as PNG. Returns base64 data, or writes to path when given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Image name in the store",
					},
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Optional output file path",
					},
				},
				"required": []string{"name"},
			},
		},

		// Scene Objects
		{
			Name:        "empty_add",
			Description: "Add an image empty displaying the named image and make it active. The image becomes its crop source.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Object name",
					},
					"image": map[string]interface{}{
						"type":        "string",
						"description": "Image name in the store",
					},
				},
				"required": []string{"name", "image"},
			},
		},
		{
			Name:        "object_select",
			Description: "Make the named object active.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Object name",
					},
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        "object_set_image",
			Description: "Bind another image to an image empty and make it active. A non-cropped image becomes the new crop source and resets the crop settings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"object": objectProperty,
					"image": map[string]interface{}{
						"type":        "string",
						"description": "Image name in the store",
					},
				},
				"required": []string{"image"},
			},
		},

		// Crop Settings
		{
			Name:        "crop_set_params",
			Description: "Set the crop window as percentages. Omitted fields keep their value. Re-crops when auto update is on.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"object": objectProperty,
					"crop_width_pct": map[string]interface{}{
						"type":        "number",
						"description": "Window width as percent of the source (1-100)",
						"minimum":     1,
						"maximum":     100,
					},
					"crop_height_pct": map[string]interface{}{
						"type":        "number",
						"description": "Window height as percent of the source (1-100)",
						"minimum":     1,
						"maximum":     100,
					},
					"pos_x_pct": map[string]interface{}{
						"type":        "number",
						"description": "Horizontal position as percent of the free space (0 = left, 100 = right)",
						"minimum":     0,
						"maximum":     100,
					},
					"pos_y_pct": map[string]interface{}{
						"type":        "number",
						"description": "Vertical position as percent of the free space (0 = bottom, 100 = top)",
						"minimum":     0,
						"maximum":     100,
					},
				},
			},
		},
		{
			Name:        "crop_set_chroma_key",
			Description: "Enable, disable or retune the chroma key. Pixels whose RGB L1 distance to the colour is below the threshold become transparent.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"object": objectProperty,
					"enabled": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether keying is applied. Omit to keep the current state.",
					},
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Key colour as hex #RRGGBB. Omit to keep the current colour.",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "L1 distance bound (0-3). Omit to keep the current threshold.",
						"minimum":     0,
					},
				},
			},
		},
		{
			Name:        "crop_sample_key_color",
			Description: "Sample a colour from the crop source for use as the chroma key. Without a position, the average of the source border is used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"object": objectProperty,
					"x_pct": map[string]interface{}{
						"type":        "number",
						"description": "Horizontal sample position (0 = left, 100 = right)",
						"minimum":     0,
						"maximum":     100,
					},
					"y_pct": map[string]interface{}{
						"type":        "number",
						"description": "Vertical sample position (0 = bottom, 100 = top)",
						"minimum":     0,
						"maximum":     100,
					},
					"apply": map[string]interface{}{
						"type":        "boolean",
						"description": "Enable the chroma key with the sampled colour (default: false)",
					},
				},
			},
		},
		{
			Name:        "crop_set_auto_update",
			Description: "Toggle re-cropping on every settings change.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"object": objectProperty,
					"enabled": map[string]interface{}{
						"type": "boolean",
					},
				},
				"required": []string{"enabled"},
			},
		},

		// Crop Operations
		{
			Name:        "crop_apply",
			Description: "Crop now, regardless of auto update, and bind the result to the object.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"object": objectProperty,
				},
			},
		},
		{
			Name:        "crop_status",
			Description: "Report the crop source, settings and cache state of an object.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"object": objectProperty,
				},
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
