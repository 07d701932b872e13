package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ryanuber/go-glob"

	"github.com/ironsheep/refcrop-mcp/internal/imaging"
	"github.com/ironsheep/refcrop-mcp/internal/refcrop"
	"github.com/ironsheep/refcrop-mcp/internal/scene"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "crop_apply").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errNoObject is returned when a tool needs an object and none is active.
var errNoObject = errors.New("no object given and no active object")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
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
//
// Handlers that change the scene finish by running the graph-settled sync,
// the way the host runs it after every update.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Image Data
	case "image_load":
		return s.handleImageLoad(args)
	case "image_list":
		return s.handleImageList(args)
	case "image_export":
		return s.handleImageExport(args)

	// Scene Objects
	case "empty_add":
		return s.handleEmptyAdd(args)
	case "object_select":
		return s.handleObjectSelect(args)
	case "object_set_image":
		return s.handleObjectSetImage(args)

	// Crop Settings
	case "crop_set_params":
		return s.handleCropSetParams(args)
	case "crop_set_chroma_key":
		return s.handleCropSetChromaKey(args)
	case "crop_sample_key_color":
		return s.handleCropSampleKeyColor(args)
	case "crop_set_auto_update":
		return s.handleCropSetAutoUpdate(args)

	// Crop Operations
	case "crop_apply":
		return s.handleCropApply(args)
	case "crop_status":
		return s.handleCropStatus(args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// settle runs source-change detection on the active object.
func (s *Server) settle() bool {
	return s.cropper.OnGraphSettled(s.scene)
}

// target resolves an optional object name, falling back to the active object.
func (s *Server) target(name string) (*scene.Object, error) {
	if name != "" {
		obj, ok := s.scene.Object(name)
		if !ok {
			return nil, fmt.Errorf("object %q: %w", name, scene.ErrNotFound)
		}
		return obj, nil
	}
	if obj := s.scene.Active(); obj != nil {
		return obj, nil
	}
	return nil, errNoObject
}

// imageInfo describes an image in the store.
type imageInfo struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Path     string `json:"path,omitempty"`
	IsOutput bool   `json:"is_output"`
}

func (s *Server) describeImage(img *scene.Image) *imageInfo {
	if img == nil {
		return nil
	}
	w, h := img.Size()
	return &imageInfo{
		Name:     img.Name(),
		ID:       img.ID().String(),
		Width:    w,
		Height:   h,
		Path:     img.Path(),
		IsOutput: s.cropper.IsOutput(img),
	}
}

// === Image Data Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.scene.Images.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return s.describeImage(img), nil
}

type imageListArgs struct {
	Pattern string `json:"pattern"`
}

type imageListResult struct {
	Images []*imageInfo `json:"images"`
}

func (s *Server) handleImageList(args json.RawMessage) (interface{}, error) {
	var a imageListArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res := &imageListResult{Images: []*imageInfo{}}
	for _, name := range s.scene.Images.Names() {
		if a.Pattern != "" && !glob.Glob(a.Pattern, name) {
			continue
		}
		img, _ := s.scene.Images.Get(name)
		res.Images = append(res.Images, s.describeImage(img))
	}
	return res, nil
}

type imageExportArgs struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ExportResult contains an exported image
type ExportResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type"`
	Path        string `json:"path,omitempty"`
}

func (s *Server) handleImageExport(args json.RawMessage) (interface{}, error) {
	var a imageExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, ok := s.scene.Images.Get(a.Name)
	if !ok {
		return nil, fmt.Errorf("image %q: %w", a.Name, scene.ErrNotFound)
	}
	px, err := img.Decode()
	if err != nil {
		return nil, err
	}
	data, err := imaging.EncodePNG(px)
	if err != nil {
		return nil, err
	}

	res := &ExportResult{Width: px.Width, Height: px.Height, MimeType: "image/png"}
	if a.Path != "" {
		if err := os.WriteFile(a.Path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", a.Path, err)
		}
		res.Path = a.Path
		return res, nil
	}
	res.ImageBase64 = base64.StdEncoding.EncodeToString(data)
	return res, nil
}

// === Scene Object Handlers ===

// objectResult reports an object after a scene change.
type objectResult struct {
	Object        string     `json:"object"`
	Active        bool       `json:"active"`
	Image         *imageInfo `json:"image,omitempty"`
	Source        *imageInfo `json:"source,omitempty"`
	SourceAdopted bool       `json:"source_adopted"`
}

func (s *Server) describeObject(obj *scene.Object, adopted bool) *objectResult {
	res := &objectResult{
		Object:        obj.Name,
		Active:        s.scene.Active() == obj,
		Image:         s.describeImage(obj.Data),
		SourceAdopted: adopted,
	}
	if obj.Crop != nil {
		res.Source = s.describeImage(obj.Crop.Source)
	}
	return res
}

type emptyAddArgs struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (s *Server) handleEmptyAdd(args json.RawMessage) (interface{}, error) {
	var a emptyAddArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, ok := s.scene.Images.Get(a.Image)
	if !ok {
		return nil, fmt.Errorf("image %q: %w", a.Image, scene.ErrNotFound)
	}
	obj, err := s.scene.AddImageEmpty(a.Name, img)
	if err != nil {
		return nil, err
	}
	obj.Crop.AutoUpdate = s.cfg.AutoUpdate
	return s.describeObject(obj, s.settle()), nil
}

type objectSelectArgs struct {
	Name string `json:"name"`
}

func (s *Server) handleObjectSelect(args json.RawMessage) (interface{}, error) {
	var a objectSelectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := s.scene.SetActive(a.Name); err != nil {
		return nil, err
	}
	obj, err := s.target(a.Name)
	if err != nil {
		return nil, err
	}
	return s.describeObject(obj, s.settle()), nil
}

type objectSetImageArgs struct {
	Object string `json:"object"`
	Image  string `json:"image"`
}

func (s *Server) handleObjectSetImage(args json.RawMessage) (interface{}, error) {
	var a objectSetImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	obj, err := s.target(a.Object)
	if err != nil {
		return nil, err
	}
	if _, err := s.scene.BindImage(obj.Name, a.Image); err != nil {
		return nil, err
	}
	// Data edits happen on the selected object, and only that one is synced.
	if err := s.scene.SetActive(obj.Name); err != nil {
		return nil, err
	}
	return s.describeObject(obj, s.settle()), nil
}

// === Crop Handlers ===

// cropResult reports the outcome of a crop request.
type cropResult struct {
	Object  string        `json:"object"`
	Applied bool          `json:"applied"`
	Output  *imageInfo    `json:"output,omitempty"`
	Rect    *imaging.Rect `json:"rect,omitempty"`
	Masked  int           `json:"masked"`
	Created bool          `json:"created"`
	Resized bool          `json:"resized"`
}

func newCropResult(obj *scene.Object, r *refcrop.Result, describe func(*scene.Image) *imageInfo) *cropResult {
	res := &cropResult{Object: obj.Name}
	if r == nil {
		return res
	}
	rect := r.Rect
	res.Applied = true
	res.Output = describe(r.Image)
	res.Rect = &rect
	res.Masked = r.Masked
	res.Created = r.Created
	res.Resized = r.Resized
	return res
}

type cropSetParamsArgs struct {
	Object    string   `json:"object"`
	WidthPct  *float64 `json:"crop_width_pct"`
	HeightPct *float64 `json:"crop_height_pct"`
	PosXPct   *float64 `json:"pos_x_pct"`
	PosYPct   *float64 `json:"pos_y_pct"`
}

func (s *Server) handleCropSetParams(args json.RawMessage) (interface{}, error) {
	var a cropSetParamsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	obj, err := s.target(a.Object)
	if err != nil {
		return nil, err
	}

	p := obj.Crop.Params
	if a.WidthPct != nil {
		p.WidthPct = *a.WidthPct
	}
	if a.HeightPct != nil {
		p.HeightPct = *a.HeightPct
	}
	if a.PosXPct != nil {
		p.PosXPct = *a.PosXPct
	}
	if a.PosYPct != nil {
		p.PosYPct = *a.PosYPct
	}

	r, err := s.cropper.SetCropParams(obj, p)
	if err != nil {
		return nil, err
	}
	s.settle()
	return newCropResult(obj, r, s.describeImage), nil
}

type cropSetChromaKeyArgs struct {
	Object    string   `json:"object"`
	Enabled   *bool    `json:"enabled"`
	Color     string   `json:"color"`
	Threshold *float64 `json:"threshold"`
}

func (s *Server) handleCropSetChromaKey(args json.RawMessage) (interface{}, error) {
	var a cropSetChromaKeyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	obj, err := s.target(a.Object)
	if err != nil {
		return nil, err
	}

	key := obj.Crop.Chroma
	if a.Color != "" {
		parsed, err := imaging.ParseChromaKey(a.Color, key.Threshold)
		if err != nil {
			return nil, err
		}
		key = parsed
	}
	if a.Threshold != nil {
		key.Threshold = *a.Threshold
	}

	enabled := obj.Crop.ChromaEnabled
	if a.Enabled != nil {
		enabled = *a.Enabled
	}

	r, err := s.cropper.SetChromaKey(obj, enabled, key)
	if err != nil {
		return nil, err
	}
	s.settle()
	return newCropResult(obj, r, s.describeImage), nil
}

type cropSampleKeyColorArgs struct {
	Object string   `json:"object"`
	XPct   *float64 `json:"x_pct"`
	YPct   *float64 `json:"y_pct"`
	Apply  bool     `json:"apply"`
}

// sampleResult reports a sampled key colour and, when applied, the re-crop.
type sampleResult struct {
	Sample *imaging.ColorSample `json:"sample"`
	Crop   *cropResult          `json:"crop,omitempty"`
}

func (s *Server) handleCropSampleKeyColor(args json.RawMessage) (interface{}, error) {
	var a cropSampleKeyColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	obj, err := s.target(a.Object)
	if err != nil {
		return nil, err
	}
	if obj.Crop == nil || obj.Crop.Source == nil {
		return nil, fmt.Errorf("object %q has no crop source", obj.Name)
	}

	px, err := s.cropper.SourcePixels(obj)
	if err != nil {
		return nil, err
	}

	var sample *imaging.ColorSample
	if a.XPct != nil || a.YPct != nil {
		x, y := 50.0, 50.0
		if a.XPct != nil {
			x = *a.XPct
		}
		if a.YPct != nil {
			y = *a.YPct
		}
		sample, err = imaging.SampleAt(px, x, y)
	} else {
		sample, err = imaging.BorderColor(px)
	}
	if err != nil {
		return nil, err
	}

	res := &sampleResult{Sample: sample}
	if a.Apply {
		key := imaging.ChromaKey{Target: sample.Color, Threshold: obj.Crop.Chroma.Threshold}
		r, err := s.cropper.SetChromaKey(obj, true, key)
		if err != nil {
			return nil, err
		}
		s.settle()
		res.Crop = newCropResult(obj, r, s.describeImage)
	}
	return res, nil
}

type cropSetAutoUpdateArgs struct {
	Object  string `json:"object"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleCropSetAutoUpdate(args json.RawMessage) (interface{}, error) {
	var a cropSetAutoUpdateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	obj, err := s.target(a.Object)
	if err != nil {
		return nil, err
	}
	s.cropper.SetAutoUpdate(obj, a.Enabled)
	return s.status(obj), nil
}

type cropTargetArgs struct {
	Object string `json:"object"`
}

func (s *Server) handleCropApply(args json.RawMessage) (interface{}, error) {
	var a cropTargetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	obj, err := s.target(a.Object)
	if err != nil {
		return nil, err
	}
	r, err := s.cropper.ApplyCrop(obj)
	if err != nil {
		return nil, err
	}
	s.settle()
	return newCropResult(obj, r, s.describeImage), nil
}

// cropStatus reports an object's crop state.
type cropStatus struct {
	Object          string             `json:"object"`
	IsImageEmpty    bool               `json:"is_image_empty"`
	Image           *imageInfo         `json:"image,omitempty"`
	Source          *imageInfo         `json:"source,omitempty"`
	Params          imaging.CropParams `json:"params"`
	ChromaEnabled   bool               `json:"chroma_enabled"`
	ChromaColor     string             `json:"chroma_color"`
	ChromaThreshold float64            `json:"chroma_threshold"`
	AutoUpdate      bool               `json:"auto_update"`
	CacheEntries    int                `json:"cache_entries"`
	CacheDecodes    int                `json:"cache_decodes"`
}

func (s *Server) status(obj *scene.Object) *cropStatus {
	st := &cropStatus{
		Object:       obj.Name,
		IsImageEmpty: obj.IsImageEmpty(),
		Image:        s.describeImage(obj.Data),
		CacheEntries: s.cropper.Cache().Len(),
		CacheDecodes: s.cropper.Cache().Decodes(),
	}
	if c := obj.Crop; c != nil {
		st.Source = s.describeImage(c.Source)
		st.Params = c.Params
		st.ChromaEnabled = c.ChromaEnabled
		st.ChromaColor = c.Chroma.Target.Hex()
		st.ChromaThreshold = c.Chroma.Threshold
		st.AutoUpdate = c.AutoUpdate
	}
	return st
}

func (s *Server) handleCropStatus(args json.RawMessage) (interface{}, error) {
	var a cropTargetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	obj, err := s.target(a.Object)
	if err != nil {
		return nil, err
	}
	return s.status(obj), nil
}
