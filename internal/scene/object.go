package scene

import "github.com/ironsheep/refcrop-mcp/internal/imaging"

// Kind is the type of a scene object.
type Kind int

const (
	KindEmpty Kind = iota
	KindMesh
	KindCamera
	KindLight
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "EMPTY"
	case KindMesh:
		return "MESH"
	case KindCamera:
		return "CAMERA"
	case KindLight:
		return "LIGHT"
	}
	return "UNKNOWN"
}

// EmptyDisplay is how an empty is drawn.
type EmptyDisplay int

const (
	DisplayPlainAxes EmptyDisplay = iota
	DisplayArrows
	DisplayCube
	DisplayImage
)

func (d EmptyDisplay) String() string {
	switch d {
	case DisplayPlainAxes:
		return "PLAIN_AXES"
	case DisplayArrows:
		return "ARROWS"
	case DisplayCube:
		return "CUBE"
	case DisplayImage:
		return "IMAGE"
	}
	return "UNKNOWN"
}

// CropSettings is the per-object crop state stored alongside the object.
type CropSettings struct {
	// Source is the original, uncropped image the crop is computed from.
	Source *Image

	Params        imaging.CropParams
	ChromaEnabled bool
	Chroma        imaging.ChromaKey

	// AutoUpdate re-runs the crop whenever a setting changes.
	AutoUpdate bool
}

// NewCropSettings returns settings with no source, a full-image window,
// the chroma key off and auto update on.
func NewCropSettings() *CropSettings {
	return &CropSettings{
		Params:     imaging.DefaultCropParams(),
		Chroma:     imaging.DefaultChromaKey(),
		AutoUpdate: true,
	}
}

// Reset restores the default window and turns the chroma key off. Source,
// AutoUpdate and the chroma colour are kept.
func (s *CropSettings) Reset() {
	s.Params = imaging.DefaultCropParams()
	s.ChromaEnabled = false
}

// ChromaKey returns the active key, or nil when keying is disabled.
func (s *CropSettings) ChromaKey() *imaging.ChromaKey {
	if !s.ChromaEnabled {
		return nil
	}
	k := s.Chroma
	return &k
}

// Object is a scene object.
type Object struct {
	Name    string
	Kind    Kind
	Display EmptyDisplay

	// Data is the image shown by an image empty.
	Data *Image

	Crop *CropSettings
}

// NewImageEmpty creates an empty that displays img.
func NewImageEmpty(name string, img *Image) *Object {
	return &Object{
		Name:    name,
		Kind:    KindEmpty,
		Display: DisplayImage,
		Data:    img,
		Crop:    NewCropSettings(),
	}
}

// IsImageEmpty reports whether o is an empty drawn as an image.
func (o *Object) IsImageEmpty() bool {
	return o != nil && o.Kind == KindEmpty && o.Display == DisplayImage
}
