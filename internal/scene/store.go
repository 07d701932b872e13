package scene

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/ironsheep/refcrop-mcp/internal/imaging"
)

// DefaultMaxNameLength is the longest resource name the host accepts, in bytes.
const DefaultMaxNameLength = 63

var (
	// ErrNotFound is returned when a named image or object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when adding an object whose name is taken.
	ErrDuplicateName = errors.New("name already in use")
)

// ImageStore holds the host's image resources by name.
type ImageStore struct {
	images     map[string]*Image
	maxNameLen int
}

// NewImageStore creates an empty store. maxNameLen <= 0 selects
// DefaultMaxNameLength.
func NewImageStore(maxNameLen int) *ImageStore {
	if maxNameLen <= 0 {
		maxNameLen = DefaultMaxNameLength
	}
	return &ImageStore{
		images:     make(map[string]*Image),
		maxNameLen: maxNameLen,
	}
}

// MaxNameLength returns the name limit in bytes.
func (s *ImageStore) MaxNameLength() int { return s.maxNameLen }

// Get looks an image up by exact name.
func (s *ImageStore) Get(name string) (*Image, bool) {
	img, ok := s.images[name]
	return img, ok
}

// New creates a blank width x height image. If name is taken, a numeric
// suffix (".001", ".002", ...) is appended; the final name is available
// from the returned image.
func (s *ImageStore) New(name string, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	img := newImage(s.uniqueName(name), width, height)
	s.images[img.name] = img
	return img, nil
}

// NewFromPixels creates an image holding a copy of px.
func (s *ImageStore) NewFromPixels(name string, px *imaging.Pixels) (*Image, error) {
	img, err := s.New(name, px.Width, px.Height)
	if err != nil {
		return nil, err
	}
	img.pixels = px.Clone()
	return img, nil
}

// Load registers an image file. Only the header is read; pixels are decoded
// on demand. The image is named after the file.
func (s *ImageStore) Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	img := newImage(s.uniqueName(filepath.Base(path)), cfg.Width, cfg.Height)
	img.pixels = nil
	img.path = path
	s.images[img.name] = img
	return img, nil
}

// Remove deletes an image from the store.
func (s *ImageStore) Remove(name string) error {
	if _, ok := s.images[name]; !ok {
		return fmt.Errorf("image %q: %w", name, ErrNotFound)
	}
	delete(s.images, name)
	return nil
}

// Names returns every image name in sorted order.
func (s *ImageStore) Names() []string {
	names := make([]string, 0, len(s.images))
	for name := range s.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of images.
func (s *ImageStore) Len() int { return len(s.images) }

func (s *ImageStore) uniqueName(name string) string {
	name = TruncateName(name, s.maxNameLen)
	if _, taken := s.images[name]; !taken {
		return name
	}
	for i := 1; ; i++ {
		suffix := fmt.Sprintf(".%03d", i)
		candidate := TruncateName(name, s.maxNameLen-len(suffix)) + suffix
		if _, taken := s.images[candidate]; !taken {
			return candidate
		}
	}
}

// TruncateName cuts name to at most max bytes without splitting a UTF-8
// sequence.
func TruncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	if max <= 0 {
		return ""
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
