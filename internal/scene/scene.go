// Package scene models the parts of the host application that reference image
// cropping reads and writes: the image data store, scene objects with their
// per-object crop settings, and the active object.
package scene

import "fmt"

// Scene is an ordered set of uniquely named objects with one optional
// active object.
type Scene struct {
	Images *ImageStore

	objects []*Object
	byName  map[string]*Object
	active  *Object
}

// New creates an empty scene backed by images.
func New(images *ImageStore) *Scene {
	return &Scene{
		Images: images,
		byName: make(map[string]*Object),
	}
}

// Add inserts obj and makes it active.
func (s *Scene) Add(obj *Object) error {
	if obj.Name == "" {
		return fmt.Errorf("object name must not be empty")
	}
	if _, taken := s.byName[obj.Name]; taken {
		return fmt.Errorf("object %q: %w", obj.Name, ErrDuplicateName)
	}
	if obj.Crop == nil {
		obj.Crop = NewCropSettings()
	}
	s.objects = append(s.objects, obj)
	s.byName[obj.Name] = obj
	s.active = obj
	return nil
}

// AddImageEmpty creates an image empty bound to img and adds it.
func (s *Scene) AddImageEmpty(name string, img *Image) (*Object, error) {
	obj := NewImageEmpty(name, img)
	if err := s.Add(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Object looks an object up by name.
func (s *Scene) Object(name string) (*Object, bool) {
	obj, ok := s.byName[name]
	return obj, ok
}

// Objects returns the objects in insertion order.
func (s *Scene) Objects() []*Object {
	out := make([]*Object, len(s.objects))
	copy(out, s.objects)
	return out
}

// SetActive makes the named object active. An empty name clears the
// selection.
func (s *Scene) SetActive(name string) error {
	if name == "" {
		s.active = nil
		return nil
	}
	obj, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("object %q: %w", name, ErrNotFound)
	}
	s.active = obj
	return nil
}

// Active returns the active object, or nil.
func (s *Scene) Active() *Object {
	return s.active
}

// BindImage sets the image displayed by the named object.
func (s *Scene) BindImage(object, image string) (*Object, error) {
	obj, ok := s.byName[object]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", object, ErrNotFound)
	}
	img, ok := s.Images.Get(image)
	if !ok {
		return nil, fmt.Errorf("image %q: %w", image, ErrNotFound)
	}
	obj.Data = img
	return obj, nil
}
