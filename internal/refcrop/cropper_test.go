package refcrop

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/refcrop-mcp/internal/imaging"
	"github.com/ironsheep/refcrop-mcp/internal/scene"
)

func newTestCropper(opts ...Option) (*scene.Scene, *Cropper) {
	images := scene.NewImageStore(0)
	sc := scene.New(images)
	return sc, New(imaging.NewPixelCache(nil), images, opts...)
}

// gradient returns a w x h buffer whose red and green channels encode x and y.
func gradient(w, h int) *imaging.Pixels {
	p := imaging.NewPixels(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p.Set(x, y, [4]float32{float32(x) / 1000, float32(y) / 1000, 0.5, 1})
		}
	}
	return p
}

func solid(w, h int, c [4]float32) *imaging.Pixels {
	p := imaging.NewPixels(w, h)
	p.Fill(c)
	return p
}

// addSettled adds an image empty showing img and runs the sync step.
func addSettled(t *testing.T, sc *scene.Scene, c *Cropper, name string, img *scene.Image) *scene.Object {
	t.Helper()
	obj, err := sc.AddImageEmpty(name, img)
	require.NoError(t, err)
	require.True(t, c.OnGraphSettled(sc))
	return obj
}

func TestOutputName(t *testing.T) {
	_, c := newTestCropper()

	tests := []struct {
		name   string
		owner  string
		source string
		want   string
	}{
		{"plain source", "Ref", "photo.png", "CR_Ref_photo.png"},
		{"own output is not stacked", "Ref", "CR_Ref_photo.png", "CR_Ref_photo.png"},
		{"other owner output is kept", "Side", "CR_Ref_photo.png", "CR_Side_CR_Ref_photo.png"},
		{"prefix only strips once", "Ref", "CR_Ref_CR_Ref_a", "CR_Ref_CR_Ref_a"},
		{"partial match is kept", "Ref", "CR_Reference.png", "CR_Ref_CR_Reference.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, c.OutputName(tt.owner, tt.source))
		})
	}
}

func TestOutputName_Truncated(t *testing.T) {
	_, c := newTestCropper()
	name := c.OutputName(strings.Repeat("o", 40), strings.Repeat("s", 40)+".png")
	require.Len(t, name, scene.DefaultMaxNameLength)
	require.True(t, strings.HasPrefix(name, "CR_"))

	_, c = newTestCropper(WithPrefix("crop-"), WithMaxNameLength(12))
	require.Equal(t, "crop-", c.Prefix())
	require.Equal(t, "crop-A_photo", c.OutputName("A", "photo.png"))
}

func TestApplyCrop_NoSource(t *testing.T) {
	sc, c := newTestCropper()
	obj, err := sc.AddImageEmpty("Ref", nil)
	require.NoError(t, err)

	res, err := c.ApplyCrop(obj)
	require.NoError(t, err)
	require.Nil(t, res)
	require.Nil(t, obj.Data)
	require.Equal(t, 0, sc.Images.Len())

	res, err = c.ApplyCrop(nil)
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestApplyCrop_CreatesAndReusesOutput(t *testing.T) {
	sc, c := newTestCropper()
	src, err := sc.Images.NewFromPixels("photo.png", gradient(200, 100))
	require.NoError(t, err)
	obj := addSettled(t, sc, c, "Ref", src)

	obj.Crop.Params = imaging.CropParams{WidthPct: 50, HeightPct: 50, PosXPct: 0, PosYPct: 100}
	res, err := c.ApplyCrop(obj)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.False(t, res.Resized)
	require.Equal(t, imaging.Rect{X: 0, Y: 50, Width: 100, Height: 50}, res.Rect)
	require.Equal(t, "CR_Ref_photo.png", res.Image.Name())
	require.Same(t, res.Image, obj.Data)

	w, h := res.Image.Size()
	require.Equal(t, 100, w)
	require.Equal(t, 50, h)

	px, err := res.Image.Decode()
	require.NoError(t, err)
	require.Equal(t, src.Name(), obj.Crop.Source.Name())
	require.Equal(t, [4]float32{0, 0.05, 0.5, 1}, px.At(0, 0))
	require.Equal(t, [4]float32{0.099, 0.099, 0.5, 1}, px.At(99, 49))

	again, err := c.ApplyCrop(obj)
	require.NoError(t, err)
	require.False(t, again.Created)
	require.False(t, again.Resized)
	require.Same(t, res.Image, again.Image)

	px2, err := again.Image.Decode()
	require.NoError(t, err)
	require.True(t, px.Equal(px2), "same settings must give the same pixels")

	require.Equal(t, 2, sc.Images.Len(), "no extra images on re-apply")
	require.Equal(t, 1, c.Cache().Decodes(), "source decoded once")
	require.False(t, c.Cache().Contains(res.Image.ID()), "outputs are not cached")
}

func TestApplyCrop_ResizesInPlace(t *testing.T) {
	sc, c := newTestCropper()
	src, _ := sc.Images.NewFromPixels("photo.png", gradient(40, 20))
	obj := addSettled(t, sc, c, "Ref", src)

	first, err := c.ApplyCrop(obj)
	require.NoError(t, err)
	id := first.Image.ID()

	res, err := c.SetCropParams(obj, imaging.CropParams{WidthPct: 25, HeightPct: 50, PosXPct: 50, PosYPct: 50})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, res.Resized)
	require.False(t, res.Created)
	require.Equal(t, id, res.Image.ID())

	w, h := res.Image.Size()
	require.Equal(t, 10, w)
	require.Equal(t, 10, h)
}

func TestApplyCrop_ChromaKey(t *testing.T) {
	sc, c := newTestCropper()
	px := solid(4, 4, [4]float32{0, 1, 0, 1})
	px.Set(3, 3, [4]float32{1, 0, 1, 1})
	src, _ := sc.Images.NewFromPixels("screen.png", px)
	obj := addSettled(t, sc, c, "Ref", src)

	key, err := imaging.ParseChromaKey("#00ff00", 0.1)
	require.NoError(t, err)

	res, err := c.SetChromaKey(obj, true, key)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 15, res.Masked)

	out, err := res.Image.Decode()
	require.NoError(t, err)
	require.Equal(t, [4]float32{0, 1, 0, 0}, out.At(0, 0))
	require.Equal(t, [4]float32{1, 0, 1, 1}, out.At(3, 3))

	src1, err := src.Decode()
	require.NoError(t, err)
	require.Equal(t, float32(1), src1.At(0, 0)[3], "source alpha is untouched")

	res, err = c.SetChromaKey(obj, false, key)
	require.NoError(t, err)
	require.Equal(t, 0, res.Masked)
}

func TestApplyCrop_DecodeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.png")
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	sc, c := newTestCropper()
	src, err := sc.Images.Load(path)
	require.NoError(t, err)
	obj := addSettled(t, sc, c, "Ref", src)

	require.NoError(t, os.Remove(path))
	_, err = c.ApplyCrop(obj)
	require.Error(t, err)
	require.Same(t, src, obj.Data, "failed crop leaves the object alone")
}

func TestOnPropertyChanged_Gating(t *testing.T) {
	sc, c := newTestCropper()
	src, _ := sc.Images.NewFromPixels("photo.png", gradient(10, 10))

	t.Run("no source", func(t *testing.T) {
		obj, err := sc.AddImageEmpty("Bare", nil)
		require.NoError(t, err)
		res, err := c.OnPropertyChanged(obj)
		require.NoError(t, err)
		require.Nil(t, res)
	})

	t.Run("auto update off", func(t *testing.T) {
		obj := addSettled(t, sc, c, "Manual", src)
		c.SetAutoUpdate(obj, false)

		res, err := c.SetCropParams(obj, imaging.CropParams{WidthPct: 50, HeightPct: 50, PosXPct: 50, PosYPct: 50})
		require.NoError(t, err)
		require.Nil(t, res)
		require.Same(t, src, obj.Data)
		require.Equal(t, 50.0, obj.Crop.Params.WidthPct, "settings are still stored")

		res, err = c.ApplyCrop(obj)
		require.NoError(t, err)
		require.Equal(t, 5, res.Rect.Width, "manual apply uses the stored settings")
	})

	t.Run("source is an output", func(t *testing.T) {
		out, err := sc.Images.New("CR_Other_photo.png", 2, 2)
		require.NoError(t, err)
		obj, err := sc.AddImageEmpty("Loop", nil)
		require.NoError(t, err)
		obj.Crop.Source = out

		res, err := c.OnPropertyChanged(obj)
		require.NoError(t, err)
		require.Nil(t, res)
	})

	t.Run("auto update on", func(t *testing.T) {
		obj := addSettled(t, sc, c, "Auto", src)
		res, err := c.OnPropertyChanged(obj)
		require.NoError(t, err)
		require.NotNil(t, res)
		require.Equal(t, "CR_Auto_photo.png", obj.Data.Name())
	})
}

func TestSetCropParams_Clamps(t *testing.T) {
	sc, c := newTestCropper()
	src, _ := sc.Images.NewFromPixels("photo.png", gradient(10, 10))
	obj := addSettled(t, sc, c, "Ref", src)

	res, err := c.SetCropParams(obj, imaging.CropParams{WidthPct: 0, HeightPct: 200, PosXPct: -5, PosYPct: 150})
	require.NoError(t, err)
	require.Equal(t, imaging.CropParams{WidthPct: 1, HeightPct: 100, PosXPct: 0, PosYPct: 100}, obj.Crop.Params)
	require.Equal(t, imaging.Rect{X: 0, Y: 0, Width: 1, Height: 10}, res.Rect)
}

func TestSetChromaKey_Clamps(t *testing.T) {
	sc, c := newTestCropper()
	obj, err := sc.AddImageEmpty("Ref", nil)
	require.NoError(t, err)

	_, err = c.SetChromaKey(obj, true, imaging.ChromaKey{Target: colorful.Color{R: 2, G: 0.5, B: -1}, Threshold: -3})
	require.NoError(t, err)
	require.True(t, obj.Crop.ChromaEnabled)
	require.Equal(t, imaging.ChromaKey{Target: colorful.Color{R: 1, G: 0.5, B: 0}}, obj.Crop.Chroma)
}

func TestOnGraphSettled_AdoptsAndResets(t *testing.T) {
	sc, c := newTestCropper()
	first, _ := sc.Images.NewFromPixels("first.png", gradient(10, 10))
	second, _ := sc.Images.NewFromPixels("second.png", gradient(20, 10))

	obj := addSettled(t, sc, c, "Ref", first)
	require.Same(t, first, obj.Crop.Source)

	_, err := c.SetCropParams(obj, imaging.CropParams{WidthPct: 30, HeightPct: 40, PosXPct: 10, PosYPct: 90})
	require.NoError(t, err)
	_, err = c.SetChromaKey(obj, true, imaging.DefaultChromaKey())
	require.NoError(t, err)
	require.True(t, c.IsOutput(obj.Data))

	// The output bound to the object never becomes the source.
	require.False(t, c.OnGraphSettled(sc))
	require.Same(t, first, obj.Crop.Source)

	_, err = sc.BindImage("Ref", "second.png")
	require.NoError(t, err)
	require.True(t, c.OnGraphSettled(sc))
	require.Same(t, second, obj.Crop.Source)
	require.Equal(t, imaging.DefaultCropParams(), obj.Crop.Params)
	require.False(t, obj.Crop.ChromaEnabled)

	require.False(t, c.OnGraphSettled(sc), "same source is not adopted twice")
}

func TestOnGraphSettled_Ignores(t *testing.T) {
	sc, c := newTestCropper()
	src, _ := sc.Images.NewFromPixels("photo.png", gradient(4, 4))

	require.False(t, c.OnGraphSettled(sc), "no active object")

	require.NoError(t, sc.Add(&scene.Object{Name: "Cube", Kind: scene.KindMesh, Data: src}))
	require.False(t, c.OnGraphSettled(sc), "not an image empty")

	plain := &scene.Object{Name: "Axes", Kind: scene.KindEmpty, Display: scene.DisplayPlainAxes, Data: src}
	require.NoError(t, sc.Add(plain))
	require.False(t, c.OnGraphSettled(sc), "plain empty")
	require.Nil(t, plain.Crop.Source)

	_, err := sc.AddImageEmpty("Blank", nil)
	require.NoError(t, err)
	require.False(t, c.OnGraphSettled(sc), "no image")

	out, _ := sc.Images.New("CR_Someone_photo.png", 2, 2)
	loop, err := sc.AddImageEmpty("Loop", out)
	require.NoError(t, err)
	require.False(t, c.OnGraphSettled(sc), "outputs are never sources")
	require.Nil(t, loop.Crop.Source)
}

func TestOnGraphSettled_EvictsUnusedSourceOnly(t *testing.T) {
	sc, c := newTestCropper()
	shared, _ := sc.Images.NewFromPixels("shared.png", gradient(8, 8))
	other, _ := sc.Images.NewFromPixels("other.png", gradient(6, 6))

	a := addSettled(t, sc, c, "A", shared)
	_, err := c.ApplyCrop(a)
	require.NoError(t, err)
	b := addSettled(t, sc, c, "B", shared)
	_, err = c.ApplyCrop(b)
	require.NoError(t, err)
	require.True(t, c.Cache().Contains(shared.ID()))
	require.Equal(t, 1, c.Cache().Decodes())

	// A moves to another image while B still crops the shared one.
	require.NoError(t, sc.SetActive("A"))
	_, err = sc.BindImage("A", "other.png")
	require.NoError(t, err)
	require.True(t, c.OnGraphSettled(sc))
	_, err = c.ApplyCrop(a)
	require.NoError(t, err)
	require.True(t, c.Cache().Contains(shared.ID()), "still used by B")
	require.True(t, c.Cache().Contains(other.ID()))

	// Once B moves too, the shared entry goes and the other stays.
	require.NoError(t, sc.SetActive("B"))
	_, err = sc.BindImage("B", "other.png")
	require.NoError(t, err)
	require.True(t, c.OnGraphSettled(sc))
	require.False(t, c.Cache().Contains(shared.ID()))
	require.True(t, c.Cache().Contains(other.ID()))
}

func TestSourceEditInvalidatesCache(t *testing.T) {
	sc, c := newTestCropper()
	src, _ := sc.Images.NewFromPixels("photo.png", solid(4, 4, [4]float32{1, 0, 0, 1}))
	obj := addSettled(t, sc, c, "Ref", src)

	res, err := c.ApplyCrop(obj)
	require.NoError(t, err)
	px, _ := res.Image.Decode()
	require.Equal(t, [4]float32{1, 0, 0, 1}, px.At(0, 0))

	require.NoError(t, src.SetPixels(solid(4, 4, [4]float32{0, 0, 1, 1})))
	res, err = c.ApplyCrop(obj)
	require.NoError(t, err)
	px, _ = res.Image.Decode()
	require.Equal(t, [4]float32{0, 0, 1, 1}, px.At(0, 0))
	require.Equal(t, 2, c.Cache().Decodes())
}

func TestClose(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sc, c := newTestCropper(WithLogger(logger))
	src, _ := sc.Images.NewFromPixels("photo.png", gradient(4, 4))
	obj := addSettled(t, sc, c, "Ref", src)
	_, err := c.ApplyCrop(obj)
	require.NoError(t, err)
	require.Equal(t, 1, c.Cache().Len())

	c.Close()
	require.Equal(t, 0, c.Cache().Len())

	logs := buf.String()
	require.Contains(t, logs, "source updated")
	require.Contains(t, logs, "crop applied")
	require.Contains(t, logs, "pixel cache cleared")
}
