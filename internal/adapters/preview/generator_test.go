package preview

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/pkg/exr"
)

// uniform is a float raster with one value everywhere
type uniform struct {
	w, h int
	v    float32
}

func (u uniform) Bounds() image.Rectangle              { return image.Rect(0, 0, u.w, u.h) }
func (u uniform) FloatRGB(x, y int) (float32, float32, float32) { return u.v, u.v, u.v }

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want SourceKind
	}{
		{"/a/b/beach.hdr", HighDynamicRangeImage},
		{"/a/b/BEACH.HDR", HighDynamicRangeImage},
		{"studio.exr", HighDynamicRangeImage},
		{"sky.pfm", HighDynamicRangeImage},
		{"sky.pic", HighDynamicRangeImage},
		{"photo.png", StandardImage},
		{"photo.jpeg", StandardImage},
		{"noext", StandardImage},
		{"archive.hdr.zip", StandardImage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.path), tt.path)
	}
}

func TestToneCurve_Apply(t *testing.T) {
	c := DefaultToneCurve
	tests := []struct {
		in   float64
		want uint8
	}{
		{0.5, 255},  // (0.5*2)^0.8 = 1
		{0.25, 146}, // trunc(255 * 0.5^0.8)
		{0, 0},
		{-1, 0}, // negative base under fractional gamma is NaN
		{100, 255},
		{math.NaN(), 0},
		{math.Inf(1), 255},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Apply(tt.in), "Apply(%v)", tt.in)
	}

	want := uint8(255 * math.Pow(0.1*2.0, 0.8))
	assert.Equal(t, want, c.Apply(0.1))
}

func TestToneMap_Uniform(t *testing.T) {
	out := ToneMap(uniform{w: 3, h: 2, v: 0.5}, DefaultToneCurve)
	assert.Equal(t, image.Rect(0, 0, 3, 2), out.Bounds())
	for i := 0; i < len(out.Pix); i += 4 {
		assert.Equal(t, []uint8{255, 255, 255, 255}, out.Pix[i:i+4])
	}

	out = ToneMap(uniform{w: 1, h: 1, v: 0.25}, DefaultToneCurve)
	assert.Equal(t, []uint8{146, 146, 146, 255}, out.Pix)
}

func TestToneMap_FromEXRRaster(t *testing.T) {
	src := exr.NewImage(image.Rect(0, 0, 2, 1))
	copy(src.Pix, []float32{0.5, 0.25, 0, 3, -2, 0.5})
	out := ToneMap(src, DefaultToneCurve)
	assert.Equal(t, []uint8{255, 146, 0, 255, 255, 0, 255, 255}, out.Pix)
}

// writeRGBE writes an uncompressed Radiance file where every pixel has the given RGBE bytes
func writeRGBE(t *testing.T, path string, w, h int, px [4]byte) {
	t.Helper()
	data := []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y ")
	data = append(data, []byte(itoa(h)+" +X "+itoa(w)+"\n")...)
	for i := 0; i < w*h; i++ {
		data = append(data, px[:]...)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func TestGenerate_RadianceUniformHalf(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "half.hdr")
	// mantissa 128, exponent 128 encodes 0.5
	writeRGBE(t, src, 4, 4, [4]byte{128, 128, 128, 128})

	g := NewGenerator(DefaultOptions())
	out, err := g.Generate(context.Background(), src, filepath.Join(dir, "preview.jpg"))
	require.NoError(t, err)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())
	r, gg, b, _ := img.At(1, 1).RGBA()
	assert.InDelta(t, 255, r>>8, 2)
	assert.InDelta(t, 255, gg>>8, 2)
	assert.InDelta(t, 255, b>>8, 2)
}

func TestGenerate_StandardBoundedAspect(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.png")
	require.NoError(t, imaging.Save(imaging.New(800, 200, color.NRGBA{R: 200, G: 100, B: 50, A: 255}), src))

	g := NewGenerator(DefaultOptions())
	out, err := g.Generate(context.Background(), src, filepath.Join(dir, "preview.jpg"))
	require.NoError(t, err)

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	r, gg, b, _ := img.At(100, 25).RGBA()
	assert.InDelta(t, 200, r>>8, 4)
	assert.InDelta(t, 100, gg>>8, 4)
	assert.InDelta(t, 50, b>>8, 4)
}

func TestGenerate_SmallSourceNotUpscaled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tiny.png")
	require.NoError(t, imaging.Save(imaging.New(20, 10, color.White), src))

	out, err := NewGenerator(DefaultOptions()).Generate(context.Background(), src, filepath.Join(dir, "preview.jpg"))
	require.NoError(t, err)
	cfg, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 10), cfg.Bounds())
}

func TestGenerate_TransparentSourceKeepsColor(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "clear.png")
	require.NoError(t, imaging.Save(imaging.New(10, 10, color.NRGBA{R: 0, G: 0, B: 255, A: 0}), src))

	out, err := NewGenerator(DefaultOptions()).Generate(context.Background(), src, filepath.Join(dir, "preview.jpg"))
	require.NoError(t, err)
	img, err := imaging.Open(out)
	require.NoError(t, err)
	_, _, b, _ := img.At(5, 5).RGBA()
	assert.Greater(t, b>>8, uint32(200))
}

func TestGenerate_Errors(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(DefaultOptions())
	ctx := context.Background()

	_, err := g.Generate(ctx, filepath.Join(dir, "missing.hdr"), filepath.Join(dir, "p.jpg"))
	var pe *domain.PreviewError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "open", pe.Op)

	bad := filepath.Join(dir, "bad.hdr")
	require.NoError(t, os.WriteFile(bad, []byte("not radiance at all"), 0644))
	_, err = g.Generate(ctx, bad, filepath.Join(dir, "p.jpg"))
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "decode", pe.Op)

	badPNG := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(badPNG, []byte("garbage"), 0644))
	_, err = g.Generate(ctx, badPNG, filepath.Join(dir, "p.jpg"))
	require.True(t, errors.As(err, &pe))

	good := filepath.Join(dir, "ok.png")
	require.NoError(t, imaging.Save(imaging.New(4, 4, color.White), good))
	_, err = g.Generate(ctx, good, filepath.Join(dir, "no", "such", "dir", "p.jpg"))
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "encode", pe.Op)

	_, statErr := os.Stat(filepath.Join(dir, "p.jpg"))
	assert.True(t, os.IsNotExist(statErr), "failed generation must not leave a preview")
}

func TestGenerate_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ok.png")
	require.NoError(t, imaging.Save(imaging.New(4, 4, color.White), src))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenerator(DefaultOptions()).Generate(ctx, src, filepath.Join(dir, "p.jpg"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlaceholder(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "preview.jpg")
	g := NewGenerator(Options{MaxWidth: 64, MaxHeight: 32})
	require.NoError(t, g.Placeholder(out))

	img, err := imaging.Open(out)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 32), img.Bounds())
	r, _, _, _ := img.At(10, 10).RGBA()
	assert.InDelta(t, 128, r>>8, 3)
}

func TestNewGenerator_Defaults(t *testing.T) {
	opts := NewGenerator(Options{}).Options()
	assert.Equal(t, 200, opts.MaxWidth)
	assert.Equal(t, 200, opts.MaxHeight)
	assert.Equal(t, 90, opts.JPEGQuality)
	assert.Equal(t, DefaultToneCurve, opts.Curve)
}
