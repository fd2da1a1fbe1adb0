package preview

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/pfm"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/rs/zerolog/log"

	"github.com/kamal-hamza/hx-cli/internal/core/domain"
	"github.com/kamal-hamza/hx-cli/pkg/exr"
)

// Options bounds and encodes the thumbnail
type Options struct {
	Curve       ToneCurve
	MaxWidth    int
	MaxHeight   int
	JPEGQuality int
	Placeholder color.Color
}

// DefaultOptions returns a 200x200 bound at JPEG quality 90
func DefaultOptions() Options {
	return Options{
		Curve:       DefaultToneCurve,
		MaxWidth:    200,
		MaxHeight:   200,
		JPEGQuality: 90,
		Placeholder: color.NRGBA{R: 128, G: 128, B: 128, A: 255},
	}
}

// Generator produces preview thumbnails. It implements ports.PreviewGenerator.
type Generator struct {
	opts Options
}

// NewGenerator fills zero fields of opts with defaults
func NewGenerator(opts Options) *Generator {
	def := DefaultOptions()
	if opts.Curve.Gain == 0 {
		opts.Curve.Gain = def.Curve.Gain
	}
	if opts.Curve.Gamma == 0 {
		opts.Curve.Gamma = def.Curve.Gamma
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = def.MaxWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = def.MaxHeight
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if opts.Placeholder == nil {
		opts.Placeholder = def.Placeholder
	}
	return &Generator{opts: opts}
}

// Options returns the effective options
func (g *Generator) Options() Options {
	return g.opts
}

// Generate writes the thumbnail of inputPath to outputPath
func (g *Generator) Generate(ctx context.Context, inputPath, outputPath string) (string, error) {
	thumb, err := g.Render(ctx, inputPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", &domain.PreviewError{Path: inputPath, Op: "encode", Inner: err}
	}
	if err := g.write(thumb, outputPath); err != nil {
		return "", err
	}

	log.Debug().
		Str("path", inputPath).
		Str("preview", outputPath).
		Int("width", thumb.Bounds().Dx()).
		Int("height", thumb.Bounds().Dy()).
		Msg("preview written")
	return outputPath, nil
}

// Render decodes, tone maps and resizes without writing anything
func (g *Generator) Render(ctx context.Context, inputPath string) (*image.NRGBA, error) {
	var (
		rgb *image.NRGBA
		err error
	)
	kind := Classify(inputPath)
	switch kind {
	case HighDynamicRangeImage:
		var raster FloatRaster
		raster, err = decodeHDR(inputPath)
		if err == nil {
			rgb = ToneMap(raster, g.opts.Curve)
		}
	default:
		rgb, err = decodeStandard(inputPath)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.PreviewError{Path: inputPath, Op: "decode", Inner: err}
	}

	log.Debug().Str("path", inputPath).Stringer("kind", kind).Int("width", rgb.Bounds().Dx()).Int("height", rgb.Bounds().Dy()).Msg("source decoded")
	return imaging.Fit(rgb, g.opts.MaxWidth, g.opts.MaxHeight, imaging.Lanczos), nil
}

// Placeholder writes a flat grey thumbnail at the maximum size
func (g *Generator) Placeholder(outputPath string) error {
	img := imaging.New(g.opts.MaxWidth, g.opts.MaxHeight, g.opts.Placeholder)
	return g.write(img, outputPath)
}

// write encodes through a temporary file so a failed encode leaves no partial preview
func (g *Generator) write(img image.Image, outputPath string) error {
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".preview-*")
	if err != nil {
		return &domain.PreviewError{Path: outputPath, Op: "encode", Inner: err}
	}
	defer os.Remove(tmp.Name())

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(g.opts.JPEGQuality)); err != nil {
		tmp.Close()
		return &domain.PreviewError{Path: outputPath, Op: "encode", Inner: err}
	}
	if err := tmp.Close(); err != nil {
		return &domain.PreviewError{Path: outputPath, Op: "encode", Inner: err}
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return &domain.PreviewError{Path: outputPath, Op: "encode", Inner: err}
	}
	return nil
}

// decodeStandard reads an 8-bit image and drops its alpha channel
func decodeStandard(path string) (*image.NRGBA, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &domain.PreviewError{Path: path, Op: "open", Inner: err}
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &domain.PreviewError{Path: path, Op: "decode", Inner: err}
	}

	rgb := imaging.Clone(img)
	for i := 3; i < len(rgb.Pix); i += 4 {
		rgb.Pix[i] = 0xff
	}
	return rgb, nil
}

// decodeHDR reads Radiance, PFM or OpenEXR files into a float raster
func decodeHDR(path string) (FloatRaster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.PreviewError{Path: path, Op: "open", Inner: err}
	}
	defer f.Close()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exr":
		var m *exr.Image
		m, err = exr.DecodeImage(f)
		if err == nil {
			return m, nil
		}
	case ".pfm":
		img, err = pfm.Decode(f)
	default:
		img, err = rgbe.Decode(f)
	}
	if err != nil {
		return nil, &domain.PreviewError{Path: path, Op: "decode", Inner: err}
	}

	m, ok := img.(hdr.Image)
	if !ok {
		return nil, &domain.PreviewError{Path: path, Op: "decode", Inner: fmt.Errorf("decoder returned %T, not a float image", img)}
	}
	return hdrRaster{img: m}, nil
}
