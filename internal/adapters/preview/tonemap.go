package preview

import (
	"image"
	"math"

	"github.com/mdouchement/hdr"
)

// FloatRaster is a decoded linear-light image
type FloatRaster interface {
	Bounds() image.Rectangle
	FloatRGB(x, y int) (r, g, b float32)
}

// ToneCurve is the gain then gamma applied before quantization
type ToneCurve struct {
	Gain  float64
	Gamma float64
}

// DefaultToneCurve brightens by 2 and compresses with gamma 0.8
var DefaultToneCurve = ToneCurve{Gain: 2.0, Gamma: 0.8}

// ToneMap quantizes a float raster to 8-bit RGB. Intermediate values are not
// clamped; only the final 255-scaled value is clipped and truncated.
func ToneMap(src FloatRaster, curve ToneCurve) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := dst.Pix[(y-b.Min.Y)*dst.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl := src.FloatRGB(x, y)
			i := (x - b.Min.X) * 4
			row[i] = curve.Apply(float64(r))
			row[i+1] = curve.Apply(float64(g))
			row[i+2] = curve.Apply(float64(bl))
			row[i+3] = 0xff
		}
	}
	return dst
}

// Apply maps one linear sample to a display byte. NaN, including a negative
// sample raised to a fractional gamma, becomes 0.
func (c ToneCurve) Apply(v float64) uint8 {
	s := math.Pow(v*c.Gain, c.Gamma) * 255
	switch {
	case math.IsNaN(s), s <= 0:
		return 0
	case s >= 255:
		return 255
	default:
		return uint8(s)
	}
}

// hdrRaster adapts images from the mdouchement/hdr codecs
type hdrRaster struct {
	img hdr.Image
}

func (h hdrRaster) Bounds() image.Rectangle { return h.img.Bounds() }

func (h hdrRaster) FloatRGB(x, y int) (r, g, b float32) {
	rr, gg, bb, _ := h.img.HDRAt(x, y).HDRRGBA()
	return float32(rr), float32(gg), float32(bb)
}
