package exr

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/x448/float16"
)

func init() {
	image.RegisterFormat("exr", "v/1\x01", Decode, DecodeConfig)
}

// Image is a linear float RGB raster. Samples are unbounded.
type Image struct {
	Pix    []float32 // R, G, B per pixel, row-major
	Stride int       // Floats per row
	Rect   image.Rectangle
}

// NewImage allocates a black raster of the given size
func NewImage(r image.Rectangle) *Image {
	return &Image{
		Pix:    make([]float32, 3*r.Dx()*r.Dy()),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

func (m *Image) ColorModel() color.Model { return color.RGBA64Model }

func (m *Image) Bounds() image.Rectangle { return m.Rect }

// FloatRGB returns the linear samples at (x, y)
func (m *Image) FloatRGB(x, y int) (r, g, b float32) {
	if !(image.Point{x, y}.In(m.Rect)) {
		return 0, 0, 0
	}
	i := (y-m.Rect.Min.Y)*m.Stride + (x-m.Rect.Min.X)*3
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// At clamps the linear samples to [0, 1]; it carries no tone mapping
func (m *Image) At(x, y int) color.Color {
	r, g, b := m.FloatRGB(x, y)
	return color.RGBA64{R: unit16(r), G: unit16(g), B: unit16(b), A: 0xffff}
}

func unit16(v float32) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}

// DecodeConfig reads the header only
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, err
	}
	h, err := readHeader(&reader{buf: data})
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBA64Model, Width: h.Width(), Height: h.Height()}, nil
}

// Decode reads an OpenEXR file as an image.Image backed by *Image
func Decode(r io.Reader) (image.Image, error) {
	return DecodeImage(r)
}

// DecodeImage reads an OpenEXR file into a float raster
func DecodeImage(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rd := &reader{buf: data}
	h, err := readHeader(rd)
	if err != nil {
		return nil, err
	}

	lines := h.Compression.linesPerChunk()
	chunks := (h.Height() + lines - 1) / lines
	offsets := make([]uint64, chunks)
	for i := range offsets {
		offsets[i] = rd.u64()
	}
	if rd.err != nil {
		return nil, fmt.Errorf("exr: reading offset table: %w", rd.err)
	}

	slots, err := channelSlots(h.Channels)
	if err != nil {
		return nil, err
	}

	img := NewImage(image.Rect(0, 0, h.Width(), h.Height()))
	lineBytes := h.bytesPerLine()

	for i, off := range offsets {
		if off >= uint64(len(data)) {
			return nil, fmt.Errorf("exr: chunk %d offset %d out of range", i, off)
		}
		cr := &reader{buf: data, off: int(off)}
		y := int(cr.i32()) - h.DataWindow.Min.Y
		size := int(cr.i32())
		packed := cr.bytes(size)
		if cr.err != nil {
			return nil, fmt.Errorf("exr: chunk %d: %w", i, cr.err)
		}
		if y < 0 || y >= h.Height() {
			return nil, fmt.Errorf("exr: chunk %d starts at scanline %d outside data window", i, y)
		}

		n := min(lines, h.Height()-y)
		raw, err := decompress(h.Compression, packed, n*lineBytes)
		if err != nil {
			return nil, fmt.Errorf("exr: chunk %d: %w", i, err)
		}
		readLines(img, h, slots, raw, y, n)
	}
	return img, nil
}

// channelSlots maps each stored channel to an output component (0=R 1=G 2=B),
// -1 to skip, or 3 for luminance replicated into all three
func channelSlots(chans []Channel) ([]int, error) {
	slots := make([]int, len(chans))
	found := map[int]bool{}
	for i, c := range chans {
		name := c.Name
		if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
			name = name[dot+1:]
		}
		switch strings.ToUpper(name) {
		case "R":
			slots[i] = 0
		case "G":
			slots[i] = 1
		case "B":
			slots[i] = 2
		case "Y":
			slots[i] = 3
		default:
			slots[i] = -1
		}
		if slots[i] >= 0 {
			if found[slots[i]] {
				// Layered files: keep the first layer only
				slots[i] = -1
				continue
			}
			found[slots[i]] = true
		}
	}
	if !found[0] && !found[1] && !found[2] && !found[3] {
		return nil, fmt.Errorf("%w: no R, G, B or Y channel", ErrUnsupported)
	}
	return slots, nil
}

func readLines(img *Image, h *Header, slots []int, raw []byte, y0, n int) {
	w := h.Width()
	off := 0
	for ly := 0; ly < n; ly++ {
		row := img.Pix[(y0+ly)*img.Stride:]
		for ci, c := range h.Channels {
			size := c.Type.size()
			slot := slots[ci]
			for x := 0; x < w; x++ {
				if slot >= 0 {
					v := sample(c.Type, raw[off:off+size])
					if slot == 3 {
						row[x*3], row[x*3+1], row[x*3+2] = v, v, v
					} else {
						row[x*3+slot] = v
					}
				}
				off += size
			}
		}
	}
}

func sample(t PixelType, b []byte) float32 {
	switch t {
	case PixelHalf:
		return float16.Frombits(binary.LittleEndian.Uint16(b)).Float32()
	case PixelFloat:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	default:
		return float32(binary.LittleEndian.Uint32(b))
	}
}

// decompress returns exactly want bytes of scanline data
func decompress(c Compression, packed []byte, want int) ([]byte, error) {
	// Chunks that would not shrink are stored raw whatever the compression
	if c == CompressionNone || len(packed) == want {
		if len(packed) != want {
			return nil, fmt.Errorf("uncompressed chunk is %d bytes, want %d", len(packed), want)
		}
		return packed, nil
	}

	var tmp []byte
	switch c {
	case CompressionRLE:
		var err error
		tmp, err = unRLE(packed, want)
		if err != nil {
			return nil, err
		}
	case CompressionZIPS, CompressionZIP:
		zr, err := zlib.NewReader(bytes.NewReader(packed))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer zr.Close()
		tmp = make([]byte, want)
		if _, err := io.ReadFull(zr, tmp); err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s compression", ErrUnsupported, c)
	}

	undoPredictor(tmp)
	return deinterleave(tmp), nil
}

func unRLE(in []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	for i := 0; i < len(in); {
		n := int(int8(in[i]))
		i++
		if n < 0 {
			n = -n
			if i+n > len(in) {
				return nil, fmt.Errorf("rle: literal run past end of data")
			}
			out = append(out, in[i:i+n]...)
			i += n
		} else {
			if i >= len(in) {
				return nil, fmt.Errorf("rle: repeat run past end of data")
			}
			for k := 0; k <= n; k++ {
				out = append(out, in[i])
			}
			i++
		}
		if len(out) > want {
			return nil, fmt.Errorf("rle: expands past %d bytes", want)
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("rle: got %d bytes, want %d", len(out), want)
	}
	return out, nil
}

func undoPredictor(b []byte) {
	for i := 1; i < len(b); i++ {
		b[i] = b[i-1] + b[i] - 128
	}
}

// deinterleave merges the two stored halves back into byte order
func deinterleave(b []byte) []byte {
	out := make([]byte, len(b))
	half := (len(b) + 1) / 2
	for i := range out {
		if i%2 == 0 {
			out[i] = b[i/2]
		} else {
			out[i] = b[half+i/2]
		}
	}
	return out
}
