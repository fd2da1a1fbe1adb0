package exr

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// fixture describes a scanline file to write
type fixture struct {
	width, height int
	compression   Compression
	pixel         PixelType
	channels      []string // sorted, as the format requires
	value         func(ch string, x, y int) float32
}

func encodeSample(t PixelType, v float32) []byte {
	switch t {
	case PixelHalf:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, float16.Fromfloat32(v).Bits())
		return b
	case PixelFloat:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		return b
	default:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b
	}
}

func attr(buf *bytes.Buffer, name, typ string, value []byte) {
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.WriteString(typ)
	buf.WriteByte(0)
	binary.Write(buf, binary.LittleEndian, int32(len(value)))
	buf.Write(value)
}

// zipChunk applies the interleave, predictor and zlib steps of ZIP compression
func zipChunk(t *testing.T, raw []byte) []byte {
	t.Helper()
	tmp := make([]byte, len(raw))
	half := (len(raw) + 1) / 2
	for i := range raw {
		if i%2 == 0 {
			tmp[i/2] = raw[i]
		} else {
			tmp[half+i/2] = raw[i]
		}
	}
	prev := tmp[0]
	for i := 1; i < len(tmp); i++ {
		d := int(tmp[i]) - int(prev) + 128 + 256
		prev = tmp[i]
		tmp[i] = byte(d)
	}

	var out bytes.Buffer
	zw := zlib.NewWriter(&out)
	_, err := zw.Write(tmp)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return out.Bytes()
}

func (f fixture) encode(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(magic))
	binary.Write(&buf, binary.LittleEndian, uint32(2))

	var chlist bytes.Buffer
	for _, c := range f.channels {
		chlist.WriteString(c)
		chlist.WriteByte(0)
		binary.Write(&chlist, binary.LittleEndian, int32(f.pixel))
		chlist.Write([]byte{0, 0, 0, 0})
		binary.Write(&chlist, binary.LittleEndian, int32(1))
		binary.Write(&chlist, binary.LittleEndian, int32(1))
	}
	chlist.WriteByte(0)
	attr(&buf, "channels", "chlist", chlist.Bytes())
	attr(&buf, "compression", "compression", []byte{byte(f.compression)})

	window := make([]byte, 16)
	binary.LittleEndian.PutUint32(window[8:], uint32(f.width-1))
	binary.LittleEndian.PutUint32(window[12:], uint32(f.height-1))
	attr(&buf, "dataWindow", "box2i", window)
	attr(&buf, "displayWindow", "box2i", window)
	attr(&buf, "lineOrder", "lineOrder", []byte{0})
	buf.WriteByte(0)

	lines := f.compression.linesPerChunk()
	chunks := (f.height + lines - 1) / lines
	tableAt := buf.Len()
	buf.Write(make([]byte, 8*chunks))

	offsets := make([]uint64, chunks)
	for c := 0; c < chunks; c++ {
		y0 := c * lines
		var raw bytes.Buffer
		for y := y0; y < min(y0+lines, f.height); y++ {
			for _, ch := range f.channels {
				for x := 0; x < f.width; x++ {
					raw.Write(encodeSample(f.pixel, f.value(ch, x, y)))
				}
			}
		}
		data := raw.Bytes()
		if f.compression == CompressionZIPS || f.compression == CompressionZIP {
			if packed := zipChunk(t, data); len(packed) < len(data) {
				data = packed
			}
		}
		offsets[c] = uint64(buf.Len())
		binary.Write(&buf, binary.LittleEndian, int32(y0))
		binary.Write(&buf, binary.LittleEndian, int32(len(data)))
		buf.Write(data)
	}

	out := buf.Bytes()
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(out[tableAt+8*i:], off)
	}
	return out
}

func gradient(ch string, x, y int) float32 {
	base := float32(x) + 10*float32(y)
	switch ch {
	case "R":
		return base * 0.25
	case "G":
		return base*0.25 + 0.5
	default:
		return 3.0
	}
}

func TestDecode_Compressions(t *testing.T) {
	tests := []struct {
		name        string
		compression Compression
		pixel       PixelType
		height      int
	}{
		{"none float", CompressionNone, PixelFloat, 3},
		{"none half", CompressionNone, PixelHalf, 3},
		{"zips half", CompressionZIPS, PixelHalf, 5},
		{"zip float multi chunk", CompressionZIP, PixelFloat, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fixture{
				width: 4, height: tt.height,
				compression: tt.compression,
				pixel:       tt.pixel,
				channels:    []string{"B", "G", "R"},
				value:       gradient,
			}
			img, err := DecodeImage(bytes.NewReader(f.encode(t)))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 4, tt.height), img.Bounds())

			for y := 0; y < tt.height; y++ {
				for x := 0; x < 4; x++ {
					r, g, b := img.FloatRGB(x, y)
					assert.InDelta(t, gradient("R", x, y), r, 0.05, "R at %d,%d", x, y)
					assert.InDelta(t, gradient("G", x, y), g, 0.05, "G at %d,%d", x, y)
					assert.InDelta(t, 3.0, b, 1e-6, "B at %d,%d", x, y)
				}
			}
		})
	}
}

func TestDecode_DropsExtraChannels(t *testing.T) {
	f := fixture{
		width: 2, height: 2,
		compression: CompressionNone,
		pixel:       PixelFloat,
		channels:    []string{"A", "B", "G", "R", "Z"},
		value: func(ch string, x, y int) float32 {
			return map[string]float32{"A": 0.1, "B": 0.2, "G": 0.3, "R": 0.4, "Z": 99}[ch]
		},
	}
	img, err := DecodeImage(bytes.NewReader(f.encode(t)))
	require.NoError(t, err)
	r, g, b := img.FloatRGB(1, 1)
	assert.InDelta(t, 0.4, r, 1e-6)
	assert.InDelta(t, 0.3, g, 1e-6)
	assert.InDelta(t, 0.2, b, 1e-6)
}

func TestDecode_Luminance(t *testing.T) {
	f := fixture{
		width: 2, height: 1,
		compression: CompressionNone,
		pixel:       PixelHalf,
		channels:    []string{"Y"},
		value:       func(string, int, int) float32 { return 0.5 },
	}
	img, err := DecodeImage(bytes.NewReader(f.encode(t)))
	require.NoError(t, err)
	r, g, b := img.FloatRGB(0, 0)
	assert.Equal(t, []float32{0.5, 0.5, 0.5}, []float32{r, g, b})
}

func TestDecode_RegisteredWithImage(t *testing.T) {
	f := fixture{width: 3, height: 2, compression: CompressionZIPS, pixel: PixelHalf, channels: []string{"B", "G", "R"}, value: gradient}
	data := f.encode(t)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "exr", format)
	assert.Equal(t, 3, cfg.Width)
	assert.Equal(t, 2, cfg.Height)

	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "exr", format)
	assert.IsType(t, &Image{}, img)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := DecodeImage(bytes.NewReader([]byte("#?RADIANCE\n")))
	assert.ErrorIs(t, err, ErrNotEXR)

	_, err = DecodeImage(bytes.NewReader([]byte{0x76, 0x2f}))
	assert.Error(t, err)

	f := fixture{width: 2, height: 2, compression: CompressionPIZ, pixel: PixelHalf, channels: []string{"R"}, value: gradient}
	var header bytes.Buffer
	header.Write(f.encodeHeaderOnly(t))
	_, err = DecodeImage(&header)
	assert.True(t, errors.Is(err, ErrUnsupported), "got %v", err)

	tiled := make([]byte, 8)
	binary.LittleEndian.PutUint32(tiled, magic)
	binary.LittleEndian.PutUint32(tiled[4:], 2|flagTiled)
	_, err = DecodeImage(bytes.NewReader(tiled))
	assert.ErrorIs(t, err, ErrUnsupported)
}

// encodeHeaderOnly writes a header for compressions the fixture cannot encode
func (f fixture) encodeHeaderOnly(t *testing.T) []byte {
	t.Helper()
	saved := f.compression
	f.compression = CompressionNone
	data := f.encode(t)
	// compression attribute value follows its name, type and size
	idx := bytes.Index(data, []byte("compression\x00compression\x00"))
	require.GreaterOrEqual(t, idx, 0)
	data[idx+len("compression\x00compression\x00")+4] = byte(saved)
	return data
}

func TestAt_ClampsToUnit(t *testing.T) {
	img := NewImage(image.Rect(0, 0, 1, 1))
	img.Pix[0], img.Pix[1], img.Pix[2] = 2.5, -1, float32(math.NaN())
	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
	assert.Equal(t, uint32(0xffff), a)
}
