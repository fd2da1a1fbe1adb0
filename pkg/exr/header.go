// Package exr decodes single-part scanline OpenEXR files into float RGB rasters.
//
// Supported compressions are NONE, RLE, ZIPS and ZIP. Tiled, deep and
// multi-part files are rejected.
package exr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
)

const (
	magic = 20000630

	flagTiled     = 0x200
	flagNonImage  = 0x800
	flagMultipart = 0x1000
)

// Compression is the per-file chunk compression
type Compression uint8

const (
	CompressionNone  Compression = 0
	CompressionRLE   Compression = 1
	CompressionZIPS  Compression = 2
	CompressionZIP   Compression = 3
	CompressionPIZ   Compression = 4
	CompressionPXR24 Compression = 5
	CompressionB44   Compression = 6
	CompressionB44A  Compression = 7
)

func (c Compression) String() string {
	names := []string{"NONE", "RLE", "ZIPS", "ZIP", "PIZ", "PXR24", "B44", "B44A", "DWAA", "DWAB"}
	if int(c) < len(names) {
		return names[c]
	}
	return fmt.Sprintf("compression(%d)", c)
}

// linesPerChunk is the number of scanlines stored in one chunk
func (c Compression) linesPerChunk() int {
	switch c {
	case CompressionZIP, CompressionPXR24:
		return 16
	case CompressionPIZ, CompressionB44, CompressionB44A:
		return 32
	default:
		return 1
	}
}

// PixelType is the storage type of one channel
type PixelType int32

const (
	PixelUint  PixelType = 0
	PixelHalf  PixelType = 1
	PixelFloat PixelType = 2
)

func (p PixelType) size() int {
	if p == PixelHalf {
		return 2
	}
	return 4
}

// Channel describes one entry of the channel list
type Channel struct {
	Name      string
	Type      PixelType
	XSampling int32
	YSampling int32
}

// Header holds the attributes needed to read pixel data
type Header struct {
	Channels    []Channel // Sorted by name, as stored
	Compression Compression
	DataWindow  image.Rectangle // Inclusive max converted to exclusive
}

// Width returns the number of pixels per scanline
func (h *Header) Width() int { return h.DataWindow.Dx() }

// Height returns the number of scanlines
func (h *Header) Height() int { return h.DataWindow.Dy() }

// bytesPerLine is the uncompressed size of one scanline across all channels
func (h *Header) bytesPerLine() int {
	n := 0
	for _, c := range h.Channels {
		n += c.Type.size() * h.Width()
	}
	return n
}

var (
	ErrNotEXR      = errors.New("exr: not an OpenEXR file")
	ErrUnsupported = errors.New("exr: unsupported feature")
)

// reader is a bounds-checked cursor over the file bytes
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.buf) {
		r.err = fmt.Errorf("exr: unexpected end of data at offset %d", r.off)
		return false
	}
	return true
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) i32() int32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *reader) u64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// cstring reads a null-terminated string
func (r *reader) cstring() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.buf[r.off:], 0)
	if i < 0 {
		r.err = fmt.Errorf("exr: unterminated string at offset %d", r.off)
		return ""
	}
	s := string(r.buf[r.off : r.off+i])
	r.off += i + 1
	return s
}

// readHeader parses the magic, version and the attribute list
func readHeader(r *reader) (*Header, error) {
	if uint32(r.i32()) != magic {
		if r.err != nil {
			return nil, r.err
		}
		return nil, ErrNotEXR
	}
	version := uint32(r.i32())
	if r.err != nil {
		return nil, r.err
	}
	if version&0xff != 2 {
		return nil, fmt.Errorf("%w: file format version %d", ErrUnsupported, version&0xff)
	}
	switch {
	case version&flagTiled != 0:
		return nil, fmt.Errorf("%w: tiled images", ErrUnsupported)
	case version&flagNonImage != 0:
		return nil, fmt.Errorf("%w: deep data", ErrUnsupported)
	case version&flagMultipart != 0:
		return nil, fmt.Errorf("%w: multi-part files", ErrUnsupported)
	}

	h := &Header{}
	var haveChannels, haveWindow, haveCompression bool
	for {
		name := r.cstring()
		if r.err != nil {
			return nil, r.err
		}
		if name == "" {
			break
		}
		typ := r.cstring()
		size := int(r.i32())
		value := r.bytes(size)
		if r.err != nil {
			return nil, r.err
		}

		switch name {
		case "channels":
			if typ != "chlist" {
				return nil, fmt.Errorf("exr: channels attribute has type %q", typ)
			}
			chans, err := parseChannels(value)
			if err != nil {
				return nil, err
			}
			h.Channels = chans
			haveChannels = true
		case "compression":
			if len(value) != 1 {
				return nil, fmt.Errorf("exr: compression attribute size %d", len(value))
			}
			h.Compression = Compression(value[0])
			haveCompression = true
		case "dataWindow":
			if len(value) != 16 {
				return nil, fmt.Errorf("exr: dataWindow attribute size %d", len(value))
			}
			xMin := int(int32(binary.LittleEndian.Uint32(value[0:])))
			yMin := int(int32(binary.LittleEndian.Uint32(value[4:])))
			xMax := int(int32(binary.LittleEndian.Uint32(value[8:])))
			yMax := int(int32(binary.LittleEndian.Uint32(value[12:])))
			if xMax < xMin || yMax < yMin {
				return nil, fmt.Errorf("exr: empty data window")
			}
			h.DataWindow = image.Rect(xMin, yMin, xMax+1, yMax+1)
			haveWindow = true
		}
	}

	if !haveChannels || !haveWindow || !haveCompression {
		return nil, fmt.Errorf("exr: header is missing required attributes")
	}
	switch h.Compression {
	case CompressionNone, CompressionRLE, CompressionZIPS, CompressionZIP:
	default:
		return nil, fmt.Errorf("%w: %s compression", ErrUnsupported, h.Compression)
	}
	return h, nil
}

func parseChannels(value []byte) ([]Channel, error) {
	r := &reader{buf: value}
	var chans []Channel
	for {
		name := r.cstring()
		if r.err != nil {
			return nil, r.err
		}
		if name == "" {
			break
		}
		c := Channel{Name: name, Type: PixelType(r.i32())}
		r.bytes(4) // pLinear + reserved
		c.XSampling = r.i32()
		c.YSampling = r.i32()
		if r.err != nil {
			return nil, r.err
		}
		if c.Type < PixelUint || c.Type > PixelFloat {
			return nil, fmt.Errorf("exr: channel %q has unknown pixel type %d", name, c.Type)
		}
		if c.XSampling != 1 || c.YSampling != 1 {
			return nil, fmt.Errorf("%w: subsampled channel %q", ErrUnsupported, name)
		}
		chans = append(chans, c)
	}
	if len(chans) == 0 {
		return nil, fmt.Errorf("exr: empty channel list")
	}
	return chans, nil
}
