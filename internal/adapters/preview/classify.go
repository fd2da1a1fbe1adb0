package preview

import (
	"path/filepath"
	"strings"
)

// SourceKind selects the decode pipeline for a source file
type SourceKind int

const (
	// StandardImage is decoded straight to 8-bit RGB (PNG, JPEG, TIFF, ...)
	StandardImage SourceKind = iota
	// HighDynamicRangeImage is decoded to float RGB and tone mapped
	HighDynamicRangeImage
)

func (k SourceKind) String() string {
	if k == HighDynamicRangeImage {
		return "hdr"
	}
	return "standard"
}

var hdrExtensions = map[string]bool{
	".hdr":  true,
	".pic":  true,
	".rgbe": true,
	".exr":  true,
	".pfm":  true,
}

// Classify picks the pipeline from the file extension alone
func Classify(path string) SourceKind {
	if hdrExtensions[strings.ToLower(filepath.Ext(path))] {
		return HighDynamicRangeImage
	}
	return StandardImage
}
