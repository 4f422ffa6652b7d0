package modis

import (
	"fmt"
	"strings"
)

//go:generate enumer -json -type Encoding -trimprefix Encoding

// Encoding is an image encoding served by the tile service
type Encoding int

const (
	EncodingJPEG Encoding = iota
	EncodingPNG
)

// EncodingFromMimeType returns the encoding of a MIME type such as "image/jpeg"
func EncodingFromMimeType(mimeType string) (Encoding, error) {
	parts := strings.SplitN(mimeType, "/", 2)
	if len(parts) != 2 || parts[0] != "image" {
		return 0, fmt.Errorf("unsupported format %q", mimeType)
	}
	return EncodingString(strings.SplitN(parts[1], ";", 2)[0])
}

// Extension returns the file extension used in tile urls
func (e Encoding) Extension() string {
	switch e {
	case EncodingPNG:
		return "png"
	default:
		return "jpg"
	}
}

// MimeType returns the MIME type of the encoding
func (e Encoding) MimeType() string {
	return "image/" + strings.ToLower(e.String())
}

// Driver returns the name of the GDAL driver able to decode the encoding
func (e Encoding) Driver() string {
	return e.String()
}
