package constants

import "strings"

// BytesPerMB converts the configured size ceiling (MB) to bytes.
const BytesPerMB = 1 << 20

// MediaTypePDF is the one accepted type that bypasses raster OCR.
const MediaTypePDF = "application/pdf"

// DefaultAllowedMediaTypes holds the accepted upload media types.
// Membership is exact string comparison; no MIME-family wildcards.
var DefaultAllowedMediaTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/gif",
	"image/bmp",
	"image/webp",
	MediaTypePDF,
}

// DefaultMaxUploadMB is the default upload size ceiling.
const DefaultMaxUploadMB = 10

// IsPDF reports whether a declared media type is the PDF type.
func IsPDF(mediaType string) bool {
	return strings.TrimSpace(mediaType) == MediaTypePDF
}
