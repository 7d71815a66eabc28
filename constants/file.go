package constants

import "strings"

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// FileTypes holds the source formats the OCR collaborator accepts.
var FileTypes = []string{PDF, IMAGE}

// AllowedExtensions holds the default allowed file extensions for bill ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns PDF, IMAGE or "" for an extension (with or without the dot).
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tif", "tiff":
		return IMAGE
	default:
		return ""
	}
}
