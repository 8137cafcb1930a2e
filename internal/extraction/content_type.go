package extraction

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Accepted content types.
const (
	TypePDF  = "application/pdf"
	TypeText = "text/plain"
	TypePNG  = "image/png"
	TypeJPEG = "image/jpeg"
	TypeWebP = "image/webp"
)

var supported = map[string]bool{
	TypePDF:  true,
	TypeText: true,
	TypePNG:  true,
	TypeJPEG: true,
	TypeWebP: true,
}

// Supported reports whether a (normalized) content type can be extracted.
func Supported(contentType string) bool {
	return supported[NormalizeContentType(contentType)]
}

// IsImage reports whether the content type is an accepted image format.
func IsImage(contentType string) bool {
	ct := NormalizeContentType(contentType)
	return ct == TypePNG || ct == TypeJPEG || ct == TypeWebP
}

// NormalizeContentType strips parameters and lowercases a media type.
func NormalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType == "image/jpg" {
		return TypeJPEG
	}
	return mediaType
}

// DetectContentType resolves the type of an uploaded file. The declared type wins when
// it is supported; otherwise the content is sniffed, then the file extension is used.
func DetectContentType(filename, declared string, head []byte) string {
	if ct := NormalizeContentType(declared); supported[ct] {
		return ct
	}
	if len(head) > 0 {
		if ct := NormalizeContentType(http.DetectContentType(head)); supported[ct] {
			return ct
		}
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return TypePDF
	case ".txt", ".md":
		return TypeText
	case ".png":
		return TypePNG
	case ".jpg", ".jpeg":
		return TypeJPEG
	case ".webp":
		return TypeWebP
	}
	if ct := NormalizeContentType(declared); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
