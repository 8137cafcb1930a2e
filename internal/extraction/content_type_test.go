package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeContentType(t *testing.T) {
	assert.Equal(t, "text/plain", NormalizeContentType("Text/Plain; charset=UTF-8"))
	assert.Equal(t, TypeJPEG, NormalizeContentType("image/jpg"))
	assert.Equal(t, "", NormalizeContentType(""))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("application/pdf"))
	assert.True(t, Supported("image/png"))
	assert.True(t, Supported("text/plain; charset=utf-8"))
	assert.False(t, Supported("application/zip"))
	assert.False(t, Supported(""))
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		declared string
		head     []byte
		want     string
	}{
		{name: "declared wins", filename: "a.bin", declared: "application/pdf", want: TypePDF},
		{name: "sniffed pdf", filename: "copy", declared: "application/octet-stream", head: []byte("%PDF-1.7\n"), want: TypePDF},
		{name: "sniffed png", filename: "copy", head: []byte("\x89PNG\r\n\x1a\n0000"), want: TypePNG},
		{name: "extension fallback", filename: "scan.JPEG", declared: "application/octet-stream", head: []byte{0x00, 0x01}, want: TypeJPEG},
		{name: "unknown keeps declared", filename: "archive.zip", declared: "application/zip", head: []byte{0x00}, want: "application/zip"},
		{name: "nothing known", filename: "blob", head: []byte{0x00}, want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectContentType(tt.filename, tt.declared, tt.head))
		})
	}
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/webp"))
	assert.False(t, IsImage(TypePDF))
}
