package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/exam-grader/internal/llm"
)

type fakeTranscriber struct {
	text     string
	err      error
	calls    int
	mimeType string
}

func (f *fakeTranscriber) TranscribeDocument(_ context.Context, prompt string, _ []byte, mimeType string, _ llm.ModelTier) (string, error) {
	f.calls++
	f.mimeType = mimeType
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	return f.text, f.err
}

func TestExtract_PlainText(t *testing.T) {
	e := New(nil, 0)

	res, err := e.Extract(context.Background(), []byte("Q1:  x = 2\r\n\r\n\r\n\r\nQ2: y = 3"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, MethodPlainText, res.Method)
	assert.Equal(t, "Q1: x = 2\n\nQ2: y = 3", res.Text)
	assert.False(t, res.Truncated)
}

func TestExtract_Truncates(t *testing.T) {
	e := New(nil, 10)

	res, err := e.Extract(context.Background(), []byte(strings.Repeat("a", 50)), TypeText)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, strings.Repeat("a", 10)+truncationMarker, res.Text)
}

func TestExtract_ImageNeedsTranscriber(t *testing.T) {
	_, err := New(nil, 0).Extract(context.Background(), []byte{0x89, 'P', 'N', 'G'}, TypePNG)
	require.Error(t, err)
	var extErr *Error
	assert.ErrorAs(t, err, &extErr)
}

func TestExtract_ImageTranscribed(t *testing.T) {
	tr := &fakeTranscriber{text: "Answer 1: photosynthesis"}

	res, err := New(tr, 0).Extract(context.Background(), []byte("fake-jpeg"), "image/jpg")
	require.NoError(t, err)
	assert.Equal(t, MethodTranscribe, res.Method)
	assert.Equal(t, "Answer 1: photosynthesis", res.Text)
	assert.Equal(t, TypeJPEG, tr.mimeType)
}

func TestExtract_BrokenPDFFallsBackToTranscription(t *testing.T) {
	tr := &fakeTranscriber{text: "scanned answers"}

	res, err := New(tr, 0).Extract(context.Background(), []byte("%PDF-1.4 not really a pdf"), TypePDF)
	require.NoError(t, err)
	assert.Equal(t, MethodTranscribe, res.Method)
	assert.Equal(t, 1, tr.calls)
	assert.Equal(t, TypePDF, tr.mimeType)
}

func TestExtract_BrokenPDFWithoutTranscriber(t *testing.T) {
	_, err := New(nil, 0).Extract(context.Background(), []byte("garbage"), TypePDF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction failed")
}

func TestExtract_TranscriptionError(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("quota exceeded")}

	_, err := New(tr, 0).Extract(context.Background(), []byte("img"), TypeWebP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtract_EmptyTranscription(t *testing.T) {
	tr := &fakeTranscriber{text: "   \n  "}

	_, err := New(tr, 0).Extract(context.Background(), []byte("img"), TypePNG)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text found")
}

func TestExtract_Errors(t *testing.T) {
	e := New(nil, 0)

	_, err := e.Extract(context.Background(), nil, TypeText)
	assert.Error(t, err)

	_, err = e.Extract(context.Background(), []byte{0xff, 0xfe, 0xfd}, TypeText)
	assert.Error(t, err)

	_, err = e.Extract(context.Background(), []byte("PK\x03\x04"), "application/zip")
	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "application/zip", unsupported.ContentType)
}

func TestExtractPDFText_Invalid(t *testing.T) {
	_, err := ExtractPDFText([]byte("not a pdf"))
	assert.Error(t, err)
}
