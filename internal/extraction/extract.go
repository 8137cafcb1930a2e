// Package extraction turns uploaded exam copies into plain text for grading.
// PDFs are read through their text layer, plain text is used as-is, and scanned
// documents (images, or PDFs without a usable text layer) are transcribed by the LLM.
package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/jonathan/exam-grader/internal/llm"
	"github.com/jonathan/exam-grader/internal/prompts"
)

// Method records how the text of a copy was obtained.
type Method string

// Extraction methods.
const (
	MethodPDFText    Method = "pdf-text"
	MethodPlainText  Method = "plain-text"
	MethodTranscribe Method = "llm-transcription"
)

const (
	// DefaultMaxChars bounds the text sent to the grader.
	DefaultMaxChars = 30000
	// minTextLayerWords below this a PDF is treated as scanned.
	minTextLayerWords = 10
	truncationMarker  = "\n...[truncated]..."
)

// Transcriber reads scanned documents. llm.Client satisfies it.
type Transcriber interface {
	TranscribeDocument(ctx context.Context, prompt string, data []byte, mimeType string, tier llm.ModelTier) (string, error)
}

// Result is the text extracted from one copy.
type Result struct {
	Text      string
	Method    Method
	Truncated bool
}

// Extractor extracts text from copies.
type Extractor struct {
	transcriber Transcriber
	maxChars    int
}

// New creates an Extractor. transcriber may be nil, in which case scanned
// documents cannot be read. maxChars <= 0 selects DefaultMaxChars.
func New(transcriber Transcriber, maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{transcriber: transcriber, maxChars: maxChars}
}

// Extract returns the text of a document of the given content type.
func (e *Extractor) Extract(ctx context.Context, data []byte, contentType string) (*Result, error) {
	if len(data) == 0 {
		return nil, &Error{Message: "document is empty"}
	}

	ct := NormalizeContentType(contentType)
	switch {
	case ct == TypeText:
		if !utf8.Valid(data) {
			return nil, &Error{Message: "text document is not valid UTF-8"}
		}
		return e.finish(string(data), MethodPlainText)

	case ct == TypePDF:
		text, err := ExtractPDFText(data)
		if err == nil && CountWords(text) >= minTextLayerWords {
			return e.finish(text, MethodPDFText)
		}
		if e.transcriber == nil {
			if err != nil {
				return nil, &Error{Message: "cannot read PDF text layer", Cause: err}
			}
			return nil, &Error{Message: "PDF has no text layer and no transcription service is configured"}
		}
		if err != nil {
			log.Printf("[extraction] PDF text layer unreadable, transcribing: %v", err)
		}
		return e.transcribe(ctx, data, ct)

	case IsImage(ct):
		if e.transcriber == nil {
			return nil, &Error{Message: "image copies need a transcription service"}
		}
		return e.transcribe(ctx, data, ct)
	}

	return nil, &UnsupportedTypeError{ContentType: contentType}
}

func (e *Extractor) transcribe(ctx context.Context, data []byte, contentType string) (*Result, error) {
	prompt, err := prompts.Get(prompts.GradingFile, "transcribe-copy")
	if err != nil {
		return nil, &Error{Message: "transcription prompt unavailable", Cause: err}
	}
	text, err := e.transcriber.TranscribeDocument(ctx, prompt, data, contentType, llm.TierStandard)
	if err != nil {
		return nil, &Error{Message: "transcription failed", Cause: err}
	}
	return e.finish(text, MethodTranscribe)
}

func (e *Extractor) finish(raw string, method Method) (*Result, error) {
	text := CleanText(raw)
	if text == "" {
		return nil, &Error{Message: fmt.Sprintf("no text found (%s)", method)}
	}
	truncated := utf8.RuneCountInString(text) > e.maxChars
	if truncated {
		text = llm.Truncate(text, e.maxChars, truncationMarker)
	}
	return &Result{Text: text, Method: method, Truncated: truncated}, nil
}

// ExtractPDFText reads the embedded text layer of a PDF.
func ExtractPDFText(data []byte) (text string, err error) {
	// The PDF parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}
