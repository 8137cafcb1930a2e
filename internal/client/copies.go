package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/types"
)

// UploadFile is one scanned copy to upload.
type UploadFile struct {
	Name   string
	Reader io.Reader
}

// UploadCopies sends files as one multipart request. studentName is optional.
func (c *Client) UploadCopies(ctx context.Context, examID uuid.UUID, studentName string, files ...UploadFile) (*types.UploadResponse, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if studentName != "" {
		if err := mw.WriteField("student_name", studentName); err != nil {
			return nil, fmt.Errorf("failed to build upload: %w", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to build upload: %w", err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, copiesPath(examID), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.send(c.httpClient, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out types.UploadResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadPaths opens the files at paths and uploads them in one request.
func (c *Client) UploadPaths(ctx context.Context, examID uuid.UUID, studentName string, paths ...string) (*types.UploadResponse, error) {
	files := make([]UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", p, err)
		}
		defer f.Close()
		files = append(files, UploadFile{Name: filepath.Base(p), Reader: f})
	}
	return c.UploadCopies(ctx, examID, studentName, files...)
}

// ListCopies lists an exam's copies, optionally filtered by status.
func (c *Client) ListCopies(ctx context.Context, examID uuid.UUID, status types.CopyStatus) ([]types.Copy, error) {
	path := copiesPath(examID)
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var copies []types.Copy
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &copies); err != nil {
		return nil, err
	}
	return copies, nil
}

func (c *Client) GetCopy(ctx context.Context, examID, copyID uuid.UUID) (*types.Copy, error) {
	var out types.Copy
	if err := c.doJSON(ctx, http.MethodGet, copyPath(examID, copyID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCopyByID fetches a copy without knowing its exam.
func (c *Client) GetCopyByID(ctx context.Context, copyID uuid.UUID) (*types.Copy, error) {
	var out types.Copy
	if err := c.doJSON(ctx, http.MethodGet, "/copies/"+copyID.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DownloadCopy streams the original upload into w and returns the bytes written.
func (c *Client) DownloadCopy(ctx context.Context, examID, copyID uuid.UUID, w io.Writer) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodGet, copyPath(examID, copyID)+"/file", nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.send(c.stream, req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to download copy: %w", err)
	}
	return n, nil
}

func (c *Client) DeleteCopy(ctx context.Context, examID, copyID uuid.UUID) error {
	return c.doJSON(ctx, http.MethodDelete, copyPath(examID, copyID), nil, nil)
}

func copiesPath(examID uuid.UUID) string {
	return "/exams/" + examID.String() + "/copies"
}

func copyPath(examID, copyID uuid.UUID) string {
	return copiesPath(examID) + "/" + copyID.String()
}
