package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/extraction"
	"github.com/jonathan/exam-grader/internal/types"
)

// multipartMemory is the part of a multipart body kept in memory; the rest spills to temp files.
const multipartMemory = 8 << 20

// sniffLen is the number of leading bytes used to detect a file's content type.
const sniffLen = 512

type upload struct {
	header      *multipart.FileHeader
	contentType string
}

// handleUploadCopies stores one or more copy files for an exam
func (s *Server) handleUploadCopies(w http.ResponseWriter, r *http.Request) {
	examID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}
	exam, err := s.loadExam(r.Context(), examID)
	if err != nil {
		handleError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleError(w, &ErrPayloadTooLarge{LimitBytes: s.maxUpload})
			return
		}
		errorResponse(w, http.StatusBadRequest, "Invalid multipart body: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	headers := append(r.MultipartForm.File["file"], r.MultipartForm.File["files"]...)
	if len(headers) == 0 {
		errorResponse(w, http.StatusBadRequest, "No files uploaded (use form field 'file' or 'files')")
		return
	}

	// Check every file before storing any.
	uploads := make([]upload, 0, len(headers))
	for _, fh := range headers {
		ct, err := detectUploadType(fh)
		if err != nil {
			handleError(w, err)
			return
		}
		uploads = append(uploads, upload{header: fh, contentType: ct})
	}

	studentName := strings.TrimSpace(r.FormValue("student_name"))
	response := types.UploadResponse{Copies: make([]types.Copy, 0, len(uploads))}
	for _, u := range uploads {
		c, err := s.storeUpload(r, exam.ID, u, studentName)
		if err != nil {
			s.discardCopies(r.Context(), response.Copies)
			handleError(w, err)
			return
		}
		response.Copies = append(response.Copies, *c)
	}

	response.UploadedCount = len(response.Copies)
	firstID := response.Copies[0].ID
	response.FirstCopyID = &firstID

	log.Printf("[copies] uploaded %d copies to exam %s", response.UploadedCount, exam.ID)
	jsonResponse(w, http.StatusCreated, response)
}

func detectUploadType(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	if n == 0 {
		return "", &ErrValidation{Field: "file", Message: fmt.Sprintf("%s is empty", fh.Filename)}
	}

	ct := extraction.DetectContentType(fh.Filename, fh.Header.Get("Content-Type"), head[:n])
	if !extraction.Supported(ct) {
		return "", &extraction.UnsupportedTypeError{ContentType: ct}
	}
	return ct, nil
}

func (s *Server) storeUpload(r *http.Request, examID uuid.UUID, u upload, studentName string) (*types.Copy, error) {
	f, err := u.header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", u.header.Filename, err)
	}
	defer f.Close()

	copyID := uuid.New()
	saved, err := s.files.Save(examID, copyID, u.header.Filename, f, s.maxUpload)
	if err != nil {
		return nil, err
	}

	c, err := s.store.CreateCopy(r.Context(), &types.Copy{
		ID:           copyID,
		ExamID:       examID,
		FilePath:     saved.Path,
		OriginalName: u.header.Filename,
		ContentType:  u.contentType,
		StudentName:  studentName,
	})
	if err != nil {
		if delErr := s.files.Delete(saved.Path); delErr != nil {
			log.Printf("[copies] failed to remove orphan file %s: %v", saved.Path, delErr)
		}
		return nil, err
	}
	log.Printf("[copies] stored %s as %s (%d bytes, sha256 %s)", u.header.Filename, saved.Path, saved.Size, saved.Checksum)
	return c, nil
}

// discardCopies removes the copies of an upload that failed part way, so the
// request either stores every file or none.
func (s *Server) discardCopies(ctx context.Context, copies []types.Copy) {
	ctx = context.WithoutCancel(ctx)
	for _, c := range copies {
		if err := s.store.DeleteCopy(ctx, c.ID); err != nil {
			log.Printf("[copies] failed to roll back copy %s: %v", c.ID, err)
			continue
		}
		if err := s.files.Delete(c.FilePath); err != nil {
			log.Printf("[copies] failed to remove file of copy %s: %v", c.ID, err)
		}
	}
}

// handleListCopies lists the copies of an exam, optionally filtered by status
func (s *Server) handleListCopies(w http.ResponseWriter, r *http.Request) {
	examID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	status := types.CopyStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		errorResponse(w, http.StatusBadRequest, fmt.Sprintf("validation error: status - unknown value %q", status))
		return
	}

	if _, err := s.loadExam(r.Context(), examID); err != nil {
		handleError(w, err)
		return
	}

	copies, err := s.store.ListCopies(r.Context(), examID, status)
	if err != nil {
		handleError(w, err)
		return
	}
	if copies == nil {
		copies = []types.Copy{}
	}
	jsonResponse(w, http.StatusOK, copies)
}

// handleGetExamCopy returns a copy of an exam
func (s *Server) handleGetExamCopy(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// handleGetCopy returns a copy by ID
func (s *Server) handleGetCopy(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "copyId")
	if err != nil {
		handleError(w, err)
		return
	}
	c, err := s.loadCopy(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// handleCopyFile serves the stored file of a copy
func (s *Server) handleCopyFile(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}

	f, err := s.files.Open(c.FilePath)
	if err != nil {
		handleError(w, fmt.Errorf("failed to open file of copy %s: %w", c.ID, err))
		return
	}
	defer f.Close()

	name := c.OriginalName
	if name == "" {
		name = c.ID.String()
	}
	if c.ContentType != "" {
		w.Header().Set("Content-Type", c.ContentType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	http.ServeContent(w, r, name, c.UpdatedAt, f)
}

// handleDeleteCopy deletes a copy and its file
func (s *Server) handleDeleteCopy(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.loadExamCopy(r)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := s.store.DeleteCopy(r.Context(), c.ID); err != nil {
		handleError(w, err)
		return
	}
	if err := s.files.Delete(c.FilePath); err != nil {
		log.Printf("[copies] failed to remove file of copy %s: %v", c.ID, err)
	}

	w.WriteHeader(http.StatusNoContent)
}
