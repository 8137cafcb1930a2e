// Package correction runs the extraction and grading pipeline over the copies of an exam.
package correction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/exam-grader/internal/extraction"
	"github.com/jonathan/exam-grader/internal/grading"
	"github.com/jonathan/exam-grader/internal/types"
)

// DefaultConcurrency is the number of copies graded in parallel when none is configured.
const DefaultConcurrency = 4

// Outcomes reported to the Observer.
const (
	OutcomeCorrected = "corrected"
	OutcomeFailed    = "failed"
)

// Store is the persistence needed by the pipeline. *db.DB satisfies it.
type Store interface {
	ListCopies(ctx context.Context, examID uuid.UUID, status types.CopyStatus) ([]types.Copy, error)
	SaveCorrection(ctx context.Context, copyID uuid.UUID, result types.Correction) (*types.Copy, error)
	MarkCopyFailed(ctx context.Context, copyID uuid.UUID, reason string) error
}

// FileReader loads stored copy files. *storage.Local satisfies it.
type FileReader interface {
	Read(path string) ([]byte, error)
}

// Grader grades extracted text. *grading.Grader satisfies it.
type Grader interface {
	Grade(ctx context.Context, exam *types.Exam, text string, truncated bool) (*types.Correction, error)
}

// Observer is notified of every finished copy correction.
type Observer interface {
	ObserveCorrection(outcome string, d time.Duration)
}

// ProgressFunc receives one event per corrected copy. Calls are serialized.
type ProgressFunc func(types.CorrectionProgress)

// Options configures a Service.
type Options struct {
	Concurrency int
	Observer    Observer
}

// Service corrects copies.
type Service struct {
	store       Store
	files       FileReader
	extractor   *extraction.Extractor
	grader      Grader
	concurrency int
	observer    Observer
}

// NewService creates a correction service.
func NewService(store Store, files FileReader, extractor *extraction.Extractor, grader Grader, opts Options) *Service {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Service{
		store:       store,
		files:       files,
		extractor:   extractor,
		grader:      grader,
		concurrency: opts.Concurrency,
		observer:    opts.Observer,
	}
}

// CorrectCopy extracts and grades one copy and stores the result.
// A pipeline failure marks the copy failed and is returned as a *CopyError.
func (s *Service) CorrectCopy(ctx context.Context, exam *types.Exam, c *types.Copy) (*types.Copy, error) {
	start := time.Now()

	result, stage, err := s.run(ctx, exam, c)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		copyErr := &CopyError{CopyID: c.ID, Stage: stage, Cause: err}
		s.observe(OutcomeFailed, start)
		log.Printf("[correction] %v", copyErr)
		// The request may be gone; the failure is still recorded.
		if markErr := s.store.MarkCopyFailed(context.WithoutCancel(ctx), c.ID, copyErr.Reason()); markErr != nil {
			return nil, fmt.Errorf("failed to mark copy failed: %w", markErr)
		}
		return nil, copyErr
	}

	updated, err := s.store.SaveCorrection(ctx, c.ID, *result)
	if err != nil {
		return nil, fmt.Errorf("failed to save correction: %w", err)
	}
	s.observe(OutcomeCorrected, start)
	log.Printf("[correction] copy %s graded %.2f/%.2f", c.ID, result.Grade, exam.MaxScore)
	return updated, nil
}

func (s *Service) run(ctx context.Context, exam *types.Exam, c *types.Copy) (*types.Correction, Stage, error) {
	data, err := s.files.Read(c.FilePath)
	if err != nil {
		return nil, StageRead, err
	}

	extracted, err := s.extractor.Extract(ctx, data, c.ContentType)
	if err != nil {
		return nil, StageExtract, err
	}

	result, err := s.grader.Grade(ctx, exam, extracted.Text, extracted.Truncated)
	if err != nil {
		return nil, StageGrade, err
	}
	return result, "", nil
}

// CorrectExam corrects every copy of an exam that a professor has not reviewed, at most
// Concurrency at a time. Copies that fail are marked failed and the batch continues;
// a store or context error aborts it. The returned list holds every copy of the exam.
func (s *Service) CorrectExam(ctx context.Context, exam *types.Exam, onProgress ProgressFunc) ([]types.Copy, error) {
	copies, err := s.store.ListCopies(ctx, exam.ID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list copies: %w", err)
	}

	var targets []int
	for i := range copies {
		if copies[i].Status != types.CopyStatusReviewed {
			targets = append(targets, i)
		}
	}
	log.Printf("[correction] exam %s: correcting %d of %d copies (concurrency %d)",
		exam.ID, len(targets), len(copies), s.concurrency)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	var mu sync.Mutex // guards copies and completed, and serializes onProgress
	completed := 0

	for _, idx := range targets {
		original := copies[idx]
		g.Go(func() error {
			updated, err := s.CorrectCopy(gCtx, exam, &original)

			var copyErr *CopyError
			switch {
			case err == nil:
			case errors.As(err, &copyErr):
				failed := original
				failed.Status = types.CopyStatusFailed
				failed.Error = copyErr.Reason()
				updated = &failed
			default:
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			copies[idx] = *updated
			completed++
			if onProgress != nil {
				onProgress(types.CorrectionProgress{
					CopyID:    updated.ID,
					Status:    updated.Status,
					Grade:     updated.Grade,
					Error:     updated.Error,
					Completed: completed,
					Total:     len(targets),
				})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch correction of exam %s aborted: %w", exam.ID, err)
	}
	return copies, nil
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveCorrection(outcome, time.Since(start))
	}
}

var _ Grader = (*grading.Grader)(nil)
