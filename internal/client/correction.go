package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/types"
)

// maxEventSize bounds one SSE line; the final event carries every copy of the exam.
const maxEventSize = 8 << 20

// StreamError is an error event sent by the server after the stream started.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "correction stream: " + e.Message
}

// CorrectCopy grades a single copy and returns it updated.
func (c *Client) CorrectCopy(ctx context.Context, examID, copyID uuid.UUID) (*types.Copy, error) {
	var out types.Copy
	if err := c.doJSON(ctx, http.MethodPost, copyPath(examID, copyID)+"/correct", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CorrectExam grades every copy of an exam and waits for the whole batch.
func (c *Client) CorrectExam(ctx context.Context, examID uuid.UUID) (*types.BatchResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/exams/"+examID.String()+"/correct", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	// Batches can outlast DefaultTimeout; only ctx bounds them.
	resp, err := c.send(c.stream, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result types.BatchResult
	if err := decode(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CorrectExamStream grades every copy of an exam, calling onProgress as each copy finishes.
func (c *Client) CorrectExamStream(ctx context.Context, examID uuid.UUID, onProgress func(types.CorrectionProgress)) (*types.BatchResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/exams/"+examID.String()+"/correct/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.send(c.stream, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result *types.BatchResult
	err = readEvents(resp.Body, func(event string, data []byte) error {
		switch event {
		case "progress":
			var p types.CorrectionProgress
			if err := json.Unmarshal(data, &p); err != nil {
				return fmt.Errorf("failed to parse progress event: %w", err)
			}
			if onProgress != nil {
				onProgress(p)
			}
		case "complete":
			result = &types.BatchResult{}
			if err := json.Unmarshal(data, result); err != nil {
				return fmt.Errorf("failed to parse complete event: %w", err)
			}
			return io.EOF
		case "error":
			var payload struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(data, &payload)
			return &StreamError{Message: payload.Error}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("correction stream ended before completion")
	}
	return result, nil
}

// ReviewCopy records a manual grade for a copy.
func (c *Client) ReviewCopy(ctx context.Context, examID, copyID uuid.UUID, req *types.ReviewRequest) (*types.Copy, error) {
	var out types.Copy
	if err := c.doJSON(ctx, http.MethodPatch, copyPath(examID, copyID)+"/review", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// readEvents parses a Server-Sent Events body and calls fn once per event.
// fn returning io.EOF stops reading without error.
func readEvents(r io.Reader, fn func(event string, data []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), maxEventSize)

	event := "message"
	var data strings.Builder
	dispatch := func() error {
		if data.Len() == 0 {
			event = "message"
			return nil
		}
		err := fn(event, []byte(data.String()))
		event = "message"
		data.Reset()
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if err := dispatch(); err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read event stream: %w", err)
	}
	if err := dispatch(); err != nil && err != io.EOF {
		return err
	}
	return nil
}
