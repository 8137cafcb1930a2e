package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/jonathan/exam-grader/internal/types"
)

// SendMessage asks the assistant about a graded copy.
func (c *Client) SendMessage(ctx context.Context, req *types.ChatMessageRequest) (*types.ChatMessageResponse, error) {
	var out types.ChatMessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chatbot/message", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMessages returns a copy's conversation, oldest first. limit 0 returns everything.
func (c *Client) ListMessages(ctx context.Context, copyID uuid.UUID, limit int) ([]types.ChatMessage, error) {
	path := "/copies/" + copyID.String() + "/messages"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out []types.ChatMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Rectify files a grade rectification request.
func (c *Client) Rectify(ctx context.Context, examID, copyID uuid.UUID, message string) (*types.RectifyResponse, error) {
	var out types.RectifyResponse
	req := &types.RectifyRequest{Message: message}
	if err := c.doJSON(ctx, http.MethodPost, copyPath(examID, copyID)+"/rectify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Flag reports a problem with a copy. An empty issue lets the server pick a default.
func (c *Client) Flag(ctx context.Context, examID, copyID uuid.UUID, issue string) (*types.FlagResponse, error) {
	var out types.FlagResponse
	req := &types.FlagRequest{Issue: issue}
	if err := c.doJSON(ctx, http.MethodPost, copyPath(examID, copyID)+"/flag", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListClaims lists an exam's claims, optionally filtered by status.
func (c *Client) ListClaims(ctx context.Context, examID uuid.UUID, status types.ClaimStatus) ([]types.Claim, error) {
	path := "/exams/" + examID.String() + "/claims"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var out []types.Claim
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveClaim closes a claim, optionally with an answer for the student.
func (c *Client) ResolveClaim(ctx context.Context, claimID uuid.UUID, response string) (*types.Claim, error) {
	req := &types.ResolveClaimRequest{Resolved: true}
	if response != "" {
		req.Response = &response
	}
	var out types.Claim
	if err := c.doJSON(ctx, http.MethodPatch, "/claims/"+claimID.String(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
